package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListRelationshipRequest struct {
	MemberID string
}

type AddRelationshipRequest struct {
	MemberID   string
	ManagerID  string
	IsPrimary  bool
	ReportType string
	Notes      string
}

// UpdateRelationshipRequest is a patch: nil fields are left unchanged.
type UpdateRelationshipRequest struct {
	ID         string
	IsPrimary  *bool
	ReportType *string
	Notes      *string
}

type RemoveRelationshipRequest struct {
	ID string
}

type Service interface {
	List(ctx context.Context, req ListRelationshipRequest) ([]ReportingRelationship, error)
	Add(ctx context.Context, req AddRelationshipRequest) (ReportingRelationship, error)
	Update(ctx context.Context, req UpdateRelationshipRequest) (ReportingRelationship, error)
	Remove(ctx context.Context, req RemoveRelationshipRequest) error

	Synchronizer
}

// Synchronizer re-routes a member's primary reporting edge. The edge flip and
// the member's denormalized ParentID write happen against tx so callers can
// make both part of one transaction. A nil managerID unsets every primary
// flag for the member; clearing Member.ParentID itself stays with the caller.
type Synchronizer interface {
	SyncPrimaryManager(ctx context.Context, tx *gorm.DB, memberID snowflake.ID, managerID *snowflake.ID) error
}

var (
	ErrUnauthorized          = errors.New("unauthorized")
	ErrInvalidID             = errors.New("invalid_id")
	ErrInvalidReportType     = errors.New("invalid_report_type")
	ErrSelfReference         = errors.New("self_reference")
	ErrDuplicateRelationship = errors.New("duplicate_relationship")
	ErrMemberNotFound        = errors.New("member_not_found")
	ErrNotFound              = errors.New("not_found")
)
