package domain

import (
	"context"
	"errors"
)

type ListMemberRequest struct {
	ActiveOnly bool
	Department string
}

type GetMemberRequest struct {
	ID string
}

type CreateMemberRequest struct {
	Name       string
	Position   map[string]any
	Bio        map[string]any
	Department *string
	PhotoURL   string
	SortOrder  int
	ParentID   string // optional; creates the matching primary reporting edge
}

// UpdateMemberRequest is a patch: nil fields are left unchanged. ParentID
// semantics: nil = unchanged, pointer to "" = clear the primary manager,
// pointer to an id = reparent under that manager.
type UpdateMemberRequest struct {
	ID         string
	Name       *string
	Position   map[string]any
	Bio        map[string]any
	Department *string
	PhotoURL   *string
	SortOrder  *int
	IsActive   *bool
	ParentID   *string
}

type DeleteMemberRequest struct {
	ID string
}

type PotentialParentsRequest struct {
	ExcludeID string // optional
}

type Service interface {
	List(ctx context.Context, req ListMemberRequest) ([]Member, error)
	GetByID(ctx context.Context, req GetMemberRequest) (Member, error)
	Create(ctx context.Context, req CreateMemberRequest) (Member, error)
	Update(ctx context.Context, req UpdateMemberRequest) (Member, error)
	Delete(ctx context.Context, req DeleteMemberRequest) error
	PotentialParents(ctx context.Context, req PotentialParentsRequest) ([]Member, error)
}

var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidName      = errors.New("invalid_name")
	ErrSelfReference    = errors.New("self_reference")
	ErrParentNotFound   = errors.New("parent_not_found")
	ErrNotFound         = errors.New("not_found")
	ErrConcurrentUpdate = errors.New("concurrent_update")
)
