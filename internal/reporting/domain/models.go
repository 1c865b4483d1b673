package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// ReportType tags the nature of a reporting edge. Only "direct" edges carry
// the primary flag in practice; the rest model dotted-line oversight.
type ReportType string

const (
	ReportTypeDirect     ReportType = "direct"
	ReportTypeDotted     ReportType = "dotted"
	ReportTypeFunctional ReportType = "functional"
	ReportTypeProject    ReportType = "project"
)

// Valid reports whether t is a known report type.
func (t ReportType) Valid() bool {
	switch t {
	case ReportTypeDirect, ReportTypeDotted, ReportTypeFunctional, ReportTypeProject:
		return true
	default:
		return false
	}
}

// ReportingRelationship is an edge from a subordinate member to a manager
// member. At most one edge exists per (member, manager) pair and at most one
// edge per member carries IsPrimary. The primary subgraph forms the canonical
// org tree; non-primary edges turn the structure into a DAG.
type ReportingRelationship struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	MemberID   snowflake.ID `gorm:"not null;index;uniqueIndex:idx_reporting_member_manager" json:"member_id"`
	ManagerID  snowflake.ID `gorm:"not null;index;uniqueIndex:idx_reporting_member_manager" json:"manager_id"`
	IsPrimary  bool         `gorm:"not null;default:false" json:"is_primary"`
	ReportType ReportType   `gorm:"type:text;not null;default:'direct'" json:"report_type"`
	Notes      string       `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (ReportingRelationship) TableName() string { return "reporting_relationships" }
