package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Member is a person on the foundation's team page. ParentID is a
// denormalized pointer to the member's primary manager; the reporting edge
// table is the source of truth and the synchronizer keeps the two aligned.
type Member struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name       string            `gorm:"not null" json:"name"`
	Slug       string            `gorm:"not null;uniqueIndex" json:"slug"`
	Position   datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"position,omitempty"`
	Bio        datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"bio,omitempty"`
	Department *string           `gorm:"index" json:"department,omitempty"`
	PhotoURL   string            `json:"photo_url,omitempty"`
	SortOrder  int               `gorm:"not null;default:0" json:"sort_order"`
	IsActive   bool              `gorm:"not null;default:true" json:"is_active"`
	ParentID   *snowflake.ID     `gorm:"index" json:"parent_id,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Member) TableName() string { return "members" }

// DepartmentLabel returns the trimmed department, or empty when unset.
func (m Member) DepartmentLabel() string {
	if m.Department == nil {
		return ""
	}
	return *m.Department
}
