package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListMemberFilter struct {
	ActiveOnly bool
	Department string
}

type Repository interface {
	List(ctx context.Context, db *gorm.DB, filter ListMemberFilter) ([]*Member, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Member, error)
	SlugTaken(ctx context.Context, db *gorm.DB, slug string, excludeID snowflake.ID) (bool, error)
	Insert(ctx context.Context, db *gorm.DB, member *Member) error
	Update(ctx context.Context, db *gorm.DB, member *Member) error
	UpdateParentID(ctx context.Context, db *gorm.DB, id snowflake.ID, parentID *snowflake.ID) error
	ClearParentFor(ctx context.Context, db *gorm.DB, parentID snowflake.ID) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
