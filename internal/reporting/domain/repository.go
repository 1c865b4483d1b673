package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	ListAll(ctx context.Context, db *gorm.DB) ([]*ReportingRelationship, error)
	ListByMember(ctx context.Context, db *gorm.DB, memberID snowflake.ID) ([]*ReportingRelationship, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*ReportingRelationship, error)
	FindByPair(ctx context.Context, db *gorm.DB, memberID, managerID snowflake.ID) (*ReportingRelationship, error)
	Insert(ctx context.Context, db *gorm.DB, rel *ReportingRelationship) error
	Update(ctx context.Context, db *gorm.DB, rel *ReportingRelationship) error
	ClearPrimary(ctx context.Context, db *gorm.DB, memberID snowflake.ID) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	DeleteAllForMember(ctx context.Context, db *gorm.DB, memberID snowflake.ID) error
}
