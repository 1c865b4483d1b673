package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/wellspringhq/foundation/internal/reporting/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) ListAll(ctx context.Context, db *gorm.DB) ([]*domain.ReportingRelationship, error) {
	var rels []*domain.ReportingRelationship
	err := db.WithContext(ctx).
		Model(&domain.ReportingRelationship{}).
		Order("member_id asc, manager_id asc").
		Find(&rels).Error
	if err != nil {
		return nil, err
	}
	return rels, nil
}

func (r *repo) ListByMember(ctx context.Context, db *gorm.DB, memberID snowflake.ID) ([]*domain.ReportingRelationship, error) {
	var rels []*domain.ReportingRelationship
	err := db.WithContext(ctx).
		Model(&domain.ReportingRelationship{}).
		Where("member_id = ?", memberID).
		Order("is_primary desc, manager_id asc").
		Find(&rels).Error
	if err != nil {
		return nil, err
	}
	return rels, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.ReportingRelationship, error) {
	var rel domain.ReportingRelationship
	err := db.WithContext(ctx).First(&rel, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

func (r *repo) FindByPair(ctx context.Context, db *gorm.DB, memberID, managerID snowflake.ID) (*domain.ReportingRelationship, error) {
	var rel domain.ReportingRelationship
	err := db.WithContext(ctx).
		First(&rel, "member_id = ? AND manager_id = ?", memberID, managerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, rel *domain.ReportingRelationship) error {
	return db.WithContext(ctx).Create(rel).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, rel *domain.ReportingRelationship) error {
	return db.WithContext(ctx).Save(rel).Error
}

func (r *repo) ClearPrimary(ctx context.Context, db *gorm.DB, memberID snowflake.ID) error {
	return db.WithContext(ctx).
		Model(&domain.ReportingRelationship{}).
		Where("member_id = ? AND is_primary = ?", memberID, true).
		Update("is_primary", false).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Delete(&domain.ReportingRelationship{}, "id = ?", id).Error
}

func (r *repo) DeleteAllForMember(ctx context.Context, db *gorm.DB, memberID snowflake.ID) error {
	return db.WithContext(ctx).
		Delete(&domain.ReportingRelationship{}, "member_id = ? OR manager_id = ?", memberID, memberID).Error
}
