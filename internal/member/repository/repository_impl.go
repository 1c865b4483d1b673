package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/wellspringhq/foundation/internal/member/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListMemberFilter) ([]*domain.Member, error) {
	var members []*domain.Member
	stmt := db.WithContext(ctx).Model(&domain.Member{})
	if filter.ActiveOnly {
		stmt = stmt.Where("is_active = ?", true)
	}
	if filter.Department != "" {
		stmt = stmt.Where("department = ?", filter.Department)
	}
	err := stmt.
		Order("sort_order asc, name asc, id asc").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Member, error) {
	var member domain.Member
	err := db.WithContext(ctx).First(&member, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *repo) SlugTaken(ctx context.Context, db *gorm.DB, slug string, excludeID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Member{}).
		Where("slug = ? AND id <> ?", slug, excludeID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, member *domain.Member) error {
	return db.WithContext(ctx).Create(member).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, member *domain.Member) error {
	return db.WithContext(ctx).Save(member).Error
}

func (r *repo) UpdateParentID(ctx context.Context, db *gorm.DB, id snowflake.ID, parentID *snowflake.ID) error {
	return db.WithContext(ctx).
		Model(&domain.Member{}).
		Where("id = ?", id).
		Update("parent_id", parentID).Error
}

func (r *repo) ClearParentFor(ctx context.Context, db *gorm.DB, parentID snowflake.ID) error {
	return db.WithContext(ctx).
		Model(&domain.Member{}).
		Where("parent_id = ?", parentID).
		Update("parent_id", nil).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Delete(&domain.Member{}, "id = ?", id).Error
}
