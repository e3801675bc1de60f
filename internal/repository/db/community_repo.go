package db

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"Lee_Moderation/internal/model"
)

var ErrCommunityNotFound = errors.New("community not found")

type CommunityRepository struct {
	DB *gorm.DB
}

func (r *CommunityRepository) FindByID(ctx context.Context, id uint64) (*model.Community, error) {
	var community model.Community
	err := r.DB.WithContext(ctx).First(&community, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCommunityNotFound
	}
	if err != nil {
		return nil, err
	}
	return &community, nil
}

func (r *CommunityRepository) FindBySlug(ctx context.Context, slug string) (*model.Community, error) {
	var community model.Community
	err := r.DB.WithContext(ctx).Where("slug = ?", slug).First(&community).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCommunityNotFound
	}
	if err != nil {
		return nil, err
	}
	return &community, nil
}

func (r *CommunityRepository) List(ctx context.Context) ([]model.Community, error) {
	var list []model.Community
	err := r.DB.WithContext(ctx).Order("id ASC").Find(&list).Error
	return list, err
}

// Upsert 按 slug 幂等写入，已存在则只更新名称和描述
func (r *CommunityRepository) Upsert(ctx context.Context, c *model.Community) error {
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description", "updated_at"}),
	}).Create(c).Error
}
