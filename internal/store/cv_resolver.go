package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"cvBuilder/internal/database"
)

// CVInfo 是组装器需要的 CV 归属与展示信息。
type CVInfo struct {
	ID          uint
	Owned       bool
	Public      bool
	Theme       string
	Title       string
	Description string
	Language    string
	Slug        string
}

// CVResolver 解析 CV 的归属与可见性。userID 为 nil 表示匿名（公开访问）。
// CV 不存在时返回 nil, nil。
type CVResolver interface {
	Resolve(ctx context.Context, cvID uint, userID *uint) (*CVInfo, error)
}

// GormCVResolver 基于 cvs 表实现 CVResolver。
type GormCVResolver struct {
	db *gorm.DB
}

func NewGormCVResolver(db *gorm.DB) *GormCVResolver {
	return &GormCVResolver{db: db}
}

func (r *GormCVResolver) Resolve(ctx context.Context, cvID uint, userID *uint) (*CVInfo, error) {
	var cv database.CV
	err := r.db.WithContext(ctx).
		Select("id", "user_id", "title", "description", "is_public", "theme", "slug", "language").
		First(&cv, cvID).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("resolve cv %d: %w", cvID, err)
	}

	return &CVInfo{
		ID:          cv.ID,
		Owned:       userID != nil && cv.UserID == *userID,
		Public:      cv.IsPublic,
		Theme:       cv.Theme,
		Title:       cv.Title,
		Description: cv.Description,
		Language:    cv.Language,
		Slug:        cv.Slug,
	}, nil
}
