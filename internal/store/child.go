package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"cvBuilder/internal/document"
)

// Entity 是可以落库并规范化为文档条目的章节实体。
type Entity interface {
	document.Recordable
}

// Input 是章节实体的写入载荷：ToModel 用于创建（cvID 由调用方强制指定），
// Patch 返回更新时需要写入的非空列。
type Input[T any] interface {
	ToModel(cvID uint) T
	Patch() map[string]any
}

// ChildEntityStore 是按 cvID 隔离的章节仓储契约。
// 记录不存在（或属于其他 CV）时返回 nil/false，而不是错误。
type ChildEntityStore[T Entity, I Input[T]] interface {
	Create(ctx context.Context, cvID uint, in I) (*T, error)
	GetOne(ctx context.Context, cvID, id uint) (*T, error)
	GetAll(ctx context.Context, cvID uint) ([]T, error)
	Update(ctx context.Context, cvID, id uint, in I) (*T, error)
	Delete(ctx context.Context, cvID, id uint) (bool, error)
	Exists(ctx context.Context, cvID, id uint) (bool, error)
	ListRecords(ctx context.Context, cvID uint) ([]document.Record, error)
}

// RecordLister 是组装器所需的最小读取接口。
type RecordLister interface {
	ListRecords(ctx context.Context, cvID uint) ([]document.Record, error)
}

// ChildStore 是 ChildEntityStore 的唯一实现，8 种章节共用同一套归属校验。
type ChildStore[T Entity, I Input[T]] struct {
	db   *gorm.DB
	name string
}

// NewChildStore 构造某一章节类型的仓储，name 仅用于错误信息。
func NewChildStore[T Entity, I Input[T]](db *gorm.DB, name string) *ChildStore[T, I] {
	return &ChildStore[T, I]{db: db, name: name}
}

const ownedByCV = "id = ? AND cv_id = ?"

// orderClause: display_order 升序且 NULL 在最后，id 升序兜底。
const orderClause = "display_order IS NULL, display_order ASC, id ASC"

func (s *ChildStore[T, I]) Create(ctx context.Context, cvID uint, in I) (*T, error) {
	model := in.ToModel(cvID)
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return nil, fmt.Errorf("create %s: %w", s.name, err)
	}
	return &model, nil
}

func (s *ChildStore[T, I]) GetOne(ctx context.Context, cvID, id uint) (*T, error) {
	var model T
	err := s.db.WithContext(ctx).Where(ownedByCV, id, cvID).First(&model).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("get %s %d: %w", s.name, id, err)
	}
	return &model, nil
}

func (s *ChildStore[T, I]) GetAll(ctx context.Context, cvID uint) ([]T, error) {
	var models []T
	if err := s.db.WithContext(ctx).
		Where("cv_id = ?", cvID).
		Order(orderClause).
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list %s: %w", s.name, err)
	}
	return models, nil
}

func (s *ChildStore[T, I]) Update(ctx context.Context, cvID, id uint, in I) (*T, error) {
	values := in.Patch()
	if len(values) > 0 {
		if err := s.db.WithContext(ctx).
			Model(new(T)).
			Where(ownedByCV, id, cvID).
			Updates(values).Error; err != nil {
			return nil, fmt.Errorf("update %s %d: %w", s.name, id, err)
		}
	}
	return s.GetOne(ctx, cvID, id)
}

func (s *ChildStore[T, I]) Delete(ctx context.Context, cvID, id uint) (bool, error) {
	result := s.db.WithContext(ctx).Where(ownedByCV, id, cvID).Delete(new(T))
	if result.Error != nil {
		return false, fmt.Errorf("delete %s %d: %w", s.name, id, result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (s *ChildStore[T, I]) Exists(ctx context.Context, cvID, id uint) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(new(T)).
		Where(ownedByCV, id, cvID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("check %s %d: %w", s.name, id, err)
	}
	return count > 0, nil
}

func (s *ChildStore[T, I]) ListRecords(ctx context.Context, cvID uint) ([]document.Record, error) {
	models, err := s.GetAll(ctx, cvID)
	if err != nil {
		return nil, err
	}
	records := make([]document.Record, 0, len(models))
	for _, m := range models {
		records = append(records, m.ToRecord())
	}
	return records, nil
}
