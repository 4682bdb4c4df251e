package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cvBuilder/internal/database"
	"cvBuilder/internal/errcode"
	"cvBuilder/internal/section"
)

const maxTitleRunes = 255

// SectionConfigStore 负责章节顺序与自定义标题的持久化。
type SectionConfigStore struct {
	db *gorm.DB
}

func NewSectionConfigStore(db *gorm.DB) *SectionConfigStore {
	return &SectionConfigStore{db: db}
}

// GetOrder 返回 CV 的章节顺序，未设置时为默认顺序。
func (s *SectionConfigStore) GetOrder(ctx context.Context, cvID uint) (section.Order, error) {
	var row database.SectionOrder
	err := s.db.WithContext(ctx).Where("cv_id = ?", cvID).First(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return section.DefaultOrder(), nil
	case err != nil:
		return nil, fmt.Errorf("get section order: %w", err)
	}

	var stored []section.Key
	if len(row.Keys) > 0 {
		if err := json.Unmarshal(row.Keys, &stored); err != nil {
			return nil, fmt.Errorf("decode section order: %w", err)
		}
	}
	return section.Resolve(stored), nil
}

// SetOrder 校验后整行替换；校验失败时不写入任何内容。
func (s *SectionConfigStore) SetOrder(ctx context.Context, cvID uint, keys []string) (section.Order, error) {
	order, err := section.ValidateOrder(keys)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(order)
	if err != nil {
		return nil, fmt.Errorf("encode section order: %w", err)
	}

	row := database.SectionOrder{
		CVID:      cvID,
		Keys:      datatypes.JSON(raw),
		UpdatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cv_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"keys", "updated_at"}),
	}).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("save section order: %w", err)
	}
	return order, nil
}

// GetTitles 返回已设置的自定义标题。
func (s *SectionConfigStore) GetTitles(ctx context.Context, cvID uint) (section.Titles, error) {
	var rows []database.SectionTitle
	if err := s.db.WithContext(ctx).
		Where("cv_id = ?", cvID).
		Order("section_key ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("get section titles: %w", err)
	}

	titles := make(section.Titles, len(rows))
	for _, r := range rows {
		k := section.Key(r.SectionKey)
		if !k.Valid() {
			continue
		}
		titles[k] = r.Title
	}
	return titles, nil
}

// SetTitles 按键合并：未出现在 partial 中的键保持原值；空白标题表示恢复默认标题。
// 所有键先校验，再在同一事务内写入。规范化后重复的键与超长标题返回 ValidationFailed。
func (s *SectionConfigStore) SetTitles(ctx context.Context, cvID uint, partial map[string]string) (section.Titles, error) {
	const op = "store.section_titles"

	upserts := make([]database.SectionTitle, 0, len(partial))
	var resets []string
	seen := make(map[section.Key]string, len(partial))
	now := time.Now()
	for raw, title := range partial {
		k, err := section.ParseKey(raw)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[k]; dup {
			return nil, errcode.Validation(op, fmt.Sprintf("section keys %q and %q both refer to %q", prev, raw, k))
		}
		seen[k] = raw

		title = strings.TrimSpace(title)
		if title == "" {
			resets = append(resets, string(k))
			continue
		}
		if utf8.RuneCountInString(title) > maxTitleRunes {
			return nil, errcode.Validation(op, fmt.Sprintf("title for %q exceeds %d characters", k, maxTitleRunes))
		}
		upserts = append(upserts, database.SectionTitle{
			CVID:       cvID,
			SectionKey: string(k),
			Title:      title,
			UpdatedAt:  now,
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(upserts) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "cv_id"}, {Name: "section_key"}},
				DoUpdates: clause.AssignmentColumns([]string{"title", "updated_at"}),
			}).Create(&upserts).Error; err != nil {
				return fmt.Errorf("upsert section titles: %w", err)
			}
		}
		if len(resets) > 0 {
			if err := tx.Where("cv_id = ? AND section_key IN ?", cvID, resets).
				Delete(&database.SectionTitle{}).Error; err != nil {
				return fmt.Errorf("reset section titles: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetTitles(ctx, cvID)
}
