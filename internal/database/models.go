package database

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CV 表示用户创建的一份简历；由外部服务创建，本服务只读。
type CV struct {
	gorm.Model
	UserID        uint   `gorm:"index;not null"`
	Title         string `gorm:"size:255"`
	Description   string `gorm:"type:text"`
	IsPublic      bool   `gorm:"default:false"`
	Theme         string `gorm:"size:32"`
	Slug          string `gorm:"size:128;index"`
	ViewCount     int64  `gorm:"default:0"`
	DownloadCount int64  `gorm:"default:0"`
	Language      string `gorm:"size:8"`
}

func (CV) TableName() string { return "cvs" }

// ChildBase 是所有章节实体共享的列，cv_id 是租户边界。
type ChildBase struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CVID         uint      `gorm:"column:cv_id;index;not null" json:"cv_id"`
	DisplayOrder *int      `json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SectionOrder 每个 CV 一行，整行替换。
type SectionOrder struct {
	CVID      uint `gorm:"column:cv_id;primaryKey;autoIncrement:false"`
	Keys      datatypes.JSON
	UpdatedAt time.Time
}

// SectionTitle 每个 (cv_id, section_key) 一行，便于按键合并。
type SectionTitle struct {
	ID         uint   `gorm:"primaryKey"`
	CVID       uint   `gorm:"column:cv_id;not null;uniqueIndex:idx_section_titles_cv_key"`
	SectionKey string `gorm:"size:32;not null;uniqueIndex:idx_section_titles_cv_key"`
	Title      string `gorm:"size:255"`
	UpdatedAt  time.Time
}
