package resume

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"cvBuilder/internal/assembler"
	"cvBuilder/internal/document"
	"cvBuilder/internal/pdf"
	"cvBuilder/internal/render"
	"cvBuilder/internal/section"
	"cvBuilder/internal/store"
)

// ConfigStore 是服务所需的章节配置读写接口。
type ConfigStore interface {
	assembler.ConfigReader
	SetOrder(ctx context.Context, cvID uint, keys []string) (section.Order, error)
	SetTitles(ctx context.Context, cvID uint, partial map[string]string) (section.Titles, error)
}

// Exporter 将 HTML 打印为 PDF。
type Exporter interface {
	RenderPDF(ctx context.Context, html string, opts pdf.PageOptions) ([]byte, error)
}

// HTMLOptions 控制 HTML 渲染。
type HTMLOptions struct {
	Preview bool
	Compact bool
}

// PDFOptions 控制 PDF 导出。Scale 为 0 时使用默认缩放。
type PDFOptions struct {
	Scale   float64
	Compact bool
}

// SectionEntry 是某个章节在当前 CV 中的生效配置。
type SectionEntry struct {
	Key    section.Key `json:"key"`
	Title  string      `json:"title"`
	Custom bool        `json:"custom"`
}

// SectionConfig 汇总 CV 的章节顺序与标题。
type SectionConfig struct {
	Order    section.Order  `json:"order"`
	Titles   section.Titles `json:"titles"`
	Sections []SectionEntry `json:"sections"`
}

// Service 是 CV 组装与渲染的对外入口。所有带 userID 的操作都先校验归属。
type Service struct {
	assembler *assembler.Assembler
	configs   ConfigStore
	renderer  *render.Renderer
	exporter  Exporter
}

func NewService(a *assembler.Assembler, configs ConfigStore, renderer *render.Renderer, exporter Exporter) *Service {
	return &Service{assembler: a, configs: configs, renderer: renderer, exporter: exporter}
}

// NewServiceFromDB 使用 gorm 仓储装配服务。
func NewServiceFromDB(db *gorm.DB, renderer *render.Renderer, exporter Exporter) *Service {
	configs := store.NewSectionConfigStore(db)
	a := assembler.New(store.NewGormCVResolver(db), configs, store.NewSections(db).Listers())
	return NewService(a, configs, renderer, exporter)
}

// Construct 组装属于 userID 的 CV。
func (s *Service) Construct(ctx context.Context, cvID, userID uint, style document.StylePatch, compact bool) (document.Document, error) {
	return s.assembler.Construct(ctx, assembler.Request{CVID: cvID, UserID: &userID, Style: style, Compact: compact})
}

// ConstructPublic 组装公开的 CV。
func (s *Service) ConstructPublic(ctx context.Context, cvID uint, style document.StylePatch, compact bool) (document.Document, error) {
	return s.assembler.Construct(ctx, assembler.Request{CVID: cvID, Style: style, Compact: compact})
}

func (s *Service) RenderHTML(ctx context.Context, cvID, userID uint, style document.StylePatch, opts HTMLOptions) (string, error) {
	doc, err := s.Construct(ctx, cvID, userID, style, opts.Compact)
	if err != nil {
		return "", err
	}
	return s.renderDoc(doc, opts.Preview)
}

func (s *Service) RenderPublicHTML(ctx context.Context, cvID uint, style document.StylePatch, opts HTMLOptions) (string, error) {
	doc, err := s.ConstructPublic(ctx, cvID, style, opts.Compact)
	if err != nil {
		return "", err
	}
	return s.renderDoc(doc, opts.Preview)
}

func (s *Service) RenderPDF(ctx context.Context, cvID, userID uint, style document.StylePatch, opts PDFOptions) ([]byte, error) {
	if _, err := (pdf.PageOptions{Scale: opts.Scale}).Normalize(); err != nil {
		return nil, err
	}
	doc, err := s.Construct(ctx, cvID, userID, style, opts.Compact)
	if err != nil {
		return nil, err
	}
	return s.printDoc(ctx, doc, opts.Scale)
}

func (s *Service) RenderPublicPDF(ctx context.Context, cvID uint, style document.StylePatch, opts PDFOptions) ([]byte, error) {
	if _, err := (pdf.PageOptions{Scale: opts.Scale}).Normalize(); err != nil {
		return nil, err
	}
	doc, err := s.ConstructPublic(ctx, cvID, style, opts.Compact)
	if err != nil {
		return nil, err
	}
	return s.printDoc(ctx, doc, opts.Scale)
}

// SetSectionOrder 整体替换章节顺序。
func (s *Service) SetSectionOrder(ctx context.Context, cvID, userID uint, keys []string) (section.Order, error) {
	if err := s.AuthorizeOwner(ctx, cvID, userID); err != nil {
		return nil, err
	}
	return s.configs.SetOrder(ctx, cvID, keys)
}

// SetSectionTitles 按键合并自定义标题，返回合并后的全部自定义标题。
func (s *Service) SetSectionTitles(ctx context.Context, cvID, userID uint, titles map[string]string) (section.Titles, error) {
	if err := s.AuthorizeOwner(ctx, cvID, userID); err != nil {
		return nil, err
	}
	return s.configs.SetTitles(ctx, cvID, titles)
}

func (s *Service) GetSectionConfig(ctx context.Context, cvID, userID uint) (SectionConfig, error) {
	if err := s.AuthorizeOwner(ctx, cvID, userID); err != nil {
		return SectionConfig{}, err
	}
	order, err := s.configs.GetOrder(ctx, cvID)
	if err != nil {
		return SectionConfig{}, fmt.Errorf("load section order: %w", err)
	}
	titles, err := s.configs.GetTitles(ctx, cvID)
	if err != nil {
		return SectionConfig{}, fmt.Errorf("load section titles: %w", err)
	}

	entries := make([]SectionEntry, 0, len(order))
	for _, k := range order {
		_, custom := titles[k]
		entries = append(entries, SectionEntry{Key: k, Title: titles.Title(k), Custom: custom})
	}
	return SectionConfig{Order: order, Titles: titles, Sections: entries}, nil
}

// AuthorizeOwner 校验 userID 拥有 cvID；不存在与不属于该用户均返回 NotFound。
func (s *Service) AuthorizeOwner(ctx context.Context, cvID, userID uint) error {
	return s.assembler.Authorize(ctx, cvID, &userID)
}

func (s *Service) renderDoc(doc document.Document, preview bool) (string, error) {
	if preview {
		return s.renderer.RenderPreview(doc)
	}
	return s.renderer.RenderHTML(doc)
}

func (s *Service) printDoc(ctx context.Context, doc document.Document, scale float64) ([]byte, error) {
	html, err := s.renderer.RenderHTML(doc)
	if err != nil {
		return nil, err
	}
	return s.exporter.RenderPDF(ctx, html, pdf.PageOptions{
		MarginInches: doc.Style.Margin,
		Scale:        scale,
	})
}
