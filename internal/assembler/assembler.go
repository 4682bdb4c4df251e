package assembler

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"cvBuilder/internal/document"
	"cvBuilder/internal/errcode"
	"cvBuilder/internal/section"
	"cvBuilder/internal/store"
)

// ConfigReader 是组装器读取章节顺序与标题所需的接口。
type ConfigReader interface {
	GetOrder(ctx context.Context, cvID uint) (section.Order, error)
	GetTitles(ctx context.Context, cvID uint) (section.Titles, error)
}

// Request 描述一次组装请求。UserID 为 nil 表示公开访问。
type Request struct {
	CVID    uint
	UserID  *uint
	Style   document.StylePatch
	Compact bool
}

// Assembler 将 CV 的 8 个章节并发读取并组装为 Document。
type Assembler struct {
	resolver store.CVResolver
	configs  ConfigReader
	listers  map[section.Key]store.RecordLister
}

func New(resolver store.CVResolver, configs ConfigReader, listers map[section.Key]store.RecordLister) *Assembler {
	return &Assembler{resolver: resolver, configs: configs, listers: listers}
}

// Construct 每次调用都重新读取数据，不做缓存。
func (a *Assembler) Construct(ctx context.Context, req Request) (document.Document, error) {
	const op = "assembler.construct"

	cv, err := a.authorize(ctx, op, req.CVID, req.UserID)
	if err != nil {
		return document.Document{}, err
	}

	theme, err := document.ParseTheme(cv.Theme)
	if err != nil {
		return document.Document{}, err
	}
	style, err := document.MergeStyle(theme, req.Style)
	if err != nil {
		return document.Document{}, err
	}

	order, err := a.configs.GetOrder(ctx, cv.ID)
	if err != nil {
		return document.Document{}, fmt.Errorf("load section order: %w", err)
	}
	titles, err := a.configs.GetTitles(ctx, cv.ID)
	if err != nil {
		return document.Document{}, fmt.Errorf("load section titles: %w", err)
	}

	records, err := a.fetchAll(ctx, cv.ID, order)
	if err != nil {
		return document.Document{}, err
	}

	sections := make([]document.Section, 0, len(order))
	for i, key := range order {
		s := document.Section{
			Key:     key,
			Title:   titles.Title(key),
			Records: records[i],
		}
		if s.Records == nil {
			s.Records = []document.Record{}
		}
		if req.Compact && s.Empty() {
			continue
		}
		sections = append(sections, s)
	}

	return document.Document{
		CV: document.Meta{
			ID:          cv.ID,
			Title:       cv.Title,
			Description: cv.Description,
			Theme:       theme,
			Language:    cv.Language,
			Slug:        cv.Slug,
		},
		Sections: sections,
		Style:    style,
		Compact:  req.Compact,
	}, nil
}

// Authorize 只做归属/可见性校验，供不需要组装文档的调用方使用。
func (a *Assembler) Authorize(ctx context.Context, cvID uint, userID *uint) error {
	_, err := a.authorize(ctx, "assembler.authorize", cvID, userID)
	return err
}

func (a *Assembler) authorize(ctx context.Context, op string, cvID uint, userID *uint) (*store.CVInfo, error) {
	cv, err := a.resolver.Resolve(ctx, cvID, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve cv: %w", err)
	}
	if cv == nil {
		return nil, errcode.NotFound(op, fmt.Sprintf("cv %d", cvID))
	}
	if userID != nil {
		// 他人的 CV 与不存在的 CV 对调用方不可区分
		if !cv.Owned {
			return nil, errcode.NotFound(op, fmt.Sprintf("cv %d", cvID))
		}
		return cv, nil
	}
	if !cv.Public {
		return nil, errcode.Forbidden(op, fmt.Sprintf("cv %d is not public", cvID))
	}
	return cv, nil
}

// fetchAll 按顺序并发读取每个章节，全部完成后返回；任一失败则整体失败。
func (a *Assembler) fetchAll(ctx context.Context, cvID uint, order section.Order) ([][]document.Record, error) {
	results := make([][]document.Record, len(order))
	g, gctx := errgroup.WithContext(ctx)
	for i, key := range order {
		lister, ok := a.listers[key]
		if !ok {
			return nil, fmt.Errorf("no store registered for section %q", key)
		}
		g.Go(func() error {
			records, err := lister.ListRecords(gctx, cvID)
			if err != nil {
				return fmt.Errorf("fetch section %s: %w", key, err)
			}
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
