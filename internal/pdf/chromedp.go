package pdf

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// ChromedpProvisioner 使用 chromedp 启动浏览器，作为 go-rod 之外的备选引擎。
type ChromedpProvisioner struct {
	bin string
}

func NewChromedpProvisioner(bin string) *ChromedpProvisioner {
	return &ChromedpProvisioner{bin: bin}
}

func (p *ChromedpProvisioner) Name() string { return "chromedp" }

func (p *ChromedpProvisioner) Acquire(ctx context.Context) (Sandbox, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if p.bin != "" {
		opts = append(opts, chromedp.ExecPath(p.bin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// 空 Run 会启动浏览器
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("start chromium: %w", err)
	}

	var once sync.Once
	return &chromedpSandbox{
		ctx: browserCtx,
		cancel: func() {
			once.Do(func() {
				_ = chromedp.Cancel(browserCtx)
				cancelBrowser()
				cancelAlloc()
			})
		},
	}, nil
}

type chromedpSandbox struct {
	ctx    context.Context
	cancel func()
}

func (s *chromedpSandbox) PrintPDF(ctx context.Context, html string, opts PageOptions) ([]byte, error) {
	stop := context.AfterFunc(ctx, s.cancel)
	defer stop()

	var data []byte
	err := chromedp.Run(s.ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return fmt.Errorf("get frame tree: %w", err)
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			data, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithScale(opts.Scale).
				WithPaperWidth(PaperWidthInches).
				WithPaperHeight(PaperHeightInches).
				WithMarginTop(opts.MarginInches).
				WithMarginBottom(opts.MarginInches).
				WithMarginLeft(opts.MarginInches).
				WithMarginRight(opts.MarginInches).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("chromedp print: %w", err)
	}
	return data, nil
}

func (s *chromedpSandbox) Close() error {
	s.cancel()
	return nil
}
