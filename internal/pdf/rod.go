package pdf

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// fontsReadyScript 等待 WebFont/系统字体就绪，避免回退字体度量导致排版差异。
const fontsReadyScript = `() => {
  if (document && document.fonts && document.fonts.ready) {
    return Promise.race([
      document.fonts.ready.then(() => true),
      new Promise((resolve) => setTimeout(() => resolve(true), 3000))
    ]);
  }
  return true;
}`

// RodProvisioner 使用 go-rod 为每次导出启动一个新的无头 Chromium。
type RodProvisioner struct {
	bin    string
	logger *slog.Logger
}

// NewRodProvisioner bin 为空时自动查找本机浏览器。
func NewRodProvisioner(bin string, logger *slog.Logger) *RodProvisioner {
	if logger == nil {
		logger = slog.Default()
	}
	return &RodProvisioner{bin: bin, logger: logger}
}

func (p *RodProvisioner) Name() string { return "rod" }

func (p *RodProvisioner) Acquire(ctx context.Context) (_ Sandbox, err error) {
	// 绑定 ctx：超时后由 launcher 直接结束浏览器进程
	launch := launcher.New().
		Context(ctx).
		Headless(true).
		NoSandbox(true)
	defer func() {
		if err != nil {
			launch.Cleanup()
		}
	}()

	if p.bin != "" {
		launch = launch.Bin(p.bin)
	} else if path, ok := launcher.LookPath(); ok {
		launch = launch.Bin(path)
	}

	browserURL, err := launch.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	browser := rod.New().ControlURL(browserURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	// 页面在交给任务函数前创建，超时销毁时 Close 只读取不可变字段。
	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("create page: %w", err)
	}

	return &rodSandbox{launch: launch, browser: browser, page: page, logger: p.logger}, nil
}

type rodSandbox struct {
	launch  *launcher.Launcher
	browser *rod.Browser
	page    *rod.Page
	logger  *slog.Logger
}

func (s *rodSandbox) PrintPDF(ctx context.Context, html string, opts PageOptions) ([]byte, error) {
	page := s.page.Context(ctx)

	if err := page.SetDocumentContent(html); err != nil {
		return nil, fmt.Errorf("set document content: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}
	if _, err := page.Timeout(5 * time.Second).Eval(fontsReadyScript); err != nil {
		s.logger.Warn("document.fonts.ready wait failed, continue", slog.Any("error", err))
	}

	reader, err := page.PDF(printParams(opts))
	if err != nil {
		return nil, fmt.Errorf("export pdf: %w", err)
	}
	defer func() {
		_ = reader.Close()
	}()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read pdf bytes: %w", err)
	}
	return data, nil
}

func (s *rodSandbox) Close() error {
	_ = s.page.Close()
	err := s.browser.Close()
	s.launch.Cleanup()
	return err
}

// printParams 将页面参数转换为 CDP 打印参数：A4，四边边距一致。
func printParams(opts PageOptions) *proto.PagePrintToPDF {
	return &proto.PagePrintToPDF{
		PrintBackground: true,
		Scale:           float64Ptr(opts.Scale),
		PaperWidth:      float64Ptr(PaperWidthInches),
		PaperHeight:     float64Ptr(PaperHeightInches),
		MarginTop:       float64Ptr(opts.MarginInches),
		MarginBottom:    float64Ptr(opts.MarginInches),
		MarginLeft:      float64Ptr(opts.MarginInches),
		MarginRight:     float64Ptr(opts.MarginInches),
	}
}

func float64Ptr(value float64) *float64 {
	return &value
}
