package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/semaphore"

	"cvBuilder/internal/errcode"
	"cvBuilder/internal/metrics"
)

// DefaultTimeout 是单次导出（含沙箱启动）的默认时限。
const DefaultTimeout = 60 * time.Second

// Exporter 将 HTML 打印为 A4 PDF。每次调用使用独立的沙箱，不共享、不重试。
type Exporter struct {
	provisioner Provisioner
	timeout     time.Duration
	slots       *semaphore.Weighted
}

type Option func(*Exporter)

// WithTimeout 设置单次导出的时限。
func WithTimeout(d time.Duration) Option {
	return func(e *Exporter) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithMaxConcurrent 限制同时存活的沙箱数量，n <= 0 表示不限制。
func WithMaxConcurrent(n int) Option {
	return func(e *Exporter) {
		if n > 0 {
			e.slots = semaphore.NewWeighted(int64(n))
		}
	}
}

func NewExporter(p Provisioner, opts ...Option) *Exporter {
	e := &Exporter{provisioner: p, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RenderPDF 打印 html 并校验产物。参数非法返回 ValidationFailed，其余失败统一为 RenderingFailed。
func (e *Exporter) RenderPDF(ctx context.Context, html string, opts PageOptions) ([]byte, error) {
	const op = "pdf.render"

	opts, err := opts.Normalize()
	if err != nil {
		return nil, err
	}

	if e.slots != nil {
		// 排队同样受导出时限约束。
		waitCtx, cancel := context.WithTimeout(ctx, e.timeout)
		err := e.slots.Acquire(waitCtx, 1)
		cancel()
		if err != nil {
			return nil, errcode.RenderingFailed(op, fmt.Errorf("wait for sandbox slot: %w: %w", ErrSandboxTimeout, err))
		}
		defer e.slots.Release(1)
	}

	start := time.Now()
	var data []byte
	err = WithSandbox(ctx, e.provisioner, e.timeout, func(ctx context.Context, sb Sandbox) error {
		out, err := sb.PrintPDF(ctx, html, opts)
		if err != nil {
			return fmt.Errorf("print to pdf: %w", err)
		}
		data = out
		return nil
	})
	if err == nil {
		err = verifyArtifact(data)
	}

	// 超时后任务函数可能仍在写 data，只在成功时读取。
	size := 0
	if err == nil {
		size = len(data)
	}
	outcome := "ok"
	switch {
	case errors.Is(err, ErrSandboxTimeout):
		outcome = "timeout"
	case err != nil:
		outcome = "error"
	}
	metrics.ObservePDFRender(e.provisioner.Name(), outcome, time.Since(start), size)

	if err != nil {
		return nil, errcode.RenderingFailed(op, err)
	}
	return data, nil
}

// verifyArtifact 确认产物是可解析且至少有一页的完整 PDF。
func verifyArtifact(data []byte) (err error) {
	if len(data) == 0 {
		return errors.New("empty pdf artifact")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf artifact: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("parse pdf artifact: %w", err)
	}
	if reader.NumPage() < 1 {
		return errors.New("pdf artifact has no pages")
	}
	return nil
}
