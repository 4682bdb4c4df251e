package pdf

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cvBuilder/internal/errcode"
	"cvBuilder/internal/metrics"
)

const (
	// A4，单位英寸（CDP 原生单位）。
	PaperWidthInches  = 8.27
	PaperHeightInches = 11.69

	DefaultScale = 1.0
	MinScale     = 0.1
	MaxScale     = 2.0
)

// closeGrace 是超时后等待任务函数退出的上限。
const closeGrace = 5 * time.Second

// ErrSandboxTimeout 表示渲染超过了沙箱时限，沙箱已被强制销毁。
var ErrSandboxTimeout = errors.New("sandbox timed out")

// PageOptions 是单次导出的页面参数。
type PageOptions struct {
	MarginInches float64
	Scale        float64
}

// Normalize 填充默认缩放并校验范围：scale ∈ (0.1, 2]，margin ∈ [0, 2]。
func (o PageOptions) Normalize() (PageOptions, error) {
	const op = "pdf.options"
	if o.Scale == 0 {
		o.Scale = DefaultScale
	}
	// 取反写法让 NaN 也落入非法分支。
	if !(o.Scale > MinScale && o.Scale <= MaxScale) {
		return o, errcode.Validation(op, fmt.Sprintf("scale %.2f out of range (%.1f, %.1f]", o.Scale, MinScale, MaxScale))
	}
	if !(o.MarginInches >= 0 && o.MarginInches <= 2) {
		return o, errcode.Validation(op, fmt.Sprintf("margin %.2f out of range [0, 2]", o.MarginInches))
	}
	return o, nil
}

// Sandbox 是一次性使用的隔离浏览器实例，Close 后不可再用。
type Sandbox interface {
	PrintPDF(ctx context.Context, html string, opts PageOptions) ([]byte, error)
	Close() error
}

// Provisioner 为每次导出创建新的沙箱。
type Provisioner interface {
	Acquire(ctx context.Context) (Sandbox, error)
	Name() string
}

// WithSandbox 获取沙箱并执行 fn，保证在成功、失败、panic、超时四种情况下都会销毁沙箱。
// 超时时先销毁沙箱，再等待 fn 退出（最多 closeGrace），然后返回 ErrSandboxTimeout。
func WithSandbox(ctx context.Context, p Provisioner, timeout time.Duration, fn func(ctx context.Context, sb Sandbox) error) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	sb, err := p.Acquire(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("acquire sandbox: %w: %w", ErrSandboxTimeout, err)
		}
		return fmt.Errorf("acquire sandbox: %w", err)
	}
	metrics.SandboxAcquired()

	var once sync.Once
	release := func() {
		once.Do(func() {
			_ = sb.Close()
			metrics.SandboxReleased()
		})
	}
	defer release()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("sandbox task panicked: %v", r)
			}
		}()
		done <- fn(ctx, sb)
	}()

	select {
	case err := <-done:
		if err != nil && ctx.Err() != nil {
			return fmt.Errorf("%w: %w", ErrSandboxTimeout, err)
		}
		return err
	case <-ctx.Done():
		release()
		select {
		case <-done:
		case <-time.After(closeGrace):
		}
		return fmt.Errorf("%w: %w", ErrSandboxTimeout, ctx.Err())
	}
}
