package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cvBuilder/internal/errcode"
)

// minimalPDF 生成一个单页、xref 偏移正确的 PDF。
func minimalPDF() []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] >>",
	}
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

type fakeSandbox struct {
	print  func(ctx context.Context, html string, opts PageOptions) ([]byte, error)
	closed atomic.Int32
}

func (s *fakeSandbox) PrintPDF(ctx context.Context, html string, opts PageOptions) ([]byte, error) {
	return s.print(ctx, html, opts)
}

func (s *fakeSandbox) Close() error {
	s.closed.Add(1)
	return nil
}

type fakeProvisioner struct {
	mu        sync.Mutex
	sandboxes []*fakeSandbox
	print     func(ctx context.Context, html string, opts PageOptions) ([]byte, error)
	err       error
}

func (p *fakeProvisioner) Name() string { return "fake" }

func (p *fakeProvisioner) Acquire(context.Context) (Sandbox, error) {
	if p.err != nil {
		return nil, p.err
	}
	sb := &fakeSandbox{print: p.print}
	p.mu.Lock()
	p.sandboxes = append(p.sandboxes, sb)
	p.mu.Unlock()
	return sb, nil
}

func (p *fakeProvisioner) assertAllClosedOnce(t *testing.T) {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.sandboxes) == 0 {
		t.Fatalf("no sandbox was acquired")
	}
	for i, sb := range p.sandboxes {
		if n := sb.closed.Load(); n != 1 {
			t.Fatalf("sandbox %d closed %d times, want 1", i, n)
		}
	}
}

func TestPrintParamsScaleAndMargins(t *testing.T) {
	opts, err := PageOptions{MarginInches: 0.55, Scale: 2}.Normalize()
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	params := printParams(opts)

	if *params.PaperWidth != 8.27 || *params.PaperHeight != 11.69 {
		t.Fatalf("paper = %vx%v, want A4", *params.PaperWidth, *params.PaperHeight)
	}
	if *params.Scale != 2 {
		t.Fatalf("scale = %v, want 2", *params.Scale)
	}
	for name, m := range map[string]*float64{
		"top": params.MarginTop, "bottom": params.MarginBottom,
		"left": params.MarginLeft, "right": params.MarginRight,
	} {
		if *m != 0.55 {
			t.Fatalf("%s margin = %v, want 0.55", name, *m)
		}
	}
	if !params.PrintBackground {
		t.Fatalf("print background should be enabled")
	}
}

func TestPageOptionsNormalize(t *testing.T) {
	opts, err := PageOptions{MarginInches: 0.55}.Normalize()
	if err != nil || opts.Scale != DefaultScale {
		t.Fatalf("default scale: %+v, %v", opts, err)
	}
	for _, bad := range []PageOptions{{Scale: 0.1}, {Scale: 2.01}, {Scale: -1}, {Scale: 1, MarginInches: -0.1},
		{Scale: math.NaN()}, {Scale: math.Inf(1)}, {Scale: 1, MarginInches: math.NaN()}, {Scale: 1, MarginInches: math.Inf(1)}} {
		if _, err := bad.Normalize(); !errcode.IsKind(err, errcode.KindValidationFailed) {
			t.Fatalf("Normalize(%+v) = %v, want validation error", bad, err)
		}
	}
}

func TestRenderPDFSuccessClosesSandbox(t *testing.T) {
	var got PageOptions
	p := &fakeProvisioner{print: func(_ context.Context, _ string, opts PageOptions) ([]byte, error) {
		got = opts
		return minimalPDF(), nil
	}}

	data, err := NewExporter(p).RenderPDF(context.Background(), "<html></html>", PageOptions{MarginInches: 0.55, Scale: 2})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("unexpected output prefix %q", data[:8])
	}
	if got.Scale != 2 || got.MarginInches != 0.55 {
		t.Fatalf("sandbox received %+v", got)
	}
	p.assertAllClosedOnce(t)
}

func TestRenderPDFFailureClosesSandbox(t *testing.T) {
	boom := errors.New("target crashed")
	p := &fakeProvisioner{print: func(context.Context, string, PageOptions) ([]byte, error) {
		return nil, boom
	}}

	_, err := NewExporter(p).RenderPDF(context.Background(), "<html></html>", PageOptions{})
	if !errcode.IsKind(err, errcode.KindRenderingFailed) {
		t.Fatalf("expected rendering failure, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("cause not preserved: %v", err)
	}
	p.assertAllClosedOnce(t)
}

func TestRenderPDFPanicClosesSandbox(t *testing.T) {
	p := &fakeProvisioner{print: func(context.Context, string, PageOptions) ([]byte, error) {
		panic("renderer bug")
	}}

	_, err := NewExporter(p).RenderPDF(context.Background(), "<html></html>", PageOptions{})
	if !errcode.IsKind(err, errcode.KindRenderingFailed) {
		t.Fatalf("expected rendering failure, got %v", err)
	}
	p.assertAllClosedOnce(t)
}

func TestRenderPDFTimeoutTearsDownSandbox(t *testing.T) {
	p := &fakeProvisioner{}
	p.print = func(ctx context.Context, _ string, _ PageOptions) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	start := time.Now()
	_, err := NewExporter(p, WithTimeout(50*time.Millisecond)).RenderPDF(context.Background(), "<html></html>", PageOptions{})
	if !errcode.IsKind(err, errcode.KindRenderingFailed) || !errors.Is(err, ErrSandboxTimeout) {
		t.Fatalf("expected timeout rendering failure, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("timeout took %v", elapsed)
	}
	p.assertAllClosedOnce(t)
}

func TestRenderPDFRejectsNaNBeforeSandbox(t *testing.T) {
	p := &fakeProvisioner{print: func(context.Context, string, PageOptions) ([]byte, error) {
		return minimalPDF(), nil
	}}

	_, err := NewExporter(p).RenderPDF(context.Background(), "<html></html>", PageOptions{Scale: math.NaN(), MarginInches: math.NaN()})
	if !errcode.IsKind(err, errcode.KindValidationFailed) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(p.sandboxes) != 0 {
		t.Fatalf("invalid options must not start a sandbox")
	}
}

func TestRenderPDFSlotWaitIsBounded(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	p := &fakeProvisioner{print: func(ctx context.Context, _ string, _ PageOptions) ([]byte, error) {
		started <- struct{}{}
		select {
		case <-release:
		case <-ctx.Done():
		}
		return minimalPDF(), nil
	}}
	exporter := NewExporter(p, WithMaxConcurrent(1), WithTimeout(time.Second))

	go func() { _, _ = exporter.RenderPDF(context.Background(), "<html></html>", PageOptions{}) }()
	<-started
	defer close(release)

	// 占位的导出阻塞时，后到的调用只等待一个导出时限，而不是永久排队。
	exporter.timeout = 50 * time.Millisecond
	start := time.Now()
	_, err := exporter.RenderPDF(context.Background(), "<html></html>", PageOptions{})
	if !errcode.IsKind(err, errcode.KindRenderingFailed) || !errors.Is(err, ErrSandboxTimeout) {
		t.Fatalf("expected slot wait timeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("slot wait took %v", elapsed)
	}
}

// stateSandbox 只在获取时写入状态，Close 与任务并发读取。
type stateSandbox struct {
	page   *string
	closed chan struct{}
	once   sync.Once
}

func (s *stateSandbox) PrintPDF(ctx context.Context, _ string, _ PageOptions) ([]byte, error) {
	_ = *s.page
	<-ctx.Done()
	<-s.closed
	return nil, ctx.Err()
}

func (s *stateSandbox) Close() error {
	_ = *s.page
	s.once.Do(func() { close(s.closed) })
	return nil
}

type stateProvisioner struct{ sb *stateSandbox }

func (p *stateProvisioner) Name() string { return "state" }

func (p *stateProvisioner) Acquire(context.Context) (Sandbox, error) {
	page := "about:blank"
	p.sb = &stateSandbox{page: &page, closed: make(chan struct{})}
	return p.sb, nil
}

func TestWithSandboxTimeoutClosesWhileTaskRuns(t *testing.T) {
	p := &stateProvisioner{}
	err := WithSandbox(context.Background(), p, 30*time.Millisecond, func(ctx context.Context, sb Sandbox) error {
		_, err := sb.PrintPDF(ctx, "<html></html>", PageOptions{})
		return err
	})
	if !errors.Is(err, ErrSandboxTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	select {
	case <-p.sb.closed:
	default:
		t.Fatalf("sandbox not closed on timeout")
	}
}

func TestRenderPDFRejectsIncompleteArtifact(t *testing.T) {
	full := minimalPDF()
	for name, artifact := range map[string][]byte{
		"empty":     nil,
		"truncated": full[:len(full)/2],
		"not a pdf": []byte("<html>oops</html>"),
	} {
		t.Run(name, func(t *testing.T) {
			p := &fakeProvisioner{print: func(context.Context, string, PageOptions) ([]byte, error) {
				return artifact, nil
			}}
			_, err := NewExporter(p).RenderPDF(context.Background(), "<html></html>", PageOptions{})
			if !errcode.IsKind(err, errcode.KindRenderingFailed) {
				t.Fatalf("expected rendering failure, got %v", err)
			}
			p.assertAllClosedOnce(t)
		})
	}
}

func TestRenderPDFAcquireFailure(t *testing.T) {
	p := &fakeProvisioner{err: errors.New("no browser binary")}

	_, err := NewExporter(p).RenderPDF(context.Background(), "<html></html>", PageOptions{})
	if !errcode.IsKind(err, errcode.KindRenderingFailed) {
		t.Fatalf("expected rendering failure, got %v", err)
	}
}

func TestRenderPDFUsesOneSandboxPerCall(t *testing.T) {
	var live, peak atomic.Int32
	p := &fakeProvisioner{print: func(context.Context, string, PageOptions) ([]byte, error) {
		n := live.Add(1)
		defer live.Add(-1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		return minimalPDF(), nil
	}}
	exporter := NewExporter(p, WithMaxConcurrent(2))

	var wg sync.WaitGroup
	errs := make(chan error, 6)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := exporter.RenderPDF(context.Background(), "<html></html>", PageOptions{})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("render: %v", err)
		}
	}

	if len(p.sandboxes) != 6 {
		t.Fatalf("acquired %d sandboxes for 6 calls", len(p.sandboxes))
	}
	if peak.Load() > 2 {
		t.Fatalf("peak live sandboxes = %d, want <= 2", peak.Load())
	}
	p.assertAllClosedOnce(t)
}

func TestNewProvisionerByEngine(t *testing.T) {
	for engine, want := range map[string]string{"": "rod", "rod": "rod", " ChromeDP ": "chromedp"} {
		p, err := NewProvisioner(engine, "", nil)
		if err != nil {
			t.Fatalf("NewProvisioner(%q): %v", engine, err)
		}
		if p.Name() != want {
			t.Fatalf("NewProvisioner(%q).Name() = %q, want %q", engine, p.Name(), want)
		}
	}
	if _, err := NewProvisioner("wkhtmltopdf", "", nil); err == nil {
		t.Fatalf("unknown engine should fail")
	}
}
