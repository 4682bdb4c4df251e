package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pdfRenderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cvbuilder",
			Subsystem: "pdf",
			Name:      "render_duration_seconds",
			Help:      "PDF 渲染耗时分布（秒），含沙箱启动与销毁。",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		},
		[]string{"engine", "outcome"},
	)

	pdfSandboxesLive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cvbuilder",
			Subsystem: "pdf",
			Name:      "sandboxes_live",
			Help:      "当前存活的浏览器沙箱数量。",
		},
	)

	pdfBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "cvbuilder",
			Subsystem: "pdf",
			Name:      "artifact_bytes",
			Help:      "成功生成的 PDF 大小（字节）。",
			Buckets:   prometheus.ExponentialBuckets(16<<10, 2, 8),
		},
	)
)

// ObservePDFRender 记录一次 PDF 渲染的结果。outcome 取值 ok / error / timeout。
func ObservePDFRender(engine, outcome string, elapsed time.Duration, size int) {
	pdfRenderDuration.WithLabelValues(engine, outcome).Observe(elapsed.Seconds())
	if outcome == "ok" {
		pdfBytes.Observe(float64(size))
	}
}

// SandboxAcquired 与 SandboxReleased 成对调用。
func SandboxAcquired() { pdfSandboxesLive.Inc() }

func SandboxReleased() { pdfSandboxesLive.Dec() }
