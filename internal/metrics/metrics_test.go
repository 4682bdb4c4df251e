package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

// seriesCount 统计默认注册表中某个指标族的时间序列数量。
func seriesCount(t *testing.T, name string) int {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() == name {
			return len(f.GetMetric())
		}
	}
	return 0
}

func TestTaskOutcome(t *testing.T) {
	cases := map[string]error{
		"ok":      nil,
		"retry":   errors.New("browser crashed"),
		"dropped": fmt.Errorf("cv missing: %w", asynq.SkipRetry),
	}
	for want, err := range cases {
		if got := TaskOutcome(err); got != want {
			t.Fatalf("TaskOutcome(%v) = %s, want %s", err, got, want)
		}
	}
}

func TestAsynqMiddlewareCountsOutcome(t *testing.T) {
	const taskType = "test:outcome"
	handler := AsynqMetricsMiddleware()(asynq.HandlerFunc(func(context.Context, *asynq.Task) error {
		return asynq.SkipRetry
	}))

	before := counterValue(t, taskProcessedTotal.WithLabelValues(taskType, "dropped"))
	_ = handler.ProcessTask(context.Background(), asynq.NewTask(taskType, nil))
	after := counterValue(t, taskProcessedTotal.WithLabelValues(taskType, "dropped"))
	if after-before != 1 {
		t.Fatalf("expected one dropped task, got %v", after-before)
	}
}

func TestGinMiddlewareLabelsRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware("/health"))
	r.GET("/v1/cvs/:cvId", func(c *gin.Context) { c.String(http.StatusOK, "cv") })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/v1/cvs/1", "/v1/cvs/2", "/health", "/nope/123"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	// /health 被跳过，两个 CV 请求共享同一个路由标签，未命中路由归入 unmatched。
	if n := seriesCount(t, "cvbuilder_http_request_duration_seconds"); n != 2 {
		t.Fatalf("expected 2 series, got %d", n)
	}
}
