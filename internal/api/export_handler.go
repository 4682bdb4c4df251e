package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"cvBuilder/internal/api/middleware"
	"cvBuilder/internal/document"
	"cvBuilder/internal/metrics"
	"cvBuilder/internal/pdf"
	"cvBuilder/internal/storage"
	"cvBuilder/internal/tasks"
)

// TaskEnqueuer 是 asynq.Client 的入队子集。
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ExportStorage 是导出产物的读取与清理接口，由 storage.Client 实现。
type ExportStorage interface {
	Exists(ctx context.Context, objectKey string) (bool, error)
	DownloadURL(ctx context.Context, objectKey string, ttl time.Duration, filename string) (string, error)
	ListObjects(ctx context.Context, prefix string, limit int) ([]storage.ObjectMeta, error)
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// ExportHandler 处理异步 PDF 导出。
type ExportHandler struct {
	owner    OwnerAuthorizer
	queue    TaskEnqueuer
	storage  ExportStorage
	limiter  *hourlyLimiter
	maxRetry int
	linkTTL  time.Duration
}

// ExportOptions 控制导出限流、重试与下载链接有效期。
type ExportOptions struct {
	MaxPerHour int
	MaxRetry   int
	LinkTTL    time.Duration
}

func NewExportHandler(owner OwnerAuthorizer, queue TaskEnqueuer, store ExportStorage, redis redisRateCounter, opts ExportOptions) *ExportHandler {
	if opts.LinkTTL <= 0 {
		opts.LinkTTL = 5 * time.Minute
	}
	return &ExportHandler{
		owner:    owner,
		queue:    queue,
		storage:  store,
		limiter:  newHourlyLimiter(redis, "export", opts.MaxPerHour),
		maxRetry: opts.MaxRetry,
		linkTTL:  opts.LinkTTL,
	}
}

type exportRequest struct {
	Scale   float64             `json:"scale"`
	Compact bool                `json:"compact"`
	Style   document.StylePatch `json:"style"`
}

func (h *ExportHandler) scope(c *gin.Context) (userID, cvID uint, ok bool) {
	userID, cvID, ok = ownerScope(c)
	if !ok {
		return 0, 0, false
	}
	if err := h.owner.AuthorizeOwner(c.Request.Context(), cvID, userID); err != nil {
		respondError(c, err, "failed to load cv")
		return 0, 0, false
	}
	return userID, cvID, true
}

// CreateExport 校验参数后入队导出任务，结果通过 WebSocket 推送。
func (h *ExportHandler) CreateExport(c *gin.Context) {
	userID, cvID, ok := h.scope(c)
	if !ok {
		return
	}

	var req exportRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, "invalid request body")
			return
		}
	}
	if _, err := (pdf.PageOptions{Scale: req.Scale}).Normalize(); err != nil {
		respondError(c, err, "invalid export options")
		return
	}
	if _, err := document.MergeStyle(document.DefaultTheme, req.Style); err != nil {
		respondError(c, err, "invalid export options")
		return
	}

	ctx := c.Request.Context()
	log := middleware.LoggerFromContext(c)

	// 速率限制：每用户每小时 MaxPerHour 次
	allowed, err := h.limiter.allow(ctx, userID)
	if err != nil {
		log.Warn("export rate counter unavailable", slog.Any("error", err))
	}
	if !allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
		return
	}

	exportID := storage.NewExportID()
	task, err := tasks.NewPDFExportTask(tasks.PDFExportPayload{
		ExportID:      exportID,
		CVID:          cvID,
		UserID:        userID,
		Scale:         req.Scale,
		Compact:       req.Compact,
		Style:         req.Style,
		CorrelationID: middleware.GetCorrelationID(c),
	})
	if err != nil {
		Internal(c, "failed to create task")
		return
	}

	info, err := h.queue.EnqueueContext(ctx, task, asynq.MaxRetry(h.maxRetry))
	if err != nil {
		log.Error("enqueue pdf export failed", slog.Any("error", err))
		Internal(c, "failed to enqueue pdf export")
		return
	}
	metrics.ExportEnqueued()

	c.JSON(http.StatusAccepted, gin.H{
		"message":   "PDF export request accepted",
		"task_id":   info.ID,
		"export_id": exportID,
	})
}

type exportItem struct {
	ExportID  string    `json:"export_id"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// ListExports 按时间倒序列出已完成的导出。
func (h *ExportHandler) ListExports(c *gin.Context) {
	userID, cvID, ok := h.scope(c)
	if !ok {
		return
	}
	objects, err := h.storage.ListObjects(c.Request.Context(), storage.ExportPrefix(userID, cvID), 20)
	if err != nil {
		respondError(c, err, "failed to list exports")
		return
	}
	items := make([]exportItem, 0, len(objects))
	for _, obj := range objects {
		items = append(items, exportItem{
			ExportID:  storage.ExportIDFromKey(obj.Key),
			Size:      obj.Size,
			CreatedAt: obj.LastModified,
		})
	}
	c.JSON(http.StatusOK, gin.H{"exports": items})
}

// GetDownloadLink 生成导出 PDF 的预签名下载链接。
func (h *ExportHandler) GetDownloadLink(c *gin.Context) {
	userID, cvID, ok := h.scope(c)
	if !ok {
		return
	}
	exportID, ok := storage.ParseExportID(c.Param("exportId"))
	if !ok {
		BadRequest(c, "invalid export id")
		return
	}

	ctx := c.Request.Context()
	objectKey := storage.ExportKey(userID, cvID, exportID)
	exists, err := h.storage.Exists(ctx, objectKey)
	if err != nil {
		respondError(c, err, "failed to check export")
		return
	}
	if !exists {
		Conflict(c, "pdf not ready")
		return
	}

	signedURL, err := h.storage.DownloadURL(ctx, objectKey, h.linkTTL, fmt.Sprintf("cv-%d.pdf", cvID))
	if err != nil {
		respondError(c, err, "failed to generate download link")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"url":        signedURL,
		"expires_in": int(h.linkTTL.Seconds()),
	})
}

// DeleteExports 删除该 CV 的全部导出产物。
func (h *ExportHandler) DeleteExports(c *gin.Context) {
	userID, cvID, ok := h.scope(c)
	if !ok {
		return
	}
	deleted, err := h.storage.DeletePrefix(c.Request.Context(), storage.ExportPrefix(userID, cvID))
	if err != nil {
		respondError(c, err, "failed to delete exports")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
