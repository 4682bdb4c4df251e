package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	"cvBuilder/internal/document"
	"cvBuilder/internal/errcode"
	"cvBuilder/internal/resume"
	"cvBuilder/internal/storage"
	"cvBuilder/internal/tasks"
)

// PDFRenderer 是导出任务依赖的渲染入口，由 resume.Service 实现。
type PDFRenderer interface {
	RenderPDF(ctx context.Context, cvID, userID uint, style document.StylePatch, opts resume.PDFOptions) ([]byte, error)
}

// ArtifactStore 保存导出产物。
type ArtifactStore interface {
	PutPDF(ctx context.Context, objectKey string, data []byte) error
}

// ExportTaskHandler 负责消费 PDF 导出任务。
type ExportTaskHandler struct {
	renderer  PDFRenderer
	store     ArtifactStore
	publisher Publisher
	logger    *slog.Logger
}

// NewExportTaskHandler 创建任务处理器。
func NewExportTaskHandler(renderer PDFRenderer, store ArtifactStore, publisher Publisher, logger *slog.Logger) *ExportTaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportTaskHandler{renderer: renderer, store: store, publisher: publisher, logger: logger}
}

// ProcessTask 实现 asynq.Handler。
func (h *ExportTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	payload, err := tasks.ParsePDFExportPayload(t)
	if err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.String("export_id", payload.ExportID),
		slog.Uint64("cv_id", uint64(payload.CVID)),
		slog.Uint64("user_id", uint64(payload.UserID)),
	)
	log.Info("Starting PDF export task...")

	defer func() {
		if retErr == nil {
			return
		}
		if !errcode.Permanent(retErr) && !isFinalAsynqAttempt(ctx) {
			return
		}
		notify := ExportNotifyMessage{
			Status:        StatusError,
			CVID:          payload.CVID,
			ExportID:      payload.ExportID,
			CorrelationID: payload.CorrelationID,
			ErrorCode:     errcode.Code(retErr),
			ErrorMessage:  strings.TrimSpace(retErr.Error()),
		}
		if err := publishExportNotify(ctx, h.publisher, payload.UserID, notify); err != nil {
			log.Error("publish export error notification failed", slog.Any("error", err))
		}
	}()

	data, err := h.renderer.RenderPDF(ctx, payload.CVID, payload.UserID, payload.Style, resume.PDFOptions{
		Scale:   payload.Scale,
		Compact: payload.Compact,
	})
	if err != nil {
		if errcode.Permanent(err) {
			log.Warn("export rejected, not retrying", slog.Any("error", err))
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		log.Error("render pdf failed", slog.Any("error", err))
		return err
	}

	objectKey := storage.ExportKey(payload.UserID, payload.CVID, payload.ExportID)
	if err := h.store.PutPDF(ctx, objectKey, data); err != nil {
		log.Error("upload pdf to minio failed", slog.Any("error", err))
		return err
	}

	notify := ExportNotifyMessage{
		Status:        StatusCompleted,
		CVID:          payload.CVID,
		ExportID:      payload.ExportID,
		CorrelationID: payload.CorrelationID,
		Size:          len(data),
		ErrorCode:     errcode.OK,
	}
	if err := publishExportNotify(ctx, h.publisher, payload.UserID, notify); err != nil {
		// 产物已落盘，客户端可通过列表接口取得。
		log.Warn("publish redis notification failed", slog.Any("error", err))
	}

	log.Info("PDF export task completed successfully.", slog.Int("bytes", len(data)), slog.String("object_key", objectKey))
	return nil
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
