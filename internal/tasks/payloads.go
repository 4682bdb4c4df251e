package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"cvBuilder/internal/document"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypePDFExport = "pdf:export"
)

// PDFExportPayload 描述一次异步导出。ExportID 由生产者生成，客户端据此查询下载链接。
type PDFExportPayload struct {
	ExportID      string              `json:"export_id"`
	CVID          uint                `json:"cv_id"`
	UserID        uint                `json:"user_id"`
	Scale         float64             `json:"scale,omitempty"`
	Compact       bool                `json:"compact,omitempty"`
	Style         document.StylePatch `json:"style"`
	CorrelationID string              `json:"correlation_id"`
}

// NewPDFExportTask 构造一个新的 PDF 导出任务，任务 ID 与导出 ID 一致以避免重复入队。
func NewPDFExportTask(payload PDFExportPayload, opts ...asynq.Option) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	opts = append([]asynq.Option{asynq.TaskID(payload.ExportID)}, opts...)
	return asynq.NewTask(TypePDFExport, data, opts...), nil
}

// ParsePDFExportPayload 解析任务负载。
func ParsePDFExportPayload(t *asynq.Task) (PDFExportPayload, error) {
	var payload PDFExportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("unmarshal %s payload: %w", t.Type(), err)
	}
	if payload.ExportID == "" || payload.CVID == 0 || payload.UserID == 0 {
		return payload, fmt.Errorf("incomplete %s payload", t.Type())
	}
	return payload, nil
}

// NotifyChannel 返回用户私有的 Redis 通知频道。
func NotifyChannel(userID uint) string {
	return fmt.Sprintf("user_notify:%d", userID)
}
