package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"cvBuilder/internal/tasks"
)

// 导出状态。
const (
	StatusCompleted = "completed"
	StatusError     = "error"
)

// ExportNotifyMessage 是经 Redis Pub/Sub 转发给前端的导出结果。
// 注意：这里的字段名与前端解析保持一致。
type ExportNotifyMessage struct {
	Type          string `json:"type"`
	Status        string `json:"status"`
	CVID          uint   `json:"cv_id"`
	ExportID      string `json:"export_id"`
	CorrelationID string `json:"correlation_id"`
	Size          int    `json:"size,omitempty"`
	ErrorCode     int    `json:"error_code"`
	ErrorMessage  string `json:"error_message"`
}

// Publisher 是 redis.Client 的发布子集。
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

func publishExportNotify(ctx context.Context, p Publisher, userID uint, msg ExportNotifyMessage) error {
	msg.Type = tasks.TypePDFExport
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := tasks.NotifyChannel(userID)
	if err := p.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}
