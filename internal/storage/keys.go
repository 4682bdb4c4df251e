package storage

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

const exportRoot = "exports"

// ExportPrefix 返回某用户某份 CV 的导出目录，末尾带斜杠。
func ExportPrefix(userID, cvID uint) string {
	return fmt.Sprintf("%s/%d/%d/", exportRoot, userID, cvID)
}

// ExportKey 返回导出产物的对象名。
func ExportKey(userID, cvID uint, exportID string) string {
	return ExportPrefix(userID, cvID) + exportID + ".pdf"
}

// NewExportID 生成新的导出 ID。
func NewExportID() string {
	return uuid.NewString()
}

// ParseExportID 校验客户端传入的导出 ID，防止路径穿越到其他用户目录。
func ParseExportID(raw string) (string, bool) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	return id.String(), true
}

// ExportIDFromKey 从对象名中取回导出 ID。
func ExportIDFromKey(key string) string {
	return strings.TrimSuffix(path.Base(key), ".pdf")
}
