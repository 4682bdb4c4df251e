package storage

import (
	"errors"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
)

// errorCode 取出 MinIO/S3 的错误码与 HTTP 状态，非服务端错误返回空值。
func errorCode(err error) (string, int) {
	var resp minio.ErrorResponse
	if !errors.As(err, &resp) {
		return "", 0
	}
	return strings.ToLower(strings.TrimSpace(resp.Code)), resp.StatusCode
}

// IsNoSuchKey 判断导出对象是否不存在。StatObject 的 404 没有响应体，只能依赖状态码。
func IsNoSuchKey(err error) bool {
	if err == nil {
		return false
	}
	code, status := errorCode(err)
	switch code {
	case "nosuchkey", "notfound":
		return true
	case "nosuchbucket":
		return false
	}
	if status == http.StatusNotFound {
		return true
	}

	// 兜底：代理网关可能把错误包装成字符串。
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "nosuchkey") ||
		strings.Contains(lower, "specified key does not exist")
}

// IsNoSuchBucket 判断 Bucket 是否不存在；列出尚未创建的 Bucket 视为空。
func IsNoSuchBucket(err error) bool {
	if err == nil {
		return false
	}
	if code, _ := errorCode(err); code == "nosuchbucket" {
		return true
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "nosuchbucket") ||
		strings.Contains(lower, "specified bucket does not exist")
}
