package api

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"cvBuilder/internal/api/middleware"
)

func userIDFromContext(c *gin.Context) (uint, bool) {
	value, exists := c.Get(middleware.UserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, v != 0
	case int:
		if v <= 0 {
			return 0, false
		}
		return uint(v), true
	case uint64:
		return uint(v), v != 0
	case int64:
		if v <= 0 {
			return 0, false
		}
		return uint(v), true
	default:
		return 0, false
	}
}

// uintParam 解析路径中的正整数 ID。
func uintParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// ownerScope 取出当前用户与路径中的 cvId，失败时已写入响应。
func ownerScope(c *gin.Context) (userID, cvID uint, ok bool) {
	userID, ok = userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return 0, 0, false
	}
	cvID, ok = uintParam(c, "cvId")
	if !ok {
		BadRequest(c, "invalid cv id")
		return 0, 0, false
	}
	return userID, cvID, true
}
