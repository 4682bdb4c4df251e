package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"cvBuilder/internal/api/middleware"
	"cvBuilder/internal/errcode"
)

func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func AbortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

func Unauthorized(c *gin.Context)           { Error(c, http.StatusUnauthorized, "unauthorized") }
func BadRequest(c *gin.Context, msg string) { Error(c, http.StatusBadRequest, msg) }
func Forbidden(c *gin.Context, msg string)  { Error(c, http.StatusForbidden, msg) }
func NotFound(c *gin.Context, msg string)   { Error(c, http.StatusNotFound, msg) }
func Conflict(c *gin.Context, msg string)   { Error(c, http.StatusConflict, msg) }
func Internal(c *gin.Context, msg string)   { Error(c, http.StatusInternalServerError, msg) }

// respondError 按错误分类返回状态码；未分类的错误只记录日志，不向客户端暴露细节。
func respondError(c *gin.Context, err error, fallback string) {
	var e *errcode.Error
	if errors.As(err, &e) {
		msg := e.Msg
		switch e.Kind {
		case errcode.KindNotFound:
			if msg == "" {
				msg = "not found"
			}
			NotFound(c, msg)
			return
		case errcode.KindForbidden:
			if msg == "" {
				msg = "forbidden"
			}
			Forbidden(c, msg)
			return
		case errcode.KindValidationFailed:
			BadRequest(c, msg)
			return
		case errcode.KindRenderingFailed:
			middleware.LoggerFromContext(c).Error("rendering failed", slog.Any("error", err))
			_ = c.Error(err)
			Internal(c, "rendering failed")
			return
		}
	}
	middleware.LoggerFromContext(c).Error(fallback, slog.Any("error", err))
	_ = c.Error(err)
	Internal(c, fallback)
}
