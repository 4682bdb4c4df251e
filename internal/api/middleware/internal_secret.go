package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const internalSecretHeader = "X-Internal-Secret"

// scrapeToken 读取抓取方提供的密钥：优先 X-Internal-Secret，其次 Prometheus 的 bearer_token。
func scrapeToken(c *gin.Context) string {
	if token := strings.TrimSpace(c.GetHeader(internalSecretHeader)); token != "" {
		return token
	}
	scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// MetricsAuthMiddleware 保护 /metrics。secret 为空时直接放行，由集群网络隔离。
func MetricsAuthMiddleware(secret string) gin.HandlerFunc {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		// 密钥只能通过 Header 传递，避免 query 泄露到日志。
		token := scrapeToken(c)
		if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
