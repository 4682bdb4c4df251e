package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"cvBuilder/internal/api/middleware"
	"cvBuilder/internal/store"
)

// Dependencies 汇总路由所需的服务。Redis 为空时不启用限流；Notify 与 Redis 都为空时不启用 WebSocket。
type Dependencies struct {
	Service        CVService
	Sections       *store.Sections
	Verifier       middleware.TokenValidator
	Queue          TaskEnqueuer
	Storage        ExportStorage
	Redis          *redis.Client
	Notify         NotifySubscriber
	Logger         *slog.Logger
	Export         ExportOptions
	AllowedOrigins []string
}

// RegisterRoutes 注册 API 路由，不包含 /api 前缀。
func RegisterRoutes(router *gin.Engine, deps Dependencies) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var rateCounter redisRateCounter
	notify := deps.Notify
	if deps.Redis != nil {
		rateCounter = deps.Redis
		if notify == nil {
			notify = NewRedisSubscriber(deps.Redis)
		}
	}

	authMiddleware := middleware.AuthMiddleware(deps.Verifier)
	cvHandler := NewCVHandler(deps.Service)
	exportHandler := NewExportHandler(deps.Service, deps.Queue, deps.Storage, rateCounter, deps.Export)

	v1 := router.Group("/v1")
	{
		if notify != nil {
			wsHandler := NewWsHandler(notify, deps.Verifier, logger, deps.AllowedOrigins)
			v1.GET("/ws", wsHandler.HandleConnection)
		}

		cvGroup := v1.Group("/cvs/:cvId")
		cvGroup.Use(authMiddleware)
		{
			cvGroup.GET("/document", cvHandler.GetDocument)
			cvGroup.GET("/render/html", cvHandler.RenderHTML)
			cvGroup.GET("/render/pdf", cvHandler.RenderPDF)

			cvGroup.GET("/sections", cvHandler.GetSectionConfig)
			cvGroup.PUT("/sections/order", cvHandler.SetSectionOrder)
			cvGroup.PATCH("/sections/titles", cvHandler.SetSectionTitles)

			if deps.Queue != nil && deps.Storage != nil {
				cvGroup.POST("/exports", exportHandler.CreateExport)
				cvGroup.GET("/exports", exportHandler.ListExports)
				cvGroup.GET("/exports/:exportId/link", exportHandler.GetDownloadLink)
				cvGroup.DELETE("/exports", exportHandler.DeleteExports)
			}

			RegisterSections(cvGroup, deps.Service, deps.Sections)
		}

		publicGroup := v1.Group("/public/cvs/:cvId")
		{
			publicGroup.GET("/html", cvHandler.RenderPublicHTML)
			publicGroup.GET("/pdf", cvHandler.RenderPublicPDF)
		}
	}
}
