package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/mediapull/api/handlers"
	"github.com/yourusername/mediapull/api/middleware"
	"github.com/yourusername/mediapull/internal/app"
	"github.com/yourusername/mediapull/internal/domain"
	"github.com/yourusername/mediapull/pkg/logger"
)

// Services groups what the HTTP layer serves
type Services struct {
	Registry *app.Registry
	Catalog  *app.Catalog
	History  *app.HistoryService
	Watchdog *app.Watchdog // nil when stall detection is disabled
}

// SetupRouter sets up the HTTP router
func SetupRouter(services Services, logAdapter *logger.LoggerAdapter, config *domain.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.Logger(logAdapter))
	router.Use(middleware.Recovery(logAdapter))
	router.Use(middleware.CORS())

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(services.Registry, services.Watchdog)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	v1 := router.Group("/api/v1")
	{
		sessionHandler := handlers.NewSessionHandler(services.Registry, config.Download.MaxPacketBytes, logAdapter.Session())
		filesHandler := handlers.NewFilesHandler(services.Catalog, logAdapter.General())

		v1.GET("/positions", sessionHandler.ListPositions)
		positions := v1.Group("/positions/:position")
		{
			positions.GET("/session", sessionHandler.GetSession)
			positions.POST("/session/abort", sessionHandler.AbortSession)
			positions.POST("/packets", sessionHandler.PostPacket)
			positions.GET("/files", filesHandler.ListFiles)
			positions.PUT("/files", filesHandler.ReplaceFiles)
		}

		// Download history endpoints
		downloadHandler := handlers.NewDownloadHandler(services.History, logAdapter.General())
		downloads := v1.Group("/downloads")
		{
			downloads.GET("", downloadHandler.ListDownloads)
			downloads.GET("/stats", downloadHandler.GetStats)
			downloads.GET("/:id", downloadHandler.GetDownload)
		}

		// Log endpoints
		logHandler := handlers.NewLogHandler(config.Logging.LogsDir)
		wsHandler := handlers.NewLogWebSocketHandler(config.Logging.LogsDir, logAdapter.General())
		logs := v1.Group("/logs")
		{
			logs.GET("/categories", logHandler.GetCategories)
			logs.GET("/stream", wsHandler.HandleWebSocket)
			logs.GET("/:category", logHandler.GetLogs)
			logs.GET("/:category/search", logHandler.SearchLogs)
			logs.GET("/:category/export", logHandler.ExportLogs)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}
