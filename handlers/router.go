package handlers

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// NewRouter mounts every route on a fresh gin engine.
func NewRouter(h *Handlers, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(logger))

	// Every origin is allowed; the API carries no cookies.
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization", SessionHeader},
		ExposeHeaders:   []string{SessionHeader},
		MaxAge:          24 * time.Hour,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", h.HealthHandler)

	api := r.Group("/api")
	{
		chat := api.Group("/chat")
		chat.POST("/ask", h.AskHandler)
		chat.POST("/plan", h.PlanHandler)
		chat.POST("/tools", h.ToolsHandler)
		chat.POST("/sessions", h.CreateChatSessionHandler)
		chat.GET("/sessions/:id", h.ChatHistoryHandler)

		api.POST("/books/enrich", h.EnrichBooksHandler)
		api.POST("/voice/speak", h.SpeakHandler)
	}
	return r
}
