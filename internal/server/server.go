package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/AubakirovArman/tomoru-sub000/internal/server/handlers"
	"github.com/AubakirovArman/tomoru-sub000/pkg/config"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Bots       *handlers.BotHandler
	QuickReply *handlers.QuickReplyHandler
	Knowledge  *handlers.KnowledgeHandler
	Builder    *handlers.BuilderHandler
	Webhooks   *handlers.WebhookHandler
}

type Server struct {
	server *http.Server
	logger *zap.Logger
}

func New(cfg *config.Config, h Handlers, logger *zap.Logger) *Server {
	gin.SetMode(cfg.Server.Mode)

	router := gin.New()
	router.Use(gin.Recovery(), ginLogger(logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	// Webhooks carry their own authentication: Telegram and WhatsApp
	// endpoints are unguessable by bot id only in combination with the
	// platform's delivery guarantees, the gateway checks its API key.
	webhooks := v1.Group("/webhook")
	{
		webhooks.POST("/telegram/:botID", h.Webhooks.Telegram)
		webhooks.POST("/whatsapp/:botID", h.Webhooks.WhatsApp)
		webhooks.POST("/gateway", h.Webhooks.Gateway)
	}

	api := v1.Group("")
	api.Use(auth(cfg.Auth.JWTSecret, logger))
	{
		api.POST("/bots", h.Bots.Create)
		api.GET("/bots", h.Bots.List)
		api.GET("/bots/:botID", h.Bots.Get)
		api.PUT("/bots/:botID", h.Bots.Update)
		api.DELETE("/bots/:botID", h.Bots.Delete)
		api.GET("/bots/:botID/messages", h.Bots.Messages)

		api.POST("/bots/:botID/quick-replies", h.QuickReply.Create)
		api.GET("/bots/:botID/quick-replies", h.QuickReply.List)
		api.DELETE("/bots/:botID/quick-replies/:replyID", h.QuickReply.Delete)

		api.POST("/knowledge-bases", h.Knowledge.Create)
		api.GET("/knowledge-bases", h.Knowledge.List)
		api.DELETE("/knowledge-bases/:kbID", h.Knowledge.Delete)
		api.POST("/knowledge-bases/:kbID/files", h.Knowledge.UploadFile)
		api.POST("/bots/:botID/knowledge-bases/:kbID", h.Knowledge.Bind)
		api.DELETE("/bots/:botID/knowledge-bases/:kbID", h.Knowledge.Unbind)

		api.POST("/builder/chat", h.Builder.Chat)
	}

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:      router,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 5 * time.Minute,
		},
		logger: logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.server.Shutdown(ctx)
}
