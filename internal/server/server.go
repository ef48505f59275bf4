package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"relaychat/internal/auth"
	"relaychat/internal/config"
	"relaychat/internal/handler"
	"relaychat/internal/middleware"
	"relaychat/internal/transport/httpdto"
	"relaychat/internal/transport/ws"
	"relaychat/pkg/logger"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
}

type Handlers struct {
	Messages      *handler.MessageHandler
	Conversations *handler.ConversationHandler
	WS            *ws.Handler
}

func New(cfg *config.Config, l *logger.Logger) *Server {
	if cfg.Server.Environment == logger.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
			Handler: engine,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

func (s *Server) SetupRoutes(handlers *Handlers, verifier *auth.Verifier) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.engine.GET("/ws", handlers.WS.Connect)

	api := s.engine.Group("/", middleware.AuthMiddleware(verifier))
	{
		api.POST("/conversations", handlers.Conversations.Create)
		api.GET("/conversations/:id", handlers.Conversations.Get)
		api.GET("/conversations/:id/presence", handlers.Conversations.ConversationPresence)
		api.GET("/conversations/:id/messages", handlers.Messages.List)
		api.POST("/conversations/:id/messages", handlers.Messages.Send)
		api.POST("/conversations/:id/messages/:messageId/seen", handlers.Messages.Seen)
		api.GET("/presence/:userId", handlers.Conversations.Presence)
	}
}

func (s *Server) Run() error {
	s.logger.Infof("listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
