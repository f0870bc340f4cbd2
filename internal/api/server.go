package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"linkprobe/internal/config"
	"linkprobe/internal/logger"
	"linkprobe/internal/prober"
	"linkprobe/internal/store"
)

type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	listen     string
}

func NewServer(st store.Store, orch *prober.Orchestrator, cfg config.APIConfig) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.CORSOrigins) == 1 && cfg.CORSOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.CORSOrigins
	}
	router.Use(cors.New(corsConfig))

	handler := NewHandler(st, orch)

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/", handler.Root)
		apiGroup.POST("/configs/fetch", handler.FetchConfigs)
		apiGroup.POST("/configs/test-batch", handler.TestBatch)
		apiGroup.GET("/configs/results", handler.GetResults)
		apiGroup.DELETE("/configs/clear", handler.Clear)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return &Server{
		router: router,
		listen: cfg.Listen,
	}
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.listen,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Log.Infof("API listening on %s", s.listen)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	logger.Log.Info("Shutting down HTTP server...")
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
