package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/KK-2k06/AI-Image-Transformation/internal/config"
	"github.com/KK-2k06/AI-Image-Transformation/internal/domain/models"
	"github.com/KK-2k06/AI-Image-Transformation/internal/infrastructure/backend"
	"github.com/KK-2k06/AI-Image-Transformation/internal/infrastructure/cache"
	"github.com/KK-2k06/AI-Image-Transformation/internal/infrastructure/queue"
	"github.com/KK-2k06/AI-Image-Transformation/internal/interfaces/http/handlers"
	"github.com/KK-2k06/AI-Image-Transformation/internal/interfaces/http/middleware"
	"github.com/KK-2k06/AI-Image-Transformation/internal/websocket"
	"github.com/KK-2k06/AI-Image-Transformation/internal/workflow"
)

func main() {
	cfg := config.Load()

	logger := newLogger(cfg.Server.Environment)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	catalog, err := models.LoadCatalog(cfg.Studio.StyleCatalogPath)
	if err != nil {
		log.Fatalf("Failed to load style catalog: %v", err)
	}

	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	sessionStream := queue.NewSessionStream(redisClient.Client, logger)
	wsHandler := websocket.NewHandler(sessionStream, logger)

	backendClient := backend.NewClient(cfg.Backend, logger)
	registry := workflow.NewRegistry()

	sessionHandler := handlers.NewSessionHandler(
		registry,
		catalog,
		backendClient,
		sessionStream,
		cfg.Studio.DefaultGenerations,
		logger,
	)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestLogger(logger))

	router.GET("/health", func(c *gin.Context) {
		status := "healthy"
		code := http.StatusOK
		if err := redisClient.Health(); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":   status,
			"service":  "dreamink-studio",
			"sessions": registry.Count(),
			"time":     time.Now(),
		})
	})

	sessionHandler.RegisterRoutes(router)

	streamingGroup := router.Group("/stream")
	streamingGroup.GET("/session/:session_id", gin.WrapH(wsHandler))
	streamingGroup.GET("/status", gin.WrapH(http.HandlerFunc(wsHandler.GetStatus)))

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.Info("starting studio gateway", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("studio gateway stopped")
}

func newLogger(environment string) *slog.Logger {
	if environment == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
