package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codr/codr/internal/bus"
	"github.com/codr/codr/internal/config"
	"github.com/codr/codr/internal/gateway"
	"github.com/codr/codr/internal/handler"
	"github.com/codr/codr/internal/jobstore"
	"github.com/codr/codr/internal/middleware"
	"github.com/codr/codr/internal/redisconn"
	"github.com/codr/codr/internal/token"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	logger := logrus.New()
	logger.SetLevel(cfg.GetLogLevel())
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	logger.Info("Starting codr gateway server")

	redisClient, err := redisconn.NewClient(cfg.RedisURL, logger.WithField("component", "redis"))
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to redis")
	}
	defer redisClient.Close()

	messageBus := bus.New(redisClient, cfg.JobQueueName)
	store := jobstore.New(redisClient, time.Duration(cfg.RedisTTL)*time.Second)
	tokens := token.New(redisClient, cfg.JWTSecret, cfg.JWTExpirationMinutes, logger.WithField("component", "token"))

	gw := &gateway.Server{
		Cfg:    cfg,
		Bus:    messageBus,
		Store:  store,
		Tokens: tokens,
		Logger: logger.WithField("component", "gateway"),
	}

	h := &handler.Handler{
		Cfg:      cfg,
		Tokens:   tokens,
		Sessions: gw,
		Logger:   logger.WithField("component", "handler"),
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(cfg.CORSOriginList()))
	r.Use(middleware.BodyLimit(int64(cfg.MaxFileSizeMB) * 1024 * 1024))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.APIKey))

		r.Group(func(r chi.Router) {
			r.Use(middleware.JSON)
			r.Use(middleware.RateLimit(cfg.RateLimitSubmit))
			r.Post("/jobs/create", h.CreateJob)
		})

		r.Get("/runtimes", h.GetRuntimes)
		r.Get("/websocket/status", h.GetWebSocketStatus)
	})

	// WebSocket route (no JSON middleware, own rate limit class)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitStream))
		r.Get("/ws/execute", gw.HandleWebSocket)
	})

	// Health check
	r.Get("/health", h.HealthHandler(func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return messageBus.Healthy(ctx)
	}))

	server := &http.Server{
		Addr:    cfg.BindAddress(),
		Handler: r,
		// Security settings
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Infof("Gateway server starting on %s", cfg.BindAddress())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
		os.Exit(1)
	}

	logger.Info("Server exited")
}
