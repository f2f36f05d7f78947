package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ratewatch/rated-history-go/internal/authprov"
	"github.com/ratewatch/rated-history-go/internal/config"
	"github.com/ratewatch/rated-history-go/internal/db"
	"github.com/ratewatch/rated-history-go/internal/db/repository"
	"github.com/ratewatch/rated-history-go/internal/fetch"
	"github.com/ratewatch/rated-history-go/internal/handler"
	"github.com/ratewatch/rated-history-go/internal/middleware"
	"github.com/ratewatch/rated-history-go/internal/notify"
	"github.com/ratewatch/rated-history-go/internal/quota"
	"github.com/ratewatch/rated-history-go/internal/session"
	"github.com/ratewatch/rated-history-go/internal/token"
	"github.com/ratewatch/rated-history-go/internal/youtube"
	"github.com/ratewatch/rated-history-go/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	log := logger.Named("main")

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}
	defer pool.Close()
	log.Info("database connection established",
		zap.Int32("max_conns", pool.Config().MaxConns),
	)

	credRepo := repository.NewCredentialRepository(pool)
	quotaRepo := repository.NewQuotaRepository(pool)

	tokens := token.NewStore(credRepo, cfg.Session.TokenExpiryMargin)
	quotaManager := quota.NewManager(quotaRepo, cfg.YouTube.QuotaDailyLimit, cfg.YouTube.QuotaWarnPct)

	// The session degrades to an initialization failure when any of
	// these fail to build; the server still starts and surfaces the
	// failure through the view state.
	var authorizer authprov.Authorizer
	if a, err := authprov.NewGoogle(
		cfg.Auth.ClientID,
		cfg.Auth.ClientSecret,
		cfg.Auth.Scope,
		cfg.Auth.RevokeURL,
	); err != nil {
		log.Warn("authorization provider unavailable", zap.Error(err))
	} else {
		authorizer = a
	}

	var fetcher session.PageFetcher
	initCtx, cancelInit := context.WithTimeout(ctx, cfg.Session.InitTimeout)
	if client, err := youtube.NewClient(initCtx, tokens.Source(), cfg.YouTube.PageSize); err != nil {
		log.Warn("remote listing client unavailable", zap.Error(err))
	} else {
		fetcher = fetch.NewOrchestrator(
			client,
			tokens,
			quotaManager,
			cfg.YouTube.RequestTimeout,
			cfg.YouTube.LikesPlaylistID,
		)
	}
	cancelInit()

	var publisher notify.Publisher = notify.NoopPublisher{}
	if cfg.RabbitMQ.Enabled {
		if p, err := notify.NewRabbitMQPublisher(cfg.RabbitMQ); err != nil {
			log.Warn("event publisher unavailable, session events will be dropped", zap.Error(err))
		} else {
			publisher = p
		}
	}
	defer publisher.Close()

	sess := session.New(fetcher, tokens, authorizer, publisher, cfg.Session.SearchDebounce)
	sessCtx, cancelSess := context.WithTimeout(ctx, cfg.Session.InitTimeout)
	if err := sess.Initialize(sessCtx); err != nil {
		log.Warn("session initialization degraded", zap.Error(err))
	}
	cancelSess()

	router := buildRouter(cfg, sess, pool)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.Int("port", cfg.Server.Port))
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	case sig := <-shutdown:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", zap.Error(err))
			if err := server.Close(); err != nil {
				log.Error("failed to close server", zap.Error(err))
			}
			os.Exit(1)
		}

		log.Info("server stopped gracefully")
	}
}

func buildRouter(cfg *config.Config, sess *session.Session, pool handler.Pinger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	healthHandler := handler.NewHealthHandler(pool)
	router.GET("/health/live", healthHandler.LivenessProbe)
	router.GET("/health/ready", healthHandler.ReadinessProbe)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	sessionHandler := handler.NewSessionHandler(sess)
	auth := middleware.NewAPIKeyAuth(cfg.Server.APIKeys)

	api := router.Group("/api/v1", auth.Handler())
	{
		api.GET("/session", sessionHandler.View)
		api.POST("/session/sign-in", sessionHandler.SignIn)
		api.POST("/session/sign-out", sessionHandler.SignOut)
		api.POST("/session/load-more", sessionHandler.LoadMore)
		api.POST("/session/load-all", sessionHandler.LoadAll)
		api.PUT("/session/mode", sessionHandler.SetMode)
		api.PUT("/session/search", sessionHandler.SetSearch)
		api.PUT("/session/sort", sessionHandler.SetSort)
		api.PUT("/session/insights", sessionHandler.SetInsights)
		api.GET("/session/analytics", sessionHandler.Analytics)
		api.GET("/session/export", sessionHandler.Export)
		api.POST("/videos/:id/unavailable", sessionHandler.MarkUnavailable)
	}

	return router
}

// requestLogger logs each completed request with its status and
// duration.
func requestLogger() gin.HandlerFunc {
	log := logger.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.String("remote_addr", c.ClientIP()),
		)
	}
}
