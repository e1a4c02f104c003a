package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"studygroup/internal/auth"
	"studygroup/internal/config"
	"studygroup/internal/handler"
	"studygroup/internal/httpmiddleware"
	"studygroup/internal/logging"
	"studygroup/internal/store"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogPretty)
	log.Logger = logger

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("http server failed")
	}
}

func runHTTP(cfg config.App, logger zerolog.Logger) error {
	startCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	docs := store.Open(startCtx, cfg, logger)
	cancel()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var limiter httpmiddleware.Limiter = httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	if cfg.RateLimitBackend == "redis" {
		limiter = httpmiddleware.NewRedisWindow(redisClient.Client, cfg.RateLimitPerMin)
	}

	tokens := auth.NewTokenService(cfg.TokenSecret, cfg.TokenIssuer, cfg.TokenTTL)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestID(logger))
	r.Use(httpmiddleware.AccessLog("/healthz", "/metrics"))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(httpmiddleware.NewMetrics(prometheus.DefaultRegisterer).Handler())
	r.Use(httpmiddleware.RateLimit(limiter))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handler.New(docs, cfg.AssignmentsCollection, cfg.SubmissionsCollection, tokens, redisClient, handler.Options{
		CookieSecure:              cfg.CookieSecure,
		AllSubmissionsRequireAuth: cfg.AllSubmissionsRequireAuth,
	}).Register(r)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("store", cfg.StoreBackend).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	logger.Info().Msg("shutting down server")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced shutdown")
	}
	if err := docs.Close(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("closing document store")
	}
	if err := redisClient.Close(); err != nil {
		logger.Warn().Err(err).Msg("closing redis")
	}

	logger.Info().Msg("server exited")
	return nil
}
