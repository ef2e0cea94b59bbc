package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/ebaypulse/server/internal/api"
	"github.com/ebaypulse/server/internal/core"
	"github.com/ebaypulse/server/internal/gateway"
	"github.com/ebaypulse/server/internal/gateway/observers"
	gwmodel "github.com/ebaypulse/server/internal/gateway/model"
	"github.com/ebaypulse/server/internal/views"
	"github.com/ebaypulse/server/internal/views/model"
	"github.com/ebaypulse/server/internal/views/repo"
	logx "github.com/ebaypulse/server/pkg/logger"
	pkgredis "github.com/ebaypulse/server/pkg/redis"
)

const (
	serviceName = "ebaypulse"
	version     = "0.1.0"
)

// AppConfig defines all configurable parameters of the server,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	Port        string `envconfig:"PORT" default:"8080"`

	// Infrastructure
	Redis      pkgredis.Config
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"30m"`

	// LLM provider. The server starts without a key; model calls then fail.
	APIKey  string `envconfig:"GEMINI_API_KEY"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	Gateway       gwmodel.GatewayConfig
	InFlightLease time.Duration `envconfig:"IN_FLIGHT_LEASE" default:"5m"`

	// HTTP
	AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS"`
	RateLimitRPS   float64  `envconfig:"RATE_LIMIT_RPS" default:"5"`
	RateLimitBurst int      `envconfig:"RATE_LIMIT_BURST" default:"10"`
}

func main() {
	// Load .env file
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		logx.Warn().Err(err).Msg("Could not load .env file")
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		logx.Fatal().Err(err).Msg("Failed to process environment config")
	}

	env := core.ParseEnvironment(cfg.Environment)
	logx.Init(logx.LoggerOpts{Environment: env})
	gin.SetMode(env.GinMode())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gen, keyPresent := gateway.NewGenerator(ctx, gateway.ClientConfig{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL})
	gw, err := gateway.New(ctx, gateway.Config{
		Model:      cfg.Gateway.Model,
		TrendCount: cfg.Gateway.Trends.Count,
		UseSearch:  cfg.Gateway.Trends.UseSearch,
		Generator:  gen,
		Callbacks:  []callbacks.Handler{observers.NewPromptCallbacks()},
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to build model gateway")
	}

	store, storeName, closeStore := buildStore(ctx, cfg)
	defer closeStore()

	limiter := api.NewRateLimiter(api.RateLimitConfig{RPS: cfg.RateLimitRPS, Burst: cfg.RateLimitBurst})
	go limiter.RunCleanup(ctx, time.Minute)

	router := api.BuildRouter(api.RouterDeps{
		ServiceName:    serviceName,
		Version:        version,
		KeyPresent:     keyPresent,
		Store:          storeName,
		Views:          views.NewService(store, gw, views.Config{InFlightLease: cfg.InFlightLease}),
		AllowedOrigins: cfg.AllowedOrigins,
		Limiter:        limiter,
	})

	srv := &http.Server{
		Addr:              ":" + strings.TrimPrefix(cfg.Port, ":"),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logx.Info().Str("addr", srv.Addr).Str("environment", env.String()).Str("model", cfg.Gateway.Model).
			Bool("gemini_key", keyPresent).Str("store", storeName).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	<-ctx.Done()
	logx.Info().Msg("Shutting down gracefully, press Ctrl+C again to force")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logx.Error().Err(err).Msg("Server forced to shutdown")
	}
	logx.Info().Msg("Graceful shutdown complete.")
}

// buildStore picks Redis when REDIS_URL is set and falls back to memory.
func buildStore(ctx context.Context, cfg AppConfig) (model.SessionRepository, string, func()) {
	if cfg.Redis.Enabled() {
		rdb, err := cfg.Redis.New(ctx)
		if err != nil {
			logx.Fatal().Err(err).Msg("Failed to initialise Redis client")
		}
		logx.Info().Msg("Connected to Redis successfully")
		return repo.NewRedisSessionRepository(rdb, cfg.SessionTTL), "redis", func() { _ = rdb.Close() }
	}

	mem := repo.NewMemorySessionRepository(cfg.SessionTTL)
	go mem.RunSweeper(ctx, time.Minute)
	return mem, "memory", func() {}
}
