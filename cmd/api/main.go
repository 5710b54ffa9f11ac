// Package main is the entrypoint for the user service.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/usersvc/usersvc/internal/cache"
	"github.com/usersvc/usersvc/internal/config"
	"github.com/usersvc/usersvc/internal/handler"
	"github.com/usersvc/usersvc/internal/metrics"
	"github.com/usersvc/usersvc/internal/repository"
	"github.com/usersvc/usersvc/internal/server"
	"github.com/usersvc/usersvc/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	// A database that cannot be reached at startup is not fatal: the
	// process serves from memory until it exits.
	backend := repository.Open(ctx, repository.OpenConfig{
		Disabled:       cfg.DatabaseDisabled(),
		DatabaseURL:    cfg.DatabaseURL(),
		MaxConns:       cfg.DBMaxConns,
		ConnectTimeout: cfg.DBConnectTimeout,
	})
	if backend.Connected() {
		logger.Info("connected to database", slog.String("database_url", redactURL(cfg.DatabaseURL())))
	} else {
		logger.Warn(
			"database unavailable, using in-memory store",
			slog.String("reason", sanitizeError(backend.FallbackReason, cfg.DatabaseURL(), cfg.DBPassword)),
			slog.Bool("disabled", errors.Is(backend.FallbackReason, repository.ErrDatabaseDisabled)),
		)
	}

	// Keep these as untyped nil interfaces when absent so handlers can
	// tell the difference.
	var (
		userCache   service.UserCache
		dbCheck     handler.HealthChecker
		cacheChk    handler.HealthChecker
		cacheClient *cache.Cache
	)
	if backend.Connected() {
		dbCheck = backend.DB
	}

	// Only the relational store is worth caching in front of.
	if cfg.RedisURL != "" && backend.Connected() {
		cacheClient, err = cache.New(ctx, cache.Options{
			URL:          cfg.RedisURL,
			TTL:          cfg.UserCacheTTL,
			PoolSize:     cfg.RedisPoolSize,
			MinIdleConns: cfg.RedisMinIdleConns,
		})
		if err != nil {
			logger.Warn(
				"failed to connect to Redis, continuing without cache",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
		} else {
			logger.Info("connected to Redis", slog.Duration("ttl", cfg.UserCacheTTL))
			userCache = cacheClient
			cacheChk = cacheClient
		}
	}

	recorder := metrics.NewInMemory()
	userService := service.NewUserService(backend.Store, userCache, recorder, logger)

	r := handler.NewRouter(handler.RouterConfig{
		Health:             handler.NewHealthHandler(dbCheck, cacheChk),
		Users:              handler.NewUserHandler(userService, logger, cfg.ExposeStoreErrors),
		Metrics:            handler.NewMetricsHandler(recorder),
		Logger:             logger,
		IsDevelopment:      cfg.IsDevelopment(),
		CORSAllowedOrigins: cfg.GetCORSAllowedOrigins(),
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	})

	srv := server.New(r, server.Config{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	srv.OnShutdown("database", func(ctx context.Context) error {
		backend.Close()
		return nil
	})
	if cacheClient != nil {
		srv.OnShutdown("redis", func(ctx context.Context) error {
			return cacheClient.Close()
		})
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"store", backend.Mode(),
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h).With("service", "usersvc")
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s&]+`)

// redactURL strips the password from a connection URL.
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

// sanitizeError renders err with every secret replaced. URL secrets are
// replaced by their redacted form; anything else by "[redacted]".
func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := "[redacted]"
		if strings.Contains(secret, "://") {
			redacted = redactURL(secret)
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
