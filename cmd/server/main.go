package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/iliyamo/water-network-api/internal/config"
	"github.com/iliyamo/water-network-api/internal/database"
	"github.com/iliyamo/water-network-api/internal/handler"
	"github.com/iliyamo/water-network-api/internal/logging"
	"github.com/iliyamo/water-network-api/internal/metrics"
	"github.com/iliyamo/water-network-api/internal/middleware"
	"github.com/iliyamo/water-network-api/internal/queue"
	"github.com/iliyamo/water-network-api/internal/repository"
	"github.com/iliyamo/water-network-api/internal/router"
	"github.com/iliyamo/water-network-api/internal/token"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger config depends on cfg, so fall back to a default one here
		zap.NewExample().Fatal("load config", zap.Error(err))
	}
	log := logging.New(cfg.Env, cfg.LogLevel, "water-network-api")
	defer func() { _ = log.Sync() }()

	sqlDB, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal("connect database", zap.Error(err))
	}
	defer sqlDB.Close()
	db, err := database.Gorm(sqlDB)
	if err != nil {
		log.Fatal("open gorm", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	} else {
		log.Warn("redis unavailable, cache and rate limiting disabled")
	}

	var revoked token.RevocationSet = token.NewMemorySet()
	if cfg.Revocation == "redis" {
		if rdb != nil {
			revoked = token.NewRedisSet(rdb, "revoked:refresh")
		} else {
			log.Warn("REVOCATION_BACKEND=redis but redis is unreachable, using in-memory revocation")
		}
	}
	tokens := token.NewService(token.Config{
		AccessSecret:  cfg.JWTSecret,
		RefreshSecret: cfg.RefreshSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
	}, revoked)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New("network", reg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pub queue.Publisher = queue.NopPublisher{}
	if cfg.EventsEnabled {
		amqpPub := queue.NewAMQPPublisher(cfg.RabbitMQURL)
		defer amqpPub.Close()
		pub = amqpPub
	}
	if cfg.AuditConsumer {
		audit := queue.NewAuditLog(filepath.Join("logs", "network.log"))
		go queue.StartAuditConsumer(ctx, cfg.RabbitMQURL, audit, log.Named("audit"))
	}

	users := repository.NewUserRepo(db)
	e := router.New(router.Deps{
		Log:       log,
		Debug:     cfg.Debug(),
		Verifier:  tokens,
		Auth:      handler.NewAuthHandler(users, tokens, cfg.BcryptCost, m),
		Users:     handler.NewUserHandler(users, cfg.BcryptCost),
		Network:   handler.NewNetworkHandler(repository.NewNodeRepo(db), repository.NewPipeRepo(db), pub, log),
		Cache:     middleware.NewResponseCache(config.LoadCacheConfig(), rdb, log),
		RateLimit: middleware.RateLimit(config.LoadRateLimitConfig(), rdb, log),
		Metrics:   m,
	})

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}
