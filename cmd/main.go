package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bquezada-bit/Silvacentinel/internal/api/handler"
	"github.com/bquezada-bit/Silvacentinel/internal/complaint"
	"github.com/bquezada-bit/Silvacentinel/internal/config"
	"github.com/bquezada-bit/Silvacentinel/internal/evidence"
	"github.com/bquezada-bit/Silvacentinel/internal/inaturalist"
	"github.com/bquezada-bit/Silvacentinel/internal/livefeed"
	"github.com/bquezada-bit/Silvacentinel/internal/logger"
	"github.com/bquezada-bit/Silvacentinel/internal/storage"
	"github.com/bquezada-bit/Silvacentinel/internal/telegram"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func setupDependencies(ctx context.Context, cfg *config.Config, log *zap.Logger) (*storage.Service, error) {
	db, err := storage.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := storage.Migrate(db); err != nil {
		return nil, err
	}

	rdb, err := storage.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if rdb == nil {
		log.Warn("REDIS_ADDR not set: login throttling, session revocation and the live feed are disabled")
	}

	s := storage.NewStorageService(db, rdb, log)
	if err := s.SeedCategories(ctx); err != nil {
		return nil, err
	}
	log.Info("database ready", zap.String("driver", cfg.Database.Driver), zap.Bool("redis", rdb != nil))
	return s, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("load config", zap.Error(err))
	}
	log := logger.New(cfg.LogLevel, cfg.Env)
	defer func() { _ = log.Sync() }()
	log.Info("starting SilvaSentinel", zap.String("env", cfg.Env), zap.String("addr", cfg.HTTPAddr))

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Storage
	s, err := setupDependencies(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to set up storage", zap.Error(err))
	}

	ev, err := evidence.New(cfg.Evidence)
	if err != nil {
		log.Fatal("failed to set up evidence store", zap.Error(err))
	}

	// 2. Background services
	var notifier complaint.Notifier
	if cfg.Telegram.Enabled() {
		bot, err := telegram.NewBotService(cfg.Telegram, s, log.Named("telegram"))
		if err != nil {
			log.Error("telegram disabled", zap.Error(err))
		} else {
			notifier = bot.Notifier
			go bot.Run(ctx)
		}
	}

	var hub *livefeed.Hub
	if s.RedisEnabled() {
		hub = livefeed.NewHub(s, log.Named("livefeed"))
		go hub.Run(ctx)
	}

	// 3. HTTP
	h := handler.NewHandler(handler.Deps{
		Storage:      s,
		Evidence:     ev,
		Notifier:     notifier,
		Observations: inaturalist.NewClient(cfg.INaturalist, log.Named("inaturalist")),
		Hub:          hub,
		Session:      cfg.Session,
		Log:          log,
	})
	opts := handler.RouterOptions{CORSOrigins: cfg.CORSOrigins}
	if cfg.Evidence.Backend == "local" {
		opts.MediaRoot = cfg.Evidence.MediaRoot
	}

	server := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        handler.NewRouter(h, opts),
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	if hub != nil {
		select {
		case <-hub.Done():
		case <-shutdownCtx.Done():
		}
	}
}
