package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ctem-enterprise/internal/config"
	"ctem-enterprise/internal/dashboard"
	"ctem-enterprise/internal/database"
	"ctem-enterprise/internal/eventbus"
	"ctem-enterprise/internal/handlers"
	"ctem-enterprise/internal/kev"
	"ctem-enterprise/internal/logger"
	"ctem-enterprise/internal/realtime"
	"ctem-enterprise/internal/remediation"
	"ctem-enterprise/internal/scoring"
	"ctem-enterprise/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()

	if _, err := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	}); err != nil {
		log.Fatalf("logger init: %v", err)
	}
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DefaultWriter = logger.Get().WriterLevel(logrus.DebugLevel)
	gin.DefaultErrorWriter = logger.Get().WriterLevel(logrus.ErrorLevel)

	if err := database.Init(cfg.DBDSN, database.AdminSeed{
		Username: cfg.AdminUsername,
		Password: cfg.AdminPassword,
	}); err != nil {
		logger.Fatalf("database init: %v", err)
	}

	feedOpts := []kev.Option{}
	if cfg.RedisAddr != "" {
		cache, err := kev.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Warnf("redis KEV cache disabled: %v", err)
		} else {
			defer cache.Close()
			feedOpts = append(feedOpts, kev.WithSharedCache(cache))
		}
	}
	feed := kev.NewFeed(cfg.KEVFeedURL, cfg.KEVCacheTTL, feedOpts...)

	var bus eventbus.Publisher = eventbus.Nop{}
	if cfg.NATSURL != "" {
		p, err := eventbus.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			logger.Warnf("event bus disabled: %v", err)
		} else {
			bus = p
		}
	}
	defer bus.Close()

	svc := remediation.NewService(database.DB, bus)
	h := handlers.New(handlers.Deps{
		DB:          database.DB,
		KEV:         feed,
		Dashboard:   dashboard.NewProvider(feed),
		Remediation: svc,
		Scoring:     scoring.NewClient(cfg.ScoringAPIURL),
		Bus:         bus,
	})

	monitor := remediation.NewMonitor(svc)
	monitor.Start(context.Background())

	hub := realtime.NewBroadcaster(
		realtime.DefaultStreams(h.AlertsSnapshot, h.ThreatsSnapshot, h.BehaviorSnapshot),
		cfg.AllowedOrigins,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           server.NewRouter(cfg, database.DB, h, hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Infof("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	hub.Shutdown()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
	monitor.Stop()
}
