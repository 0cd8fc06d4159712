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

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"signalapp/internal/auth"
	"signalapp/internal/config"
	cronrunner "signalapp/internal/cron"
	"signalapp/internal/db"
	"signalapp/internal/handler"
	"signalapp/internal/logger"
	"signalapp/internal/realtime"
	gormrepository "signalapp/internal/repository/gorm"
	"signalapp/internal/service"

	_ "signalapp/docs"
)

func main() {
	cfgPath := os.Getenv("SIG_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("SIG_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)

	var rdb *redis.Client
	if cfg.Realtime.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Realtime.RedisAddr,
			Password: cfg.Realtime.RedisPassword,
			DB:       cfg.Realtime.RedisDB,
		})
		defer rdb.Close()
	}
	hub := realtime.NewHub(store, rdb, cfg.Realtime.Channel, cfg.Realtime.SubscriberBuf, logger)

	profileSvc := &service.ProfileService{Repo: store, Logger: logger}
	presenceSvc := &service.PresenceService{Repo: store, Events: hub, Logger: logger}
	matcherSvc := &service.MatcherService{Repo: store, Config: cfg.Presence, Logger: logger}
	signalSvc := &service.SignalService{Repo: store, Events: hub, Config: cfg.Signals, Logger: logger}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	jwtAuth := auth.JWT{Secret: []byte(cfg.Auth.JWTSecret), TokenTTL: 24 * time.Hour}
	engine.Use(auth.Middleware(jwtAuth))

	(&handler.ProfileHandler{Profiles: profileSvc, Logger: logger}).Register(engine)
	(&handler.PresenceHandler{Presence: presenceSvc, Matcher: matcherSvc, Logger: logger}).Register(engine)
	(&handler.SignalHandler{Signals: signalSvc, Logger: logger}).Register(engine)
	(&handler.RealtimeHandler{Hub: hub, Repo: store, Logger: logger}).Register(engine)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	_, err = cronRunner.Add(cfg.Signals.ExpireSweep, func(ctx context.Context) {
		if _, err := signalSvc.ExpireDue(ctx, time.Now().UTC()); err != nil {
			logger.Warn("cron signal expiry sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		logger.Warn("cron register expiry sweep failed", zap.Error(err))
	}
	_, err = cronRunner.Add(cfg.Realtime.OutboxPrune, func(ctx context.Context) {
		cutoff := time.Now().UTC().Add(-cfg.Realtime.OutboxRetention)
		n, err := store.DeleteChangeEventsBefore(ctx, cutoff)
		if err != nil {
			logger.Warn("cron outbox prune failed", zap.Error(err))
			return
		}
		if n > 0 {
			logger.Info("cron outbox prune ok", zap.Int64("deleted", n))
		}
	})
	if err != nil {
		logger.Warn("cron register outbox prune failed", zap.Error(err))
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	go func() {
		if err := hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("realtime hub stopped", zap.Error(err))
		}
	}()

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", zap.Error(err))
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
