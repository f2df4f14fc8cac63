package main

import (
	"context"
	"errors"
	"fmt"
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

	"wagerescrow/internal/address"
	"wagerescrow/internal/auth"
	"wagerescrow/internal/cache"
	"wagerescrow/internal/config"
	cronrunner "wagerescrow/internal/cron"
	"wagerescrow/internal/db"
	"wagerescrow/internal/engine"
	"wagerescrow/internal/fees"
	"wagerescrow/internal/handler"
	"wagerescrow/internal/leaderboard"
	"wagerescrow/internal/ledger"
	applogger "wagerescrow/internal/logger"
	"wagerescrow/internal/notify"
	"wagerescrow/internal/repository"
	gormrepository "wagerescrow/internal/repository/gorm"
	"wagerescrow/internal/repository/memory"
	"wagerescrow/internal/service"

	_ "wagerescrow/docs"
)

func main() {
	cfgPath := os.Getenv("ESCROW_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("ESCROW_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := applogger.New(cfg.Log, cfg.App.Env)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	var store repository.Repository
	switch strings.ToLower(strings.TrimSpace(cfg.Store.Driver)) {
	case "memory":
		logger.Warn("using in-memory store; state is lost on restart")
		store = memory.New()
	default:
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
		store = gormrepository.New(dbConn.Gorm)
	}

	var (
		kv    cache.Store       = cache.NewMemoryStore()
		board leaderboard.Board = leaderboard.NewMemoryBoard()
	)
	if addr := strings.TrimSpace(cfg.Redis.Addr); addr != "" {
		rs := cache.NewRedisStore(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}, cfg.Redis.Prefix)
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rs.Ping(pingCtx); err != nil {
			logger.Warn("redis unreachable, falling back to memory cache and leaderboard", zap.Error(err))
		} else {
			kv = rs
			board = leaderboard.NewRedisBoard(rs.Client, cfg.Redis.Prefix)
		}
		cancel()
	}

	hub := notify.NewHub(128)
	stats := &service.StatsService{Repo: store, Cache: kv, TTL: cfg.Cache.StatsTTL, Logger: logger}
	dispatcher := &notify.Dispatcher{
		Project:  cfg.Notify.Project,
		Channels: cfg.Notify.Channels,
		Webhook:  notify.WebhookSender{HTTP: &http.Client{Timeout: cfg.Notify.Timeout}},
		TG:       notify.TelegramSender{HTTP: &http.Client{Timeout: cfg.Notify.Timeout}},
		Timeout:  cfg.Notify.Timeout,
		Logger:   logger,
	}

	eng := &engine.Engine{
		Repo:     store,
		Ledger:   ledger.New(logger),
		Notifier: notify.Multi{Publishers: []notify.Publisher{hub, stats, dispatcher}, Logger: logger},
		Board:    board,
		Logger:   logger,
	}
	if err := bootstrapPlatform(context.Background(), eng, cfg.Platform); err != nil {
		logger.Fatal("platform bootstrap failed", zap.Error(err))
	}

	jwtCfg := auth.JWT{Secret: []byte(cfg.Auth.JWTSecret), TokenTTL: cfg.Auth.TokenTTL}
	if len(jwtCfg.Secret) == 0 {
		logger.Fatal("auth.jwt_secret is required")
	}
	challenger, err := auth.NewChallenger(kv, jwtCfg, cfg.Auth.ChallengeTTL, cfg.Auth.Oracles, cfg.Auth.Operators)
	if err != nil {
		logger.Fatal("auth config invalid", zap.Error(err))
	}
	guard := handler.Guard{JWT: jwtCfg}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(applogger.Gin(logger))
	router.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{Store: store}
	healthHandler.Register(router)
	authHandler := &handler.AuthHandler{Challenger: challenger, Logger: logger}
	authHandler.Register(router)
	matchHandler := &handler.MatchHandler{Engine: eng, Guard: guard, Logger: logger}
	matchHandler.Register(router)
	sessionHandler := &handler.SessionHandler{Engine: eng, Guard: guard}
	sessionHandler.Register(router)
	governanceHandler := &handler.GovernanceHandler{Engine: eng, Logger: logger}
	governanceHandler.Register(router)
	adminHandler := &handler.AdminHandler{Engine: eng, Guard: guard}
	adminHandler.Register(router)
	ledgerHandler := &handler.LedgerHandler{Engine: eng, Guard: guard}
	ledgerHandler.Register(router)
	platformHandler := &handler.PlatformHandler{Engine: eng, Stats: stats, Logger: logger}
	platformHandler.Register(router)
	leaderboardHandler := &handler.LeaderboardHandler{Board: board}
	leaderboardHandler.Register(router)
	eventHandler := &handler.EventHandler{Repo: store, Hub: hub, Logger: logger, OriginPatterns: []string{"*"}}
	eventHandler.Register(router)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		sweeper := &service.RefundSweeper{Repo: store, Refunder: eng, Logger: logger, Limit: cfg.Cron.SweepLimit}
		if _, err := cronRunner.Add("refund_sweep", cfg.Cron.RefundSweep, func(ctx context.Context) error {
			res, err := sweeper.RunOnce(ctx)
			if res.Refunded > 0 {
				logger.Info("expired matches refunded", zap.Int("scanned", res.Scanned), zap.Int("refunded", res.Refunded))
			}
			return err
		}); err != nil {
			logger.Fatal("cron refund_sweep invalid", zap.Error(err))
		}

		if cfg.Archive.Enabled() {
			s3Client, err := service.NewS3Client(ctx, cfg.Archive)
			if err != nil {
				logger.Fatal("archive client init failed", zap.Error(err))
			}
			archiver := &service.MatchArchiver{
				Repo:        store,
				Store:       s3Client,
				Bucket:      cfg.Archive.Bucket,
				Prefix:      cfg.Archive.Prefix,
				BatchSize:   cfg.Archive.BatchSize,
				MaxAttempts: cfg.Archive.MaxAttempts,
				RetryAfter:  cfg.Archive.RetryAfter,
				Logger:      logger,
			}
			if _, err := cronRunner.Add("archive", cfg.Cron.Archive, func(ctx context.Context) error {
				res, err := archiver.RunOnce(ctx)
				if res.Archived > 0 {
					logger.Info("matches archived", zap.Int("archived", res.Archived))
				}
				return err
			}); err != nil {
				logger.Fatal("cron archive invalid", zap.Error(err))
			}
		} else {
			logger.Info("archive disabled: no bucket configured")
		}
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// bootstrapPlatform initializes the platform from config on first boot. Once a
// configuration exists it is left untouched.
func bootstrapPlatform(ctx context.Context, eng *engine.Engine, pc config.PlatformConfig) error {
	if _, err := eng.PlatformConfig(ctx); err == nil {
		return nil
	} else if !errors.Is(err, engine.ErrNotInitialized) {
		return err
	}
	if len(pc.AdminSigners) == 0 {
		eng.Logger.Warn("platform not initialized and no bootstrap signers configured; settlement is unavailable")
		return nil
	}

	parse := func(field, v string) (address.Address, error) {
		a, err := address.Parse(v)
		if err != nil {
			return address.Address{}, fmt.Errorf("platform.%s: %w", field, err)
		}
		return a, nil
	}
	treasury, err := parse("treasury", pc.Treasury)
	if err != nil {
		return err
	}
	referral, err := parse("referral_pool", pc.ReferralPool)
	if err != nil {
		return err
	}
	verifier, err := parse("verifier", pc.Verifier)
	if err != nil {
		return err
	}
	admins := make([]address.Address, 0, len(pc.AdminSigners))
	for _, s := range pc.AdminSigners {
		a, err := parse("admin_signers", s)
		if err != nil {
			return err
		}
		admins = append(admins, a)
	}

	cfg, err := eng.Initialize(ctx, engine.InitializeParams{
		Treasury:     treasury,
		ReferralPool: referral,
		Verifier:     verifier,
		Admins:       admins,
		Fees: fees.Schedule{
			PlatformBps: pc.PlatformFeeBps,
			TreasuryBps: pc.TreasuryFeeBps,
			ReferralBps: pc.ReferralFeeBps,
		},
	})
	if errors.Is(err, engine.ErrAlreadyInitialized) {
		return nil
	}
	if err != nil {
		return err
	}
	eng.Logger.Info("platform initialized", zap.String("treasury", cfg.Treasury), zap.Int64("version", cfg.Version))
	return nil
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
