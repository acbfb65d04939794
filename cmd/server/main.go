package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"portfolio/backend/internal/auth"
	jwtpkg "portfolio/backend/internal/auth/jwt"
	"portfolio/backend/internal/config"
	"portfolio/backend/internal/domain"
	"portfolio/backend/internal/health"
	"portfolio/backend/internal/logger"
	"portfolio/backend/internal/monitoring"
	"portfolio/backend/internal/ratelimit"
	"portfolio/backend/internal/security"
	"portfolio/backend/internal/service"
	"portfolio/backend/internal/storage"
	"portfolio/backend/internal/storage/memory"
	"portfolio/backend/internal/storage/postgres"
	redisstore "portfolio/backend/internal/storage/redis"
	sqlstore "portfolio/backend/internal/storage/sql"
	httptransport "portfolio/backend/internal/transport/http"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	if cfg.Log.Development {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	log, err := logger.NewLogger(logger.FromAppConfig(cfg.Log))
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting portfolio backend",
		zap.String("version", version),
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := initializeStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to initialize storage", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("failed to close storage", zap.Error(err))
		}
	}()

	metrics := monitoring.NewMetrics(nil)
	healthChecker := health.NewHealthChecker(store.Health, log)

	jwtManager := jwtpkg.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiry)
	authService := auth.NewService(store, jwtManager, log)
	log.Info("JWT configuration",
		zap.String("issuer", cfg.JWT.Issuer),
		zap.Duration("expiry", cfg.JWT.Expiry),
	)

	seedAdmin(ctx, authService, cfg, log)

	submitLimiter, loginLimiter := initializeLimiters(ctx, cfg, healthChecker, log)

	limits := domain.ContactLimits{
		MaxNameLength: cfg.Contact.MaxNameLength,
		MaxBodyLength: cfg.Contact.MaxBodyLength,
	}
	submissions := service.NewSubmissionService(store, limits, metrics, log)
	if cfg.Contact.ContentFilter {
		submissions.SetContentFilter(security.NewContentFilter(cfg.Contact.MaxLinks))
		log.Info("contact content filter enabled", zap.Int("max_links", cfg.Contact.MaxLinks))
	}
	inbox := service.NewInboxService(store, authService, cfg.Contact.Timezone, metrics, log)

	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:        cfg,
		Auth:          authService,
		Submissions:   submissions,
		Inbox:         inbox,
		SubmitLimiter: submitLimiter,
		LoginLimiter:  loginLimiter,
		Metrics:       metrics,
		Health:        healthChecker,
		Logger:        log,
	})

	httpAddr := cfg.Address()
	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}

		log.Info("server stopped")
		return nil
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server error", zap.Error(err))
		return
	}

	log.Info("server exited cleanly")
}

// initializeStorage 按配置选择存储实现
func initializeStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.Store, error) {
	switch {
	case cfg.Database.Type == "":
		log.Warn("using memory storage, messages are lost on restart")
		return memory.NewStore(), nil

	case cfg.Database.Type == "postgres" && !cfg.Database.UseGORM:
		if cfg.Database.AutoMigrate {
			if err := postgres.Migrate(cfg.Database.DSN, postgres.Up, log); err != nil {
				return nil, err
			}
		}
		pool, err := postgres.NewPool(ctx, &cfg.Database, log)
		if err != nil {
			return nil, err
		}
		log.Info("using postgres storage (pgx)")
		return postgres.NewStore(pool), nil

	default:
		store, err := sqlstore.NewStore(&cfg.Database)
		if err != nil {
			return nil, err
		}
		log.Info("using database storage (gorm)", zap.String("type", cfg.Database.Type))
		return store, nil
	}
}

// seedAdmin 将配置中的管理员写入存储，未配置时仅提示
func seedAdmin(ctx context.Context, authService *auth.Service, cfg *config.Config, log *zap.Logger) {
	if cfg.Admin.Email == "" || cfg.Admin.PasswordHash == "" {
		log.Warn("no admin configured, set PORTFOLIO_ADMIN_EMAIL and PORTFOLIO_ADMIN_PASSWORD_HASH or run create-admin")
		return
	}

	admin, err := authService.SeedAdmin(ctx, cfg.Admin.Email, cfg.Admin.Name, cfg.Admin.PasswordHash)
	if err != nil {
		log.Fatal("failed to seed admin", zap.Error(err))
	}
	log.Info("admin account ready", zap.String("admin_id", admin.ID))
}

// initializeLimiters 配置了 Redis 时使用分布式计数，否则退回进程内令牌桶；上限为 0 的端点不挂限流
func initializeLimiters(ctx context.Context, cfg *config.Config, hc *health.HealthChecker, log *zap.Logger) (submit, login ratelimit.Limiter) {
	rl := cfg.RateLimit
	if rl.SubmitPerMinute == 0 && rl.LoginPerMinute == 0 {
		log.Warn("rate limiting disabled")
		return nil, nil
	}

	newLimiter := func(prefix string, limit int) ratelimit.Limiter {
		return ratelimit.NewLocalLimiter(limit, time.Minute)
	}
	if cfg.Redis.Address != "" {
		rdb, err := redisstore.New(ctx, &cfg.Redis, log)
		if err == nil {
			hc.AddReadinessCheck("redis", func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			})
			log.Info("using Redis rate limiter")
			newLimiter = func(prefix string, limit int) ratelimit.Limiter {
				return redisstore.NewLimiter(rdb, prefix, limit, time.Minute)
			}
		} else {
			log.Warn("Redis unavailable, falling back to in-process rate limiter", zap.Error(err))
		}
	}

	if rl.SubmitPerMinute > 0 {
		submit = newLimiter("submit", rl.SubmitPerMinute)
	} else {
		log.Warn("submit rate limiting disabled")
	}
	if rl.LoginPerMinute > 0 {
		login = newLimiter("login", rl.LoginPerMinute)
	} else {
		log.Warn("login rate limiting disabled")
	}
	return submit, login
}
