package health

import (
	"context"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"
)

// Pinger 可被探活的依赖，存储与 Redis 客户端都满足
type Pinger func(ctx context.Context) error

// HealthChecker 健康检查器
type HealthChecker struct {
	health  healthcheck.Handler
	timeout time.Duration
	logger  *zap.Logger
}

// NewHealthChecker 创建健康检查器，store 为留言存储的 Health 方法
func NewHealthChecker(store Pinger, logger *zap.Logger) *HealthChecker {
	hc := &HealthChecker{
		health:  healthcheck.NewHandler(),
		timeout: 3 * time.Second,
		logger:  logger,
	}

	hc.health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(1000))
	hc.AddReadinessCheck("store", store)
	return hc
}

// AddReadinessCheck 注册就绪检查，失败时 /health/ready 返回 503
func (hc *HealthChecker) AddReadinessCheck(name string, ping Pinger) {
	hc.health.AddReadinessCheck(name, hc.wrap(name, ping))
}

func (hc *HealthChecker) wrap(name string, ping Pinger) healthcheck.Check {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), hc.timeout)
		defer cancel()

		if err := ping(ctx); err != nil {
			hc.logger.Warn("health check failed", zap.String("check", name), zap.Error(err))
			return err
		}
		return nil
	}
}

// LiveHandler 存活检查
func (hc *HealthChecker) LiveHandler() http.Handler {
	return http.HandlerFunc(hc.health.LiveEndpoint)
}

// ReadyHandler 就绪检查
func (hc *HealthChecker) ReadyHandler() http.Handler {
	return http.HandlerFunc(hc.health.ReadyEndpoint)
}
