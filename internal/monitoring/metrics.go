package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "portfolio"

// Metrics 监控指标
//
// 所有 Record 方法对 nil 接收者安全，未启用监控时可直接传 nil。
type Metrics struct {
	registry  *prometheus.Registry
	startTime time.Time

	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// 留言指标
	MessagesSubmitted prometheus.Counter
	MarkReadCalls     prometheus.Counter
	MessagesDeleted   prometheus.Counter
	MessagesUnread    prometheus.Gauge

	// 认证指标
	LoginAttempts  *prometheus.CounterVec
	AuthRejections prometheus.Counter

	// 错误指标
	ErrorsTotal *prometheus.CounterVec
	PanicsTotal prometheus.Counter

	// 限流指标
	RateLimitBlocks *prometheus.CounterVec

	SystemUptime prometheus.GaugeFunc
}

// NewMetrics 在给定注册表上创建监控指标，reg 为 nil 时新建注册表
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_response_size_bytes",
				Help:      "HTTP response size in bytes",
				Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "endpoint"},
		),

		MessagesSubmitted: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_submitted_total",
				Help:      "Total number of contact messages accepted",
			},
		),

		MarkReadCalls: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_marked_read_total",
				Help:      "Total number of successful mark-as-read calls, repeats on already read messages included",
			},
		),

		MessagesDeleted: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_deleted_total",
				Help:      "Total number of messages deleted",
			},
		),

		MessagesUnread: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "messages_unread",
				Help:      "Unread messages as of the last stats computation",
			},
		),

		LoginAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "admin_login_attempts_total",
				Help:      "Admin login attempts by result",
			},
			[]string{"result"},
		),

		AuthRejections: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_rejections_total",
				Help:      "Protected calls rejected for a missing or invalid token",
			},
		),

		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of errors",
			},
			[]string{"type", "component"},
		),

		PanicsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "panics_total",
				Help:      "Total number of recovered panics",
			},
		),

		RateLimitBlocks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_blocks_total",
				Help:      "Requests rejected by the rate limiter",
			},
			[]string{"scope"},
		),
	}

	m.SystemUptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Seconds since the process started",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry 返回底层注册表
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest 记录 HTTP 请求
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration, responseSize int64) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	m.HTTPResponseSize.WithLabelValues(method, endpoint).Observe(float64(responseSize))
}

// RecordMessageSubmitted 记录新留言
func (m *Metrics) RecordMessageSubmitted() {
	if m == nil {
		return
	}
	m.MessagesSubmitted.Inc()
}

// RecordMarkRead 记录一次成功的标记已读调用，重复标记同样计数
func (m *Metrics) RecordMarkRead() {
	if m == nil {
		return
	}
	m.MarkReadCalls.Inc()
}

// RecordMessageDeleted 记录删除留言
func (m *Metrics) RecordMessageDeleted() {
	if m == nil {
		return
	}
	m.MessagesDeleted.Inc()
}

// UpdateUnread 更新未读数
func (m *Metrics) UpdateUnread(count int64) {
	if m == nil {
		return
	}
	m.MessagesUnread.Set(float64(count))
}

// RecordLogin 记录登录结果：success、failure 或 error
func (m *Metrics) RecordLogin(result string) {
	if m == nil {
		return
	}
	m.LoginAttempts.WithLabelValues(result).Inc()
}

// RecordAuthRejection 记录被拒绝的受保护调用
func (m *Metrics) RecordAuthRejection() {
	if m == nil {
		return
	}
	m.AuthRejections.Inc()
}

// RecordError 记录错误
func (m *Metrics) RecordError(errorType, component string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordPanic 记录 panic
func (m *Metrics) RecordPanic() {
	if m == nil {
		return
	}
	m.PanicsTotal.Inc()
}

// RecordRateLimitBlock 记录限流拒绝
func (m *Metrics) RecordRateLimitBlock(scope string) {
	if m == nil {
		return
	}
	m.RateLimitBlocks.WithLabelValues(scope).Inc()
}

// HTTPHandler 返回 Prometheus HTTP 处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
