package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rentbook"

var (
	// RequestCounter HTTP请求计数
	RequestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// RequestDuration HTTP请求耗时
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// LedgerPaymentsCreated 账单生成器新建的月租记录数
	LedgerPaymentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_payments_created_total",
		Help:      "Rent payment rows created by ledger generation",
	})

	// PaymentsMarked 标记已付/未付次数
	PaymentsMarked = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payments_marked_total",
		Help:      "Payments transitioned by mark_paid/mark_unpaid",
	}, []string{"state"})

	// NotificationsCreated 按类型统计新建通知
	NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_created_total",
		Help:      "Notifications created, by type",
	}, []string{"type"})

	// SweepRuns 通知规则执行次数，result 为 ok, skipped, error
	SweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_sweeps_total",
		Help:      "Notification rule sweeps, by result",
	}, []string{"result"})

	// StreamClients 当前websocket连接数
	StreamClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "notification_stream_clients",
		Help:      "Connected notification stream clients",
	})
)

// Middleware 记录请求计数与耗时，path 使用路由模板避免高基数
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		RequestCounter.WithLabelValues(c.Request.Method, path, status).Inc()
		RequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler Prometheus 指标暴露
func Handler() http.Handler {
	return promhttp.Handler()
}
