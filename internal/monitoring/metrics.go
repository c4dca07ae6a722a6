package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监控指标
//
// 通过 promauto 注册到默认 registry，进程内只应构造一次。
// 所有 Record 方法都容忍 nil 接收者，测试中可以直接传 nil。
type Metrics struct {
	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 外发邮件指标
	EmailsSentTotal      prometheus.Counter
	EmailsFailedTotal    prometheus.Counter
	EmailRecipientsTotal prometheus.Counter
	AttachmentSizeBytes  prometheus.Histogram

	// 验证邮件重发指标
	ResendAttemptsTotal    prometheus.Counter
	ResendRateLimitedTotal prometheus.Counter
	ResendOutcomesTotal    *prometheus.CounterVec

	// 错误指标
	PanicsTotal prometheus.Counter
}

// NewMetrics 创建监控指标
func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexsq_mail_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nexsq_mail_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		EmailsSentTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "nexsq_mail_emails_sent_total",
				Help: "Total number of emails handed to the SMTP provider",
			},
		),

		EmailsFailedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "nexsq_mail_emails_failed_total",
				Help: "Total number of failed SMTP sends",
			},
		),

		EmailRecipientsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "nexsq_mail_email_recipients_total",
				Help: "Total number of recipients across sent emails",
			},
		),

		AttachmentSizeBytes: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "nexsq_mail_attachment_size_bytes",
				Help:    "Size of uploaded attachments in bytes",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
			},
		),

		ResendAttemptsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "nexsq_mail_resend_attempts_total",
				Help: "Total number of verification resend attempts against the identity provider",
			},
		),

		ResendRateLimitedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "nexsq_mail_resend_rate_limited_total",
				Help: "Total number of rate-limited resend attempts",
			},
		),

		ResendOutcomesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexsq_mail_resend_outcomes_total",
				Help: "Terminal resend outcomes per recipient",
			},
			[]string{"outcome"},
		),

		PanicsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "nexsq_mail_panics_total",
				Help: "Total number of recovered panics",
			},
		),
	}
}

// HTTPHandler 返回 Prometheus 指标处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest 记录一次 HTTP 请求
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordEmailSent 记录一次成功发送
func (m *Metrics) RecordEmailSent(recipients int) {
	if m == nil {
		return
	}
	m.EmailsSentTotal.Inc()
	m.EmailRecipientsTotal.Add(float64(recipients))
}

// RecordEmailFailed 记录一次失败发送
func (m *Metrics) RecordEmailFailed() {
	if m == nil {
		return
	}
	m.EmailsFailedTotal.Inc()
}

// RecordAttachmentSize 记录上传附件大小
func (m *Metrics) RecordAttachmentSize(bytes int) {
	if m == nil {
		return
	}
	m.AttachmentSizeBytes.Observe(float64(bytes))
}

// RecordResendAttempt 记录一次重发尝试
func (m *Metrics) RecordResendAttempt() {
	if m == nil {
		return
	}
	m.ResendAttemptsTotal.Inc()
}

// RecordResendRateLimited 记录一次被限流的重发尝试
func (m *Metrics) RecordResendRateLimited() {
	if m == nil {
		return
	}
	m.ResendRateLimitedTotal.Inc()
}

// RecordResendOutcome 记录单个收件人的终态
func (m *Metrics) RecordResendOutcome(success bool) {
	if m == nil {
		return
	}
	outcome := "failed"
	if success {
		outcome = "sent"
	}
	m.ResendOutcomesTotal.WithLabelValues(outcome).Inc()
}

// RecordPanic 记录一次被恢复的 panic
func (m *Metrics) RecordPanic() {
	if m == nil {
		return
	}
	m.PanicsTotal.Inc()
}
