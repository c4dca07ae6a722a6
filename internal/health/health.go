package health

import (
	"errors"
	"net/http"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"

	"github.com/Tonito-Sam/nsq-sub005/internal/service"
)

// Checker 健康检查器
//
// 存活探针只看进程自身；就绪探针额外要求 SMTP 传输与身份提供方
// 均已配置成功，避免流量打到发不出邮件的实例上。
type Checker struct {
	health   healthcheck.Handler
	dispatch *service.DispatchService
	resend   *service.ResendService
	logger   *zap.Logger
}

// NewChecker 创建健康检查器
func NewChecker(dispatch *service.DispatchService, resend *service.ResendService, logger *zap.Logger) *Checker {
	c := &Checker{
		health:   healthcheck.NewHandler(),
		dispatch: dispatch,
		resend:   resend,
		logger:   logger,
	}
	c.addChecks()
	return c
}

// addChecks 添加健康检查
func (c *Checker) addChecks() {
	c.health.AddLivenessCheck("goroutines", healthcheck.GoroutineCountCheck(500))

	c.health.AddReadinessCheck("smtp_transport", func() error {
		if !c.dispatch.Available() {
			return errors.New("smtp transport unavailable")
		}
		return nil
	})

	c.health.AddReadinessCheck("identity_provider", func() error {
		if !c.resend.Available() {
			return errors.New("supabase client unavailable")
		}
		return nil
	})
}

// Handler 返回健康检查处理器
func (c *Checker) Handler() http.Handler {
	return c.health
}

// LiveEndpoint 存活探针
func (c *Checker) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	c.health.LiveEndpoint(w, r)
}

// ReadyEndpoint 就绪探针
func (c *Checker) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	c.health.ReadyEndpoint(w, r)
}
