package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/Tonito-Sam/nsq-sub005/internal/config"
	"github.com/Tonito-Sam/nsq-sub005/internal/domain"
	"github.com/Tonito-Sam/nsq-sub005/internal/identity"
	"github.com/Tonito-Sam/nsq-sub005/internal/monitoring"
)

// IdentityProvider 抽象验证邮件的重发入口，便于依赖注入与测试
type IdentityProvider interface {
	ResendSignupVerification(ctx context.Context, email string) error
}

// ResendService 驱动身份提供方重发注册验证邮件，容忍瞬时限流。
//
// 批量路径严格串行：下一个收件人一定等上一个到达终态（sent/failed）
// 并经过固定间隔后才开始。这是对服务商限流的主动节流，
// 不是收件人之间的正确性约束。
type ResendService struct {
	provider IdentityProvider
	policy   RetryPolicy
	metrics  *monitoring.Metrics
	log      *zap.Logger
}

// NewResendService 创建验证邮件重发服务
//
// provider 为 nil 表示未配置 Supabase 凭证，相关操作快速失败。
func NewResendService(provider IdentityProvider, cfg config.ResendConfig, metrics *monitoring.Metrics, log *zap.Logger) *ResendService {
	return &ResendService{
		provider: provider,
		policy: RetryPolicy{
			MaxAttempts: cfg.MaxAttempts,
			Delay:       cfg.BulkDelay,
		},
		metrics: metrics,
		log:     log,
	}
}

// Available 身份提供方是否可用
func (s *ResendService) Available() bool {
	return s.provider != nil
}

// ResendOne 为单个收件人重发验证邮件
//
// 与批量路径共用同一重试策略：限流和网络错误按退避重试，
// 其余业务错误立即失败。
func (s *ResendService) ResendOne(ctx context.Context, email string) error {
	if s.provider == nil {
		return identity.ErrNotConfigured
	}

	return s.policy.Do(ctx, s.retryable, func() error {
		s.metrics.RecordResendAttempt()
		return s.provider.ResendSignupVerification(ctx, email)
	})
}

// retryable 判断错误是否值得重试
//
// 限流错误与网络异常可重试；身份提供方明确拒绝的其他错误
// （凭证、地址格式等）是永久性的。
func (s *ResendService) retryable(err error) bool {
	if identity.IsRateLimited(err) {
		s.metrics.RecordResendRateLimited()
		return true
	}
	return !identity.IsProviderError(err)
}

// ResendBulk 串行处理一批收件人的验证邮件重发
//
// 每个收件人独立到达终态，批次从不因个别失败提前终止；
// 每个终态之后等待固定间隔再处理下一个（成功也等待），
// 避免整批请求打爆服务商的限流窗口。
func (s *ResendService) ResendBulk(ctx context.Context, targets []any) *domain.ResendReport {
	report := &domain.ResendReport{
		Results: make([]domain.ResendResult, 0, len(targets)),
	}

	for _, target := range targets {
		if email, ok := domain.ExtractEmail(target); !ok {
			// 取不出地址直接记失败，不重试
			raw, _ := target.(string)
			report.Add(domain.ResendResult{Email: raw, Success: false, Error: "invalid email"})
			s.metrics.RecordResendOutcome(false)
		} else if err := s.ResendOne(ctx, email); err != nil {
			msg := err.Error()
			if msg == "" {
				msg = "failed"
			}
			report.Add(domain.ResendResult{Email: email, Success: false, Error: msg})
			s.metrics.RecordResendOutcome(false)
			s.log.Warn("verification resend failed",
				zap.String("email", email),
				zap.Error(err),
			)
		} else {
			report.Add(domain.ResendResult{Email: email, Success: true})
			s.metrics.RecordResendOutcome(true)
		}

		// 每个终态之后等待完整的固定间隔，与该收件人处理耗时无关；
		// ctx 取消时放弃等待，剩余收件人由 ResendOne 以取消错误收尾
		_ = sleepCtx(ctx, s.policy.Delay)
	}

	return report
}
