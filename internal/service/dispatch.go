package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Tonito-Sam/nsq-sub005/internal/domain"
	"github.com/Tonito-Sam/nsq-sub005/internal/mailer"
	"github.com/Tonito-Sam/nsq-sub005/internal/monitoring"
)

// ErrTransportNotConfigured 表示 SMTP 传输初始化失败或未配置
var ErrTransportNotConfigured = errors.New("SMTP transporter not configured")

// DispatchService 封装邮件发送相关业务操作。
type DispatchService struct {
	mailer  mailer.Mailer
	metrics *monitoring.Metrics
	log     *zap.Logger
}

// NewDispatchService 创建邮件发送服务
//
// m 为 nil 表示传输不可用，所有发送操作会在外呼前快速失败。
func NewDispatchService(m mailer.Mailer, metrics *monitoring.Metrics, log *zap.Logger) *DispatchService {
	return &DispatchService{
		mailer:  m,
		metrics: metrics,
		log:     log,
	}
}

// Available 传输是否可用
func (s *DispatchService) Available() bool {
	return s.mailer != nil
}

// Send 发送单封邮件
//
// 传输不可用时返回 ErrTransportNotConfigured，不做任何外呼。
func (s *DispatchService) Send(ctx context.Context, msg *domain.OutboundMessage) error {
	if s.mailer == nil {
		return ErrTransportNotConfigured
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		s.metrics.RecordEmailFailed()
		return err
	}

	s.metrics.RecordEmailSent(len(msg.To))
	return nil
}

// SendBulk 并发发送一批邮件，整体成败一体
//
// 所有发送同时发起、一起等待，收件人之间没有顺序保证；任意一封
// 失败则整个批次判定失败（已经发出去的不回滚，也不报告部分成功）。
// 这与批量重发验证邮件的逐人报告语义是刻意的不对称。
func (s *DispatchService) SendBulk(ctx context.Context, msgs []*domain.OutboundMessage) error {
	if s.mailer == nil {
		return ErrTransportNotConfigured
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for _, msg := range msgs {
		msg := msg
		group.Go(func() error {
			return s.Send(groupCtx, msg)
		})
	}

	if err := group.Wait(); err != nil {
		s.log.Warn("bulk send failed", zap.Int("messages", len(msgs)), zap.Error(err))
		return err
	}
	return nil
}
