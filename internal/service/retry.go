package service

import (
	"context"
	"time"
)

// RetryPolicy 有界重试策略
//
// 单发与批量重发路径共用同一份策略，避免把手写计数循环散落在
// 各个调用点。
type RetryPolicy struct {
	MaxAttempts int           // 最大尝试次数（含首次）
	Delay       time.Duration // 退避基准时长
}

// Backoff 第 attempt 次失败后的等待时长（attempt 从 1 起）
//
// 随尝试次数线性增长：第 1 次失败等 2*Delay，第 2 次等 4*Delay，
// 第 3 次等 6*Delay。
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	return time.Duration(attempt) * 2 * p.Delay
}

// Do 按策略执行 fn
//
// retryable 返回 false 的错误视为永久错误，立即终止；
// 尝试次数耗尽后返回最后一次观察到的错误。fn 的调用次数
// 不会超过 MaxAttempts。
func (p RetryPolicy) Do(ctx context.Context, retryable func(error) bool, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !retryable(err) {
			return err
		}
		if attempt == p.MaxAttempts {
			break
		}
		if err := sleepCtx(ctx, p.Backoff(attempt)); err != nil {
			return lastErr
		}
	}
	return lastErr
}

// sleepCtx 可取消的休眠
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
