package identity

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/Tonito-Sam/nsq-sub005/internal/config"
)

// ErrNotConfigured 表示未配置 Supabase 访问凭证
var ErrNotConfigured = errors.New("Supabase client not configured")

// ProviderError GoTrue 明确返回的业务错误
//
// 与网络层错误区分开：业务错误除限流外不重试，网络错误按退避重试。
type ProviderError struct {
	Status  int    // HTTP 状态码
	Message string // 服务端错误描述
}

func (e *ProviderError) Error() string {
	return e.Message
}

// Client 封装 Supabase Auth（GoTrue）的验证邮件重发接口
type Client struct {
	http       *resty.Client
	redirectTo string
	log        *zap.Logger
}

// NewClient 创建 Supabase 客户端
//
// URL 或 service role key 缺失时返回 nil，调用方将其视为
// "未配置"哨兵，相关端点直接返回配置错误。
func NewClient(cfg config.SupabaseConfig, log *zap.Logger) *Client {
	if cfg.URL == "" || cfg.ServiceRoleKey == "" {
		return nil
	}

	httpClient := resty.New().
		SetBaseURL(cfg.URL).
		SetTimeout(cfg.Timeout).
		SetHeader("apikey", cfg.ServiceRoleKey).
		SetAuthToken(cfg.ServiceRoleKey).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:       httpClient,
		redirectTo: cfg.VerificationRedirect,
		log:        log,
	}
}

type resendRequest struct {
	Type    string         `json:"type"`
	Email   string         `json:"email"`
	Options *resendOptions `json:"options,omitempty"`
}

type resendOptions struct {
	EmailRedirectTo string `json:"email_redirect_to,omitempty"`
}

// gotrueError GoTrue 错误响应体的兼容结构（字段名随版本变化）
type gotrueError struct {
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error_code"`
}

func (e gotrueError) text() string {
	for _, s := range []string{e.Msg, e.Message, e.ErrorDescription, e.ErrorCode} {
		if s != "" {
			return s
		}
	}
	return ""
}

// ResendSignupVerification 请求重发注册验证邮件
//
// 网络错误原样返回；GoTrue 返回的错误包装为 *ProviderError。
func (c *Client) ResendSignupVerification(ctx context.Context, email string) error {
	body := resendRequest{
		Type:  "signup",
		Email: email,
	}
	if c.redirectTo != "" {
		body.Options = &resendOptions{EmailRedirectTo: c.redirectTo}
	}

	var apiErr gotrueError
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetError(&apiErr).
		Post("/auth/v1/resend")
	if err != nil {
		return err
	}

	if resp.IsError() {
		msg := apiErr.text()
		if msg == "" {
			msg = resp.Status()
		}
		c.log.Debug("gotrue resend rejected",
			zap.String("email", email),
			zap.Int("status", resp.StatusCode()),
			zap.String("message", msg),
		)
		return &ProviderError{Status: resp.StatusCode(), Message: msg}
	}

	return nil
}

// IsProviderError 判断错误是否为 GoTrue 返回的业务错误
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}

// IsRateLimited 判断错误是否属于限流
//
// 命中条件：HTTP 429，或错误消息包含 "rate limit" /
// "too many requests" / "429"（不区分大小写）。
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}

	var pe *ProviderError
	if errors.As(err, &pe) && pe.Status == http.StatusTooManyRequests {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{"rate limit", "too many requests", "429"} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
