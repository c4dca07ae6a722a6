package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/smtp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/Tonito-Sam/nsq-sub005/internal/config"
	"github.com/Tonito-Sam/nsq-sub005/internal/domain"
)

// maxAttachmentBytes 远程附件下载上限，与 multipart 上传上限一致。
// 测试会临时调低。
var maxAttachmentBytes int64 = 25 * 1024 * 1024

// Mailer 抽象出站邮件发送，便于依赖注入与测试
type Mailer interface {
	Send(ctx context.Context, msg *domain.OutboundMessage) error
	Host() string
}

// SMTP 基于单个已验证 SMTP 配置的发送器
//
// 进程启动时由 Init 构造一次，之后只读。远程 URL 附件在发送时
// 下载到内存再附加，不落盘。
type SMTP struct {
	dialer     *gomail.Dialer
	senderName string
	senderAddr string
	fetch      *resty.Client
	log        *zap.Logger
}

// Init 建立并验证 SMTP 传输
//
// 先按主配置（隐式 TLS，默认 465）做一次连接+认证验证；失败则记录
// 错误并改用备用端口以 STARTTLS 语义（secure=false，显式 LOGIN 认证）
// 再试一次。两次都失败时返回 nil，调用方将其视为"传输不可用"哨兵，
// 所有发送端点据此快速失败；进程本身不退出。
//
// Init 在 HTTP 监听开始前同步完成，返回值此后不再变更，
// 并发请求读到的要么是可用的发送器要么是 nil，不存在启动竞态。
func Init(cfg *config.Config, log *zap.Logger) *SMTP {
	if cfg.SMTP.Host == "" {
		log.Warn("SMTP_HOST not set, mail transport disabled")
		return nil
	}

	primary := newDialer(cfg.SMTP, cfg.SMTP.Port, cfg.SMTP.Secure, false)
	if err := verify(primary, cfg.SMTP.DialTimeout); err == nil {
		log.Info("SMTP transport verified",
			zap.String("host", cfg.SMTP.Host),
			zap.Int("port", cfg.SMTP.Port),
			zap.Bool("implicit_tls", cfg.SMTP.Secure),
		)
		return newSMTP(primary, cfg, log)
	} else {
		log.Warn("primary SMTP configuration failed, retrying with STARTTLS",
			zap.String("host", cfg.SMTP.Host),
			zap.Int("port", cfg.SMTP.Port),
			zap.Error(err),
		)
	}

	fallback := newDialer(cfg.SMTP, cfg.SMTP.AltPort, false, true)
	if err := verify(fallback, cfg.SMTP.DialTimeout); err != nil {
		log.Error("fallback SMTP configuration failed, mail transport unavailable",
			zap.String("host", cfg.SMTP.Host),
			zap.Int("port", cfg.SMTP.AltPort),
			zap.Error(err),
		)
		// TODO: 是否补一级开发用测试账号兜底待产品确认（见 DESIGN.md）
		return nil
	}

	log.Info("SMTP transport verified via STARTTLS fallback",
		zap.String("host", cfg.SMTP.Host),
		zap.Int("port", cfg.SMTP.AltPort),
	)
	return newSMTP(fallback, cfg, log)
}

func newSMTP(d *gomail.Dialer, cfg *config.Config, log *zap.Logger) *SMTP {
	fetch := resty.New().
		SetTimeout(30 * time.Second).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))

	return &SMTP{
		dialer:     d,
		senderName: cfg.Sender.Name,
		senderAddr: cfg.Sender.Email,
		fetch:      fetch,
		log:        log,
	}
}

// newDialer 构造 gomail 拨号器
//
// loginOnly 对应 STARTTLS 回退路径：禁用隐式 TLS 并强制 LOGIN 认证。
func newDialer(cfg config.SMTPConfig, port int, implicitTLS, loginOnly bool) *gomail.Dialer {
	d := gomail.NewDialer(cfg.Host, port, cfg.User, cfg.Pass)
	d.SSL = implicitTLS
	d.TLSConfig = &tls.Config{
		ServerName:         cfg.Host,
		InsecureSkipVerify: !cfg.RejectUnauthorized,
	}
	if loginOnly && cfg.User != "" {
		d.Auth = &loginAuth{username: cfg.User, password: cfg.Pass}
	}
	return d
}

// verify 对拨号器做一次连接+认证验证
//
// gomail 自身不支持拨号超时，这里用显式定时器兜底，避免依赖
// 底层 socket 的默认超时。
func verify(d *gomail.Dialer, timeout time.Duration) error {
	type result struct {
		closer gomail.SendCloser
		err    error
	}

	done := make(chan result, 1)
	go func() {
		sc, err := d.Dial()
		done <- result{closer: sc, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return res.err
		}
		return res.closer.Close()
	case <-time.After(timeout):
		return fmt.Errorf("smtp dial timed out after %s", timeout)
	}
}

// Send 发送一封邮件
//
// URL 附件先下载到内存，上传附件直接写入；两者统一通过
// gomail 的 copy 函数附加。
func (m *SMTP) Send(ctx context.Context, msg *domain.OutboundMessage) error {
	gm := gomail.NewMessage()
	gm.SetAddressHeader("From", m.senderAddr, m.senderName)
	gm.SetHeader("To", msg.To...)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		gm.AddAlternative("text/html", msg.HTML)
	}

	for _, att := range msg.Attachments {
		content := att.Content
		if !att.IsInline() {
			data, err := m.fetchAttachment(ctx, att.URL)
			if err != nil {
				return fmt.Errorf("fetch attachment %q: %w", att.Filename, err)
			}
			content = data
		}

		payload := content
		gm.Attach(att.Filename, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(payload)
			return err
		}))
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := m.dialer.DialAndSend(gm); err != nil {
		m.log.Error("smtp send failed",
			zap.Strings("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.Error(err),
		)
		return err
	}

	m.log.Debug("smtp send succeeded",
		zap.Strings("to", msg.To),
		zap.Int("attachments", len(msg.Attachments)),
	)
	return nil
}

// Host 返回当前传输指向的 SMTP 服务器地址
func (m *SMTP) Host() string {
	return m.dialer.Host
}

// fetchAttachment 下载远程附件内容
//
// 内容全程驻留内存，读取前后都按 maxAttachmentBytes 设限：
// Content-Length 超限直接拒绝，缺失或说谎时靠 LimitReader 兜底。
func (m *SMTP) fetchAttachment(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := m.fetch.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(rawURL)
	if err != nil {
		return nil, err
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.IsError() {
		return nil, fmt.Errorf("remote returned %s", resp.Status())
	}
	if cl := resp.RawResponse.ContentLength; cl > maxAttachmentBytes {
		return nil, fmt.Errorf("remote attachment is %d bytes, limit is %d", cl, maxAttachmentBytes)
	}

	data, err := io.ReadAll(io.LimitReader(body, maxAttachmentBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxAttachmentBytes {
		return nil, fmt.Errorf("remote attachment exceeds %d bytes", maxAttachmentBytes)
	}
	return data, nil
}

// loginAuth 实现 SMTP LOGIN 认证
//
// 备用 STARTTLS 路径上的部分服务商只接受 LOGIN 机制，
// net/smtp 未内置，这里按标准挑战应答实现。
type loginAuth struct {
	username string
	password string
}

func (a *loginAuth) Start(_ *smtp.ServerInfo) (string, []byte, error) {
	return "LOGIN", nil, nil
}

func (a *loginAuth) Next(fromServer []byte, more bool) ([]byte, error) {
	if !more {
		return nil, nil
	}
	switch strings.ToLower(strings.TrimSpace(string(fromServer))) {
	case "username:":
		return []byte(a.username), nil
	case "password:":
		return []byte(a.password), nil
	default:
		return nil, fmt.Errorf("unexpected server challenge: %q", fromServer)
	}
}
