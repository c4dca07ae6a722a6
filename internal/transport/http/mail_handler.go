package httptransport

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Tonito-Sam/nsq-sub005/internal/config"
	"github.com/Tonito-Sam/nsq-sub005/internal/domain"
	"github.com/Tonito-Sam/nsq-sub005/internal/monitoring"
	"github.com/Tonito-Sam/nsq-sub005/internal/service"
)

// MailHandler 邮件发送端点处理器
type MailHandler struct {
	dispatch *service.DispatchService
	sender   config.SenderConfig
	metrics  *monitoring.Metrics
}

// NewMailHandler 创建邮件发送处理器
func NewMailHandler(dispatch *service.DispatchService, sender config.SenderConfig, metrics *monitoring.Metrics) *MailHandler {
	return &MailHandler{
		dispatch: dispatch,
		sender:   sender,
		metrics:  metrics,
	}
}

// sendError 将发送错误映射为统一的 500 信封
func sendError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrTransportNotConfigured) {
		InternalError(c, service.ErrTransportNotConfigured.Error())
		return
	}
	InternalError(c, err.Error())
}

type sendOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// SendOTP 发送一次性验证码邮件
func (h *MailHandler) SendOTP(c *gin.Context) {
	var req sendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.OTP) == "" {
		BadRequest(c, MsgOTPRequired)
		return
	}

	body := fmt.Sprintf("Your verification code is: %s", req.OTP)
	msg := &domain.OutboundMessage{
		To:      []string{strings.TrimSpace(req.Email)},
		Subject: "Your NexSq verification code",
		Text:    body,
		HTML:    domain.HTMLBody(body),
	}

	if err := h.dispatch.Send(c.Request.Context(), msg); err != nil {
		sendError(c, err)
		return
	}
	OK(c)
}

type sendNotificationRequest struct {
	Email       string `json:"email"`
	To          string `json:"to"`
	Subject     string `json:"subject"`
	Message     string `json:"message"`
	Attachments []any  `json:"attachments"`
}

// SendNotification 发送单条通知邮件，支持 URL 引用附件
func (h *MailHandler) SendNotification(c *gin.Context) {
	var req sendNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	to := strings.TrimSpace(req.Email)
	if to == "" {
		to = strings.TrimSpace(req.To)
	}
	if to == "" {
		BadRequest(c, MsgNoRecipient)
		return
	}
	if req.Subject == "" || req.Message == "" {
		BadRequest(c, MsgSubjectRequired)
		return
	}

	msg := &domain.OutboundMessage{
		To:          []string{to},
		Subject:     req.Subject,
		Text:        req.Message,
		HTML:        domain.HTMLBody(req.Message),
		Attachments: parseAttachments(req.Attachments),
	}

	if err := h.dispatch.Send(c.Request.Context(), msg); err != nil {
		sendError(c, err)
		return
	}
	OK(c)
}

type sendBulkRequest struct {
	Emails      any    `json:"emails"`
	Subject     string `json:"subject"`
	Message     string `json:"message"`
	Attachments []any  `json:"attachments"`
}

// SendBulk 并发群发同一内容，整体成败一体
func (h *MailHandler) SendBulk(c *gin.Context) {
	var req sendBulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	recipients := domain.NormalizeRecipients(req.Emails)
	if len(recipients) == 0 {
		BadRequest(c, MsgEmailsRequired)
		return
	}
	if req.Subject == "" || req.Message == "" {
		BadRequest(c, MsgSubjectRequired)
		return
	}

	attachments := parseAttachments(req.Attachments)
	msgs := make([]*domain.OutboundMessage, 0, len(recipients))
	for _, to := range recipients {
		msgs = append(msgs, &domain.OutboundMessage{
			To:          []string{to},
			Subject:     req.Subject,
			Text:        req.Message,
			HTML:        domain.HTMLBody(req.Message),
			Attachments: attachments,
		})
	}

	if err := h.dispatch.SendBulk(c.Request.Context(), msgs); err != nil {
		sendError(c, err)
		return
	}
	OK(c)
}

type testEmailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// TestEmail 发送一封诊断邮件，所有字段都有缺省值
func (h *MailHandler) TestEmail(c *gin.Context) {
	var req testEmailRequest
	// 空请求体也合法，全部走缺省
	_ = c.ShouldBindJSON(&req)

	to := strings.TrimSpace(req.To)
	if to == "" {
		to = h.sender.Email
	}
	if to == "" {
		BadRequest(c, MsgNoRecipient)
		return
	}

	subject := req.Subject
	if subject == "" {
		subject = "NexSq mail relay test"
	}
	message := req.Message
	if message == "" {
		message = "This is a test email from the NexSq mail relay."
	}

	msg := &domain.OutboundMessage{
		To:      []string{to},
		Subject: subject,
		Text:    message,
		HTML:    domain.HTMLBody(message),
	}

	if err := h.dispatch.Send(c.Request.Context(), msg); err != nil {
		sendError(c, err)
		return
	}
	OKWithMessage(c, fmt.Sprintf("Test email sent to %s", to))
}

// SendNotificationMultipart 发送带上传附件的单条通知
func (h *MailHandler) SendNotificationMultipart(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		BadRequest(c, MsgMultipartInvalid)
		return
	}

	to := strings.TrimSpace(c.PostForm("email"))
	if to == "" {
		to = strings.TrimSpace(c.PostForm("to"))
	}
	if to == "" {
		BadRequest(c, MsgNoRecipient)
		return
	}

	subject := c.PostForm("subject")
	message := c.PostForm("message")
	if subject == "" || message == "" {
		BadRequest(c, MsgSubjectRequired)
		return
	}

	attachments, err := h.collectUploads(form)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	msg := &domain.OutboundMessage{
		To:          []string{to},
		Subject:     subject,
		Text:        message,
		HTML:        domain.HTMLBody(message),
		Attachments: attachments,
	}

	if err := h.dispatch.Send(c.Request.Context(), msg); err != nil {
		sendError(c, err)
		return
	}
	OK(c)
}

// SendBulkMultipart 群发带上传附件的通知，整体成败一体
func (h *MailHandler) SendBulkMultipart(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		BadRequest(c, MsgMultipartInvalid)
		return
	}

	recipients := multipartRecipients(form)
	if len(recipients) == 0 {
		BadRequest(c, MsgEmailsRequired)
		return
	}

	subject := c.PostForm("subject")
	message := c.PostForm("message")
	if subject == "" || message == "" {
		BadRequest(c, MsgSubjectRequired)
		return
	}

	attachments, err := h.collectUploads(form)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	msgs := make([]*domain.OutboundMessage, 0, len(recipients))
	for _, to := range recipients {
		msgs = append(msgs, &domain.OutboundMessage{
			To:          []string{to},
			Subject:     subject,
			Text:        message,
			HTML:        domain.HTMLBody(message),
			Attachments: attachments,
		})
	}

	if err := h.dispatch.SendBulk(c.Request.Context(), msgs); err != nil {
		sendError(c, err)
		return
	}
	OK(c)
}

// multipartRecipients 从 multipart 表单解析收件人列表
//
// 依次尝试：emails 字段（逗号分隔或重复字段）、单个 email 字段。
func multipartRecipients(form *multipart.Form) []string {
	values := form.Value["emails"]
	switch {
	case len(values) == 1:
		return domain.SplitRecipients(values[0])
	case len(values) > 1:
		out := make([]string, 0, len(values))
		for _, v := range values {
			out = append(out, domain.SplitRecipients(v)...)
		}
		return out
	}

	if single := form.Value["email"]; len(single) > 0 {
		return domain.SplitRecipients(single[0])
	}
	return nil
}

// collectUploads 将上传文件读入内存并归一化为附件
//
// 文件名沿用上传时的原始名称，内容不落盘。
func (h *MailHandler) collectUploads(form *multipart.Form) ([]domain.Attachment, error) {
	files := form.File["files"]
	if len(files) == 0 {
		return nil, nil
	}

	attachments := make([]domain.Attachment, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("cannot read upload %q", fh.Filename)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("cannot read upload %q", fh.Filename)
		}

		h.metrics.RecordAttachmentSize(len(data))
		attachments = append(attachments, domain.AttachmentFromUpload(fh.Filename, data))
	}
	return attachments, nil
}

// parseAttachments 解析 JSON 请求中的附件描述，忽略无法解析的项
func parseAttachments(raw []any) []domain.Attachment {
	if len(raw) == 0 {
		return nil
	}
	attachments := make([]domain.Attachment, 0, len(raw))
	for _, item := range raw {
		if att, ok := domain.ParseAttachment(item); ok {
			attachments = append(attachments, att)
		}
	}
	return attachments
}
