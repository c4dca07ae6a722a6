package httptransport

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Tonito-Sam/nsq-sub005/internal/domain"
	"github.com/Tonito-Sam/nsq-sub005/internal/identity"
	"github.com/Tonito-Sam/nsq-sub005/internal/service"
)

// ResendHandler 验证邮件重发端点处理器
type ResendHandler struct {
	resend *service.ResendService
}

// NewResendHandler 创建重发处理器
func NewResendHandler(resend *service.ResendService) *ResendHandler {
	return &ResendHandler{resend: resend}
}

type resendRequest struct {
	Email string `json:"email"`
}

// ResendVerification 为单个用户重发注册验证邮件
func (h *ResendHandler) ResendVerification(c *gin.Context) {
	var req resendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" {
		BadRequest(c, MsgEmailRequired)
		return
	}

	if !h.resend.Available() {
		InternalError(c, identity.ErrNotConfigured.Error())
		return
	}

	if err := h.resend.ResendOne(c.Request.Context(), email); err != nil {
		InternalError(c, err.Error())
		return
	}
	OK(c)
}

type bulkResendRequest struct {
	Emails any   `json:"emails"`
	Users  []any `json:"users"`
}

// bulkResendResponse 批量重发的完整结果
//
// 逐人结果随 200 返回，个别失败不影响整体状态码——
// 与群发端点的整体成败语义刻意不同。
type bulkResendResponse struct {
	Success      bool                  `json:"success"`
	Results      []domain.ResendResult `json:"results"`
	SuccessCount int                   `json:"successCount"`
	FailCount    int                   `json:"failCount"`
}

// ResendVerificationBulk 为一批用户重发注册验证邮件
func (h *ResendHandler) ResendVerificationBulk(c *gin.Context) {
	var req bulkResendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	targets := resendTargets(req)
	if len(targets) == 0 {
		BadRequest(c, MsgEmailsRequired)
		return
	}

	if !h.resend.Available() {
		InternalError(c, identity.ErrNotConfigured.Error())
		return
	}

	report := h.resend.ResendBulk(c.Request.Context(), targets)
	c.JSON(200, bulkResendResponse{
		Success:      true,
		Results:      report.Results,
		SuccessCount: report.SuccessCount,
		FailCount:    report.FailCount,
	})
}

// resendTargets 归一化批量重发的目标列表
//
// users 数组优先；emails 接受数组或逗号分隔字符串。
func resendTargets(req bulkResendRequest) []any {
	if len(req.Users) > 0 {
		return req.Users
	}

	switch t := req.Emails.(type) {
	case []any:
		return t
	case string:
		parts := domain.SplitRecipients(t)
		out := make([]any, 0, len(parts))
		for _, p := range parts {
			out = append(out, p)
		}
		return out
	}
	return nil
}
