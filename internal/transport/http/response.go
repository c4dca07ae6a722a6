package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Envelope 所有端点共用的响应信封
//
// 前端只认 success 标志加可选的 error/message 字段，
// 不向调用方透出堆栈或内部结构。
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OK 成功响应（200）
func OK(c *gin.Context) {
	c.JSON(http.StatusOK, Envelope{Success: true})
}

// OKWithMessage 成功响应（带人类可读消息）
func OKWithMessage(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, Envelope{Success: true, Message: msg})
}

// BadRequest 请求参数错误（400）
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Envelope{Success: false, Error: msg})
}

// InternalError 服务器内部错误（500）
func InternalError(c *gin.Context, msg string) {
	c.JSON(http.StatusInternalServerError, Envelope{Success: false, Error: msg})
}

// 通用校验错误消息
const (
	MsgInvalidRequest   = "invalid request body"
	MsgEmailRequired    = "email is required"
	MsgEmailsRequired   = "emails are required"
	MsgOTPRequired      = "email and otp are required"
	MsgSubjectRequired  = "subject and message are required"
	MsgNoRecipient      = "no recipient specified"
	MsgMultipartInvalid = "invalid multipart form"
)
