package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	// DefaultBodyLimit 普通 JSON 请求体上限
	DefaultBodyLimit = 2 * 1024 * 1024 // 2MB

	// MultipartBodyLimit 带附件上传的 multipart 请求体上限
	MultipartBodyLimit = 25 * 1024 * 1024 // 25MB
)

// BodySizeLimit 限制请求体大小的中间件
//
// 附件经 multipart 上传并全程驻留内存，上限必须先于读取生效。
func BodySizeLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"success": false,
				"error":   "request body too large",
			})
			c.Abort()
			return
		}

		// Content-Length 可能缺失或说谎，读取时再兜底
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
