package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Tonito-Sam/nsq-sub005/internal/config"
	"github.com/Tonito-Sam/nsq-sub005/internal/middleware"
	"github.com/Tonito-Sam/nsq-sub005/internal/monitoring"
	"github.com/Tonito-Sam/nsq-sub005/internal/service"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config   *config.Config
	Dispatch *service.DispatchService
	Resend   *service.ResendService
	Metrics  *monitoring.Metrics
	Logger   *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	// 使用自定义中间件替代默认中间件
	router.Use(middleware.RecoveryHandler(deps.Logger, deps.Metrics))
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.HTTPMetrics(deps.Metrics))

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins:     deps.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// 如果允许所有来源，则需清空凭证支持。
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	mailHandler := NewMailHandler(deps.Dispatch, deps.Config.Sender, deps.Metrics)
	resendHandler := NewResendHandler(deps.Resend)

	jsonLimit := middleware.BodySizeLimit(middleware.DefaultBodyLimit)
	multipartLimit := middleware.BodySizeLimit(middleware.MultipartBodyLimit)

	router.POST("/send-otp", jsonLimit, mailHandler.SendOTP)
	router.POST("/send-notification", jsonLimit, mailHandler.SendNotification)
	router.POST("/send-bulk", jsonLimit, mailHandler.SendBulk)
	router.POST("/test-email", jsonLimit, mailHandler.TestEmail)
	router.POST("/send-notification-multipart", multipartLimit, mailHandler.SendNotificationMultipart)
	router.POST("/send-bulk-multipart", multipartLimit, mailHandler.SendBulkMultipart)
	router.POST("/resend-verification", jsonLimit, resendHandler.ResendVerification)
	router.POST("/resend-verification-bulk", jsonLimit, resendHandler.ResendVerificationBulk)

	// 存活探针，返回服务器当前时间
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ok":  true,
			"now": time.Now().UTC().Format(time.RFC3339),
		})
	})

	return router
}
