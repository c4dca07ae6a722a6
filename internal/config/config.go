package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ServerConfig 定义 HTTP 服务器的监听配置参数
type ServerConfig struct {
	Host string // 监听地址，默认 "0.0.0.0"
	Port int    // 监听端口，默认 4000
}

// SMTPConfig 定义出站 SMTP 中继的连接配置
//
// 主配置使用隐式 TLS（默认端口 465）；主配置连接或认证失败时，
// 使用 AltPort（默认 587）以 STARTTLS 方式重试一次。
type SMTPConfig struct {
	Host               string        // SMTP 服务器地址
	Port               int           // 主端口，默认 465（隐式 TLS）
	Secure             bool          // 主连接是否使用隐式 TLS，默认 true
	User               string        // SMTP 认证用户名
	Pass               string        // SMTP 认证密码
	AltPort            int           // 备用端口，默认 587（STARTTLS）
	RejectUnauthorized bool          // 是否校验服务器证书，默认 true
	DialTimeout        time.Duration // 连接超时，默认 10s（显式超时，不依赖库默认值）
}

// SenderConfig 定义外发邮件的发件人身份
type SenderConfig struct {
	Name  string // 发件人显示名称
	Email string // 发件人地址
}

// SupabaseConfig 定义 Supabase Auth（GoTrue）接口的访问配置
type SupabaseConfig struct {
	URL                  string        // 项目 URL，留空则禁用验证邮件重发功能
	ServiceRoleKey       string        // service role key
	VerificationRedirect string        // 验证邮件跳转地址，默认 https://nexsq.com
	Timeout              time.Duration // 单次请求超时，默认 15s
}

// ResendConfig 定义批量重发验证邮件的节流参数
type ResendConfig struct {
	BulkDelay   time.Duration // 收件人之间的固定间隔，默认 500ms
	MaxAttempts int           // 单个收件人的最大尝试次数，默认 3
}

// CORSConfig 定义跨域资源共享 (CORS) 配置
type CORSConfig struct {
	AllowedOrigins []string // 允许的来源列表，"*" 表示允许所有来源
}

// LogConfig 定义日志系统配置
type LogConfig struct {
	Level       string // 日志级别: debug, info, warn, error
	Development bool   // 开发模式: 启用彩色输出和详细堆栈信息
}

// Config 是邮件中继服务的根配置，包含所有子系统的配置
type Config struct {
	Server   ServerConfig   // HTTP 服务器配置
	SMTP     SMTPConfig     // SMTP 传输配置
	Sender   SenderConfig   // 发件人配置
	Supabase SupabaseConfig // Supabase 配置
	Resend   ResendConfig   // 批量重发节流配置
	CORS     CORSConfig     // 跨域配置
	Log      LogConfig      // 日志配置
}

// Load 从环境变量和 .env 文件加载系统配置
//
// 配置加载优先级（从高到低）：
//  1. 系统环境变量（最高优先级）
//  2. .env 文件（如果存在）
//  3. 默认值
//
// 环境变量不加前缀，直接使用 SMTP_HOST、SENDER_EMAIL、PORT 等原始名称，
// 与平台其余部署脚本共享同一组变量。
func Load() (*Config, error) {
	// 尝试加载 .env 文件（静默失败，因为 .env 文件是可选的）
	loadEnvFile()

	viper.AutomaticEnv()

	viper.SetDefault("host", "0.0.0.0")
	viper.SetDefault("port", 4000)
	viper.SetDefault("smtp_host", "")
	viper.SetDefault("smtp_port", 465)
	viper.SetDefault("smtp_secure", true)
	viper.SetDefault("smtp_user", "")
	viper.SetDefault("smtp_pass", "")
	viper.SetDefault("smtp_port_alt", 587)
	viper.SetDefault("smtp_reject_unauthorized", true)
	viper.SetDefault("smtp_dial_timeout", "10s")
	viper.SetDefault("sender_name", "NexSq")
	viper.SetDefault("sender_email", "")
	viper.SetDefault("supabase_url", "")
	viper.SetDefault("email_verification_redirect", "https://nexsq.com")
	viper.SetDefault("identity_timeout", "15s")
	viper.SetDefault("resend_bulk_delay_ms", 500)
	viper.SetDefault("resend_bulk_max_attempts", 3)
	viper.SetDefault("cors_allowed_origins", "*")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_development", false)

	dialTimeout, err := time.ParseDuration(viper.GetString("smtp_dial_timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_DIAL_TIMEOUT: %w", err)
	}

	identityTimeout, err := time.ParseDuration(viper.GetString("identity_timeout"))
	if err != nil {
		identityTimeout = 15 * time.Second
	}

	bulkDelayMs := viper.GetInt("resend_bulk_delay_ms")
	if bulkDelayMs <= 0 {
		bulkDelayMs = 500
	}

	maxAttempts := viper.GetInt("resend_bulk_max_attempts")
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	corsOrigins := parseList(viper.GetString("cors_allowed_origins"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	senderEmail := strings.TrimSpace(viper.GetString("sender_email"))
	if senderEmail == "" {
		// 未显式配置发件人时退回 SMTP 认证用户名
		senderEmail = strings.TrimSpace(viper.GetString("smtp_user"))
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("host"),
			Port: viper.GetInt("port"),
		},
		SMTP: SMTPConfig{
			Host:               viper.GetString("smtp_host"),
			Port:               viper.GetInt("smtp_port"),
			Secure:             viper.GetBool("smtp_secure"),
			User:               viper.GetString("smtp_user"),
			Pass:               viper.GetString("smtp_pass"),
			AltPort:            viper.GetInt("smtp_port_alt"),
			RejectUnauthorized: viper.GetBool("smtp_reject_unauthorized"),
			DialTimeout:        dialTimeout,
		},
		Sender: SenderConfig{
			Name:  viper.GetString("sender_name"),
			Email: senderEmail,
		},
		Supabase: SupabaseConfig{
			URL:                  strings.TrimRight(viper.GetString("supabase_url"), "/"),
			ServiceRoleKey:       serviceRoleKey(),
			VerificationRedirect: viper.GetString("email_verification_redirect"),
			Timeout:              identityTimeout,
		},
		Resend: ResendConfig{
			BulkDelay:   time.Duration(bulkDelayMs) * time.Millisecond,
			MaxAttempts: maxAttempts,
		},
		CORS: CORSConfig{
			AllowedOrigins: corsOrigins,
		},
		Log: LogConfig{
			Level:       viper.GetString("log_level"),
			Development: viper.GetBool("log_development"),
		},
	}

	return cfg, nil
}

// serviceRoleKey 按历史兼容顺序解析 service role key
//
// 部署环境中这个密钥曾以三个不同的变量名出现过，取第一个非空值。
func serviceRoleKey() string {
	for _, key := range []string{
		"SERVICE_ROLE_KEY",
		"SUPABASE_SERVICE_ROLE_KEY",
		"SUPABASE_SERVICE_ROLE",
	} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}

// parseList 将逗号分隔的字符串解析为字符串切片
//
// 参数:
//   - value: 逗号分隔的字符串，如 "item1,item2,item3"
//
// 返回值:
//   - []string: 解析后的字符串切片，已去除空白字符
func parseList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

// loadEnvFile 尝试从当前目录或父目录加载 .env 文件
func loadEnvFile() {
	candidates := []string{".env", filepath.Join("..", ".env")}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}
