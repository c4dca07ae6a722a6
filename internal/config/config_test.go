package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var configEnvKeys = []string{
	"HOST",
	"PORT",
	"SMTP_HOST",
	"SMTP_PORT",
	"SMTP_SECURE",
	"SMTP_USER",
	"SMTP_PASS",
	"SMTP_PORT_ALT",
	"SMTP_REJECT_UNAUTHORIZED",
	"SMTP_DIAL_TIMEOUT",
	"SENDER_NAME",
	"SENDER_EMAIL",
	"SUPABASE_URL",
	"SERVICE_ROLE_KEY",
	"SUPABASE_SERVICE_ROLE_KEY",
	"SUPABASE_SERVICE_ROLE",
	"EMAIL_VERIFICATION_REDIRECT",
	"IDENTITY_TIMEOUT",
	"RESEND_BULK_DELAY_MS",
	"RESEND_BULK_MAX_ATTEMPTS",
	"CORS_ALLOWED_ORIGINS",
	"LOG_LEVEL",
	"LOG_DEVELOPMENT",
}

// snapshotEnv 保存并在测试结束后恢复相关环境变量
func snapshotEnv(t *testing.T) {
	t.Helper()

	originalEnvs := make(map[string]string)
	for _, key := range configEnvKeys {
		originalEnvs[key] = os.Getenv(key)
	}

	t.Cleanup(func() {
		for key, value := range originalEnvs {
			if value == "" {
				os.Unsetenv(key)
			} else {
				os.Setenv(key, value)
			}
		}
	})
}

func clearEnv() {
	for _, key := range configEnvKeys {
		os.Unsetenv(key)
	}
}

func TestLoad(t *testing.T) {
	snapshotEnv(t)

	t.Run("加载默认配置成功", func(t *testing.T) {
		clearEnv()

		cfg, err := Load()

		assert.NoError(t, err)
		assert.NotNil(t, cfg)

		// 验证默认值
		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 4000, cfg.Server.Port)
		assert.Equal(t, "", cfg.SMTP.Host)
		assert.Equal(t, 465, cfg.SMTP.Port)
		assert.True(t, cfg.SMTP.Secure)
		assert.Equal(t, 587, cfg.SMTP.AltPort)
		assert.True(t, cfg.SMTP.RejectUnauthorized)
		assert.Equal(t, 10*time.Second, cfg.SMTP.DialTimeout)
		assert.Equal(t, "NexSq", cfg.Sender.Name)
		assert.Equal(t, "", cfg.Supabase.URL)
		assert.Equal(t, "https://nexsq.com", cfg.Supabase.VerificationRedirect)
		assert.Equal(t, 15*time.Second, cfg.Supabase.Timeout)
		assert.Equal(t, 500*time.Millisecond, cfg.Resend.BulkDelay)
		assert.Equal(t, 3, cfg.Resend.MaxAttempts)
		assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.False(t, cfg.Log.Development)
	})

	t.Run("加载自定义配置成功", func(t *testing.T) {
		clearEnv()
		os.Setenv("HOST", "127.0.0.1")
		os.Setenv("PORT", "8080")
		os.Setenv("SMTP_HOST", "smtp.mailprovider.com")
		os.Setenv("SMTP_PORT", "2465")
		os.Setenv("SMTP_SECURE", "false")
		os.Setenv("SMTP_USER", "relay@nexsq.com")
		os.Setenv("SMTP_PASS", "secret")
		os.Setenv("SMTP_PORT_ALT", "2587")
		os.Setenv("SMTP_REJECT_UNAUTHORIZED", "false")
		os.Setenv("SMTP_DIAL_TIMEOUT", "3s")
		os.Setenv("SENDER_NAME", "NexSq Support")
		os.Setenv("SENDER_EMAIL", "support@nexsq.com")
		os.Setenv("SUPABASE_URL", "https://example.supabase.co/")
		os.Setenv("SERVICE_ROLE_KEY", "role-key")
		os.Setenv("EMAIL_VERIFICATION_REDIRECT", "https://staging.nexsq.com")
		os.Setenv("IDENTITY_TIMEOUT", "5s")
		os.Setenv("RESEND_BULK_DELAY_MS", "250")
		os.Setenv("RESEND_BULK_MAX_ATTEMPTS", "5")
		os.Setenv("CORS_ALLOWED_ORIGINS", "https://nexsq.com,https://staging.nexsq.com")
		os.Setenv("LOG_LEVEL", "debug")
		os.Setenv("LOG_DEVELOPMENT", "true")

		cfg, err := Load()

		assert.NoError(t, err)
		assert.NotNil(t, cfg)

		assert.Equal(t, "127.0.0.1", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, "smtp.mailprovider.com", cfg.SMTP.Host)
		assert.Equal(t, 2465, cfg.SMTP.Port)
		assert.False(t, cfg.SMTP.Secure)
		assert.Equal(t, "relay@nexsq.com", cfg.SMTP.User)
		assert.Equal(t, 2587, cfg.SMTP.AltPort)
		assert.False(t, cfg.SMTP.RejectUnauthorized)
		assert.Equal(t, 3*time.Second, cfg.SMTP.DialTimeout)
		assert.Equal(t, "NexSq Support", cfg.Sender.Name)
		assert.Equal(t, "support@nexsq.com", cfg.Sender.Email)
		// 尾部斜杠被归一化
		assert.Equal(t, "https://example.supabase.co", cfg.Supabase.URL)
		assert.Equal(t, "role-key", cfg.Supabase.ServiceRoleKey)
		assert.Equal(t, "https://staging.nexsq.com", cfg.Supabase.VerificationRedirect)
		assert.Equal(t, 5*time.Second, cfg.Supabase.Timeout)
		assert.Equal(t, 250*time.Millisecond, cfg.Resend.BulkDelay)
		assert.Equal(t, 5, cfg.Resend.MaxAttempts)
		assert.Equal(t, []string{"https://nexsq.com", "https://staging.nexsq.com"}, cfg.CORS.AllowedOrigins)
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.True(t, cfg.Log.Development)
	})

	t.Run("发件人缺省回退SMTP用户名", func(t *testing.T) {
		clearEnv()
		os.Setenv("SMTP_USER", "relay@nexsq.com")

		cfg, err := Load()

		assert.NoError(t, err)
		assert.Equal(t, "relay@nexsq.com", cfg.Sender.Email)
	})

	t.Run("无效的拨号超时失败", func(t *testing.T) {
		clearEnv()
		os.Setenv("SMTP_DIAL_TIMEOUT", "not-a-duration")

		cfg, err := Load()

		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "invalid SMTP_DIAL_TIMEOUT")
	})

	t.Run("非法节流参数回退默认值", func(t *testing.T) {
		clearEnv()
		os.Setenv("RESEND_BULK_DELAY_MS", "-100")
		os.Setenv("RESEND_BULK_MAX_ATTEMPTS", "0")

		cfg, err := Load()

		assert.NoError(t, err)
		assert.Equal(t, 500*time.Millisecond, cfg.Resend.BulkDelay)
		assert.Equal(t, 3, cfg.Resend.MaxAttempts)
	})
}

func TestServiceRoleKey(t *testing.T) {
	snapshotEnv(t)

	t.Run("首选SERVICE_ROLE_KEY", func(t *testing.T) {
		clearEnv()
		os.Setenv("SERVICE_ROLE_KEY", "primary")
		os.Setenv("SUPABASE_SERVICE_ROLE_KEY", "secondary")
		os.Setenv("SUPABASE_SERVICE_ROLE", "tertiary")

		assert.Equal(t, "primary", serviceRoleKey())
	})

	t.Run("次选SUPABASE_SERVICE_ROLE_KEY", func(t *testing.T) {
		clearEnv()
		os.Setenv("SUPABASE_SERVICE_ROLE_KEY", "secondary")
		os.Setenv("SUPABASE_SERVICE_ROLE", "tertiary")

		assert.Equal(t, "secondary", serviceRoleKey())
	})

	t.Run("末选SUPABASE_SERVICE_ROLE", func(t *testing.T) {
		clearEnv()
		os.Setenv("SUPABASE_SERVICE_ROLE", "tertiary")

		assert.Equal(t, "tertiary", serviceRoleKey())
	})

	t.Run("全部缺失返回空串", func(t *testing.T) {
		clearEnv()

		assert.Equal(t, "", serviceRoleKey())
	})
}

func TestParseList(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "单个项目",
			input:    "item1",
			expected: []string{"item1"},
		},
		{
			name:     "多个项目",
			input:    "item1,item2,item3",
			expected: []string{"item1", "item2", "item3"},
		},
		{
			name:     "带空格的项目",
			input:    " item1 , item2 , item3 ",
			expected: []string{"item1", "item2", "item3"},
		},
		{
			name:     "空字符串",
			input:    "",
			expected: []string{},
		},
		{
			name:     "只有逗号",
			input:    ",,,",
			expected: []string{},
		},
		{
			name:     "混合空值",
			input:    "item1,,item2,",
			expected: []string{"item1", "item2"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := parseList(tc.input)
			assert.Equal(t, tc.expected, result)
		})
	}
}
