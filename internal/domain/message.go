package domain

import (
	"html"
	"strings"
)

// OutboundMessage 描述一次外发邮件
//
// 仅在单次发送调用期间存在，不做任何持久化。发件人由服务配置固定，
// 不属于该值对象。
type OutboundMessage struct {
	To          []string     // 收件人地址列表
	Subject     string       // 邮件主题
	Text        string       // 纯文本正文
	HTML        string       // HTML 正文（与纯文本互为 alternative）
	Attachments []Attachment // 可选附件列表
}

// HTMLBody 将用户提供的文本包装为 HTML 正文
//
// 文本内容一律先做 HTML 转义再插值，防止调用方注入标签。
func HTMLBody(message string) string {
	return "<p>" + html.EscapeString(message) + "</p>"
}

// SplitRecipients 将逗号分隔的收件人字符串解析为地址列表
//
// 每项去除首尾空白，空项丢弃。
func SplitRecipients(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		addr := strings.TrimSpace(part)
		if addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// ExtractEmail 从宽松类型的输入中提取邮箱地址
//
// 调用方传来的收件人可能是裸字符串，也可能是带 email 或
// email_address 字段的对象。两者都取不到时返回 false。
func ExtractEmail(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		addr := strings.TrimSpace(t)
		return addr, addr != ""
	case map[string]any:
		for _, key := range []string{"email", "email_address"} {
			if raw, ok := t[key]; ok {
				if s, ok := raw.(string); ok {
					addr := strings.TrimSpace(s)
					if addr != "" {
						return addr, true
					}
				}
			}
		}
	}
	return "", false
}

// NormalizeRecipients 将宽松类型的收件人输入归一化为地址列表
//
// 支持三种形态：逗号分隔字符串、字符串/对象混合数组、单个对象。
func NormalizeRecipients(v any) []string {
	switch t := v.(type) {
	case string:
		return SplitRecipients(t)
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if addr, ok := ExtractEmail(item); ok {
				out = append(out, addr)
			}
		}
		return out
	case []string:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if addr := strings.TrimSpace(item); addr != "" {
				out = append(out, addr)
			}
		}
		return out
	default:
		if addr, ok := ExtractEmail(v); ok {
			return []string{addr}
		}
	}
	return nil
}
