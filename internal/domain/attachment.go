package domain

import (
	"net/url"
	"path"
	"strings"
)

// Attachment 附件的归一化表示
//
// 两种来源，二选一：
//   - URL 非空：远程引用，发送时由传输层下载内容
//   - Content 非空：上传的内存字节，不落盘
//
// 调用方传入的多态形态（裸 URL 字符串 / 对象 / multipart 上传）
// 在 HTTP 边界被一次性解析成该结构，下层不再做类型嗅探。
type Attachment struct {
	Filename string // 附件文件名，始终非空
	URL      string // 远程引用地址
	Content  []byte // 内存内容（multipart 上传）
}

// IsInline 判断附件内容是否已在内存中
func (a Attachment) IsInline() bool {
	return len(a.Content) > 0
}

// AttachmentFromURL 根据远程地址构造附件
//
// filename 为空时从 URL 的最后一个路径段推导。
func AttachmentFromURL(rawURL, filename string) Attachment {
	if filename == "" {
		filename = FilenameFromURL(rawURL)
	}
	return Attachment{Filename: filename, URL: rawURL}
}

// AttachmentFromUpload 根据上传的文件构造附件
func AttachmentFromUpload(filename string, content []byte) Attachment {
	if filename == "" {
		filename = "attachment"
	}
	return Attachment{Filename: filename, Content: content}
}

// ParseAttachment 解析调用方传入的附件描述
//
// 支持两种形态：
//   - 裸字符串：视为 URL
//   - 对象：filename / url / path 字段，显式 filename 优先
func ParseAttachment(v any) (Attachment, bool) {
	switch t := v.(type) {
	case string:
		raw := strings.TrimSpace(t)
		if raw == "" {
			return Attachment{}, false
		}
		return AttachmentFromURL(raw, ""), true
	case map[string]any:
		rawURL := stringField(t, "url")
		if rawURL == "" {
			rawURL = stringField(t, "path")
		}
		if rawURL == "" {
			return Attachment{}, false
		}
		return AttachmentFromURL(rawURL, stringField(t, "filename")), true
	}
	return Attachment{}, false
}

// FilenameFromURL 从 URL 推导附件文件名
//
// 取路径的最后一段并忽略查询参数；推导不出时退回 "attachment"。
func FilenameFromURL(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		if name := path.Base(u.Path); name != "." && name != "/" && name != "" {
			return name
		}
		// 只有主机没有路径，推导不出文件名
		if u.Host != "" {
			return "attachment"
		}
	}
	// URL 解析失败时按纯字符串截取
	trimmed := rawURL
	if idx := strings.IndexAny(trimmed, "?#"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	if trimmed == "" {
		return "attachment"
	}
	return trimmed
}

func stringField(m map[string]any, key string) string {
	if raw, ok := m[key]; ok {
		if s, ok := raw.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
