package security

import (
	"regexp"

	"portfolio/backend/internal/domain"
)

// rejectionReason 面向访客的统一提示，不透露命中的规则
const rejectionReason = "Your message could not be accepted, please remove links or markup and try again"

var linkPattern = regexp.MustCompile(`(?i)\b(?:https?://|www\.)\S+`)

// ContentFilter 留言内容过滤器
type ContentFilter struct {
	// 恶意内容模式
	maliciousPatterns []*regexp.Regexp

	// 单条留言允许的最大链接数，0 表示不限制
	maxLinks int
}

// NewContentFilter 创建内容过滤器
func NewContentFilter(maxLinks int) *ContentFilter {
	return &ContentFilter{
		// 只匹配标签上下文，正文里提到 javascript: 或 onload= 不算
		maliciousPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)<\s*script\b`),
			regexp.MustCompile(`(?i)<\s*(?:iframe|object|embed)\b`),
			regexp.MustCompile(`(?i)<[a-z][^>]*\s(?:href|src|action|formaction)\s*=\s*["']?\s*javascript:`),
			regexp.MustCompile(`(?i)<[a-z][^>]*\son[a-z]+\s*=`),
		},
		maxLinks: maxLinks,
	}
}

// Check 检查已通过格式校验的表单，命中规则时返回 *domain.ValidationError
func (cf *ContentFilter) Check(input domain.ContactInput) error {
	for _, field := range []struct {
		name  string
		value string
	}{
		{"name", input.Name},
		{"message", input.Message},
	} {
		if cf.isMalicious(field.value) {
			return domain.NewValidationError(field.name, rejectionReason)
		}
	}

	if cf.maxLinks > 0 && len(linkPattern.FindAllStringIndex(input.Message, cf.maxLinks+1)) > cf.maxLinks {
		return domain.NewValidationError("message", rejectionReason)
	}
	return nil
}

// isMalicious 检查恶意内容
func (cf *ContentFilter) isMalicious(content string) bool {
	for _, pattern := range cf.maliciousPatterns {
		if pattern.MatchString(content) {
			return true
		}
	}
	return false
}
