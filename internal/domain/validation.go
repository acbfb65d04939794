package domain

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// 验证常量
const (
	// RFC 5321 邮箱地址长度限制
	MaxEmailLength = 254

	DefaultMaxNameLength = 100
	DefaultMaxBodyLength = 5000

	// 表单或登录缺少必填字段时的统一提示
	MissingFieldsReason = "Please fill in all fields"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ContactLimits 表单字段长度上限（按字符计）
type ContactLimits struct {
	MaxNameLength int
	MaxBodyLength int
}

// DefaultContactLimits 返回默认长度上限
func DefaultContactLimits() ContactLimits {
	return ContactLimits{
		MaxNameLength: DefaultMaxNameLength,
		MaxBodyLength: DefaultMaxBodyLength,
	}
}

// ValidateEmail 检查邮箱基本格式
func ValidateEmail(email string) bool {
	if email == "" || len(email) > MaxEmailLength {
		return false
	}
	return emailRegex.MatchString(email)
}

// ValidateContactInput 去除首尾空白并做 NFC 规范化后校验表单，返回规范化后的输入
//
// 校验顺序：必填 -> 邮箱格式 -> 长度。第一个失败的字段决定返回的错误。
func ValidateContactInput(in ContactInput, limits ContactLimits) (ContactInput, error) {
	out := ContactInput{
		Name:    norm.NFC.String(strings.TrimSpace(in.Name)),
		Email:   strings.TrimSpace(in.Email),
		Message: norm.NFC.String(strings.TrimSpace(in.Message)),
	}

	if limits.MaxNameLength <= 0 {
		limits.MaxNameLength = DefaultMaxNameLength
	}
	if limits.MaxBodyLength <= 0 {
		limits.MaxBodyLength = DefaultMaxBodyLength
	}

	switch {
	case out.Name == "":
		return out, NewValidationError("name", MissingFieldsReason)
	case out.Email == "":
		return out, NewValidationError("email", MissingFieldsReason)
	case out.Message == "":
		return out, NewValidationError("message", MissingFieldsReason)
	}

	if !ValidateEmail(out.Email) {
		return out, NewValidationError("email", "Please provide a valid email address")
	}

	if utf8.RuneCountInString(out.Name) > limits.MaxNameLength {
		return out, NewValidationError("name", fmt.Sprintf("Name is too long (max %d characters)", limits.MaxNameLength))
	}
	if utf8.RuneCountInString(out.Message) > limits.MaxBodyLength {
		return out, NewValidationError("message", fmt.Sprintf("Message is too long (max %d characters)", limits.MaxBodyLength))
	}

	return out, nil
}

// NormalizeEmail 用于管理员登录标识的比较
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
