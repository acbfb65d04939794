package httptransport

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"portfolio/backend/internal/domain"
	"portfolio/backend/internal/middleware"
)

// 通用错误消息
const (
	MsgInvalidRequest   = "Invalid request body"
	MsgUnauthorized     = "Invalid or expired credentials"
	MsgLoginFailed      = "Invalid email or password"
	MsgMessageNotFound  = "Message not found"
	MsgStoreUnavailable = "Service temporarily unavailable, please try again later"
	MsgInternalError    = "Internal server error"

	MsgMessageSent    = "Thank you for reaching out. I'll get back to you soon!"
	MsgMarkedRead     = "Message marked as read"
	MsgMessageDeleted = "Message deleted successfully"
)

// statusFor 将业务错误映射为 HTTP 状态码与可展示的消息，未知错误不暴露细节
func statusFor(err error) (int, string) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Reason
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, MsgInvalidRequest
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, MsgUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, MsgMessageNotFound
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, MsgStoreUnavailable
	default:
		return http.StatusInternalServerError, MsgInternalError
	}
}

// respondError 写出错误响应，服务端错误记录原始原因
func respondError(c *gin.Context, log *zap.Logger, op string, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error(op+" failed",
			zap.Int("status", status),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
	}
	Error(c, status, msg)
}

// respondBindError 处理请求体解析失败
func respondBindError(c *gin.Context, maxBytes int64, err error) {
	if middleware.IsBodyTooLarge(err) {
		Error(c, http.StatusRequestEntityTooLarge, middleware.BodyTooLargeMessage(maxBytes))
		return
	}
	BadRequest(c, MsgInvalidRequest)
}
