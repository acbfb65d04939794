package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// DefaultBodyLimit 联系表单请求体默认上限
const DefaultBodyLimit = 64 * 1024

// BodySizeLimit 限制请求体大小的中间件
//
// 声明的 Content-Length 超限时直接返回 413；未声明长度时由 MaxBytesReader 在读取时截断，
// 处理器通过 IsBodyTooLarge 识别。
func BodySizeLimit(maxBytes int64) gin.HandlerFunc {
	if maxBytes <= 0 {
		maxBytes = DefaultBodyLimit
	}
	message := BodyTooLargeMessage(maxBytes)

	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			abortWithMessage(c, http.StatusRequestEntityTooLarge, message)
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Header("X-Max-Body-Size", strconv.FormatInt(maxBytes, 10))

		c.Next()
	}
}

// BodyTooLargeMessage 超限提示
func BodyTooLargeMessage(maxBytes int64) string {
	return fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytes)
}

// IsBodyTooLarge 判断读取请求体的错误是否由大小限制引起
func IsBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
