package httptransport

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"portfolio/backend/internal/auth"
	"portfolio/backend/internal/domain"
	"portfolio/backend/internal/middleware"
	"portfolio/backend/internal/monitoring"
)

// AdminAuthenticator 登录与令牌校验，由 auth.Service 实现
type AdminAuthenticator interface {
	Login(ctx context.Context, email, password string) (*auth.LoginResult, error)
	Validate(token string) (*domain.Admin, error)
}

// AuthHandler 处理认证相关的 HTTP 请求
type AuthHandler struct {
	auth     AdminAuthenticator
	metrics  *monitoring.Metrics
	maxBytes int64
	log      *zap.Logger
}

// NewAuthHandler 创建新的认证处理器实例
func NewAuthHandler(authenticator AdminAuthenticator, metrics *monitoring.Metrics, maxBytes int64, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		auth:     authenticator,
		metrics:  metrics,
		maxBytes: maxBytes,
		log:      log,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type adminResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

type loginResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	Admin     adminResponse `json:"admin"`
}

func toAdminResponse(admin *domain.Admin) adminResponse {
	return adminResponse{
		ID:          admin.ID,
		Name:        admin.Name,
		Email:       admin.Email,
		LastLoginAt: admin.LastLoginAt,
	}
}

// Login 处理管理员登录请求
// @Summary 管理员登录
// @Description 使用邮箱和密码登录，成功后返回签名令牌与管理员资料
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body loginRequest true "登录凭证"
// @Success 200 {object} Response{data=loginResponse} "登录成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "邮箱或密码错误"
// @Failure 429 {object} Response "请求过于频繁"
// @Failure 503 {object} Response "存储不可用"
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.maxBytes, err)
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) {
			h.metrics.RecordLogin("failure")
			h.log.Warn("admin login failed", zap.String("ip", c.ClientIP()))
			Error(c, http.StatusUnauthorized, MsgLoginFailed)
			return
		}
		if !errors.Is(err, domain.ErrValidation) {
			h.metrics.RecordLogin("error")
		}
		respondError(c, h.log, "login", err)
		return
	}

	h.metrics.RecordLogin("success")
	c.Set(middleware.AdminIDKey, result.Admin.ID)
	h.log.Info("admin logged in", zap.String("admin_id", result.Admin.ID))

	Success(c, loginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		Admin:     toAdminResponse(result.Admin),
	})
}

// Me 获取当前管理员信息
// @Summary 获取当前管理员
// @Description 校验令牌并返回其中的管理员资料
// @Tags 认证
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=object{admin=adminResponse}} "管理员信息"
// @Failure 401 {object} Response "未认证或令牌无效"
// @Router /api/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	admin, err := h.auth.Validate(bearerToken(c))
	if err != nil {
		h.metrics.RecordAuthRejection()
		Unauthorized(c)
		return
	}
	c.Set(middleware.AdminIDKey, admin.ID)

	Success(c, gin.H{"admin": toAdminResponse(admin)})
}

// bearerToken 从 Authorization 头提取令牌，缺失时返回空串
func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
