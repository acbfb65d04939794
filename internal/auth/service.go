package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"portfolio/backend/internal/auth/jwt"
	"portfolio/backend/internal/domain"
	"portfolio/backend/internal/storage"
)

// LoginResult 登录成功后返回给客户端的令牌与管理员资料
type LoginResult struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	Admin     *domain.Admin `json:"admin"`
}

// Service 管理员认证服务
type Service struct {
	admins storage.AdminRepository
	tokens *jwt.Manager
	log    *zap.Logger
	now    func() time.Time
}

// NewService 创建认证服务
func NewService(admins storage.AdminRepository, tokens *jwt.Manager, log *zap.Logger) *Service {
	return &Service{
		admins: admins,
		tokens: tokens,
		log:    log,
		now:    time.Now,
	}
}

// Login 校验邮箱和密码并签发令牌
//
// 邮箱不存在与密码错误返回同一个 ErrUnauthenticated，且两条路径都执行一次 bcrypt 比较。
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.NewValidationError("credentials", domain.MissingFieldsReason)
	}

	admin, err := s.admins.GetAdminByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrAdminNotFound) {
			compareDummy(password)
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}

	if !CheckPassword(password, admin.PasswordHash) {
		return nil, domain.ErrUnauthenticated
	}

	token, expiresAt, err := s.tokens.Issue(admin.ID, admin.Name, admin.Email)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	now := s.now().UTC()
	if err := s.admins.UpdateLastLogin(ctx, admin.ID, now); err != nil {
		s.log.Warn("failed to record last login", zap.String("admin_id", admin.ID), zap.Error(err))
	} else {
		admin.LastLoginAt = &now
	}

	return &LoginResult{Token: token, ExpiresAt: expiresAt, Admin: admin}, nil
}

// Validate 仅凭签名和有效期验证令牌，不访问存储
func (s *Service) Validate(token string) (*domain.Admin, error) {
	if token == "" {
		return nil, domain.ErrUnauthenticated
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, domain.ErrUnauthenticated
	}
	return &domain.Admin{
		ID:    claims.Subject,
		Name:  claims.Name,
		Email: claims.Email,
	}, nil
}

// SeedAdmin 将配置中的管理员写入存储，已存在时更新名称与密码哈希
func (s *Service) SeedAdmin(ctx context.Context, email, name, passwordHash string) (*domain.Admin, error) {
	email = domain.NormalizeEmail(email)
	if !domain.ValidateEmail(email) {
		return nil, fmt.Errorf("invalid admin email %q", email)
	}
	if !IsBcryptHash(passwordHash) {
		return nil, errors.New("admin password hash must be a bcrypt hash")
	}
	if name == "" {
		name = "Admin"
	}

	admin := &domain.Admin{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.admins.UpsertAdmin(ctx, admin); err != nil {
		return nil, fmt.Errorf("upsert admin: %w", err)
	}
	return admin, nil
}
