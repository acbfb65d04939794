package service

import (
	"context"

	"portfolio/backend/internal/domain"
)

// PublicAPI 无需认证的访客接口
type PublicAPI interface {
	Submit(ctx context.Context, input domain.ContactInput) (*domain.Message, error)
}

// ProtectedAPI 管理员收件箱接口，每次调用都显式携带令牌
type ProtectedAPI interface {
	ListMessages(ctx context.Context, token string, filter domain.MessageFilter) ([]domain.Message, error)
	QueryMessages(ctx context.Context, token string, query domain.MessageQuery) ([]domain.Message, error)
	GetMessage(ctx context.Context, token, id string) (*domain.Message, error)
	GetStats(ctx context.Context, token string) (*domain.MessageStats, error)
	MarkAsRead(ctx context.Context, token, id string) (*MarkReadResult, error)
	DeleteMessage(ctx context.Context, token, id string) (*domain.MessageStats, error)
}

// Authenticator 校验管理员令牌
type Authenticator interface {
	Validate(token string) (*domain.Admin, error)
}

var (
	_ PublicAPI    = (*SubmissionService)(nil)
	_ ProtectedAPI = (*InboxService)(nil)
)
