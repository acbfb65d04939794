package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"portfolio/backend/internal/domain"
)

// MockRepository 模拟留言存储
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateMessage(ctx context.Context, message *domain.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockRepository) ListMessages(ctx context.Context, filter domain.MessageFilter) ([]domain.Message, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Message), args.Error(1)
}

func (m *MockRepository) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockRepository) MarkMessageRead(ctx context.Context, id string) (*domain.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockRepository) DeleteMessage(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) MessageStats(ctx context.Context, dayStart, weekStart time.Time) (*domain.MessageStats, error) {
	args := m.Called(ctx, dayStart, weekStart)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MessageStats), args.Error(1)
}

// stubAuth 固定令牌的认证器
type stubAuth struct {
	token string
	calls int
}

func (a *stubAuth) Validate(token string) (*domain.Admin, error) {
	a.calls++
	if token == "" || token != a.token {
		return nil, domain.ErrUnauthenticated
	}
	return &domain.Admin{ID: "admin-1", Name: "Admin", Email: "admin@example.com"}, nil
}
