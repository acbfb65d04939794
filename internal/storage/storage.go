package storage

import (
	"context"
	"time"

	"portfolio/backend/internal/domain"
)

// MessageRepository 定义留言数据存取操作。
//
// 所有实现都必须保证单条留言上的修改是原子的：同一 ID 的并发删除只有一次成功，
// 并发标记已读最终一致。
type MessageRepository interface {
	CreateMessage(ctx context.Context, message *domain.Message) error
	ListMessages(ctx context.Context, filter domain.MessageFilter) ([]domain.Message, error)
	GetMessage(ctx context.Context, id string) (*domain.Message, error)
	MarkMessageRead(ctx context.Context, id string) (*domain.Message, error)
	DeleteMessage(ctx context.Context, id string) error
	// MessageStats 基于同一快照统计，dayStart/weekStart 由调用方按时区计算
	MessageStats(ctx context.Context, dayStart, weekStart time.Time) (*domain.MessageStats, error)
}

// AdminRepository 定义管理员数据存取操作。
type AdminRepository interface {
	GetAdminByEmail(ctx context.Context, email string) (*domain.Admin, error)
	UpsertAdmin(ctx context.Context, admin *domain.Admin) error
	UpdateLastLogin(ctx context.Context, adminID string, at time.Time) error
}

// Store 聚合所有存储接口，便于依赖注入。
type Store interface {
	MessageRepository
	AdminRepository

	Health(ctx context.Context) error
	Close() error
}
