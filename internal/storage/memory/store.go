package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"portfolio/backend/internal/domain"
)

// Store 使用内存保存留言与管理员，用于开发环境和测试。
type Store struct {
	mu       sync.RWMutex
	messages map[string]*domain.Message // messageID -> message
	admins   map[string]*domain.Admin   // adminID -> admin
	byEmail  map[string]string          // email -> adminID
}

// NewStore 创建一个内存存储实例。
func NewStore() *Store {
	return &Store{
		messages: make(map[string]*domain.Message),
		admins:   make(map[string]*domain.Admin),
		byEmail:  make(map[string]string),
	}
}

// CreateMessage 保存新留言，ID 重复时拒绝写入。
func (s *Store) CreateMessage(_ context.Context, message *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.messages[message.ID]; exists {
		return domain.ErrDuplicateID
	}

	copied := *message
	s.messages[message.ID] = &copied
	return nil
}

// ListMessages 按过滤条件返回留言副本，默认最新在前。
func (s *Store) ListMessages(_ context.Context, filter domain.MessageFilter) ([]domain.Message, error) {
	s.mu.RLock()
	result := make([]domain.Message, 0, len(s.messages))
	for _, msg := range s.messages {
		if filter.Matches(msg) {
			result = append(result, *msg)
		}
	}
	s.mu.RUnlock()

	oldest := filter.Oldest()
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if oldest {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		if oldest {
			return a.ID < b.ID
		}
		return a.ID > b.ID
	})

	return paginate(result, filter.Offset, filter.Limit), nil
}

// GetMessage 根据 ID 获取留言。
func (s *Store) GetMessage(_ context.Context, id string) (*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.messages[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *msg
	return &copied, nil
}

// MarkMessageRead 标记留言为已读，重复调用结果相同。
func (s *Store) MarkMessageRead(_ context.Context, id string) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	msg.Read = true
	copied := *msg
	return &copied, nil
}

// DeleteMessage 删除留言，已删除的留言再次删除返回 ErrNotFound。
func (s *Store) DeleteMessage(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.messages, id)
	return nil
}

// MessageStats 在一次读锁内完成全部计数。
func (s *Store) MessageStats(_ context.Context, dayStart, weekStart time.Time) (*domain.MessageStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &domain.MessageStats{Total: int64(len(s.messages))}
	for _, msg := range s.messages {
		if !msg.Read {
			stats.Unread++
		}
		if !msg.CreatedAt.Before(dayStart) {
			stats.Today++
		}
		if !msg.CreatedAt.Before(weekStart) {
			stats.ThisWeek++
		}
	}
	return stats, nil
}

// Health 内存存储始终可用。
func (s *Store) Health(context.Context) error {
	return nil
}

// Close 内存存储无需释放资源。
func (s *Store) Close() error {
	return nil
}

func paginate(items []domain.Message, offset, limit int) []domain.Message {
	if offset > 0 {
		if offset >= len(items) {
			return []domain.Message{}
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
