package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"portfolio/backend/internal/domain"
	"portfolio/backend/internal/monitoring"
	"portfolio/backend/internal/storage"
)

// 单次列表查询的最大条数
const MaxListLimit = 500

// MarkReadResult 标记已读后的留言与最新统计
type MarkReadResult struct {
	Message *domain.Message      `json:"message"`
	Stats   *domain.MessageStats `json:"stats,omitempty"`
}

// InboxService 管理员收件箱业务
//
// 每个方法先校验令牌，失败时直接返回 domain.ErrUnauthenticated，不访问存储。
// 统计数据每次都从存储重新计算。
type InboxService struct {
	repo     storage.MessageRepository
	auth     Authenticator
	location *time.Location
	metrics  *monitoring.Metrics
	log      *zap.Logger
	now      func() time.Time
}

// NewInboxService 创建收件箱服务，loc 为计算 "今天" 所用的时区
func NewInboxService(repo storage.MessageRepository, auth Authenticator, loc *time.Location, metrics *monitoring.Metrics, log *zap.Logger) *InboxService {
	if loc == nil {
		loc = time.UTC
	}
	return &InboxService{
		repo:     repo,
		auth:     auth,
		location: loc,
		metrics:  metrics,
		log:      log,
		now:      time.Now,
	}
}

func (s *InboxService) authorize(token string) (*domain.Admin, error) {
	admin, err := s.auth.Validate(token)
	if err != nil {
		s.metrics.RecordAuthRejection()
		return nil, domain.ErrUnauthenticated
	}
	return admin, nil
}

// ListMessages 按过滤条件列出留言
func (s *InboxService) ListMessages(ctx context.Context, token string, filter domain.MessageFilter) ([]domain.Message, error) {
	if _, err := s.authorize(token); err != nil {
		return nil, err
	}
	return s.list(ctx, filter)
}

// QueryMessages 先校验令牌，再解析原始查询参数并列出留言
func (s *InboxService) QueryMessages(ctx context.Context, token string, query domain.MessageQuery) ([]domain.Message, error) {
	if _, err := s.authorize(token); err != nil {
		return nil, err
	}
	filter, err := domain.ParseMessageQuery(query)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, filter)
}

func (s *InboxService) list(ctx context.Context, filter domain.MessageFilter) ([]domain.Message, error) {
	if err := validateFilter(filter); err != nil {
		return nil, err
	}

	messages, err := s.repo.ListMessages(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return messages, nil
}

// GetMessage 获取单条留言
func (s *InboxService) GetMessage(ctx context.Context, token, id string) (*domain.Message, error) {
	if _, err := s.authorize(token); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, domain.ErrNotFound
	}
	return s.repo.GetMessage(ctx, id)
}

// GetStats 返回收件箱统计
func (s *InboxService) GetStats(ctx context.Context, token string) (*domain.MessageStats, error) {
	if _, err := s.authorize(token); err != nil {
		return nil, err
	}
	return s.stats(ctx)
}

// MarkAsRead 标记留言为已读，重复调用结果相同
func (s *InboxService) MarkAsRead(ctx context.Context, token, id string) (*MarkReadResult, error) {
	admin, err := s.authorize(token)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, domain.ErrNotFound
	}

	message, err := s.repo.MarkMessageRead(ctx, id)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordMarkRead()
	s.log.Debug("message marked as read", zap.String("message_id", id), zap.String("admin_id", admin.ID))

	return &MarkReadResult{Message: message, Stats: s.statsAfterMutation(ctx, id)}, nil
}

// DeleteMessage 删除留言并返回删除后的统计
func (s *InboxService) DeleteMessage(ctx context.Context, token, id string) (*domain.MessageStats, error) {
	admin, err := s.authorize(token)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, domain.ErrNotFound
	}

	if err := s.repo.DeleteMessage(ctx, id); err != nil {
		return nil, err
	}
	s.metrics.RecordMessageDeleted()
	s.log.Info("message deleted", zap.String("message_id", id), zap.String("admin_id", admin.ID))

	return s.statsAfterMutation(ctx, id), nil
}

// StatsWindow 返回统计窗口起点：当天零点（配置时区）与 7×24 小时前
func (s *InboxService) StatsWindow() (dayStart, weekStart time.Time) {
	now := s.now().In(s.location)
	y, m, d := now.Date()
	dayStart = time.Date(y, m, d, 0, 0, 0, 0, s.location)
	weekStart = now.Add(-7 * 24 * time.Hour)
	return dayStart.UTC(), weekStart.UTC()
}

func (s *InboxService) stats(ctx context.Context) (*domain.MessageStats, error) {
	dayStart, weekStart := s.StatsWindow()
	stats, err := s.repo.MessageStats(ctx, dayStart, weekStart)
	if err != nil {
		return nil, fmt.Errorf("message stats: %w", err)
	}
	s.metrics.UpdateUnread(stats.Unread)
	return stats, nil
}

// 变更已生效，统计失败只记录日志
func (s *InboxService) statsAfterMutation(ctx context.Context, id string) *domain.MessageStats {
	stats, err := s.stats(ctx)
	if err != nil {
		s.log.Warn("failed to recompute stats", zap.String("message_id", id), zap.Error(err))
		return nil
	}
	return stats
}

func validateFilter(filter domain.MessageFilter) error {
	switch filter.Order {
	case "", domain.OrderNewest, domain.OrderOldest:
	default:
		return domain.NewValidationError("order", "order must be newest or oldest")
	}
	if filter.Limit < 0 || filter.Limit > MaxListLimit {
		return domain.NewValidationError("limit", fmt.Sprintf("limit must be between 0 and %d", MaxListLimit))
	}
	if filter.Offset < 0 {
		return domain.NewValidationError("offset", "offset must not be negative")
	}
	return nil
}
