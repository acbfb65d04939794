package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"portfolio/backend/internal/domain"
	"portfolio/backend/internal/monitoring"
	"portfolio/backend/internal/storage"
)

// ID 冲突时的最大重试次数
const maxCreateAttempts = 3

// createdAtPrecision 各存储后端都能原样保存的时间精度（MySQL datetime(3)）
const createdAtPrecision = time.Millisecond

// ContentChecker 留言内容检查，拒绝时返回 *domain.ValidationError
type ContentChecker interface {
	Check(input domain.ContactInput) error
}

// SubmissionService 处理访客留言提交
type SubmissionService struct {
	repo    storage.MessageRepository
	limits  domain.ContactLimits
	filter  ContentChecker // 内容过滤（可选）
	metrics *monitoring.Metrics
	log     *zap.Logger
	now     func() time.Time
	newID   func() string
}

// NewSubmissionService 创建留言提交服务，metrics 可为 nil
func NewSubmissionService(repo storage.MessageRepository, limits domain.ContactLimits, metrics *monitoring.Metrics, log *zap.Logger) *SubmissionService {
	return &SubmissionService{
		repo:    repo,
		limits:  limits,
		metrics: metrics,
		log:     log,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// SetContentFilter 设置内容过滤器
func (s *SubmissionService) SetContentFilter(filter ContentChecker) {
	s.filter = filter
}

// Submit 校验并保存一条留言，新留言为未读状态
func (s *SubmissionService) Submit(ctx context.Context, input domain.ContactInput) (*domain.Message, error) {
	clean, err := domain.ValidateContactInput(input, s.limits)
	if err != nil {
		return nil, err
	}
	if s.filter != nil {
		if err := s.filter.Check(clean); err != nil {
			s.metrics.RecordError("content_rejected", "submission")
			s.log.Info("contact message rejected by content filter", zap.Error(err))
			return nil, err
		}
	}

	message := &domain.Message{
		Name:      clean.Name,
		Email:     clean.Email,
		Body:      clean.Message,
		Read:      false,
		CreatedAt: s.now().UTC().Truncate(createdAtPrecision),
	}

	for attempt := 1; ; attempt++ {
		message.ID = s.newID()
		err = s.repo.CreateMessage(ctx, message)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrDuplicateID) || attempt >= maxCreateAttempts {
			s.log.Error("failed to save contact message", zap.Error(err))
			s.metrics.RecordError("create_message", "submission")
			return nil, fmt.Errorf("save message: %w", err)
		}
		s.log.Warn("message id collision, retrying", zap.String("message_id", message.ID))
	}

	s.metrics.RecordMessageSubmitted()
	s.log.Info("contact message received",
		zap.String("message_id", message.ID),
		zap.Int("body_length", len(message.Body)),
	)
	return message, nil
}
