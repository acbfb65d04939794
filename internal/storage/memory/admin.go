package memory

import (
	"context"
	"time"

	"portfolio/backend/internal/domain"
)

// GetAdminByEmail 按登录邮箱查找管理员（不区分大小写）。
func (s *Store) GetAdminByEmail(_ context.Context, email string) (*domain.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[domain.NormalizeEmail(email)]
	if !ok {
		return nil, domain.ErrAdminNotFound
	}
	copied := *s.admins[id]
	return &copied, nil
}

// UpsertAdmin 按邮箱新增或覆盖管理员。
func (s *Store) UpsertAdmin(_ context.Context, admin *domain.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := domain.NormalizeEmail(admin.Email)
	copied := *admin
	copied.Email = email

	if existingID, ok := s.byEmail[email]; ok && existingID != admin.ID {
		copied.ID = existingID
		copied.CreatedAt = s.admins[existingID].CreatedAt
	}

	s.admins[copied.ID] = &copied
	s.byEmail[email] = copied.ID
	admin.ID = copied.ID
	return nil
}

// UpdateLastLogin 记录最近一次登录时间。
func (s *Store) UpdateLastLogin(_ context.Context, adminID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	admin, ok := s.admins[adminID]
	if !ok {
		return domain.ErrAdminNotFound
	}
	t := at
	admin.LastLoginAt = &t
	return nil
}
