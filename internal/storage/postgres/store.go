package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"portfolio/backend/internal/domain"
)

const uniqueViolation = "23505"

// DBTX 是 Store 依赖的连接池能力，*pgxpool.Pool 与 pgxmock 均满足
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

const messageColumns = "id, name, email, body, is_read, created_at"

// Store PostgreSQL 存储实现，每个修改都是单条语句，依赖数据库行锁保证原子性
type Store struct {
	db DBTX
}

// NewStore 创建 PostgreSQL 存储实例
func NewStore(db DBTX) *Store {
	return &Store{db: db}
}

// CreateMessage 插入新留言
func (s *Store) CreateMessage(ctx context.Context, m *domain.Message) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO contact_messages (`+messageColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.Name, m.Email, m.Body, m.Read, m.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrDuplicateID
		}
		return classify("create message", err)
	}
	return nil
}

// ListMessages 按过滤条件查询留言
func (s *Store) ListMessages(ctx context.Context, filter domain.MessageFilter) ([]domain.Message, error) {
	query, args := buildListQuery(filter)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, classify("list messages", err)
	}
	defer rows.Close()

	messages := make([]domain.Message, 0)
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Body, &m.Read, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list messages", err)
	}
	return messages, nil
}

func buildListQuery(filter domain.MessageFilter) (string, []any) {
	var sb strings.Builder
	args := make([]any, 0, 3)

	sb.WriteString("SELECT " + messageColumns + " FROM contact_messages")
	if filter.Read != nil {
		args = append(args, *filter.Read)
		fmt.Fprintf(&sb, " WHERE is_read = $%d", len(args))
	}
	if filter.Oldest() {
		sb.WriteString(" ORDER BY created_at ASC, id ASC")
	} else {
		sb.WriteString(" ORDER BY created_at DESC, id DESC")
	}
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}
	return sb.String(), args
}

// GetMessage 根据 ID 查询留言
func (s *Store) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	row := s.db.QueryRow(ctx, `SELECT `+messageColumns+` FROM contact_messages WHERE id = $1`, id)
	return scanMessage("get message", row)
}

// MarkMessageRead 标记已读并返回最新状态
func (s *Store) MarkMessageRead(ctx context.Context, id string) (*domain.Message, error) {
	row := s.db.QueryRow(ctx,
		`UPDATE contact_messages SET is_read = TRUE WHERE id = $1 RETURNING `+messageColumns, id)
	return scanMessage("mark message read", row)
}

// DeleteMessage 删除留言，未命中时返回 ErrNotFound
func (s *Store) DeleteMessage(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM contact_messages WHERE id = $1`, id)
	if err != nil {
		return classify("delete message", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MessageStats 单条语句完成全部计数
func (s *Store) MessageStats(ctx context.Context, dayStart, weekStart time.Time) (*domain.MessageStats, error) {
	var stats domain.MessageStats
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE NOT is_read),
		       COUNT(*) FILTER (WHERE created_at >= $1),
		       COUNT(*) FILTER (WHERE created_at >= $2)
		FROM contact_messages`,
		dayStart, weekStart,
	).Scan(&stats.Total, &stats.Unread, &stats.Today, &stats.ThisWeek)
	if err != nil {
		return nil, classify("message stats", err)
	}
	return &stats, nil
}

// GetAdminByEmail 按邮箱查询管理员
func (s *Store) GetAdminByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	var a domain.Admin
	err := s.db.QueryRow(ctx,
		`SELECT id, name, email, password_hash, created_at, last_login_at FROM admins WHERE email = $1`,
		domain.NormalizeEmail(email),
	).Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.CreatedAt, &a.LastLoginAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAdminNotFound
		}
		return nil, classify("get admin", err)
	}
	return &a, nil
}

// UpsertAdmin 按邮箱新增或更新管理员，冲突时保留原 ID
func (s *Store) UpsertAdmin(ctx context.Context, a *domain.Admin) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO admins (id, name, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name, password_hash = EXCLUDED.password_hash
		RETURNING id`,
		a.ID, a.Name, domain.NormalizeEmail(a.Email), a.PasswordHash, a.CreatedAt,
	).Scan(&a.ID)
	if err != nil {
		return classify("upsert admin", err)
	}
	return nil
}

// UpdateLastLogin 更新最近登录时间
func (s *Store) UpdateLastLogin(ctx context.Context, adminID string, at time.Time) error {
	tag, err := s.db.Exec(ctx, `UPDATE admins SET last_login_at = $2 WHERE id = $1`, adminID, at)
	if err != nil {
		return classify("update last login", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAdminNotFound
	}
	return nil
}

// Health 检查数据库连通性
func (s *Store) Health(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return domain.Unavailable("ping", err)
	}
	return nil
}

// Close 关闭连接池
func (s *Store) Close() error {
	s.db.Close()
	return nil
}

func scanMessage(op string, row pgx.Row) (*domain.Message, error) {
	var m domain.Message
	if err := row.Scan(&m.ID, &m.Name, &m.Email, &m.Body, &m.Read, &m.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, classify(op, err)
	}
	return &m, nil
}

// classify 区分 SQL 执行错误与连接类故障，后者统一包装为 ErrStoreUnavailable
func classify(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return domain.Unavailable(op, err)
}
