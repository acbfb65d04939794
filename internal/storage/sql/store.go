package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"portfolio/backend/internal/config"
	"portfolio/backend/internal/domain"
)

// MySQL 与 PostgreSQL 的唯一约束冲突错误码
const (
	mysqlDuplicateEntry = 1062
	pqUniqueViolation   = "23505"
)

// Store 基于 GORM 的 SQL 存储实现（MySQL 5.7+ / PostgreSQL）
type Store struct {
	db *gorm.DB
}

// NewStore 打开数据库连接并按需执行 AutoMigrate
func NewStore(cfg *config.DatabaseConfig) (*Store, error) {
	var (
		sqlDB     *sql.DB
		dialector gorm.Dialector
		err       error
	)

	switch cfg.Type {
	case "mysql":
		dsn, err := normalizeMySQLDSN(cfg.DSN)
		if err != nil {
			return nil, err
		}
		if sqlDB, err = sql.Open("mysql", dsn); err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		dialector = mysql.New(mysql.Config{Conn: sqlDB})
	case "postgres":
		if sqlDB, err = sql.Open("postgres", cfg.DSN); err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		dialector = postgres.New(postgres.Config{Conn: sqlDB})
	default:
		return nil, fmt.Errorf("unsupported database driver: %s (supported: mysql, postgres)", cfg.Type)
	}

	// 设置连接池参数
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	gormDB, err := gorm.Open(dialector, newGormConfig())
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to initialize GORM: %w", err)
	}

	store := NewStoreWithDB(gormDB)
	if cfg.AutoMigrate {
		if err := store.Migrate(); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}
	return store, nil
}

// NewStoreWithDB 使用已有的 GORM 实例创建存储
func NewStoreWithDB(db *gorm.DB) *Store {
	return &Store{db: db}
}

func newGormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		TranslateError:         true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// normalizeMySQLDSN 强制 parseTime 与 UTC，保证 created_at 能扫描为 time.Time
func normalizeMySQLDSN(dsn string) (string, error) {
	parsed, err := gomysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid mysql DSN: %w", err)
	}
	parsed.ParseTime = true
	parsed.Loc = time.UTC
	return parsed.FormatDSN(), nil
}

// Migrate 执行 GORM AutoMigrate
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&domain.Message{}, &domain.Admin{})
}

// CreateMessage 插入新留言
func (s *Store) CreateMessage(ctx context.Context, m *domain.Message) error {
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		if isDuplicate(err) {
			return domain.ErrDuplicateID
		}
		return classify("create message", err)
	}
	return nil
}

// ListMessages 按过滤条件查询留言
func (s *Store) ListMessages(ctx context.Context, filter domain.MessageFilter) ([]domain.Message, error) {
	q := s.db.WithContext(ctx).Model(&domain.Message{})
	if filter.Read != nil {
		q = q.Where("is_read = ?", *filter.Read)
	}
	if filter.Oldest() {
		q = q.Order("created_at ASC").Order("id ASC")
	} else {
		q = q.Order("created_at DESC").Order("id DESC")
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	messages := make([]domain.Message, 0)
	if err := q.Find(&messages).Error; err != nil {
		return nil, classify("list messages", err)
	}
	return messages, nil
}

// GetMessage 根据 ID 查询留言
func (s *Store) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	var m domain.Message
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, classify("get message", err)
	}
	return &m, nil
}

// MarkMessageRead 标记已读后重新读取，MySQL 对未变化的行返回 0 影响行数，因此不依赖 RowsAffected
func (s *Store) MarkMessageRead(ctx context.Context, id string) (*domain.Message, error) {
	err := s.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("id = ?", id).
		Update("is_read", true).Error
	if err != nil {
		return nil, classify("mark message read", err)
	}
	return s.GetMessage(ctx, id)
}

// DeleteMessage 删除留言，未命中时返回 ErrNotFound
func (s *Store) DeleteMessage(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Message{})
	if res.Error != nil {
		return classify("delete message", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type statsRow struct {
	Total    int64
	Unread   int64
	Today    int64
	ThisWeek int64
}

// MessageStats 单条语句完成全部计数
func (s *Store) MessageStats(ctx context.Context, dayStart, weekStart time.Time) (*domain.MessageStats, error) {
	var row statsRow
	err := s.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) AS total,
		       COALESCE(SUM(CASE WHEN is_read = ? THEN 1 ELSE 0 END), 0) AS unread,
		       COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0) AS today,
		       COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0) AS this_week
		FROM contact_messages`,
		false, dayStart, weekStart,
	).Scan(&row).Error
	if err != nil {
		return nil, classify("message stats", err)
	}
	return &domain.MessageStats{
		Total:    row.Total,
		Unread:   row.Unread,
		Today:    row.Today,
		ThisWeek: row.ThisWeek,
	}, nil
}

// GetAdminByEmail 按邮箱查询管理员
func (s *Store) GetAdminByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	var a domain.Admin
	err := s.db.WithContext(ctx).Where("email = ?", domain.NormalizeEmail(email)).Take(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAdminNotFound
		}
		return nil, classify("get admin", err)
	}
	return &a, nil
}

// UpsertAdmin 按邮箱新增或更新管理员，冲突时保留原 ID
func (s *Store) UpsertAdmin(ctx context.Context, a *domain.Admin) error {
	a.Email = domain.NormalizeEmail(a.Email)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "password_hash"}),
	}).Create(a).Error
	if err != nil {
		return classify("upsert admin", err)
	}

	stored, err := s.GetAdminByEmail(ctx, a.Email)
	if err != nil {
		return err
	}
	a.ID = stored.ID
	return nil
}

// UpdateLastLogin 更新最近登录时间
func (s *Store) UpdateLastLogin(ctx context.Context, adminID string, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&domain.Admin{}).Where("id = ?", adminID).Update("last_login_at", at)
	if res.Error != nil {
		return classify("update last login", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrAdminNotFound
	}
	return nil
}

// Health 检查数据库健康状态
func (s *Store) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return domain.Unavailable("health", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return domain.Unavailable("ping", err)
	}
	return nil
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *gomysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return true
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation
}

// classify 区分 SQL 执行错误与连接类故障，后者统一包装为 ErrStoreUnavailable
func classify(op string, err error) error {
	var myErr *gomysql.MySQLError
	var pqErr *pq.Error
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	case errors.As(err, &myErr), errors.As(err, &pqErr):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return domain.Unavailable(op, err)
	}
}
