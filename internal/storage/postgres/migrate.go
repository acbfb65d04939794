package postgres

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Direction 迁移方向
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// Migrate 使用内嵌的 SQL 文件执行数据库迁移，已是最新版本时直接返回
func Migrate(dsn string, direction Direction, log *zap.Logger) error {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, ToPgx5URL(dsn))
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		log.Info("no schema version found, starting from scratch")
	case err != nil:
		return fmt.Errorf("failed to read migration version: %w", err)
	case dirty:
		return fmt.Errorf("database is in dirty state at version %d, fix it manually", version)
	default:
		log.Info("current migration version", zap.Uint("version", version))
	}

	switch direction {
	case Up:
		err = m.Up()
	case Down:
		err = m.Down()
	default:
		return fmt.Errorf("unknown migration direction %q", direction)
	}
	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("database is up to date, no migrations to apply")
			return nil
		}
		return fmt.Errorf("migration %s failed: %w", direction, err)
	}

	if version, _, err := m.Version(); err == nil {
		log.Info("migrations applied", zap.String("direction", string(direction)), zap.Uint("version", version))
	} else {
		log.Info("migrations applied", zap.String("direction", string(direction)))
	}
	return nil
}

// ToPgx5URL 将 postgres:// 连接串转换为 golang-migrate pgx v5 驱动要求的 pgx5:// 形式
func ToPgx5URL(dsn string) string {
	for _, prefix := range []string{"postgresql:", "postgres:"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5:" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}
