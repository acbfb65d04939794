package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"portfolio/backend/internal/auth"
	jwtpkg "portfolio/backend/internal/auth/jwt"
	"portfolio/backend/internal/config"
	"portfolio/backend/internal/domain"
	"portfolio/backend/internal/storage"
	"portfolio/backend/internal/storage/postgres"
	sqlstore "portfolio/backend/internal/storage/sql"
)

func main() {
	email := flag.String("email", "", "管理员登录邮箱")
	password := flag.String("password", "", "管理员密码（8-72 字符）")
	name := flag.String("name", "Admin", "显示名称")
	dbType := flag.String("type", "", "数据库类型: postgres 或 mysql，留空只输出哈希")
	dsn := flag.String("dsn", "", "数据库连接字符串")
	useGORM := flag.Bool("gorm", false, "postgres 使用 GORM 存储")
	flag.Parse()

	if *email == "" || *password == "" {
		fmt.Println("Usage: create-admin -email=<email> -password=<password> [-name=<name>] [-type=postgres|mysql -dsn=<dsn>]")
		os.Exit(1)
	}

	normalized := domain.NormalizeEmail(*email)
	if !domain.ValidateEmail(normalized) {
		fmt.Println("Invalid email format")
		os.Exit(1)
	}

	if err := auth.ValidatePassword(*password); err != nil {
		fmt.Printf("Invalid password: %v\n", err)
		os.Exit(1)
	}

	hashedPassword, err := auth.HashPassword(*password)
	if err != nil {
		fmt.Printf("Failed to hash password: %v\n", err)
		os.Exit(1)
	}

	if *dbType == "" {
		fmt.Println("✓ Password hashed. Add these to your environment:")
		fmt.Printf("  PORTFOLIO_ADMIN_EMAIL=%s\n", normalized)
		fmt.Printf("  PORTFOLIO_ADMIN_NAME=%s\n", *name)
		fmt.Printf("  PORTFOLIO_ADMIN_PASSWORD_HASH='%s'\n", hashedPassword)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := openStore(ctx, &config.DatabaseConfig{
		Type:            *dbType,
		DSN:             *dsn,
		UseGORM:         *useGORM,
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	})
	if err != nil {
		fmt.Printf("Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	// 签名密钥仅为满足构造参数，不会签发令牌
	service := auth.NewService(store, jwtpkg.NewManager("create-admin", "create-admin", time.Minute), zap.NewNop())
	admin, err := service.SeedAdmin(ctx, normalized, *name, hashedPassword)
	if err != nil {
		fmt.Printf("Failed to save admin: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Admin saved successfully!\n")
	fmt.Printf("  ID:    %s\n", admin.ID)
	fmt.Printf("  Email: %s\n", admin.Email)
	fmt.Printf("  Name:  %s\n", admin.Name)
}

func openStore(ctx context.Context, cfg *config.DatabaseConfig) (storage.Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("-dsn is required when -type is set")
	}
	if cfg.Type == "postgres" && !cfg.UseGORM {
		pool, err := postgres.NewPool(ctx, cfg, zap.NewNop())
		if err != nil {
			return nil, err
		}
		return postgres.NewStore(pool), nil
	}
	return sqlstore.NewStore(cfg)
}
