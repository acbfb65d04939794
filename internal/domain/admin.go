package domain

import "time"

// Admin 后台管理员，仅通过配置或 create-admin 命令创建
type Admin struct {
	ID           string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name         string     `json:"name" gorm:"type:varchar(100);not null"`
	Email        string     `json:"email" gorm:"type:varchar(254);uniqueIndex;not null"`
	PasswordHash string     `json:"-" gorm:"type:varchar(255);not null"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
}

// TableName 指定 GORM 表名
func (Admin) TableName() string {
	return "admins"
}
