package auth

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// 密码长度限制
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72 // bcrypt 只处理前 72 字节
)

var (
	// ErrPasswordTooShort 密码过短
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	// ErrPasswordTooLong 密码过长
	ErrPasswordTooLong = fmt.Errorf("password must be at most %d bytes", MaxPasswordLength)
)

// HashPassword 使用 bcrypt 哈希密码
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword 以常量时间比较密码与哈希
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePassword 校验管理员密码强度，仅用于 create-admin
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}

// IsBcryptHash 判断字符串是否为可用的 bcrypt 哈希
func IsBcryptHash(hash string) bool {
	_, err := bcrypt.Cost([]byte(hash))
	return err == nil
}

var (
	dummyOnce sync.Once
	dummyHash []byte
)

// compareDummy 对不存在的账号执行一次等价的 bcrypt 比较，使耗时与真实账号一致
func compareDummy(password string) {
	dummyOnce.Do(func() {
		var err error
		dummyHash, err = bcrypt.GenerateFromPassword([]byte("portfolio-dummy-password"), bcrypt.DefaultCost)
		if err != nil {
			panic(errors.Join(errors.New("generate dummy hash"), err))
		}
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}
