// Package users は一般ユーザーと管理者アカウントの永続化を提供します。
package users

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("users: not found")
	ErrDuplicate    = errors.New("users: username or email already registered")
	ErrInvalidInput = errors.New("users: invalid input")
)

// アカウント状態
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
	StatusBanned    = "banned"
)

// User は一般ユーザーです。
type User struct {
	ID            int64
	Name          string
	Username      string
	Email         string
	Phone         string
	PasswordHash  string
	AccountStatus string
	CreatedAt     time.Time
}

// Active はアカウントが利用可能かを返します。
func (u *User) Active() bool {
	return u.AccountStatus == "" || u.AccountStatus == StatusActive
}

// Admin は管理者アカウントです。
type Admin struct {
	ID           int64
	FirstName    string
	Username     string
	PasswordHash string
}

// NewUser は登録フォームの入力です。
type NewUser struct {
	Name     string `validate:"required,max=100"`
	Username string `validate:"required,min=3,max=50,alphanum"`
	Email    string `validate:"required,email,max=255"`
	Phone    string `validate:"omitempty,max=30"`
	Password string `validate:"required,min=8,max=72"`
}
