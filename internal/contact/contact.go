// Package contact は問い合わせフォームの受付を提供します。
package contact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var ErrInvalidInput = errors.New("contact: invalid input")

var validate = validator.New()

// Message は問い合わせ内容です。UserID が 0 の場合は未ログインの送信です。
type Message struct {
	Name    string `validate:"required,max=100"`
	Email   string `validate:"required,email,max=255"`
	Subject string `validate:"required,max=150"`
	Body    string `validate:"required,max=5000"`
	UserID  int64  `validate:"gte=0"`
}

// Store は contact_messages テーブルへのアクセスを提供します。
type Store struct {
	db *sql.DB
}

// NewStore は Store を作成します。
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Submit は入力を検証して保存し、採番されたIDを返します。
func (s *Store) Submit(ctx context.Context, msg Message) (int64, error) {
	msg.Name = strings.TrimSpace(msg.Name)
	msg.Email = strings.ToLower(strings.TrimSpace(msg.Email))
	msg.Subject = strings.TrimSpace(msg.Subject)
	msg.Body = strings.TrimSpace(msg.Body)

	if err := validate.Struct(msg); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	userID := sql.NullInt64{Int64: msg.UserID, Valid: msg.UserID > 0}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO contact_messages (name, email, subject, message, user_id) VALUES (?, ?, ?, ?, ?)`,
		msg.Name, msg.Email, msg.Subject, msg.Body, userID)
	if err != nil {
		return 0, fmt.Errorf("insert contact message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert contact message: %w", err)
	}
	return id, nil
}
