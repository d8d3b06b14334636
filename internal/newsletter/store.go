package newsletter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Store は newsletter_subscriptions テーブルへのアクセスを提供します。
type Store struct {
	db *sql.DB
}

// NewStore は Store を作成します。
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Upsert はメールアドレスの購読を登録または再開します。
// 同じアドレスへの同時リクエストは行ロックで直列化されます。
func (s *Store) Upsert(ctx context.Context, in SubscribeInput) (Action, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var (
		id     int64
		status string
	)
	err = tx.QueryRowContext(ctx,
		`SELECT id, status FROM newsletter_subscriptions WHERE email = ? LIMIT 1 FOR UPDATE`,
		in.Email).Scan(&id, &status)

	var action Action
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO newsletter_subscriptions (email, user_id, name, source, status)
			 VALUES (?, ?, ?, ?, ?)`,
			in.Email, nullID(in.UserID), nullString(in.Name), in.Source, StatusActive); err != nil {
			return "", fmt.Errorf("insert subscription: %w", err)
		}
		action = ActionSubscribed

	case err != nil:
		return "", fmt.Errorf("lookup subscription: %w", err)

	case status == StatusActive:
		if in.UserID > 0 {
			if _, err := tx.ExecContext(ctx,
				`UPDATE newsletter_subscriptions
				 SET user_id = COALESCE(NULLIF(user_id, 0), ?), name = COALESCE(name, ?)
				 WHERE id = ?`,
				in.UserID, nullString(in.Name), id); err != nil {
				return "", fmt.Errorf("attach account: %w", err)
			}
		}
		action = ActionAlreadySubscribed

	default:
		if _, err := tx.ExecContext(ctx,
			`UPDATE newsletter_subscriptions
			 SET status = ?, source = ?, subscribed_at = CURRENT_TIMESTAMP,
			     user_id = COALESCE(NULLIF(user_id, 0), ?), name = COALESCE(name, ?)
			 WHERE id = ?`,
			StatusActive, in.Source, nullID(in.UserID), nullString(in.Name), id); err != nil {
			return "", fmt.Errorf("reactivate subscription: %w", err)
		}
		action = ActionResubscribed
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit subscription: %w", err)
	}
	return action, nil
}

// LinkAccount はアカウント未紐付けの購読をユーザーに紐付け、更新件数を返します。
func (s *Store) LinkAccount(ctx context.Context, email string, userID int64, name string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE newsletter_subscriptions
		 SET user_id = ?, name = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE email = ? AND (user_id IS NULL OR user_id = 0)`,
		userID, name, email)
	if err != nil {
		return 0, fmt.Errorf("link subscriptions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("link subscriptions: %w", err)
	}
	return n, nil
}

// Count は購読件数を返します。
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM newsletter_subscriptions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count subscriptions: %w", err)
	}
	return n, nil
}

// List は新しい順に購読を返します。
func (s *Store) List(ctx context.Context, offset, limit int) ([]Subscription, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email, COALESCE(user_id, 0), COALESCE(name, ''), source, status, subscribed_at
		 FROM newsletter_subscriptions
		 ORDER BY subscribed_at DESC, id DESC
		 LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	subs := make([]Subscription, 0, limit)
	for rows.Next() {
		var sub Subscription
		if err := rows.Scan(&sub.ID, &sub.Email, &sub.UserID, &sub.Name,
			&sub.Source, &sub.Status, &sub.SubscribedAt); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return subs, nil
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id > 0}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
