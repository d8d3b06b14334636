package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-sql-driver/mysql"
	"golang.org/x/crypto/bcrypt"
)

const mysqlDuplicateEntry = 1062

var validate = validator.New()

// Store は users / admins テーブルへのアクセスを提供します。
type Store struct {
	db *sql.DB
}

// NewStore は Store を作成します。
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// GetByID はユーザーを取得します。存在しない場合は (nil, nil) を返します。
func (s *Store) GetByID(ctx context.Context, id int64) (*User, error) {
	if id <= 0 {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id, name, username, email, COALESCE(phone, ''), password, account_status, created_at
		 FROM users WHERE user_id = ? LIMIT 1`, id)
	user, err := scanUser(row)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return user, err
}

// Authenticate はユーザー名とパスワードを検証します。
// 認証情報が一致しない、またはアカウントが停止中の場合は (nil, nil) を返します。
func (s *Store) Authenticate(ctx context.Context, username, password string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id, name, username, email, COALESCE(phone, ''), password, account_status, created_at
		 FROM users WHERE username = ? LIMIT 1`, username)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil
	}
	if !user.Active() {
		return nil, nil
	}
	return user, nil
}

// Create はユーザーを登録し、採番されたIDを返します。
func (s *Store) Create(ctx context.Context, in NewUser) (int64, error) {
	in = normalize(in)
	if err := validate.Struct(in); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("failed to hash password: %w", err)
	}

	var phone any
	if in.Phone != "" {
		phone = in.Phone
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (name, username, email, phone, password) VALUES (?, ?, ?, ?, ?)`,
		in.Name, in.Username, in.Email, phone, string(hashed))
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return 0, ErrDuplicate
		}
		return 0, fmt.Errorf("failed to insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read user id: %w", err)
	}
	return id, nil
}

// AuthenticateAdmin は管理者の認証を行います。一致しない場合は (nil, nil) を返します。
func (s *Store) AuthenticateAdmin(ctx context.Context, username, password string) (*Admin, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, nil
	}
	var admin Admin
	err := s.db.QueryRowContext(ctx,
		`SELECT admin_id, first_name, username, password FROM admins WHERE username = ? LIMIT 1`, username).
		Scan(&admin.ID, &admin.FirstName, &admin.Username, &admin.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query admin: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) != nil {
		return nil, nil
	}
	return &admin, nil
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Username, &u.Email, &u.Phone, &u.PasswordHash, &u.AccountStatus, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &u, nil
}

func normalize(in NewUser) NewUser {
	in.Name = strings.TrimSpace(in.Name)
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	return in
}
