package newsletter

import (
	"context"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/yourusername/pawsitive-placements/internal/pagination"
)

var validate = validator.New()

// Repository は Service が使う永続化操作です。
type Repository interface {
	Upsert(ctx context.Context, in SubscribeInput) (Action, error)
	LinkAccount(ctx context.Context, email string, userID int64, name string) (int64, error)
	Count(ctx context.Context) (int, error)
	List(ctx context.Context, offset, limit int) ([]Subscription, error)
}

// Service は購読の入力検証と永続化をまとめます。
type Service struct {
	repo     Repository
	pageSize int
}

// NewService は Service を作成します。pageSize は管理画面の1ページあたりの件数です。
func NewService(repo Repository, pageSize int) *Service {
	if pageSize <= 0 {
		pageSize = 25
	}
	return &Service{repo: repo, pageSize: pageSize}
}

// Subscribe はメールアドレスを検証して購読を登録します。
func (s *Service) Subscribe(ctx context.Context, in SubscribeInput) (Result, error) {
	email, err := NormalizeEmail(in.Email)
	if err != nil {
		return Result{}, err
	}
	in.Email = email
	in.Source = sanitizeSource(in.Source)
	if in.UserID <= 0 {
		in.UserID = 0
		in.Name = ""
	}
	in.Name = truncate(strings.TrimSpace(in.Name), maxNameBytes)

	action, err := s.repo.Upsert(ctx, in)
	if err != nil {
		return Result{}, err
	}
	return Result{Action: action, Message: action.Message()}, nil
}

// LinkAccount は同じメールアドレスの未紐付け購読をアカウントに紐付けます。
func (s *Service) LinkAccount(ctx context.Context, email string, userID int64, name string) (int64, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return 0, err
	}
	if userID <= 0 {
		return 0, fmt.Errorf("newsletter: invalid user id %d", userID)
	}
	return s.repo.LinkAccount(ctx, normalized, userID, truncate(strings.TrimSpace(name), maxNameBytes))
}

// LinkSubscriptions は登録直後に同期的に紐付けを行います。
func (s *Service) LinkSubscriptions(ctx context.Context, email string, userID int64, name string) error {
	_, err := s.LinkAccount(ctx, email, userID, name)
	return err
}

// Listing は管理画面向けの購読一覧です。
type Listing struct {
	Subscriptions []Subscription    `json:"subscriptions"`
	Page          pagination.Page   `json:"page"`
	Window        pagination.Window `json:"window"`
}

// Page は指定ページの購読一覧を返します。範囲外のページは丸められます。
func (s *Service) Page(ctx context.Context, page int) (Listing, error) {
	total, err := s.repo.Count(ctx)
	if err != nil {
		return Listing{}, err
	}
	p := pagination.New(page, s.pageSize, total)
	subs, err := s.repo.List(ctx, p.Offset, p.PerPage)
	if err != nil {
		return Listing{}, err
	}
	return Listing{
		Subscriptions: subs,
		Page:          p,
		Window:        p.Window(2),
	}, nil
}

// NormalizeEmail は前後の空白を除いて小文字化し、形式を検証します。
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validate.Var(email, "required,email,max=255"); err != nil {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func sanitizeSource(source string) string {
	source = strings.TrimSpace(source)
	if source == "" {
		return DefaultSource
	}
	escaped := truncate(html.EscapeString(source), maxSourceBytes)
	// 切り詰めで途中になった文字参照は落とす
	if i := strings.LastIndexByte(escaped, '&'); i >= 0 && !strings.Contains(escaped[i:], ";") {
		escaped = escaped[:i]
	}
	return escaped
}

// truncate は UTF-8 の境界を保ったまま limit バイト以内に切り詰めます。
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	s = s[:limit]
	for !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
