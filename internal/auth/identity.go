// Package auth は認証・認可機能を提供します。
package auth

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/pawsitive-placements/internal/logger"
	"github.com/yourusername/pawsitive-placements/internal/session"
	"github.com/yourusername/pawsitive-placements/internal/users"
)

// Role は呼び出し元の種別です。
type Role string

const (
	RoleAnonymous Role = "anonymous"
	RoleUser      Role = "user"
	RoleAdmin     Role = "admin"
)

const (
	defaultAdminName = "Admin"
	defaultUserName  = "User"
)

// ContextIdentityKey は解決済みの Identity を gin.Context に保存するキーです。
const ContextIdentityKey = "auth.identity"

// Identity はリクエストごとに一度だけ解決される呼び出し元の情報です。
type Identity struct {
	Role        Role   `json:"role"`
	UserID      int64  `json:"userId,omitempty"`
	AdminID     int64  `json:"adminId,omitempty"`
	DisplayName string `json:"displayName,omitempty"`

	// named は DisplayName が既定値ではなく記録から得られたことを示す
	named bool
}

// UserIdentity はユーザーの Identity を作成します。name が空なら既定の表示名を使います。
func UserIdentity(userID int64, name string) Identity {
	if name == "" {
		return Identity{Role: RoleUser, UserID: userID, DisplayName: defaultUserName}
	}
	return Identity{Role: RoleUser, UserID: userID, DisplayName: name, named: true}
}

// AdminIdentity は管理者の Identity を作成します。firstName が空なら既定の表示名を使います。
func AdminIdentity(adminID int64, firstName string) Identity {
	if firstName == "" {
		return Identity{Role: RoleAdmin, AdminID: adminID, DisplayName: defaultAdminName}
	}
	return Identity{Role: RoleAdmin, AdminID: adminID, DisplayName: firstName, named: true}
}

// RecordName は記録から得られた表示名を返します。既定値の場合は false です。
func (i Identity) RecordName() (string, bool) {
	if !i.named {
		return "", false
	}
	return i.DisplayName, true
}

// LoggedIn はユーザーまたは管理者としてログイン済みかを返します。
func (i Identity) LoggedIn() bool {
	return i.Role == RoleUser || i.Role == RoleAdmin
}

// IsAdmin は管理者かを返します。
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// UserFinder は表示名の解決に使うユーザー参照です。
// 見つからない場合は (nil, nil) を返します。
type UserFinder interface {
	GetByID(ctx context.Context, id int64) (*users.User, error)
}

// Resolver はセッションのフラグから Identity を解決します。
type Resolver struct {
	users UserFinder
}

// NewResolver は Resolver を作成します。
func NewResolver(finder UserFinder) *Resolver {
	return &Resolver{users: finder}
}

// Resolve は呼び出し元を分類します。
// 管理者フラグはユーザーフラグより優先されます。表示名が得られない場合は既定値を使います。
func (r *Resolver) Resolve(ctx context.Context, sess *session.Session) Identity {
	identity, _ := r.resolve(ctx, sess)
	return identity
}

func (r *Resolver) resolve(ctx context.Context, sess *session.Session) (Identity, error) {
	if sess == nil {
		return Identity{Role: RoleAnonymous}, nil
	}
	data := sess.Values()

	switch {
	case data.AdminValid:
		return AdminIdentity(data.AdminID, data.AdminFirstName), nil

	case data.UserValid:
		if data.UserID <= 0 || r.users == nil {
			return UserIdentity(data.UserID, ""), nil
		}
		user, err := r.users.GetByID(ctx, data.UserID)
		if err != nil {
			return UserIdentity(data.UserID, ""), fmt.Errorf("display name lookup failed: %w", err)
		}
		if user == nil {
			return UserIdentity(data.UserID, ""), nil
		}
		return UserIdentity(data.UserID, user.Name), nil

	default:
		return Identity{Role: RoleAnonymous}, nil
	}
}

// Middleware はリクエストごとに Identity を解決して gin.Context に保存します。
// session.Manager のミドルウェアより後に登録してください。
func (r *Resolver) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := r.resolve(c.Request.Context(), session.From(c))
		if err != nil {
			logger.From(c).WithError(err).Warn("falling back to default display name")
		}
		c.Set(ContextIdentityKey, identity)
		c.Next()
	}
}

// IdentityFrom は解決済みの Identity を返します。未解決の場合は匿名です。
func IdentityFrom(c *gin.Context) Identity {
	if v, ok := c.Get(ContextIdentityKey); ok {
		if identity, ok := v.(Identity); ok {
			return identity
		}
	}
	return Identity{Role: RoleAnonymous}
}

func setIdentity(c *gin.Context, identity Identity) {
	c.Set(ContextIdentityKey, identity)
}
