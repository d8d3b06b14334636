package auth

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/pawsitive-placements/internal/logger"
	"github.com/yourusername/pawsitive-placements/internal/session"
	"github.com/yourusername/pawsitive-placements/internal/users"
)

var (
	loginWindow      = 15 * time.Minute
	lockDuration     = 10 * time.Minute
	maxLoginAttempts = 5
)

// Accounts はログイン・登録に必要なアカウント操作です。
type Accounts interface {
	UserFinder
	Authenticate(ctx context.Context, username, password string) (*users.User, error)
	AuthenticateAdmin(ctx context.Context, username, password string) (*users.Admin, error)
	Create(ctx context.Context, in users.NewUser) (int64, error)
}

// SubscriptionLinker は登録済みメールアドレスのニュースレター購読をアカウントに紐付けます。
type SubscriptionLinker interface {
	LinkSubscriptions(ctx context.Context, email string, userID int64, name string) error
}

type attemptState struct {
	count        int
	firstAttempt time.Time
	lockedUntil  time.Time
}

// Manager は認証処理と状態をまとめた構造体です。
type Manager struct {
	accounts Accounts
	sessions *session.Manager
	linker   SubscriptionLinker
	baseURL  string
	now      func() time.Time

	lock     sync.Mutex
	attempts map[string]*attemptState
}

// NewManager は認証マネージャーを作成します。linker は nil でも構いません。
func NewManager(accounts Accounts, sessions *session.Manager, linker SubscriptionLinker, baseURL string) *Manager {
	return &Manager{
		accounts: accounts,
		sessions: sessions,
		linker:   linker,
		baseURL:  baseURL,
		now:      time.Now,
		attempts: make(map[string]*attemptState),
	}
}

type loginRequest struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
}

type registerRequest struct {
	Name     string `form:"name" json:"name" binding:"required"`
	Username string `form:"username" json:"username" binding:"required"`
	Email    string `form:"email" json:"email" binding:"required"`
	Phone    string `form:"phone" json:"phone"`
	Password string `form:"password" json:"password" binding:"required"`
}

// Login は POST /api/auth/login のハンドラーです。
func (m *Manager) Login(c *gin.Context) {
	var req loginRequest
	if !m.bindLogin(c, &req) {
		return
	}

	user, err := m.accounts.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		logger.From(c).WithError(err).Error("user authentication failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "INTERNAL_ERROR",
			"message": "ログイン処理に失敗しました",
		})
		return
	}
	if user == nil {
		m.rejectCredentials(c)
		return
	}

	m.resetAttempts(c.ClientIP())

	identity := UserIdentity(user.ID, user.Name)
	m.signIn(c, func(d *session.Data) {
		d.UserValid = true
		d.UserID = user.ID
		d.AdminValid = false
		d.AdminID = 0
		d.AdminFirstName = ""
	}, identity)
}

// AdminLogin は POST /api/auth/admin/login のハンドラーです。
func (m *Manager) AdminLogin(c *gin.Context) {
	var req loginRequest
	if !m.bindLogin(c, &req) {
		return
	}

	admin, err := m.accounts.AuthenticateAdmin(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		logger.From(c).WithError(err).Error("admin authentication failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "INTERNAL_ERROR",
			"message": "ログイン処理に失敗しました",
		})
		return
	}
	if admin == nil {
		m.rejectCredentials(c)
		return
	}

	m.resetAttempts(c.ClientIP())

	identity := AdminIdentity(admin.ID, admin.FirstName)
	m.signIn(c, func(d *session.Data) {
		d.AdminValid = true
		d.AdminID = admin.ID
		d.AdminFirstName = admin.FirstName
		d.UserValid = false
		d.UserID = 0
	}, identity)
}

// Logout は POST /api/auth/logout のハンドラーです。
func (m *Manager) Logout(c *gin.Context) {
	sess := session.From(c)
	if sess != nil {
		if err := m.sessions.Destroy(c, sess); err != nil {
			logger.From(c).WithError(err).Error("failed to destroy session")
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    "SESSION_SAVE_FAILED",
				"message": "セッションの削除に失敗しました",
			})
			return
		}
	}
	setIdentity(c, Identity{Role: RoleAnonymous})
	c.Status(http.StatusNoContent)
}

// Register は POST /api/auth/register のハンドラーです。
func (m *Manager) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"code":    "INVALID_INPUT",
			"message": "name, username, email, password は必須です",
		})
		return
	}

	in := users.NewUser{
		Name:     req.Name,
		Username: req.Username,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	}
	id, err := m.accounts.Create(c.Request.Context(), in)
	switch {
	case errors.Is(err, users.ErrInvalidInput):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"code":    "INVALID_INPUT",
			"message": "入力内容を確認してください",
		})
		return
	case errors.Is(err, users.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{
			"code":    "ACCOUNT_EXISTS",
			"message": "そのユーザー名またはメールアドレスは既に登録されています",
		})
		return
	case err != nil:
		logger.From(c).WithError(err).Error("failed to register user")
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "INTERNAL_ERROR",
			"message": "登録処理に失敗しました",
		})
		return
	}

	// 購読の紐付けは登録の成否に影響させない
	if m.linker != nil {
		if err := m.linker.LinkSubscriptions(c.Request.Context(), req.Email, id, req.Name); err != nil {
			logger.From(c).WithError(err).WithField("userId", id).Warn("failed to link newsletter subscription")
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"userId":   id,
		"redirect": m.baseURL + "/",
	})
}

// Session は GET /api/session のハンドラーです。解決済みの Identity と CSRF トークンを返します。
func (m *Manager) Session(c *gin.Context) {
	token, err := IssueToken(session.From(c))
	if err != nil {
		logger.From(c).WithError(err).Error("failed to issue csrf token")
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "TOKEN_GENERATION_FAILED",
			"message": "CSRF トークンの生成に失敗しました",
		})
		return
	}
	c.Header(CSRFHeader, token)
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, gin.H{
		"identity":  IdentityFrom(c),
		"csrfToken": token,
	})
}

// Account は GET /api/account のハンドラーです。
func (m *Manager) Account(c *gin.Context) {
	identity := IdentityFrom(c)
	user, err := m.accounts.GetByID(c.Request.Context(), identity.UserID)
	if err != nil {
		logger.From(c).WithError(err).Error("failed to load account")
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "INTERNAL_ERROR",
			"message": "アカウント情報の取得に失敗しました",
		})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "ACCOUNT_NOT_FOUND",
			"message": "アカウントが見つかりません",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"userId":   user.ID,
		"name":     user.Name,
		"username": user.Username,
		"email":    user.Email,
		"phone":    user.Phone,
	})
}

func (m *Manager) bindLogin(c *gin.Context, req *loginRequest) bool {
	if err := c.ShouldBind(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "INVALID_INPUT",
			"message": "username と password を送ってください",
		})
		return false
	}

	if retryAfter := m.checkLock(c.ClientIP()); retryAfter > 0 {
		// Retry-After は秒数で返す
		c.Header("Retry-After", strconv.FormatInt(int64(retryAfter.Seconds()), 10))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"code":    "TOO_MANY_ATTEMPTS",
			"message": "一定時間後に再度お試しください",
		})
		return false
	}
	return true
}

func (m *Manager) rejectCredentials(c *gin.Context) {
	remaining := m.recordFailure(c.ClientIP())
	c.JSON(http.StatusUnauthorized, gin.H{
		"code":              "INVALID_CREDENTIALS",
		"message":           "ユーザー名またはパスワードが正しくありません",
		"remainingAttempts": remaining,
	})
}

// signIn はロールのフラグを書き込み、セッションIDを再発行します。
// CSRF トークンはそのまま引き継がれます。
func (m *Manager) signIn(c *gin.Context, apply func(*session.Data), identity Identity) {
	sess := session.From(c)
	if sess == nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "SESSION_MISSING",
			"message": "セッションが開始されていません",
		})
		return
	}
	sess.Update(apply)
	if err := m.sessions.Regenerate(c, sess); err != nil {
		logger.From(c).WithError(err).Warn("failed to regenerate session id on login")
	}
	setIdentity(c, identity)

	logger.From(c).WithField("role", identity.Role).Info("signed in")
	c.JSON(http.StatusOK, gin.H{
		"identity": identity,
		"redirect": m.baseURL + "/",
	})
}

func (m *Manager) checkLock(ip string) time.Duration {
	m.lock.Lock()
	defer m.lock.Unlock()

	state, ok := m.attempts[ip]
	if !ok {
		return 0
	}
	now := m.now()
	if now.After(state.lockedUntil) {
		return 0
	}
	return state.lockedUntil.Sub(now)
}

func (m *Manager) recordFailure(ip string) int {
	m.lock.Lock()
	defer m.lock.Unlock()

	now := m.now()
	state, ok := m.attempts[ip]
	if !ok || now.Sub(state.firstAttempt) > loginWindow {
		state = &attemptState{firstAttempt: now}
		m.attempts[ip] = state
	}

	state.count++
	if state.count >= maxLoginAttempts {
		state.lockedUntil = now.Add(lockDuration)
		state.count = maxLoginAttempts
	}

	remaining := maxLoginAttempts - state.count
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

func (m *Manager) resetAttempts(ip string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.attempts, ip)
}
