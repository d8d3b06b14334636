package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/securecookie"

	"github.com/yourusername/pawsitive-placements/internal/logger"
)

const idBytes = 32 // 256 bits

// Options はセッションクッキーとライフサイクルの設定です。
type Options struct {
	CookieName        string
	Secret            []byte        // クッキー署名鍵。空の場合は起動ごとにランダム生成
	RotateAfter       time.Duration // 作成からこの時間を超えたらIDを再発行
	IdleTimeout       time.Duration // 最終アクセスからの保持期間（ストアTTL）
	TrustProxyHeaders bool
	Now               func() time.Time
}

// Manager はセッションの開始・再開・再発行・破棄を担います。
type Manager struct {
	store Store
	codec *securecookie.SecureCookie
	opts  Options
}

// NewManager は Manager を作成します。
func NewManager(store Store, opts Options) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("session: store is nil")
	}
	if opts.CookieName == "" {
		return nil, fmt.Errorf("session: cookie name is required")
	}
	if opts.RotateAfter <= 0 || opts.IdleTimeout <= 0 {
		return nil, fmt.Errorf("session: rotate and idle durations must be positive")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	secret := opts.Secret
	if len(secret) == 0 {
		secret = securecookie.GenerateRandomKey(32)
		if secret == nil {
			return nil, fmt.Errorf("session: failed to generate cookie key")
		}
	}
	codec := securecookie.New(secret, nil)
	// クッキー自体はセッション長。寿命はストア側のTTLで管理する
	codec.MaxAge(0)

	return &Manager{
		store: store,
		codec: codec,
		opts:  opts,
	}, nil
}

// Middleware はセッションを開始または再開し、ハンドラー実行後に保存するミドルウェアです。
func (m *Manager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := m.start(c)
		if err != nil {
			logger.From(c).WithError(err).Error("failed to start session")
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.Set(contextKey, sess)

		c.Next()

		m.persist(c, sess)
	}
}

func (m *Manager) start(c *gin.Context) (*Session, error) {
	ctx := c.Request.Context()
	log := logger.From(c)

	if id, ok := m.readCookie(c.Request); ok {
		rec, err := m.store.Load(ctx, id)
		switch {
		case err != nil:
			log.WithError(err).Warn("session load failed, starting a fresh session")
		case rec != nil:
			sess := &Session{
				id:        id,
				createdAt: rec.CreatedAt,
				data:      rec.Data,
			}
			if m.opts.Now().Sub(sess.createdAt) > m.opts.RotateAfter {
				if err := m.Regenerate(c, sess); err != nil {
					log.WithError(err).Warn("session rotation failed")
				} else {
					log.Debug("session id rotated")
				}
			}
			return sess, nil
		default:
			log.Debug("session cookie points to an unknown session, starting a fresh one")
		}
	}

	id, err := generateID()
	if err != nil {
		return nil, err
	}
	sess := &Session{
		id:        id,
		createdAt: m.opts.Now(),
		isNew:     true,
	}
	if err := m.writeCookie(c, id); err != nil {
		return nil, err
	}
	return sess, nil
}

// Regenerate はセッション値を保持したまま新しいIDを発行し、作成時刻をリセットします。
// 旧IDはストアから削除されます。
func (m *Manager) Regenerate(c *gin.Context, sess *Session) error {
	id, err := generateID()
	if err != nil {
		return err
	}
	if err := m.writeCookie(c, id); err != nil {
		return err
	}

	oldID := sess.id
	sess.id = id
	sess.createdAt = m.opts.Now()
	sess.dirty = true

	if oldID != "" && !sess.isNew {
		if err := m.store.Delete(c.Request.Context(), oldID); err != nil {
			logger.From(c).WithError(err).Warn("failed to delete rotated session")
		}
	}
	return nil
}

// Destroy はセッションをストアから削除し、クッキーを失効させます。
func (m *Manager) Destroy(c *gin.Context, sess *Session) error {
	sess.destroyed = true
	sess.data = Data{}
	m.expireCookie(c)
	if sess.isNew {
		return nil
	}
	if err := m.store.Delete(c.Request.Context(), sess.id); err != nil {
		return fmt.Errorf("session: failed to delete: %w", err)
	}
	return nil
}

func (m *Manager) persist(c *gin.Context, sess *Session) {
	if sess.destroyed {
		return
	}
	ctx := context.WithoutCancel(c.Request.Context())

	var err error
	if sess.isNew || sess.dirty {
		err = m.store.Save(ctx, sess.id, Record{
			CreatedAt: sess.createdAt,
			Data:      sess.data,
		}, m.opts.IdleTimeout)
	} else {
		err = m.store.Touch(ctx, sess.id, m.opts.IdleTimeout)
	}
	if err != nil {
		logger.From(c).WithError(err).Error("failed to persist session")
	}
}

func (m *Manager) readCookie(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(m.opts.CookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	var id string
	if err := m.codec.Decode(m.opts.CookieName, cookie.Value, &id); err != nil || id == "" {
		return "", false
	}
	return id, true
}

func (m *Manager) writeCookie(c *gin.Context, id string) error {
	encoded, err := m.codec.Encode(m.opts.CookieName, id)
	if err != nil {
		return fmt.Errorf("session: failed to encode cookie: %w", err)
	}
	m.setCookie(c, &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		Secure:   IsSecureRequest(c.Request, m.opts.TrustProxyHeaders),
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (m *Manager) expireCookie(c *gin.Context) {
	m.setCookie(c, &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   IsSecureRequest(c.Request, m.opts.TrustProxyHeaders),
		SameSite: http.SameSiteLaxMode,
	})
}

// setCookie は同名の Set-Cookie を置き換えてからクッキーを追加します。
func (m *Manager) setCookie(c *gin.Context, cookie *http.Cookie) {
	header := c.Writer.Header()
	prefix := cookie.Name + "="
	var kept []string
	for _, v := range header.Values("Set-Cookie") {
		if !strings.HasPrefix(v, prefix) {
			kept = append(kept, v)
		}
	}
	header.Del("Set-Cookie")
	for _, v := range kept {
		header.Add("Set-Cookie", v)
	}
	http.SetCookie(c.Writer, cookie)
}

// IsSecureRequest は TLS 直結、または信頼するプロキシヘッダーで HTTPS と判定できるかを返します。
func IsSecureRequest(r *http.Request, trustProxyHeaders bool) bool {
	if r.TLS != nil {
		return true
	}
	if !trustProxyHeaders {
		return false
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") ||
		strings.EqualFold(r.Header.Get("X-Forwarded-Ssl"), "on")
}

// generateID は暗号論的に安全なセッションIDを生成します。
func generateID() (string, error) {
	b := make([]byte, idBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("session: failed to generate id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
