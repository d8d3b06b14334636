package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/pawsitive-placements/internal/logger"
	"github.com/yourusername/pawsitive-placements/internal/session"
)

const (
	// CSRFFieldName は状態を変更するフォームに埋め込む hidden フィールド名です。
	CSRFFieldName = "csrf_token"
	// CSRFHeader は AJAX 呼び出し用のヘッダー名です。
	CSRFHeader = "X-CSRF-Token"

	csrfTokenBytes  = 32
	csrfRejectedMsg = "Invalid CSRF token."
)

var errNoSession = errors.New("auth: no active session")

// IssueToken はセッションの CSRF トークンを返します。未発行なら生成します。
// 発行後はセッションが破棄されるまで同じ値を返します。
func IssueToken(sess *session.Session) (string, error) {
	if sess == nil {
		return "", errNoSession
	}
	if token := sess.Values().CSRFToken; token != "" {
		return token, nil
	}
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	sess.Update(func(d *session.Data) {
		d.CSRFToken = token
	})
	return token, nil
}

// ValidateToken は候補トークンがセッションの発行済みトークンと一致するかを定数時間で比較します。
func ValidateToken(sess *session.Session, candidate string) bool {
	if sess == nil || candidate == "" {
		return false
	}
	expected := sess.Values().CSRFToken
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(candidate)) == 1
}

// VerifyCSRF は状態を変更するリクエストで csrf_token を検証するミドルウェアです。
// 検証に失敗した場合は 400 を返し、以降のハンドラーは実行されません。
func VerifyCSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isSafeMethod(c.Request.Method) {
			c.Next()
			return
		}

		candidate := c.PostForm(CSRFFieldName)
		if candidate == "" {
			candidate = c.GetHeader(CSRFHeader)
		}

		if !ValidateToken(session.From(c), candidate) {
			logger.From(c).Warn("rejected request with invalid csrf token")
			c.Data(http.StatusBadRequest, "text/plain; charset=utf-8", []byte(csrfRejectedMsg))
			c.Abort()
			return
		}

		c.Next()
	}
}

// TokenField はフォームに埋め込む hidden input を返します。
func TokenField(token string) template.HTML {
	return template.HTML(`<input type="hidden" name="` + CSRFFieldName + `" value="` +
		template.HTMLEscapeString(token) + `">`)
}

func generateToken() (string, error) {
	buf := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}
