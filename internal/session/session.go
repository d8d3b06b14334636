// Package session はリクエスト単位のセッションとその永続化を提供します。
package session

import (
	"time"

	"github.com/gin-gonic/gin"
)

const contextKey = "session.current"

// Data はセッションに保存される値です。
// ログインフローがロールのフラグを書き込み、リゾルバが読み取ります。
type Data struct {
	UserValid      bool   `json:"isValidUser,omitempty"`
	UserID         int64  `json:"userId,omitempty"`
	AdminValid     bool   `json:"isValidAdmin,omitempty"`
	AdminID        int64  `json:"adminId,omitempty"`
	AdminFirstName string `json:"adminFirstName,omitempty"`
	CSRFToken      string `json:"csrfToken,omitempty"`
	VisitCounted   bool   `json:"visitCounted,omitempty"`
}

// Record はストアに保存されるセッションの中身です。
type Record struct {
	CreatedAt time.Time `json:"createdAt"`
	Data      Data      `json:"data"`
}

// Session はリクエスト処理中のセッションを表します。
type Session struct {
	id        string
	createdAt time.Time
	data      Data

	isNew     bool
	dirty     bool
	destroyed bool
}

// New はまだ保存されていないセッションを作成します。
func New(id string, createdAt time.Time) *Session {
	return &Session{
		id:        id,
		createdAt: createdAt,
		isNew:     true,
	}
}

// ID はセッションIDを返します。
func (s *Session) ID() string {
	return s.id
}

// CreatedAt はセッションの作成（または直近のID再発行）時刻を返します。
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// Values はセッション値のコピーを返します。
func (s *Session) Values() Data {
	return s.data
}

// Update はセッション値を変更し、リクエスト終了時に保存されるようにします。
func (s *Session) Update(mutate func(*Data)) {
	mutate(&s.data)
	s.dirty = true
}

// IsNew はこのリクエストでセッションが作成されたかを返します。
func (s *Session) IsNew() bool {
	return s.isNew
}

// Destroyed はログアウト等で破棄済みかを返します。
func (s *Session) Destroyed() bool {
	return s.destroyed
}

// From は gin.Context に紐づくセッションを返します。ミドルウェア未適用時は nil です。
func From(c *gin.Context) *Session {
	v, ok := c.Get(contextKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*Session)
	return sess
}
