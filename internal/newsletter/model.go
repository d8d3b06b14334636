// Package newsletter はニュースレター購読の登録・紐付け・一覧を提供します。
package newsletter

import (
	"errors"
	"time"
)

var ErrInvalidEmail = errors.New("newsletter: invalid email address")

// Action は購読処理の結果種別です。
type Action string

const (
	ActionSubscribed        Action = "subscribed"
	ActionResubscribed      Action = "resubscribed"
	ActionAlreadySubscribed Action = "already_subscribed"
)

// 購読状態
const (
	StatusActive       = "active"
	StatusUnsubscribed = "unsubscribed"
)

const (
	DefaultSource  = "footer_form"
	maxSourceBytes = 50
	maxNameBytes   = 100
)

var actionMessages = map[Action]string{
	ActionSubscribed:        "Thank you for subscribing to our newsletter!",
	ActionResubscribed:      "Welcome back! Your newsletter subscription has been reactivated.",
	ActionAlreadySubscribed: "You are already subscribed to our newsletter.",
}

// Message は結果種別に対応する利用者向けメッセージを返します。
func (a Action) Message() string {
	return actionMessages[a]
}

// Subscription は newsletter_subscriptions の1行です。
type Subscription struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	UserID       int64     `json:"userId,omitempty"`
	Name         string    `json:"name,omitempty"`
	Source       string    `json:"source"`
	Status       string    `json:"status"`
	SubscribedAt time.Time `json:"subscribedAt"`
}

// SubscribeInput は購読リクエストの入力です。UserID が 0 の場合は匿名です。
type SubscribeInput struct {
	Email  string
	Source string
	UserID int64
	Name   string
}

// Result は購読処理の結果です。
type Result struct {
	Action  Action `json:"action"`
	Message string `json:"message"`
}
