// Package visits はサイト訪問数のカウントを提供します。
package visits

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/yourusername/pawsitive-placements/internal/logger"
	"github.com/yourusername/pawsitive-placements/internal/session"
)

// Counter は site_visits テーブルの訪問数を扱います。
type Counter struct {
	db   *sql.DB
	lang language.Tag
}

// NewCounter は Counter を作成します。
func NewCounter(db *sql.DB) *Counter {
	return &Counter{
		db:   db,
		lang: language.English,
	}
}

// Increment は訪問数を1増やします。
func (c *Counter) Increment(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx,
		`UPDATE site_visits SET visit_count = visit_count + 1 WHERE id = 1`); err != nil {
		return fmt.Errorf("increment visit count: %w", err)
	}
	return nil
}

// Count は現在の訪問数を返します。行が無い場合は 0 です。
func (c *Counter) Count(ctx context.Context) (int64, error) {
	var n int64
	err := c.db.QueryRowContext(ctx,
		`SELECT visit_count FROM site_visits WHERE id = 1`).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read visit count: %w", err)
	}
	return n, nil
}

// Format は3桁区切りの表記を返します。
// message.Printer は並行利用できないため呼び出しごとに作成する
func (c *Counter) Format(n int64) string {
	return message.NewPrinter(c.lang).Sprintf("%d", n)
}

// Middleware はセッションごとに一度だけ訪問数を加算します。
// session.Manager のミドルウェアより後に登録してください。
func (c *Counter) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		sess := session.From(ctx)
		if sess != nil && !sess.Values().VisitCounted {
			if err := c.Increment(ctx.Request.Context()); err != nil {
				logger.From(ctx).WithError(err).Warn("visit count not updated")
			} else {
				sess.Update(func(d *session.Data) {
					d.VisitCounted = true
				})
			}
		}
		ctx.Next()
	}
}

// Handler は GET /api/visits のハンドラーです。
func (c *Counter) Handler(ctx *gin.Context) {
	n, err := c.Count(ctx.Request.Context())
	if err != nil {
		logger.From(ctx).WithError(err).Warn("visit count unavailable")
		n = 0
	}
	ctx.JSON(http.StatusOK, gin.H{
		"count":     n,
		"formatted": c.Format(n),
	})
}
