package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/yourusername/pawsitive-placements/internal/auth"
	"github.com/yourusername/pawsitive-placements/internal/config"
	"github.com/yourusername/pawsitive-placements/internal/contact"
	"github.com/yourusername/pawsitive-placements/internal/db"
	"github.com/yourusername/pawsitive-placements/internal/jobs"
	"github.com/yourusername/pawsitive-placements/internal/newsletter"
	"github.com/yourusername/pawsitive-placements/internal/session"
	"github.com/yourusername/pawsitive-placements/internal/users"
	"github.com/yourusername/pawsitive-placements/internal/visits"
)

// application は起動時に組み立てた依存関係を保持します。
type application struct {
	server  *http.Server
	db      *sql.DB
	jobs    *jobs.Manager
	closers []func() error
}

// dependencies はルーティングに渡すハンドラー群です。
type dependencies struct {
	cfg        *config.Config
	sessions   *session.Manager
	resolver   *auth.Resolver
	auth       *auth.Manager
	newsletter *newsletter.Handler
	contact    gin.HandlerFunc
	visits     *visits.Counter
	jobs       *jobs.Manager
}

func newApplication(ctx context.Context, cfg *config.Config) (*application, error) {
	if cfg.DatabaseDSN == "" {
		return nil, errors.New("DATABASE_DSN is not set")
	}

	conn, err := db.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	app := &application{db: conn}

	if err := db.Migrate(ctx, conn); err != nil {
		app.closeAll()
		return nil, err
	}

	sessionStore, err := app.setupSessionStore(cfg)
	if err != nil {
		app.closeAll()
		return nil, err
	}
	sessions, err := session.NewManager(sessionStore, session.Options{
		CookieName:        cfg.SessionCookieName,
		Secret:            []byte(cfg.SessionSecret),
		RotateAfter:       cfg.SessionRotateAfter,
		IdleTimeout:       cfg.SessionIdleTimeout,
		TrustProxyHeaders: cfg.TrustProxyHeaders,
	})
	if err != nil {
		app.closeAll()
		return nil, err
	}
	if len(cfg.SessionSecret) == 0 {
		log.Warn("SESSION_SECRET is empty, sessions will not survive a restart")
	}

	userStore := users.NewStore(conn)
	newsletterService := newsletter.NewService(newsletter.NewStore(conn), cfg.NewsletterPageSize)

	// キューが無い環境ではリクエスト内で紐付ける
	var linker auth.SubscriptionLinker = newsletterService
	if cfg.QueueRedisURL != "" {
		manager, err := app.setupJobs(cfg, newsletterService)
		if err != nil {
			app.closeAll()
			return nil, err
		}
		manager.StartWorkers()
		app.jobs = manager
		linker = manager
	}

	deps := &dependencies{
		cfg:        cfg,
		sessions:   sessions,
		resolver:   auth.NewResolver(userStore),
		auth:       auth.NewManager(userStore, sessions, linker, cfg.BaseURL),
		newsletter: newsletter.NewHandler(newsletterService),
		contact:    contact.Handler(contact.NewStore(conn)),
		visits:     visits.NewCounter(conn),
		jobs:       app.jobs,
	}

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	if !cfg.TrustProxyHeaders {
		if err := router.SetTrustedProxies(nil); err != nil {
			app.closeAll()
			return nil, err
		}
	}
	setupRoutes(router, deps)

	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return app, nil
}

func (a *application) setupSessionStore(cfg *config.Config) (session.Store, error) {
	if cfg.SessionStore != config.SessionStoreRedis {
		return session.NewMemoryStore(10 * time.Minute), nil
	}

	opt, err := redis.ParseURL(cfg.SessionRedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opt)
	a.closers = append(a.closers, rdb.Close)
	return session.NewRedisStore(rdb), nil
}

func (a *application) setupJobs(cfg *config.Config, linker jobs.AccountLinker) (*jobs.Manager, error) {
	opt, err := redis.ParseURL(cfg.QueueRedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid QUEUE_REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opt)
	a.closers = append(a.closers, rdb.Close)

	store := jobs.NewStore(rdb, cfg.JobRecordTTL)
	return jobs.NewManager(cfg.QueueRedisURL, store, linker)
}

// Run は HTTP サーバーを起動します。Shutdown による停止はエラーにしません。
func (a *application) Run() error {
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown は処理中のリクエストを待ってからワーカーと接続を閉じます。
func (a *application) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	if a.jobs != nil {
		if jobErr := a.jobs.Shutdown(); jobErr != nil {
			log.WithError(jobErr).Warn("failed to stop job workers")
		}
	}
	a.closeAll()
	return err
}

func (a *application) closeAll() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.WithError(err).Warn("failed to close resource")
		}
	}
	a.closers = nil
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.WithError(err).Warn("failed to close database")
		}
		a.db = nil
	}
}
