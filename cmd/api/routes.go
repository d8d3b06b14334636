package main

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/pawsitive-placements/internal/auth"
	"github.com/yourusername/pawsitive-placements/internal/jobs"
	"github.com/yourusername/pawsitive-placements/internal/logger"
)

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "pawsitive-placements-api",
		"version": "0.1.0",
	})
}

// setupRoutes はミドルウェアと API ルートを登録します。
// ミドルウェアの順序: ログ → CORS → セッション → 呼び出し元の解決 → CSRF 検証 → 訪問数
// CSRF 検証で拒否されたリクエストは訪問数を含め何も書き込まない
func setupRoutes(router *gin.Engine, deps *dependencies) {
	router.Use(gin.Recovery(), logger.Middleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = deps.cfg.AllowedOrigins()
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Accept",
		"X-Requested-With",
		auth.CSRFHeader,
	}
	// フロントエンドがレスポンスヘッダーから CSRF トークンを読み取れるように公開
	corsConfig.ExposeHeaders = []string{auth.CSRFHeader, "X-Request-ID"}
	router.Use(cors.New(corsConfig))

	// ヘルスチェックはセッションを作らない
	router.GET("/health", handleHealth)

	router.HandleMethodNotAllowed = true
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"code":    "METHOD_NOT_ALLOWED",
			"message": "許可されていないメソッドです",
		})
	})
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "NOT_FOUND",
			"message": "指定されたパスは存在しません",
		})
	})

	api := router.Group("/api")
	api.Use(
		deps.sessions.Middleware(),
		deps.resolver.Middleware(),
		auth.VerifyCSRF(),
		deps.visits.Middleware(),
	)
	{
		api.GET("/session", deps.auth.Session)
		api.GET("/visits", deps.visits.Handler)

		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/register", deps.auth.Register)
			authRoutes.POST("/login", deps.auth.Login)
			authRoutes.POST("/admin/login", deps.auth.AdminLogin)
			authRoutes.POST("/logout", deps.auth.Logout)
		}

		api.GET("/account", auth.RequireUser(), deps.auth.Account)

		api.POST("/newsletter", deps.newsletter.Subscribe)
		api.Match([]string{http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete},
			"/newsletter", deps.newsletter.MethodNotAllowed)

		api.POST("/contact", deps.contact)

		admin := api.Group("/admin")
		admin.Use(auth.RequireAdmin())
		{
			admin.GET("/newsletter", deps.newsletter.List)
			if deps.jobs != nil {
				admin.GET("/jobs/:id", jobs.StatusHandler(deps.jobs))
			}
		}
	}
}
