package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireUser はログイン済みユーザー（管理者を含む）のみ通すミドルウェアです。
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IdentityFrom(c).LoggedIn() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "UNAUTHORIZED",
				"message": "ログインが必要です",
			})
			return
		}
		c.Next()
	}
}

// RequireAdmin は管理者のみ通すミドルウェアです。
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := IdentityFrom(c)
		if !identity.LoggedIn() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "UNAUTHORIZED",
				"message": "ログインが必要です",
			})
			return
		}
		if !identity.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code":    "FORBIDDEN",
				"message": "管理者権限が必要です",
			})
			return
		}
		c.Next()
	}
}
