package contact

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/pawsitive-placements/internal/auth"
	"github.com/yourusername/pawsitive-placements/internal/logger"
)

// Submitter は問い合わせを保存します。
type Submitter interface {
	Submit(ctx context.Context, msg Message) (int64, error)
}

type submitRequest struct {
	Name    string `form:"name" json:"name"`
	Email   string `form:"email" json:"email"`
	Subject string `form:"subject" json:"subject"`
	Message string `form:"message" json:"message"`
}

// Handler は POST /api/contact のハンドラーを返します。
func Handler(store Submitter) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req submitRequest
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "リクエストの形式が正しくありません",
			})
			return
		}

		identity := auth.IdentityFrom(c)
		msg := Message{
			Name:    req.Name,
			Email:   req.Email,
			Subject: req.Subject,
			Body:    req.Message,
		}
		if identity.Role == auth.RoleUser {
			msg.UserID = identity.UserID
		}

		id, err := store.Submit(c.Request.Context(), msg)
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				c.JSON(http.StatusUnprocessableEntity, gin.H{
					"code":    "INVALID_INPUT",
					"message": "name, email, subject, message を正しく入力してください",
				})
				return
			}
			logger.From(c).WithError(err).Error("failed to store contact message")
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "問い合わせの送信に失敗しました",
			})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"id": id})
	}
}
