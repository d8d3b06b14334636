package newsletter

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/pawsitive-placements/internal/auth"
	"github.com/yourusername/pawsitive-placements/internal/logger"
)

const failureMessage = "We could not process your subscription. Please try again later."

// Handler はニュースレター API のハンドラーです。
type Handler struct {
	service *Service
}

// NewHandler は Handler を作成します。
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type subscribeRequest struct {
	Email  string `form:"email" json:"email"`
	Source string `form:"source" json:"source"`
}

// Subscribe は POST /api/newsletter のハンドラーです。
func (h *Handler) Subscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBind(&req); err != nil {
		req = subscribeRequest{}
	}

	in := SubscribeInput{Email: req.Email, Source: req.Source}
	if identity := auth.IdentityFrom(c); identity.Role == auth.RoleUser {
		in.UserID = identity.UserID
		// 既定の表示名は購読者名として保存しない
		if name, ok := identity.RecordName(); ok {
			in.Name = name
		}
	}

	result, err := h.service.Subscribe(c.Request.Context(), in)
	switch {
	case errors.Is(err, ErrInvalidEmail):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"success": false,
			"error":   "Please enter a valid email address.",
		})
		return
	case err != nil:
		logger.From(c).WithError(err).Error("newsletter subscription failed")
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   failureMessage,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": result.Message,
		"action":  result.Action,
	})
}

// MethodNotAllowed は /api/newsletter への POST 以外のリクエストに 405 を返します。
func (h *Handler) MethodNotAllowed(c *gin.Context) {
	c.Header("Allow", http.MethodPost)
	c.JSON(http.StatusMethodNotAllowed, gin.H{
		"success": false,
		"error":   "Method not allowed",
	})
}

// List は GET /api/admin/newsletter のハンドラーです。
func (h *Handler) List(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		page = 1
	}

	listing, err := h.service.Page(c.Request.Context(), page)
	if err != nil {
		logger.From(c).WithError(err).Error("failed to list newsletter subscriptions")
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "INTERNAL_ERROR",
			"message": "購読一覧の取得に失敗しました",
		})
		return
	}
	c.JSON(http.StatusOK, listing)
}
