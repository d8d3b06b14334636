package jobs

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/pawsitive-placements/internal/logger"
)

// StatusHandler は GET /api/admin/jobs/:id のハンドラーを返します。
func StatusHandler(manager *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID := c.Param("id")
		if strings.TrimSpace(jobID) == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "jobId を指定してください。",
			})
			return
		}

		record, err := manager.GetRecord(c.Request.Context(), jobID)
		if err != nil {
			logger.From(c).WithError(err).Error("failed to load job record")
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "ジョブ情報の取得に失敗しました。",
			})
			return
		}
		if record == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    "JOB_NOT_FOUND",
				"message": "指定されたジョブは存在しません。",
			})
			return
		}

		c.JSON(http.StatusOK, record)
	}
}
