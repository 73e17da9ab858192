package stats

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the stats read endpoint.
func RegisterRoutes(group *gin.RouterGroup, recorder *Recorder) {
	handler := &httpHandler{recorder: recorder}
	group.GET("/stats/:shortCode", handler.getStats)
}

type httpHandler struct {
	recorder *Recorder
}

func (h *httpHandler) getStats(c *gin.Context) {
	aggregate, err := h.recorder.Stats(c.Param("shortCode"))
	if err != nil {
		if errors.Is(err, ErrStatsNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "stats not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to load stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "stats": aggregate})
}
