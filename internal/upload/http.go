package upload

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/picshare/picshare/internal/auth"
	"github.com/picshare/picshare/internal/metrics"
)

// RegisterRoutes mounts the chunked upload endpoints under the provided group.
func RegisterRoutes(group *gin.RouterGroup, coordinator *Coordinator) {
	handler := &httpHandler{coordinator: coordinator}
	group.POST("/upload/init", handler.initUpload)
	group.POST("/upload/chunk/:uploadID/:partNumber", handler.uploadChunk)
	group.POST("/upload/complete/:uploadID", handler.completeUpload)
	group.GET("/upload/progress/:uploadID", handler.getProgress)
}

type httpHandler struct {
	coordinator *Coordinator
}

type initRequest struct {
	Filename string `json:"filename" binding:"required"`
	MimeType string `json:"mimetype" binding:"required"`
	Size     int64  `json:"size" binding:"required"`
}

func (h *httpHandler) initUpload(c *gin.Context) {
	var req initRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "filename, mimetype and size are required"})
		return
	}

	uploader := ""
	if user, ok := auth.CurrentUser(c); ok {
		uploader = user.Email
	}

	result, err := h.coordinator.InitUpload(c.Request.Context(), req.Filename, req.MimeType, req.Size, uploader)
	if err != nil {
		respondUploadError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"uploadId":    result.ID,
		"chunkSize":   result.PartSize,
		"totalChunks": result.TotalParts,
	})
}

func (h *httpHandler) uploadChunk(c *gin.Context) {
	uploadID := c.Param("uploadID")
	partNumber, err := strconv.Atoi(c.Param("partNumber"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid part number"})
		return
	}

	fileHeader, err := c.FormFile("chunk")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "chunk field is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "could not read chunk"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "could not read chunk"})
		return
	}

	progress, err := h.coordinator.AcceptPart(c.Request.Context(), uploadID, partNumber, data)
	if err != nil {
		respondUploadError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"uploadId":   uploadID,
		"partNumber": partNumber,
		"progress":   progress.Percent,
	})
}

func (h *httpHandler) completeUpload(c *gin.Context) {
	uploadID := c.Param("uploadID")

	result, err := h.coordinator.CompleteUpload(c.Request.Context(), uploadID)
	if err != nil {
		if errors.Is(err, ErrIncomplete) {
			progress, progressErr := h.coordinator.GetProgress(c.Request.Context(), uploadID)
			if progressErr == nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"success":  false,
					"error":    "not all parts uploaded",
					"uploaded": progress.UploadedParts,
					"total":    progress.TotalParts,
				})
				return
			}
		}
		respondUploadError(c, err)
		return
	}

	metrics.CountUpload("chunked")
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"shortCode": result.ShortCode,
		"imageUrl":  result.URL,
	})
}

// getProgress returns 404 once the session is gone; after a successful
// completion clients treat that as the finished signal, not a retryable error.
func (h *httpHandler) getProgress(c *gin.Context) {
	progress, err := h.coordinator.GetProgress(c.Request.Context(), c.Param("uploadID"))
	if err != nil {
		respondUploadError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"progress": progress.Percent,
		"uploaded": progress.UploadedParts,
		"total":    progress.TotalParts,
		"status":   progress.Status,
	})
}

func respondUploadError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "upload session not found"})
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrUnsupportedType), errors.Is(err, ErrIncomplete):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "upload failed"})
	}
}
