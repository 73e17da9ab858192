package image

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/picshare/picshare/internal/auth"
	"github.com/picshare/picshare/internal/metrics"
	"github.com/picshare/picshare/internal/stats"
)

const maxBatchSize = 100

// HandlerConfig wires the image handler's collaborators.
type HandlerConfig struct {
	Service     *Service
	Recorder    *stats.Recorder
	AuthService *auth.Service
	PublicURL   string
}

// RegisterRoutes mounts the image endpoints under the provided group.
func RegisterRoutes(group *gin.RouterGroup, cfg HandlerConfig) {
	handler := &httpHandler{
		service:   cfg.Service,
		recorder:  cfg.Recorder,
		publicURL: cfg.PublicURL,
	}

	group.POST("/upload", handler.uploadDirect)
	group.POST("/upload/batch", handler.uploadBatch)
	group.GET("/images/:shortCode", handler.resolveImage)
	group.GET("/images/:shortCode/qrcode", handler.imageQRCode)
	group.GET("/batch/:batchID", handler.listBatch)

	if cfg.AuthService != nil {
		protected := group.Group("/")
		protected.Use(auth.AuthMiddleware(cfg.AuthService))
		protected.GET("/history", handler.history)
		protected.DELETE("/images/:shortCode", handler.deleteImage)
	}
}

type httpHandler struct {
	service   *Service
	recorder  *stats.Recorder
	publicURL string
}

func (h *httpHandler) uploadDirect(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "file field is required"})
		return
	}

	data, err := readMultipartFile(fileHeader)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "could not read file"})
		return
	}

	asset, assetURL, err := h.service.UploadDirect(c.Request.Context(),
		data, fileHeader.Header.Get("Content-Type"), fileHeader.Filename, uploaderEmail(c))
	if err != nil {
		respondImageError(c, err)
		return
	}

	metrics.CountUpload("direct")
	c.JSON(http.StatusCreated, gin.H{
		"success":   true,
		"shortCode": asset.ShortCode,
		"imageUrl":  assetURL,
	})
}

func (h *httpHandler) uploadBatch(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "multipart form required"})
		return
	}

	headers := form.File["images"]
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "no images uploaded"})
		return
	}
	if len(headers) > maxBatchSize {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": fmt.Sprintf("at most %d images per batch", maxBatchSize)})
		return
	}

	files := make([]BatchFile, 0, len(headers))
	for _, header := range headers {
		data, err := readMultipartFile(header)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "could not read " + header.Filename})
			return
		}
		files = append(files, BatchFile{
			Data:         data,
			MimeType:     header.Header.Get("Content-Type"),
			OriginalName: header.Filename,
		})
	}

	batchID, results, err := h.service.UploadBatch(c.Request.Context(), files, uploaderEmail(c))
	if err != nil {
		respondImageError(c, err)
		return
	}

	batchURL := fmt.Sprintf("%s/api/batch/%s", h.publicURL, batchID)
	qrPNG, err := qrcode.Encode(batchURL, qrcode.High, 256)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "batch uploaded but qr generation failed"})
		return
	}
	qrDataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(qrPNG)

	images := make([]gin.H, 0, len(results))
	for _, r := range results {
		images = append(images, gin.H{
			"shortCode": r.Asset.ShortCode,
			"url":       r.URL,
		})
	}

	metrics.CountUpload("batch")
	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"count":    len(results),
		"batchId":  batchID,
		"batchUrl": batchURL,
		"qrCode":   qrDataURL,
		"images":   images,
	})
}

func (h *httpHandler) resolveImage(c *gin.Context) {
	shortCode := c.Param("shortCode")

	asset, assetURL, err := h.service.Resolve(c.Request.Context(), shortCode)
	if err != nil {
		respondImageError(c, err)
		return
	}

	// Best-effort: a failed visit record never blocks resolution.
	if h.recorder != nil {
		h.recorder.Record(c.Request.Context(), shortCode, stats.VisitContext{
			UserAgent: c.Request.UserAgent(),
			Referrer:  c.Request.Referer(),
			RemoteIP:  c.ClientIP(),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"imageUrl": assetURL,
		"image": gin.H{
			"originalName": asset.OriginalName,
			"mimetype":     asset.MimeType,
			"size":         asset.SizeBytes,
			"shortCode":    asset.ShortCode,
			"uploadDate":   asset.CreatedAt,
		},
	})
}

func (h *httpHandler) imageQRCode(c *gin.Context) {
	shortCode := c.Param("shortCode")

	if _, err := h.service.repo.GetByShortCode(c.Request.Context(), shortCode); err != nil {
		respondImageError(c, err)
		return
	}

	shareURL := fmt.Sprintf("%s/api/images/%s", h.publicURL, shortCode)
	png, err := qrcode.Encode(shareURL, qrcode.High, 256)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "qr generation failed"})
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

func (h *httpHandler) listBatch(c *gin.Context) {
	assets, err := h.service.Batch(c.Request.Context(), c.Param("batchID"))
	if err != nil {
		respondImageError(c, err)
		return
	}

	images := make([]gin.H, 0, len(assets))
	for _, asset := range assets {
		images = append(images, gin.H{
			"shortCode": asset.ShortCode,
			"url":       fmt.Sprintf("%s/api/images/%s", h.publicURL, asset.ShortCode),
		})
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(assets), "images": images})
}

func (h *httpHandler) history(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthorized"})
		return
	}

	assets, err := h.service.History(c.Request.Context(), user.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to load history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "list": assets})
}

func (h *httpHandler) deleteImage(c *gin.Context) {
	shortCode := c.Param("shortCode")

	if err := h.service.Delete(c.Request.Context(), shortCode); err != nil {
		respondImageError(c, err)
		return
	}
	if h.recorder != nil {
		h.recorder.Forget(c.Request.Context(), shortCode)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "image deleted"})
}

func uploaderEmail(c *gin.Context) string {
	if user, ok := auth.CurrentUser(c); ok {
		return user.Email
	}
	// Anonymous uploads keep the historical label.
	if email := c.PostForm("userEmail"); email != "" {
		return email
	}
	return "anonymous"
}

func readMultipartFile(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

func respondImageError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrAssetNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "image not found"})
	case errors.Is(err, ErrUnsupportedType):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "request failed"})
	}
}
