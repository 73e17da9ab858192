package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts authentication endpoints under /auth.
func RegisterRoutes(router *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/send-code", handler.sendCode)
		authGroup.POST("/verify-code", handler.verifyCode)
	}
}

type httpHandler struct {
	service *Service
}

type sendCodeRequest struct {
	Email string `json:"email" binding:"required"`
}

type verifyCodeRequest struct {
	Email string `json:"email" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

func (h *httpHandler) sendCode(c *gin.Context) {
	var req sendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "email is required"})
		return
	}

	if err := h.service.RequestCode(c.Request.Context(), req.Email); err != nil {
		switch {
		case errors.Is(err, ErrInvalidEmail):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid email address"})
		case errors.Is(err, ErrMailDelivery):
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "could not send code, try again later"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "could not send code"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *httpHandler) verifyCode(c *gin.Context) {
	var req verifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "email and code are required"})
		return
	}

	result, err := h.service.VerifyCode(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		if IsAuthError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "verification failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"user":         result.User,
		"access_token": result.AccessToken,
		"expires_at":   result.ExpiresAt.Unix(),
	})
}
