package handlers

import (
	"net/http"

	"quizmaster/services"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "warning", err.Error())
		return
	}

	user, err := h.authService.Register(&req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, user)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "warning", err.Error())
		return
	}

	tokens, err := h.authService.Login(&req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, tokens)
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req services.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "warning", err.Error())
		return
	}

	tokens, err := h.authService.Refresh(&req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, tokens)
}

func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		respondError(c, http.StatusUnauthorized, "error", "User not authenticated")
		return
	}

	user, err := h.authService.GetProfile(userID.(uint))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, user)
}
