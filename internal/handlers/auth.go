package handlers

import (
	"net/http"

	"github.com/cinematch/cinematch/internal/middleware"
	"github.com/cinematch/cinematch/internal/services"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterRoutes mounts the unauthenticated auth routes. signup and login
// get their own stricter limiter.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, strict gin.HandlerFunc) {
	r.POST("/signup", strict, h.Signup)
	r.POST("/login", strict, h.Login)
	r.POST("/token", h.Refresh)
	r.GET("/activate/:token", h.Activate)
	r.GET("/check-username/:username", h.CheckUsername)
	r.POST("/forgot-password", h.ForgotPassword)
	r.POST("/reset-password/:token", h.ResetPassword)
	r.POST("/validate-token", h.ValidateToken)
	r.DELETE("/logout/:token", h.Logout)
}

func (h *AuthHandler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.POST("/change-password", h.ChangePassword)
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req services.SignupRequest
	if !bindJSON(c, &req) {
		return
	}

	if _, err := h.authService.Signup(c.Request.Context(), &req); err != nil {
		_ = c.Error(err)
		return
	}

	respond(c, http.StatusCreated, "User created")
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req services.TokenRequest
	// An unreadable body is treated as a missing token.
	_ = c.ShouldBindJSON(&req)

	token, err := h.authService.Refresh(c.Request.Context(), req.Token)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (h *AuthHandler) Activate(c *gin.Context) {
	if err := h.authService.Activate(c.Request.Context(), c.Param("token")); err != nil {
		_ = c.Error(err)
		return
	}
	respondOK(c, "User activated")
}

func (h *AuthHandler) CheckUsername(c *gin.Context) {
	free, err := h.authService.CheckUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	respondOK(c, free)
}

func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req services.ForgotPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.authService.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		_ = c.Error(err)
		return
	}
	respondOK(c, "Reset email sent")
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req services.ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.authService.ResetPassword(c.Request.Context(), c.Param("token"), req.NewPassword); err != nil {
		_ = c.Error(err)
		return
	}
	respondOK(c, "Password reset successfully")
}

func (h *AuthHandler) ValidateToken(c *gin.Context) {
	var req services.TokenRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.authService.ValidateResetToken(c.Request.Context(), req.Token); err != nil {
		_ = c.Error(err)
		return
	}
	respondOK(c, "Token is valid")
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req services.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), middleware.GetUserID(c), &req); err != nil {
		_ = c.Error(err)
		return
	}
	respondOK(c, "Password changed")
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), c.Param("token")); err != nil {
		_ = c.Error(err)
		return
	}
	respondOK(c, "Logged out")
}
