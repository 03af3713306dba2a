package handler

import (
	"net/http"

	"sampark/backend/internal/account"
	"sampark/backend/internal/config"

	"github.com/gin-gonic/gin"
)

// setSessionCookie кладе JWT у httpOnly cookie
func (h *Handler) setSessionCookie(c *gin.Context, token string, maxAge int) {
	if h.Production {
		c.SetSameSite(http.SameSiteNoneMode)
	} else {
		c.SetSameSite(http.SameSiteLaxMode)
	}
	c.SetCookie(config.TokenCookieName, token, maxAge, "/", "", h.Production, true)
}

// Signup створює обліковий запис USER і одразу відкриває сесію
func (h *Handler) Signup(c *gin.Context) {
	var in account.SignupInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	user, token, err := h.Accounts.Signup(c.Request.Context(), in)
	if err != nil {
		fail(c, err, "User not found", "Signup failed")
		return
	}

	h.setSessionCookie(c, token, int(config.TokenTTL.Seconds()))
	c.JSON(http.StatusCreated, gin.H{"user": user, "token": token})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	user, token, err := h.Accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err, "User not found", "Login failed")
		return
	}

	h.setSessionCookie(c, token, int(config.TokenTTL.Seconds()))
	c.JSON(http.StatusOK, gin.H{"user": user, "token": token})
}

func (h *Handler) Logout(c *gin.Context) {
	h.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me повертає поточного користувача
func (h *Handler) Me(c *gin.Context) {
	user, err := h.Accounts.Users.GetUserByID(c.Request.Context(), c.GetString(ctxUserID))
	if err != nil {
		fail(c, err, "User not found", "Failed to load user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
