package handler

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"sampark/backend/internal/account"
	"sampark/backend/internal/config"
	"sampark/backend/internal/grievance"
	"sampark/backend/internal/models"
	"sampark/backend/internal/storage"
	"sampark/backend/internal/trackcode"

	"github.com/gin-gonic/gin"
)

const (
	ctxUserID = "userID"
	ctxUser   = "user"
)

// tokenFrom reads the session token from the Authorization header or,
// failing that, from the session cookie.
func tokenFrom(c *gin.Context) string {
	if authHeader := c.GetHeader("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	token, _ := c.Cookie(config.TokenCookieName)
	return token
}

// AuthRequired перевіряє JWT і кладе userID у контекст
func (h *Handler) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFrom(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}
		userID, err := h.Accounts.ParseToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		c.Set(ctxUserID, userID)
		c.Next()
	}
}

// AdminRequired re-reads the account so a demoted admin loses access at once.
func (h *Handler) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := h.Accounts.Users.GetUserByID(c.Request.Context(), c.GetString(ctxUserID))
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
				return
			}
			log.Printf("ERROR: Failed to load user for admin check: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Set(ctxUser, user)
		c.Next()
	}
}

// fail maps a service error onto a status code and JSON body.
// notFound is shown for storage.ErrNotFound, fallback for anything unexpected.
func fail(c *gin.Context, err error, notFound, fallback string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound})
	case errors.Is(err, grievance.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
	case errors.Is(err, grievance.ErrDuplicateStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Grievance already has this status"})
	case errors.Is(err, account.ErrEmailTaken):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email already exists"})
	case errors.Is(err, account.ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid credentials"})
	case errors.Is(err, account.ErrInvalidRole):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
	case errors.Is(err, account.ErrSelfRoleChange):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot change your own role"})
	case errors.Is(err, account.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
	case errors.Is(err, models.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, trackcode.ErrAllocationExhausted):
		log.Printf("ERROR: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not allocate a tracking code, please retry"})
	default:
		log.Printf("ERROR: %s: %v", fallback, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
