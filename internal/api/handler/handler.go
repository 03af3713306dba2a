package handler

import (
	"context"
	"io"
	"net/http"

	"sampark/backend/internal/account"
	"sampark/backend/internal/grievance"
	"sampark/backend/internal/models"
	"sampark/backend/internal/tracker"

	"github.com/gin-gonic/gin"
)

// DraftStore keeps the auto-saved submission form per user.
type DraftStore interface {
	SaveDraft(ctx context.Context, userID string, draft *models.DraftForm) bool
	GetDraft(ctx context.Context, userID string) *models.DraftForm
	ClearDraft(ctx context.Context, userID string)
}

// ImageUploader stores a photo and returns its public URL.
type ImageUploader interface {
	Upload(ctx context.Context, filename, contentType string, size int64, r io.Reader) (string, error)
}

// Handler містить посилання на сервіси, які обслуговують HTTP API
type Handler struct {
	Grievances *grievance.Service
	Accounts   *account.Service
	Drafts     DraftStore
	Images     ImageUploader
	Hub        *tracker.Hub

	// Production switches the session cookie to Secure + SameSite=None.
	Production bool
	// AllowedOrigin is checked on WebSocket upgrades; empty allows any origin.
	AllowedOrigin string
}

func NewHandler(g *grievance.Service, a *account.Service, drafts DraftStore, hub *tracker.Hub) *Handler {
	return &Handler{Grievances: g, Accounts: a, Drafts: drafts, Hub: hub}
}

// Register mounts every API route on r.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Backend is running!")
	})

	api := r.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/signup", h.Signup)
	auth.POST("/login", h.Login)
	auth.POST("/logout", h.Logout)
	auth.GET("/me", h.AuthRequired(), h.Me)

	g := api.Group("/grievance")
	g.GET("/track/:trackingId", h.TrackGrievance)
	g.GET("/track/:trackingId/live", h.TrackLive)

	owned := g.Group("", h.AuthRequired())
	owned.POST("/submit", h.SubmitGrievance)
	owned.GET("/my-grievances", h.MyGrievances)
	owned.POST("/form/save", h.SaveForm)
	owned.GET("/form/restore", h.RestoreForm)
	owned.DELETE("/form/clear", h.ClearForm)
	owned.GET("/:id", h.GetGrievance)
	owned.POST("/:id/status", h.UpdateOwnStatus)

	api.POST("/upload/image", h.AuthRequired(), h.UploadImage)
	api.POST("/upload/images", h.AuthRequired(), h.UploadImages)

	admin := api.Group("/admin", h.AuthRequired(), h.AdminRequired())
	admin.GET("/grievances", h.AdminListGrievances)
	admin.GET("/grievances/:id", h.AdminGetGrievance)
	admin.PATCH("/grievances/:id/status", h.AdminUpdateStatus)
	admin.DELETE("/grievances/:id", h.AdminDeleteGrievance)
	admin.GET("/users", h.AdminListUsers)
	admin.PATCH("/users/:id/role", h.AdminUpdateRole)
}
