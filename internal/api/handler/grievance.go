package handler

import (
	"net/http"

	"sampark/backend/internal/grievance"
	"sampark/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// SubmitGrievance створює скаргу і повертає її трекінг-код
func (h *Handler) SubmitGrievance(c *gin.Context) {
	var in grievance.SubmitInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	g, err := h.Grievances.Submit(c.Request.Context(), c.GetString(ctxUserID), in)
	if err != nil {
		fail(c, err, "User not found", "Failed to submit grievance")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"trackingId": g.TrackingID,
		"grievance":  g,
	})
}

// TrackGrievance is the public lookup; it needs no session and returns no
// account ids.
func (h *Handler) TrackGrievance(c *gin.Context) {
	g, err := h.Grievances.TrackByCode(c.Request.Context(), c.Param("trackingId"))
	if err != nil {
		fail(c, err, "Grievance not found", "Failed to track grievance")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "grievance": g.Public()})
}

func (h *Handler) MyGrievances(c *gin.Context) {
	grievances, cached, err := h.Grievances.ListOwned(c.Request.Context(), c.GetString(ctxUserID))
	if err != nil {
		fail(c, err, "Grievance not found", "Failed to fetch grievances")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"grievances": grievances,
		"cached":     cached,
	})
}

func (h *Handler) GetGrievance(c *gin.Context) {
	g, err := h.Grievances.GetOwned(c.Request.Context(), c.GetString(ctxUserID), c.Param("id"))
	if err != nil {
		fail(c, err, "Grievance not found", "Failed to fetch grievance")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "grievance": g})
}

type statusRequest struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
}

// UpdateOwnStatus lets the owner move their own grievance. Admins may move
// any grievance through this route as well.
func (h *Handler) UpdateOwnStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx := c.Request.Context()
	userID := c.GetString(ctxUserID)
	user, err := h.Accounts.Users.GetUserByID(ctx, userID)
	if err != nil {
		fail(c, err, "User not found", "Failed to update status")
		return
	}

	var (
		entry *models.StatusEntry
		g     *models.Grievance
	)
	if user.IsAdmin() {
		entry, g, err = h.Grievances.Transition(ctx, c.Param("id"), req.Status, req.Comment, userID)
	} else {
		entry, g, err = h.Grievances.TransitionOwned(ctx, userID, c.Param("id"), req.Status, req.Comment)
	}
	if err != nil {
		fail(c, err, "Grievance not found", "Failed to update status")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "statusUpdate": entry, "grievance": g})
}

// SaveForm auto-saves the unsubmitted form. Without a cache the draft is
// simply not kept.
func (h *Handler) SaveForm(c *gin.Context) {
	var draft models.DraftForm
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	saved := h.Drafts.SaveDraft(c.Request.Context(), c.GetString(ctxUserID), &draft)
	c.JSON(http.StatusOK, gin.H{"success": true, "saved": saved, "message": "Form data saved"})
}

func (h *Handler) RestoreForm(c *gin.Context) {
	draft := h.Drafts.GetDraft(c.Request.Context(), c.GetString(ctxUserID))
	c.JSON(http.StatusOK, gin.H{"success": true, "formData": draft})
}

func (h *Handler) ClearForm(c *gin.Context) {
	h.Drafts.ClearDraft(c.Request.Context(), c.GetString(ctxUserID))
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Form data cleared"})
}
