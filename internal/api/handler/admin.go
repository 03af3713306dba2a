package handler

import (
	"net/http"
	"strconv"
	"strings"

	"sampark/backend/internal/models"
	"sampark/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

func queryInt(c *gin.Context, key string) int {
	n, _ := strconv.Atoi(c.Query(key))
	return n
}

// AdminListGrievances supports page, limit, status, category, priority,
// search, sortBy and sortOrder query parameters.
func (h *Handler) AdminListGrievances(c *gin.Context) {
	filter := storage.GrievanceFilter{
		Page:      queryInt(c, "page"),
		Limit:     queryInt(c, "limit"),
		Category:  models.Category(strings.ToUpper(c.Query("category"))),
		Priority:  models.Priority(strings.ToUpper(c.Query("priority"))),
		Search:    c.Query("search"),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}
	if raw := c.Query("status"); raw != "" {
		status, ok := models.ParseStatus(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
			return
		}
		filter.Status = status
	}

	page, err := h.Grievances.List(c.Request.Context(), filter)
	if err != nil {
		fail(c, err, "Grievance not found", "Failed to fetch grievances")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"grievances": page.Grievances,
		"pagination": page.Pagination,
	})
}

func (h *Handler) AdminGetGrievance(c *gin.Context) {
	g, err := h.Grievances.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err, "Grievance not found", "Failed to fetch grievance")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "grievance": g})
}

func (h *Handler) AdminUpdateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Status is required"})
		return
	}

	entry, g, err := h.Grievances.Transition(c.Request.Context(), c.Param("id"), req.Status, req.Comment, c.GetString(ctxUserID))
	if err != nil {
		fail(c, err, "Grievance not found", "Failed to update status")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      "Status updated successfully",
		"statusUpdate": entry,
		"grievance":    g,
	})
}

func (h *Handler) AdminDeleteGrievance(c *gin.Context) {
	if err := h.Grievances.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err, "Grievance not found", "Failed to delete grievance")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Grievance deleted successfully"})
}

func (h *Handler) AdminListUsers(c *gin.Context) {
	filter := storage.UserFilter{
		Page:   queryInt(c, "page"),
		Limit:  queryInt(c, "limit"),
		Search: c.Query("search"),
	}
	users, total, err := h.Accounts.ListUsers(c.Request.Context(), filter)
	if err != nil {
		fail(c, err, "User not found", "Failed to fetch users")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"users":      users,
		"pagination": storage.NewPagination(filter.Page, filter.Limit, total),
	})
}

type roleRequest struct {
	Role string `json:"role"`
}

func (h *Handler) AdminUpdateRole(c *gin.Context) {
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	user, err := h.Accounts.SetRole(c.Request.Context(), c.GetString(ctxUserID), c.Param("id"), req.Role)
	if err != nil {
		fail(c, err, "User not found", "Failed to update user role")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User role updated successfully",
		"user":    user,
	})
}
