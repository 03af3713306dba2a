package handler

import (
	"log"
	"net/http"

	"sampark/backend/internal/models"
	"sampark/backend/internal/tracker"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func (h *Handler) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return h.AllowedOrigin == "" || origin == "" || origin == h.AllowedOrigin
		},
	}
}

// TrackLive оновлює HTTP-з'єднання до WebSocket і стрімить зміни статусу
// однієї скарги. Першим приходить поточний статус.
func (h *Handler) TrackLive(c *gin.Context) {
	g, err := h.Grievances.TrackByCode(c.Request.Context(), c.Param("trackingId"))
	if err != nil {
		fail(c, err, "Grievance not found", "Failed to track grievance")
		return
	}

	conn, err := h.upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		log.Printf("WARNING: WebSocket upgrade failed for %s: %v", g.TrackingID, err)
		return
	}

	client := tracker.NewWebSocketClient(h.Hub, conn, g.TrackingID)
	client.Send <- snapshot(g)

	if !h.Hub.Register(client) {
		conn.Close()
		return
	}
	client.Run()
}

// snapshot describes the grievance's current state as a StatusEvent.
func snapshot(g *models.Grievance) models.StatusEvent {
	if len(g.Statuses) > 0 {
		return models.NewStatusEvent(g, &g.Statuses[0])
	}
	return models.StatusEvent{
		TrackingID:  g.TrackingID,
		GrievanceID: g.ID,
		Title:       g.Title,
		Category:    g.Category,
		Status:      g.CurrentStatus,
		At:          g.UpdatedAt,
	}
}
