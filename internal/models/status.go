package models

import (
	"strings"
	"time"
)

// Status is a step in the grievance review pipeline.
type Status string

const (
	StatusSubmitted   Status = "SUBMITTED"
	StatusUnderReview Status = "UNDER_REVIEW"
	StatusInProgress  Status = "IN_PROGRESS"
	StatusResolved    Status = "RESOLVED"
	StatusRejected    Status = "REJECTED"
)

// Statuses lists every status in pipeline order.
var Statuses = []Status{
	StatusSubmitted, StatusUnderReview, StatusInProgress, StatusResolved, StatusRejected,
}

// ParseStatus upper-cases raw and reports whether it names a known status.
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	return s, s.Valid()
}

func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// StatusEntry is one append-only record of a grievance's audit trail.
// ID grows with insertion order and breaks CreatedAt ties.
type StatusEntry struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	GrievanceID string    `gorm:"type:varchar(36);not null;index:idx_status_grievance_created,priority:1" json:"grievanceId"`
	Status      Status    `gorm:"type:varchar(16);not null" json:"status"`
	Comment     *string   `gorm:"type:text" json:"comment"`
	CreatedBy   string    `gorm:"type:varchar(36)" json:"createdBy"`
	CreatedAt   time.Time `gorm:"index:idx_status_grievance_created,priority:2,sort:desc" json:"createdAt"`
}

func (StatusEntry) TableName() string { return "grievance_status_history" }

// StatusEvent is broadcast after a grievance is submitted or changes status.
type StatusEvent struct {
	TrackingID  string    `json:"trackingId"`
	GrievanceID string    `json:"grievanceId"`
	OwnerID     string    `json:"ownerId"`
	Title       string    `json:"title"`
	Category    Category  `json:"category"`
	Status      Status    `json:"status"`
	Comment     string    `json:"comment,omitempty"`
	ActorID     string    `json:"actorId"`
	At          time.Time `json:"at"`
}

// NewStatusEvent describes entry as applied to g.
func NewStatusEvent(g *Grievance, entry *StatusEntry) StatusEvent {
	ev := StatusEvent{
		TrackingID:  g.TrackingID,
		GrievanceID: g.ID,
		OwnerID:     g.UserID,
		Title:       g.Title,
		Category:    g.Category,
		Status:      entry.Status,
		ActorID:     entry.CreatedBy,
		At:          entry.CreatedAt,
	}
	if entry.Comment != nil {
		ev.Comment = *entry.Comment
	}
	return ev
}

// PublicStatusEvent is the part of a StatusEvent anonymous trackers see.
type PublicStatusEvent struct {
	TrackingID string    `json:"trackingId"`
	Title      string    `json:"title"`
	Category   Category  `json:"category"`
	Status     Status    `json:"status"`
	Comment    string    `json:"comment,omitempty"`
	At         time.Time `json:"at"`
}

func (e StatusEvent) Public() PublicStatusEvent {
	return PublicStatusEvent{
		TrackingID: e.TrackingID,
		Title:      e.Title,
		Category:   e.Category,
		Status:     e.Status,
		Comment:    e.Comment,
		At:         e.At,
	}
}
