package models

import "time"

// PublicGrievance is the tracking-code view of a grievance. It carries no
// account ids, so it is safe to hand to anyone holding the code.
type PublicGrievance struct {
	TrackingID    string         `json:"trackingId"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Category      Category       `json:"category"`
	Location      string         `json:"location"`
	Latitude      *float64       `json:"latitude"`
	Longitude     *float64       `json:"longitude"`
	Images        []string       `json:"images"`
	Priority      Priority       `json:"priority"`
	CurrentStatus Status         `json:"currentStatus"`
	Statuses      []PublicStatus `json:"statuses"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// PublicStatus is one history entry without the acting account.
type PublicStatus struct {
	Status    Status    `json:"status"`
	Comment   *string   `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

func (g *Grievance) Public() PublicGrievance {
	images := []string(g.Images)
	if images == nil {
		images = []string{}
	}
	statuses := make([]PublicStatus, 0, len(g.Statuses))
	for _, s := range g.Statuses {
		statuses = append(statuses, PublicStatus{Status: s.Status, Comment: s.Comment, CreatedAt: s.CreatedAt})
	}
	return PublicGrievance{
		TrackingID:    g.TrackingID,
		Title:         g.Title,
		Description:   g.Description,
		Category:      g.Category,
		Location:      g.Location,
		Latitude:      g.Latitude,
		Longitude:     g.Longitude,
		Images:        images,
		Priority:      g.Priority,
		CurrentStatus: g.CurrentStatus,
		Statuses:      statuses,
		CreatedAt:     g.CreatedAt,
		UpdatedAt:     g.UpdatedAt,
	}
}
