package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrValidation is wrapped by every field-level validation failure.
var ErrValidation = errors.New("validation failed")

// Category is the municipal department a grievance is filed against.
type Category string

const (
	CategoryPotholes    Category = "POTHOLES"
	CategoryWaste       Category = "WASTE"
	CategoryWater       Category = "WATER"
	CategoryElectricity Category = "ELECTRICITY"
	CategoryDrainage    Category = "DRAINAGE"
	CategoryOther       Category = "OTHER"
)

// Priority of a grievance; MEDIUM when the submitter does not pick one.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

var categories = map[Category]bool{
	CategoryPotholes: true, CategoryWaste: true, CategoryWater: true,
	CategoryElectricity: true, CategoryDrainage: true, CategoryOther: true,
}

var priorities = map[Priority]bool{
	PriorityLow: true, PriorityMedium: true, PriorityHigh: true,
}

// ParseCategory upper-cases raw and checks it against the known categories.
func ParseCategory(raw string) (Category, bool) {
	c := Category(strings.ToUpper(strings.TrimSpace(raw)))
	return c, categories[c]
}

// ParsePriority upper-cases raw; an empty value yields PriorityMedium.
func ParsePriority(raw string) (Priority, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return PriorityMedium, true
	}
	p := Priority(strings.ToUpper(raw))
	return p, priorities[p]
}

// Grievance is a citizen complaint. Everything except UpdatedAt is fixed
// once the row exists; progress is recorded in Statuses.
type Grievance struct {
	ID          string                      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	TrackingID  string                      `gorm:"type:varchar(16);uniqueIndex;not null" json:"trackingId"`
	Title       string                      `gorm:"type:text;not null" json:"title"`
	Description string                      `gorm:"type:text;not null" json:"description"`
	Category    Category                    `gorm:"type:varchar(16);not null;index" json:"category"`
	Location    string                      `gorm:"type:text;not null" json:"location"`
	Latitude    *float64                    `json:"latitude"`
	Longitude   *float64                    `json:"longitude"`
	Images      datatypes.JSONSlice[string] `json:"images"`
	Priority    Priority                    `gorm:"type:varchar(8);not null;default:'MEDIUM';index" json:"priority"`
	UserID      string                      `gorm:"type:varchar(36);not null;index" json:"userId"`
	CreatedAt   time.Time                   `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time                   `json:"updatedAt"`

	// Statuses is ordered newest first whenever it is loaded by the store.
	Statuses []StatusEntry `gorm:"foreignKey:GrievanceID;constraint:OnDelete:CASCADE" json:"statuses"`

	CurrentStatus Status `gorm:"-" json:"currentStatus"`

	// User is loaded only for admin views.
	User *Submitter `gorm:"foreignKey:UserID;-:migration" json:"user,omitempty"`
}

func (Grievance) TableName() string { return "grievances" }

// Normalize upper-cases the enums, defaults the priority and checks the
// required fields. The returned error wraps ErrValidation.
func (g *Grievance) Normalize() error {
	g.Title = strings.TrimSpace(g.Title)
	g.Description = strings.TrimSpace(g.Description)
	g.Location = strings.TrimSpace(g.Location)

	switch {
	case g.Title == "":
		return fmt.Errorf("%w: title is required", ErrValidation)
	case g.Description == "":
		return fmt.Errorf("%w: description is required", ErrValidation)
	case g.Category == "":
		return fmt.Errorf("%w: category is required", ErrValidation)
	case g.Location == "":
		return fmt.Errorf("%w: location is required", ErrValidation)
	}

	category, ok := ParseCategory(string(g.Category))
	if !ok {
		return fmt.Errorf("%w: unknown category %q", ErrValidation, g.Category)
	}
	g.Category = category

	priority, ok := ParsePriority(string(g.Priority))
	if !ok {
		return fmt.Errorf("%w: unknown priority %q", ErrValidation, g.Priority)
	}
	g.Priority = priority

	if err := checkCoordinate("latitude", g.Latitude, 90); err != nil {
		return err
	}
	if err := checkCoordinate("longitude", g.Longitude, 180); err != nil {
		return err
	}

	g.TrackingID = strings.ToUpper(g.TrackingID)
	if g.Images == nil {
		g.Images = datatypes.JSONSlice[string]{}
	}
	return nil
}

func checkCoordinate(name string, v *float64, limit float64) error {
	if v == nil {
		return nil
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) || *v < -limit || *v > limit {
		return fmt.Errorf("%w: %s must be between -%g and %g", ErrValidation, name, limit, limit)
	}
	return nil
}

// BeforeCreate assigns the id and refuses rows that fail Normalize.
func (g *Grievance) BeforeCreate(tx *gorm.DB) (err error) {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	if g.TrackingID == "" {
		return fmt.Errorf("%w: tracking id is required", ErrValidation)
	}
	if g.UserID == "" {
		return fmt.Errorf("%w: owner is required", ErrValidation)
	}
	return g.Normalize()
}

// AfterFind fills the derived CurrentStatus from the loaded history.
func (g *Grievance) AfterFind(tx *gorm.DB) (err error) {
	g.RefreshCurrentStatus()
	return nil
}

// RefreshCurrentStatus sets CurrentStatus from Statuses[0], falling back to
// SUBMITTED when no history is attached.
func (g *Grievance) RefreshCurrentStatus() {
	if len(g.Statuses) > 0 {
		g.CurrentStatus = g.Statuses[0].Status
		return
	}
	g.CurrentStatus = StatusSubmitted
}
