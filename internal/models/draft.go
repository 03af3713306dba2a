package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Coordinate is an optional decimal degree. The submission form sends
// numbers, numeric strings, empty strings or null; the last two mean absent.
type Coordinate struct {
	Value *float64
}

func (c *Coordinate) UnmarshalJSON(data []byte) error {
	c.Value = nil
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			return nil
		}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: coordinate %q is not a finite number", ErrValidation, raw)
	}
	c.Value = &v
	return nil
}

func (c Coordinate) MarshalJSON() ([]byte, error) {
	if c.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*c.Value)
}

// DraftForm is the auto-saved state of a grievance form that has not been
// submitted yet.
type DraftForm struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Location    string     `json:"location"`
	Latitude    Coordinate `json:"latitude"`
	Longitude   Coordinate `json:"longitude"`
	Images      []string   `json:"images"`
	Priority    string     `json:"priority"`
	SavedAt     time.Time  `json:"savedAt"`
}
