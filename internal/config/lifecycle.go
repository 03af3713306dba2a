package config

import "time"

const (
	// Tracking codes
	TrackingIDPrefix      = "SMPK"
	MaxTrackingIDAttempts = 20

	// Lifecycle
	SeedStatusComment = "Grievance submitted successfully"

	// Cache
	DefaultCacheTTL     = 24 * time.Hour
	DefaultCacheTimeout = 2 * time.Second
	FormDataKeyPrefix   = "form:grievance:"
	GrievancesKeyPrefix = "grievances:user:"
	// bumped on every invalidation of the owner's list
	GrievancesVersionKeyPrefix = "grievances:version:"

	// Sessions
	TokenCookieName = "token"
	TokenTTL        = 7 * 24 * time.Hour
	TokenIssuer     = "sampark-service"

	// Uploads
	MaxImageSize = 10 << 20

	// Admin listing
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PriorityRank orders priorities by urgency rather than alphabetically.
const PriorityRank = "CASE priority WHEN 'HIGH' THEN 3 WHEN 'MEDIUM' THEN 2 WHEN 'LOW' THEN 1 ELSE 0 END"

// SortableColumns maps the admin list sortBy values to grievance columns.
var SortableColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"priority":  PriorityRank,
	"category":  "category",
	"title":     "title",
}
