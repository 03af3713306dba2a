// Package grievance owns the grievance lifecycle: submission with tracking
// code allocation, status transitions, public tracking and the cached
// per-owner listing.
package grievance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"sampark/backend/internal/config"
	"sampark/backend/internal/models"
	"sampark/backend/internal/storage"
	"sampark/backend/internal/trackcode"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/datatypes"
)

var (
	// ErrInvalidStatus is returned for a status outside the five known values.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrDuplicateStatus is returned when the requested status is already current.
	ErrDuplicateStatus = errors.New("grievance already has this status")
)

// Store is the persistence the lifecycle needs.
type Store interface {
	storage.GrievanceStore
	storage.StatusLog
}

// ViewCache is the best-effort cache of each owner's grievance list and
// unsubmitted form. Implementations never fail the caller.
type ViewCache interface {
	GetUserGrievances(ctx context.Context, userID string) ([]models.Grievance, bool)
	GrievancesVersion(ctx context.Context, userID string) int64
	SetUserGrievances(ctx context.Context, userID string, version int64, grievances []models.Grievance) bool
	InvalidateUserGrievances(ctx context.Context, userID string)
	ClearDraft(ctx context.Context, userID string)
}

// EventPublisher receives a StatusEvent after every submission and transition.
type EventPublisher interface {
	Publish(ctx context.Context, ev models.StatusEvent) error
}

// SubmitInput is the citizen-supplied part of a new grievance.
type SubmitInput struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Category    string            `json:"category"`
	Location    string            `json:"location"`
	Latitude    models.Coordinate `json:"latitude"`
	Longitude   models.Coordinate `json:"longitude"`
	Images      []string          `json:"images"`
	Priority    string            `json:"priority"`
}

// Page is one page of the admin listing.
type Page struct {
	Grievances []models.Grievance `json:"grievances"`
	Pagination storage.Pagination `json:"pagination"`
}

// Service handles the business logic for grievances.
type Service struct {
	Storage Store
	Cache   ViewCache
	Codes   *trackcode.Resolver
	Events  []EventPublisher

	metrics *metrics
}

// NewService creates a new grievance service. cache may be nil.
func NewService(store Store, cache ViewCache, reg prometheus.Registerer) *Service {
	s := &Service{
		Storage: store,
		Cache:   cache,
		Codes:   trackcode.NewResolver(store),
		metrics: newMetrics(reg),
	}
	s.Codes.OnCollision = func(string) { s.metrics.collisions.Inc() }
	return s
}

// Subscribe adds a receiver for status events.
func (s *Service) Subscribe(p EventPublisher) {
	s.Events = append(s.Events, p)
}

// Submit validates in, allocates a tracking code and stores the grievance
// together with its SUBMITTED seed entry.
func (s *Service) Submit(ctx context.Context, ownerID string, in SubmitInput) (*models.Grievance, error) {
	g := &models.Grievance{
		Title:       in.Title,
		Description: in.Description,
		Category:    models.Category(in.Category),
		Location:    in.Location,
		Latitude:    in.Latitude.Value,
		Longitude:   in.Longitude.Value,
		Images:      datatypes.JSONSlice[string](cleanImages(in.Images)),
		Priority:    models.Priority(in.Priority),
		UserID:      ownerID,
	}
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner is required", models.ErrValidation)
	}
	if err := g.Normalize(); err != nil {
		return nil, err
	}

	comment := config.SeedStatusComment
	seed := &models.StatusEntry{
		Status:    models.StatusSubmitted,
		Comment:   &comment,
		CreatedBy: ownerID,
	}

	// A concurrent submission can claim the code between the existence
	// check and the insert; the unique index catches it and we draw again.
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		g.TrackingID, err = s.Codes.Allocate(ctx)
		if err != nil {
			return nil, err
		}
		err = s.Storage.CreateGrievance(ctx, g, seed)
		if !errors.Is(err, storage.ErrDuplicateTrackingID) {
			break
		}
		s.metrics.collisions.Inc()
		log.Printf("WARNING: tracking code %s was claimed concurrently, retrying", g.TrackingID)
	}
	if err != nil {
		return nil, err
	}

	g.Statuses = []models.StatusEntry{*seed}
	g.RefreshCurrentStatus()

	s.clearDraft(ctx, ownerID)
	s.invalidate(ctx, ownerID)
	s.metrics.submitted.WithLabelValues(string(g.Category)).Inc()
	s.publish(ctx, models.NewStatusEvent(g, seed))

	log.Printf("INFO: Grievance %s submitted by user %s", g.TrackingID, ownerID)
	return g, nil
}

// Transition records a new status for the grievance. Any status may follow
// any other except the current one.
func (s *Service) Transition(ctx context.Context, grievanceID, status, comment, actorID string) (*models.StatusEntry, *models.Grievance, error) {
	g, err := s.Storage.FindGrievanceByID(ctx, grievanceID)
	if err != nil {
		return nil, nil, err
	}
	return s.transition(ctx, g, status, comment, actorID, s.Storage.FindGrievanceWithSubmitter)
}

// TransitionOwned is the self-service variant: only the grievance's owner
// may use it. Grievances of other users are reported as not found.
func (s *Service) TransitionOwned(ctx context.Context, ownerID, grievanceID, status, comment string) (*models.StatusEntry, *models.Grievance, error) {
	g, err := s.GetOwned(ctx, ownerID, grievanceID)
	if err != nil {
		return nil, nil, err
	}
	return s.transition(ctx, g, status, comment, ownerID, s.Storage.FindGrievanceByID)
}

// transition records the entry and returns the grievance as reload sees it.
func (s *Service) transition(ctx context.Context, g *models.Grievance, raw, comment, actorID string, reload func(context.Context, string) (*models.Grievance, error)) (*models.StatusEntry, *models.Grievance, error) {
	status, ok := models.ParseStatus(raw)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}

	current := models.StatusSubmitted
	latest, err := s.Storage.LatestStatus(ctx, g.ID)
	if err != nil {
		return nil, nil, err
	}
	if latest != nil {
		current = latest.Status
	}
	if current == status {
		return nil, nil, fmt.Errorf("%w: %s", ErrDuplicateStatus, status)
	}

	entry := &models.StatusEntry{
		GrievanceID: g.ID,
		Status:      status,
		CreatedBy:   actorID,
	}
	if c := strings.TrimSpace(comment); c != "" {
		entry.Comment = &c
	}
	if err := s.Storage.AppendStatus(ctx, entry); err != nil {
		return nil, nil, err
	}
	if err := s.Storage.TouchGrievance(ctx, g.ID); err != nil {
		return nil, nil, err
	}

	s.invalidate(ctx, g.UserID)
	s.metrics.transitions.WithLabelValues(string(status)).Inc()
	s.publish(ctx, models.NewStatusEvent(g, entry))

	refreshed, err := reload(ctx, g.ID)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("INFO: Grievance %s moved %s -> %s by %s", g.TrackingID, current, status, actorID)
	return entry, refreshed, nil
}

// TrackByCode is the public, read-only lookup by tracking code.
func (s *Service) TrackByCode(ctx context.Context, code string) (*models.Grievance, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, storage.ErrNotFound
	}
	return s.Storage.FindGrievanceByTrackingID(ctx, code)
}

// ListOwned returns the owner's grievances with their latest status only.
// The bool reports whether the list came from the cache. A miss writes the
// list back unless it was invalidated while the store was being read.
func (s *Service) ListOwned(ctx context.Context, ownerID string) ([]models.Grievance, bool, error) {
	version := int64(-1)
	if s.Cache != nil {
		if cached, ok := s.Cache.GetUserGrievances(ctx, ownerID); ok {
			s.metrics.cacheRequests.WithLabelValues("hit").Inc()
			return cached, true, nil
		}
		version = s.Cache.GrievancesVersion(ctx, ownerID)
	}
	s.metrics.cacheRequests.WithLabelValues("miss").Inc()

	grievances, err := s.Storage.ListGrievancesByOwner(ctx, ownerID)
	if err != nil {
		return nil, false, err
	}
	if grievances == nil {
		grievances = []models.Grievance{}
	}
	if s.Cache != nil {
		s.Cache.SetUserGrievances(ctx, ownerID, version, grievances)
	}
	return grievances, false, nil
}

// GetOwned returns the grievance with full history if ownerID owns it.
func (s *Service) GetOwned(ctx context.Context, ownerID, grievanceID string) (*models.Grievance, error) {
	g, err := s.Storage.FindGrievanceByID(ctx, grievanceID)
	if err != nil {
		return nil, err
	}
	if g.UserID != ownerID {
		return nil, storage.ErrNotFound
	}
	return g, nil
}

// Get is the admin lookup by internal id; it includes the submitter.
func (s *Service) Get(ctx context.Context, grievanceID string) (*models.Grievance, error) {
	return s.Storage.FindGrievanceWithSubmitter(ctx, grievanceID)
}

// List returns one page of the admin listing.
func (s *Service) List(ctx context.Context, filter storage.GrievanceFilter) (*Page, error) {
	grievances, total, err := s.Storage.ListGrievances(ctx, filter)
	if err != nil {
		return nil, err
	}
	if grievances == nil {
		grievances = []models.Grievance{}
	}
	return &Page{
		Grievances: grievances,
		Pagination: storage.NewPagination(filter.Page, filter.Limit, total),
	}, nil
}

// Delete removes the grievance and its history.
func (s *Service) Delete(ctx context.Context, grievanceID string) error {
	g, err := s.Storage.FindGrievanceByID(ctx, grievanceID)
	if err != nil {
		return err
	}
	if err := s.Storage.DeleteGrievance(ctx, grievanceID); err != nil {
		return err
	}
	s.invalidate(ctx, g.UserID)
	log.Printf("INFO: Grievance %s deleted", g.TrackingID)
	return nil
}

func (s *Service) invalidate(ctx context.Context, ownerID string) {
	if s.Cache != nil {
		s.Cache.InvalidateUserGrievances(ctx, ownerID)
	}
}

func (s *Service) clearDraft(ctx context.Context, ownerID string) {
	if s.Cache != nil {
		s.Cache.ClearDraft(ctx, ownerID)
	}
}

func (s *Service) publish(ctx context.Context, ev models.StatusEvent) {
	for _, p := range s.Events {
		if err := p.Publish(ctx, ev); err != nil {
			log.Printf("WARNING: Failed to publish %s event for %s: %v", ev.Status, ev.TrackingID, err)
		}
	}
}

func cleanImages(images []string) []string {
	out := make([]string, 0, len(images))
	for _, img := range images {
		if img = strings.TrimSpace(img); img != "" {
			out = append(out, img)
		}
	}
	return out
}
