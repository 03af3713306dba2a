package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"sampark/backend/internal/config"
	"sampark/backend/internal/models"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned for unknown grievance ids, tracking codes and users.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateTrackingID means another grievance claimed the same
	// tracking code between the existence check and the insert.
	ErrDuplicateTrackingID = errors.New("tracking id already in use")
	// ErrDuplicateEmail is returned when an account already uses the email.
	ErrDuplicateEmail = errors.New("email already in use")
)

// GrievanceStore is the durable record of grievances.
type GrievanceStore interface {
	TrackingIDExists(ctx context.Context, code string) (bool, error)
	CreateGrievance(ctx context.Context, g *models.Grievance, seed *models.StatusEntry) error
	FindGrievanceByTrackingID(ctx context.Context, code string) (*models.Grievance, error)
	FindGrievanceByID(ctx context.Context, id string) (*models.Grievance, error)
	FindGrievanceWithSubmitter(ctx context.Context, id string) (*models.Grievance, error)
	ListGrievancesByOwner(ctx context.Context, userID string) ([]models.Grievance, error)
	TouchGrievance(ctx context.Context, id string) error
	ListGrievances(ctx context.Context, filter GrievanceFilter) ([]models.Grievance, int64, error)
	DeleteGrievance(ctx context.Context, id string) error
}

// StatusLog is the append-only status history of grievances.
type StatusLog interface {
	AppendStatus(ctx context.Context, entry *models.StatusEntry) error
	LatestStatus(ctx context.Context, grievanceID string) (*models.StatusEntry, error)
	StatusHistory(ctx context.Context, grievanceID string) ([]models.StatusEntry, error)
}

// UserStore holds citizen and admin accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUserRole(ctx context.Context, id string, role models.Role) (*models.User, error)
	ListUsers(ctx context.Context, filter UserFilter) ([]models.User, int64, error)
}

type Storage interface {
	GrievanceStore
	StatusLog
	UserStore
}

// GrievanceFilter narrows the admin grievance listing.
type GrievanceFilter struct {
	Page      int
	Limit     int
	Status    models.Status
	Category  models.Category
	Priority  models.Priority
	Search    string
	SortBy    string
	SortOrder string
}

// UserFilter narrows the admin user listing.
type UserFilter struct {
	Page   int
	Limit  int
	Search string
}

type Service struct {
	DB *gorm.DB
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

// Migrate creates or updates the tables this service owns.
func (s *Service) Migrate() error {
	return s.DB.AutoMigrate(
		&models.User{},
		&models.Grievance{},
		&models.StatusEntry{},
	)
}

const historyOrder = "created_at DESC, id DESC"

func orderedHistory(db *gorm.DB) *gorm.DB {
	return db.Order(historyOrder)
}

// isUniqueViolation covers drivers that do not translate to gorm.ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *Service) TrackingIDExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.Grievance{}).
		Where("tracking_id = ?", strings.ToUpper(code)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateGrievance inserts g and its seed status entry in one transaction.
func (s *Service) CreateGrievance(ctx context.Context, g *models.Grievance, seed *models.StatusEntry) error {
	g.Statuses = nil
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(g).Error; err != nil {
			return err
		}
		seed.ID = 0
		seed.GrievanceID = g.ID
		return tx.Create(seed).Error
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, models.ErrValidation) {
		return err
	}
	if isUniqueViolation(err) {
		return ErrDuplicateTrackingID
	}
	log.Printf("ERROR: Failed to save grievance %s: %v", g.TrackingID, err)
	return err
}

func (s *Service) FindGrievanceByTrackingID(ctx context.Context, code string) (*models.Grievance, error) {
	var g models.Grievance
	err := s.DB.WithContext(ctx).
		Preload("Statuses", orderedHistory).
		Where("tracking_id = ?", code).
		First(&g).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &g, nil
}

func (s *Service) FindGrievanceByID(ctx context.Context, id string) (*models.Grievance, error) {
	var g models.Grievance
	err := s.DB.WithContext(ctx).
		Preload("Statuses", orderedHistory).
		Where("id = ?", id).
		First(&g).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &g, nil
}

// FindGrievanceWithSubmitter also loads the owner's name and email.
func (s *Service) FindGrievanceWithSubmitter(ctx context.Context, id string) (*models.Grievance, error) {
	var g models.Grievance
	err := s.DB.WithContext(ctx).
		Preload("User").
		Preload("Statuses", orderedHistory).
		Where("id = ?", id).
		First(&g).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &g, nil
}

// ListGrievancesByOwner returns the owner's grievances newest first, each
// carrying only its latest status entry.
func (s *Service) ListGrievancesByOwner(ctx context.Context, userID string) ([]models.Grievance, error) {
	var grievances []models.Grievance
	if err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&grievances).Error; err != nil {
		log.Printf("ERROR: Failed to list grievances for user %s: %v", userID, err)
		return nil, err
	}
	if err := s.attachLatest(ctx, grievances); err != nil {
		return nil, err
	}
	return grievances, nil
}

// attachLatest loads the history of every grievance in one query and keeps
// the newest entry per grievance. A LIMIT inside Preload would apply to the
// whole batch, not per grievance.
func (s *Service) attachLatest(ctx context.Context, grievances []models.Grievance) error {
	if len(grievances) == 0 {
		return nil
	}
	ids := make([]string, len(grievances))
	for i := range grievances {
		ids[i] = grievances[i].ID
	}

	var entries []models.StatusEntry
	if err := s.DB.WithContext(ctx).
		Where("grievance_id IN ?", ids).
		Order(historyOrder).
		Find(&entries).Error; err != nil {
		return err
	}

	latest := make(map[string]models.StatusEntry, len(grievances))
	for _, e := range entries {
		if _, ok := latest[e.GrievanceID]; !ok {
			latest[e.GrievanceID] = e
		}
	}
	for i := range grievances {
		grievances[i].Statuses = nil
		if e, ok := latest[grievances[i].ID]; ok {
			grievances[i].Statuses = []models.StatusEntry{e}
		}
		grievances[i].RefreshCurrentStatus()
	}
	return nil
}

// TouchGrievance bumps updated_at and nothing else.
func (s *Service) TouchGrievance(ctx context.Context, id string) error {
	result := s.DB.WithContext(ctx).Model(&models.Grievance{}).
		Where("id = ?", id).
		Update("updated_at", time.Now())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

const latestStatusExpr = "(SELECT h.status FROM grievance_status_history h WHERE h.grievance_id = grievances.id ORDER BY h.created_at DESC, h.id DESC LIMIT 1)"

// ListGrievances returns one page of grievances with full history and
// submitter plus the total number of rows matching filter.
func (s *Service) ListGrievances(ctx context.Context, filter GrievanceFilter) ([]models.Grievance, int64, error) {
	page, limit := pageBounds(filter.Page, filter.Limit)
	matching := grievanceScope(filter)

	var total int64
	if err := s.DB.WithContext(ctx).Model(&models.Grievance{}).
		Scopes(matching).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var grievances []models.Grievance
	err := s.DB.WithContext(ctx).
		Scopes(matching).
		Preload("User").
		Preload("Statuses", orderedHistory).
		Order(sortClause(filter.SortBy, filter.SortOrder)).
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&grievances).Error
	if err != nil {
		log.Printf("ERROR: Failed to list grievances: %v", err)
		return nil, 0, err
	}
	return grievances, total, nil
}

func grievanceScope(filter GrievanceFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if filter.Category != "" {
			db = db.Where("category = ?", filter.Category)
		}
		if filter.Priority != "" {
			db = db.Where("priority = ?", filter.Priority)
		}
		if filter.Status != "" {
			db = db.Where(latestStatusExpr+" = ?", filter.Status)
		}
		if search := strings.TrimSpace(filter.Search); search != "" {
			like := "%" + strings.ToLower(search) + "%"
			db = db.Where(
				"(LOWER(tracking_id) LIKE ? OR LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(location) LIKE ?)",
				like, like, like, like,
			)
		}
		return db
	}
}

func sortClause(sortBy, order string) string {
	column, ok := config.SortableColumns[sortBy]
	if !ok {
		column = "created_at"
	}
	dir := " DESC"
	if strings.EqualFold(order, "asc") {
		dir = " ASC"
	}
	if column == "created_at" {
		return column + dir
	}
	// при рівних значеннях новіші першими
	return column + dir + ", created_at DESC"
}

// Pagination describes where a page sits in a listing.
type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalCount  int64 `json:"totalCount"`
	HasMore     bool  `json:"hasMore"`
}

// NewPagination clamps page and limit the same way the listings do.
func NewPagination(page, limit int, total int64) Pagination {
	page, limit = pageBounds(page, limit)
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalCount:  total,
		HasMore:     page < totalPages,
	}
}

func pageBounds(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = config.DefaultPageSize
	}
	if limit > config.MaxPageSize {
		limit = config.MaxPageSize
	}
	return page, limit
}

// DeleteGrievance removes a grievance and its history. Cascading is done
// explicitly so it does not depend on the database enforcing foreign keys.
func (s *Service) DeleteGrievance(ctx context.Context, id string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("grievance_id = ?", id).Delete(&models.StatusEntry{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.Grievance{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// AppendStatus records a new history entry. Only the status value is checked.
func (s *Service) AppendStatus(ctx context.Context, entry *models.StatusEntry) error {
	if !entry.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", models.ErrValidation, entry.Status)
	}
	entry.ID = 0
	if err := s.DB.WithContext(ctx).Create(entry).Error; err != nil {
		log.Printf("ERROR: Failed to append status %s to grievance %s: %v", entry.Status, entry.GrievanceID, err)
		return err
	}
	return nil
}

// LatestStatus returns the newest entry, or nil when the grievance has none.
func (s *Service) LatestStatus(ctx context.Context, grievanceID string) (*models.StatusEntry, error) {
	var entry models.StatusEntry
	err := s.DB.WithContext(ctx).
		Where("grievance_id = ?", grievanceID).
		Order(historyOrder).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *Service) StatusHistory(ctx context.Context, grievanceID string) ([]models.StatusEntry, error) {
	var entries []models.StatusEntry
	if err := s.DB.WithContext(ctx).
		Where("grievance_id = ?", grievanceID).
		Order(historyOrder).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
