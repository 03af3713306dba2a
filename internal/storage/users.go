package storage

import (
	"context"
	"log"
	"strings"

	"sampark/backend/internal/models"

	"gorm.io/gorm"
)

func (s *Service) CreateUser(ctx context.Context, user *models.User) error {
	if err := s.DB.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		log.Printf("ERROR: Failed to save user %s: %v", user.Email, err)
		return err
	}
	return nil
}

func (s *Service) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// GetUserByEmail matches case-insensitively.
func (s *Service) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *Service) UpdateUserRole(ctx context.Context, id string, role models.Role) (*models.User, error) {
	result := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("role", role)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetUserByID(ctx, id)
}

// ListUsers pages through citizen accounts (admins are excluded) together
// with how many grievances each has filed.
func (s *Service) ListUsers(ctx context.Context, filter UserFilter) ([]models.User, int64, error) {
	page, limit := pageBounds(filter.Page, filter.Limit)

	query := s.DB.WithContext(ctx).Model(&models.User{}).Where("role = ?", models.RoleUser)
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("(LOWER(name) LIKE ? OR LOWER(email) LIKE ?)", like, like)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	if err := query.Session(&gorm.Session{}).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&users).Error; err != nil {
		return nil, 0, err
	}
	if len(users) == 0 {
		return users, total, nil
	}

	ids := make([]string, len(users))
	for i := range users {
		ids[i] = users[i].ID
	}
	var counts []struct {
		UserID string
		Count  int64
	}
	if err := s.DB.WithContext(ctx).Model(&models.Grievance{}).
		Select("user_id, COUNT(*) AS count").
		Where("user_id IN ?", ids).
		Group("user_id").
		Scan(&counts).Error; err != nil {
		return nil, 0, err
	}
	byUser := make(map[string]int64, len(counts))
	for _, c := range counts {
		byUser[c.UserID] = c.Count
	}
	for i := range users {
		users[i].GrievanceCount = byUser[users[i].ID]
	}
	return users, total, nil
}
