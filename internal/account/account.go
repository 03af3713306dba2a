// Package account handles citizen and admin accounts: signup, login,
// session tokens and role management.
package account

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"sampark/backend/internal/config"
	"sampark/backend/internal/models"
	"sampark/backend/internal/storage"

	jwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken         = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidRole        = errors.New("invalid role")
	ErrSelfRoleChange     = errors.New("cannot change your own role")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// Service handles the business logic for accounts.
type Service struct {
	Users    storage.UserStore
	Secret   []byte
	TokenTTL time.Duration
	Cost     int
}

// NewService creates a new account service signing tokens with secret.
func NewService(users storage.UserStore, secret string) *Service {
	return &Service{
		Users:    users,
		Secret:   []byte(secret),
		TokenTTL: config.TokenTTL,
		Cost:     bcrypt.DefaultCost,
	}
}

// SignupInput is the body of a signup request.
type SignupInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup creates a USER account and returns it with a session token.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*models.User, string, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, "", fmt.Errorf("%w: all fields required", models.ErrValidation)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.Cost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Name:     in.Name,
		Email:    in.Email,
		Password: string(hashed),
		Role:     models.RoleUser,
	}
	if err := s.Users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicateEmail) {
			return nil, "", ErrEmailTaken
		}
		return nil, "", err
	}

	token, err := s.IssueToken(user.ID)
	if err != nil {
		return nil, "", err
	}
	log.Printf("INFO: New user %s signed up", user.ID)
	return user, token, nil
}

// Login checks the password of the account with email, case-insensitively.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, "", fmt.Errorf("%w: all fields required", models.ErrValidation)
	}

	user, err := s.Users.GetUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.IssueToken(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// IssueToken signs an HS256 token carrying the user id.
func (s *Service) IssueToken(userID string) (string, error) {
	claims := jwt.MapClaims{
		"userId": userID,
		"exp":    time.Now().Add(s.TokenTTL).Unix(),
		"iss":    config.TokenIssuer,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.Secret)
}

// ParseToken validates tokenStr and returns the user id it was issued for.
func (s *Service) ParseToken(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		return s.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	userID, _ := claims["userId"].(string)
	if userID == "" {
		return "", ErrInvalidToken
	}
	return userID, nil
}

// CurrentUser resolves a token to its account.
func (s *Service) CurrentUser(ctx context.Context, tokenStr string) (*models.User, error) {
	userID, err := s.ParseToken(tokenStr)
	if err != nil {
		return nil, err
	}
	user, err := s.Users.GetUserByID(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	return user, err
}

// SetRole changes another user's role. Admins cannot change their own.
func (s *Service) SetRole(ctx context.Context, actorID, userID, rawRole string) (*models.User, error) {
	role, ok := models.ParseRole(rawRole)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, rawRole)
	}
	if actorID == userID {
		return nil, ErrSelfRoleChange
	}
	user, err := s.Users.UpdateUserRole(ctx, userID, role)
	if err != nil {
		return nil, err
	}
	log.Printf("INFO: User %s set role of %s to %s", actorID, userID, role)
	return user, nil
}

// ListUsers pages through citizen accounts.
func (s *Service) ListUsers(ctx context.Context, filter storage.UserFilter) ([]models.User, int64, error) {
	users, total, err := s.Users.ListUsers(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	if users == nil {
		users = []models.User{}
	}
	return users, total, nil
}
