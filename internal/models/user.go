package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role gates the admin routes.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ParseRole upper-cases raw and reports whether it is USER or ADMIN.
func ParseRole(raw string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(raw)))
	return r, r == RoleUser || r == RoleAdmin
}

// User представляє громадянина або адміністратора.
type User struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"` // UUID
	Name      string    `gorm:"type:text;not null" json:"name"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"` // зберігається в нижньому регістрі
	Password  string    `gorm:"type:text;not null" json:"-"`                        // bcrypt hash
	Role      Role      `gorm:"type:varchar(8);not null;default:'USER'" json:"role"`
	CreatedAt time.Time `json:"createdAt"`

	GrievanceCount int64 `gorm:"-" json:"grievanceCount,omitempty"`
}

func (User) TableName() string { return "users" }

// BeforeCreate: хук GORM, призначає UUID і нормалізує email перед вставкою.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Role == "" {
		u.Role = RoleUser
	}
	return
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// Submitter is the account summary attached to grievances in admin views.
type Submitter struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (Submitter) TableName() string { return "users" }
