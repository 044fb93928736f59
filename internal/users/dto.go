package users

import (
	"strings"
	"time"

	"github.com/angelmondragon/eventhub-backend/pkg/db/models"
	"github.com/angelmondragon/eventhub-backend/pkg/enums"
	"github.com/google/uuid"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID          uuid.UUID      `json:"id"`
	Email       string         `json:"email"`
	Username    string         `json:"username"`
	Role        enums.UserRole `json:"role"`
	SuperAdmin  bool           `json:"super_admin"`
	LastLoginAt *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email        string
	Username     string
	PasswordHash string
	Role         enums.UserRole
	SuperAdmin   bool
}

// Recipient is the slice of a user needed to send them an email.
type Recipient struct {
	ID       uuid.UUID `gorm:"column:id"`
	Email    string    `gorm:"column:email"`
	Username string    `gorm:"column:username"`
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		Username:    u.Username,
		Role:        u.Role,
		SuperAdmin:  u.SuperAdmin,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	role := c.Role
	if !role.IsValid() {
		role = enums.UserRoleUser
	}
	return &models.User{
		Email:        strings.ToLower(strings.TrimSpace(c.Email)),
		Username:     strings.TrimSpace(c.Username),
		PasswordHash: c.PasswordHash,
		Role:         role,
		SuperAdmin:   c.SuperAdmin,
	}
}
