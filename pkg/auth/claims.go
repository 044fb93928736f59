package auth

import (
	"github.com/angelmondragon/eventhub-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID     uuid.UUID
	Role       enums.UserRole
	SuperAdmin bool
	JTI        string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID     uuid.UUID      `json:"user_id"`
	Role       enums.UserRole `json:"role"`
	SuperAdmin bool           `json:"super_admin,omitempty"`
	jwt.RegisteredClaims
}

// IsAdmin mirrors models.User.IsAdmin for token-only checks.
func (c *AccessTokenClaims) IsAdmin() bool {
	return c != nil && (c.SuperAdmin || c.Role == enums.UserRoleAdmin)
}
