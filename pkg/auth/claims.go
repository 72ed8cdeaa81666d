package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mateoquintana/mercaderia-backend/pkg/enums"
)

// AccessTokenClaims represents the typed JWT issued to clients by the
// external auth service. Token issuance is not this system's job; the order
// engine only parses claims to build the actor context.
type AccessTokenClaims struct {
	UserID   uuid.UUID       `json:"user_id"`
	Role     enums.ActorRole `json:"role"`
	VendorID *uuid.UUID      `json:"vendor_id,omitempty"`
	jwt.RegisteredClaims
}
