package auth

import (
	"time"

	"github.com/google/uuid"
)

// User represents an application user identified by email.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginCode is the stored challenge for one email address. Only the bcrypt
// hash of the code is kept at rest.
type LoginCode struct {
	Email     string
	CodeHash  string
	ExpiresAt time.Time
}

// AuthResult bundles the signed token with the user it belongs to.
type AuthResult struct {
	User        User      `json:"user"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}
