package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// Identity is the locally persisted record of the signed-in user
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Token    string `json:"token,omitempty"`
}

// Resolved reports whether the identity carries a usable actor id.
func (i *Identity) Resolved() bool {
	return i != nil && i.ID > 0
}

// User is a gateway-side account
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// LoginRequest is the body of the dev gateway login endpoint
type LoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// TokenClaims represents the JWT token claims
type TokenClaims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Type     string `json:"type"` // "access" or "refresh"
	jwt.RegisteredClaims
}

// LoginResponse is returned by the dev gateway login endpoint
type LoginResponse struct {
	Identity  Identity `json:"identity"`
	ExpiresAt int64    `json:"expiresAt"`
}

// WithoutToken returns a copy safe to print.
func (i Identity) WithoutToken() Identity {
	i.Token = ""
	return i
}
