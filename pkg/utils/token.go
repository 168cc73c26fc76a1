package utils

import (
	"crypto/rand"
	"encoding/base64"
	"strings"

	"github.com/google/uuid"
)

// InviteTokenBytes is the entropy of an invite token before encoding.
const InviteTokenBytes = 24

// NewInviteToken returns an unguessable URL-safe token for an invite link.
// If the system random source fails it falls back to a dashless uuid.
func NewInviteToken() string {
	b := make([]byte, InviteTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	// RawURLEncoding: no '=' padding, no '+' or '/'
	return base64.RawURLEncoding.EncodeToString(b)
}
