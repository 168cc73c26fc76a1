package models

import (
	"fmt"
	"time"
)

// DefaultInviteHours is the expiry window used when a caller does not pick one (7 days).
const DefaultInviteHours = 168

// InviteScope selects which resource family an invite targets
type InviteScope string

const (
	ScopeOrg   InviteScope = "org"
	ScopeLayer InviteScope = "layer"
)

// ParseInviteScope accepts "org" or "layer".
func ParseInviteScope(s string) (InviteScope, error) {
	switch InviteScope(s) {
	case ScopeOrg, ScopeLayer:
		return InviteScope(s), nil
	}
	return "", fmt.Errorf("invalid invite scope %q: want org or layer", s)
}

// Collection is the resource path segment owning invites of this scope.
func (s InviteScope) Collection() string {
	if s == ScopeLayer {
		return "layers"
	}
	return "orgs"
}

type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
	InviteRevoked  InviteStatus = "revoked"
)

// Invite is an invitation to join an organization or a layer
type Invite struct {
	ID        int64        `json:"id"`
	Scope     InviteScope  `json:"scope"`
	TargetID  int64        `json:"targetId,omitempty"`
	Email     string       `json:"email"`
	Status    InviteStatus `json:"status"`
	InviterID int64        `json:"inviterId,omitempty"`
	Token     string       `json:"token,omitempty"`
	ExpiresAt time.Time    `json:"expiresAt"`
	CreatedAt time.Time    `json:"createdAt"`
}

// IsTerminal reports whether the invite can no longer change status.
func (i Invite) IsTerminal() bool {
	return i.Status == InviteAccepted || i.Status == InviteRevoked
}

// InvitePreview is what an unauthenticated holder of an invite token may see
type InvitePreview struct {
	Scope      InviteScope  `json:"scope"`
	TargetID   int64        `json:"targetId"`
	TargetName string       `json:"targetName,omitempty"`
	Email      string       `json:"email"`
	Status     InviteStatus `json:"status"`
	ExpiresAt  time.Time    `json:"expiresAt"`
}

// CreateInviteRequest is the body of POST /{orgs|layers}/{id}/invites
type CreateInviteRequest struct {
	Email          string `json:"email"`
	ExpiresInHours int    `json:"expiresInHours"`
}

// AcceptInviteRequest is the body of POST /invites/accept
type AcceptInviteRequest struct {
	Token string `json:"token"`
}

// AcceptInviteResponse tells the acceptor what they joined
type AcceptInviteResponse struct {
	Scope    InviteScope `json:"scope"`
	TargetID int64       `json:"targetId"`
}
