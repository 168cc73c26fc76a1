// Package session holds the signed-in identity and the active organization
// selection. A Session is passed explicitly to everything that needs them.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/golang-jwt/jwt/v5"

	"workspace-client/pkg/models"
	"workspace-client/pkg/storage"
)

const (
	UserKey      = "user"
	ActiveOrgKey = "activeOrg"
)

// Session reads and writes the persisted identity and active organization.
// Unreadable records are treated as absent.
type Session struct {
	store storage.Store
	mu    sync.RWMutex
}

func New(store storage.Store) *Session {
	return &Session{store: store}
}

// Identity returns the persisted identity, or nil when nobody is signed in.
func (s *Session) Identity() *models.Identity {
	var id models.Identity
	if !s.load(UserKey, &id) {
		return nil
	}
	return &id
}

// Token is the bearer token of the signed-in user, or "".
func (s *Session) Token() string {
	if id := s.Identity(); id != nil {
		return id.Token
	}
	return ""
}

// ActorID returns the signed-in user's id and whether it could be resolved.
func (s *Session) ActorID() (int64, bool) {
	id := s.Identity()
	if !id.Resolved() {
		return 0, false
	}
	return id.ID, true
}

func (s *Session) Username() string {
	if id := s.Identity(); id != nil {
		return id.Username
	}
	return ""
}

func (s *Session) SignIn(id models.Identity) error {
	if id.Username == "" {
		return errors.New("session: identity has no username")
	}
	return s.save(UserKey, id)
}

// SignOut forgets the identity and the active organization.
func (s *Session) SignOut() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Join(s.store.Delete(UserKey), s.store.Delete(ActiveOrgKey))
}

// ActiveOrganization returns the selected organization, or nil before any selection.
func (s *Session) ActiveOrganization() *models.Organization {
	var org models.Organization
	if !s.load(ActiveOrgKey, &org) || org.ID == 0 {
		return nil
	}
	return &org
}

// ActiveOrgID is the X-Org-Id header value, or "" when nothing is selected.
func (s *Session) ActiveOrgID() string {
	if org := s.ActiveOrganization(); org != nil {
		return strconv.FormatInt(org.ID, 10)
	}
	return ""
}

// SelectOrganization persists org as the active organization, overwriting any previous one.
// Only id, slug and name are kept.
func (s *Session) SelectOrganization(org models.Organization) error {
	if org.ID == 0 {
		return errors.New("session: organization has no id")
	}
	return s.save(ActiveOrgKey, models.Organization{ID: org.ID, Slug: org.Slug, Name: org.Name})
}

func (s *Session) load(key string, v any) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, err := s.store.Get(key)
	if err != nil || raw == "" {
		return false
	}
	return json.Unmarshal([]byte(raw), v) == nil
}

func (s *Session) save(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("session: encode %s: %w", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Set(key, string(data)); err != nil {
		return fmt.Errorf("session: save %s: %w", key, err)
	}
	return nil
}

// IdentityFromToken builds an identity from the claims of a gateway-issued token.
// The signature is not checked; the gateway does that on every request.
func IdentityFromToken(token string) (models.Identity, error) {
	claims := &models.TokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return models.Identity{}, fmt.Errorf("parse token: %w", err)
	}
	if claims.UserID == 0 || claims.Username == "" {
		return models.Identity{}, errors.New("token carries no user")
	}
	return models.Identity{
		ID:       claims.UserID,
		Username: claims.Username,
		Email:    claims.Email,
		Token:    token,
	}, nil
}
