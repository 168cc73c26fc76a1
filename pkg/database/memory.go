package database

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"workspace-client/pkg/models"
)

type orgMember struct {
	orgID  int64
	userID int64
	role   models.OrgMemberRole
}

// MemoryDatabase keeps everything in process memory. Data is lost on restart.
type MemoryDatabase struct {
	mu sync.RWMutex

	nextID       int64
	users        map[int64]*models.User
	orgs         map[int64]*models.Organization
	members      []orgMember // creation order
	layers       map[int64]*models.Layer
	layerMembers map[int64][]int64
	invites      map[int64]*models.Invite
	inviteOrder  []int64
}

func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{
		users:        make(map[int64]*models.User),
		orgs:         make(map[int64]*models.Organization),
		layers:       make(map[int64]*models.Layer),
		layerMembers: make(map[int64][]int64),
		invites:      make(map[int64]*models.Invite),
	}
}

func (db *MemoryDatabase) id() int64 {
	db.nextID++
	return db.nextID
}

// UpsertUser returns the user with username, creating it on first login.
// A non-empty email replaces the stored one.
func (db *MemoryDatabase) UpsertUser(username, email string) (*models.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, u := range db.users {
		if u.Username == username {
			if email != "" {
				u.Email = email
			}
			cp := *u
			return &cp, nil
		}
	}
	u := &models.User{ID: db.id(), Username: username, Email: email}
	db.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (db *MemoryDatabase) GetUserByID(id int64) (*models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	u, ok := db.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (db *MemoryDatabase) GetUserByUsername(username string) (*models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, u := range db.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", username, ErrNotFound)
}

func (db *MemoryDatabase) CreateOrganization(org *models.Organization, ownerID int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, o := range db.orgs {
		if o.Slug == org.Slug {
			return fmt.Errorf("organization %q: %w", org.Slug, ErrConflict)
		}
	}
	org.ID = db.id()
	org.JoinPolicy = org.JoinPolicy.OrDefault()
	cp := *org
	cp.AllowedDomains = slices.Clone(org.AllowedDomains)
	db.orgs[org.ID] = &cp
	db.members = append(db.members, orgMember{orgID: org.ID, userID: ownerID, role: models.RoleOwner})
	return nil
}

func (db *MemoryDatabase) GetOrganization(id int64) (*models.Organization, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	o, ok := db.orgs[id]
	if !ok {
		return nil, fmt.Errorf("organization %d: %w", id, ErrNotFound)
	}
	return cloneOrg(o), nil
}

func (db *MemoryDatabase) GetOrganizationBySlug(slug string) (*models.Organization, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, o := range db.orgs {
		if o.Slug == slug {
			return cloneOrg(o), nil
		}
	}
	return nil, fmt.Errorf("organization %q: %w", slug, ErrNotFound)
}

func (db *MemoryDatabase) ListOrganizationsByDomain(domain string) ([]models.Organization, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	domain = strings.ToLower(domain)
	out := []models.Organization{}
	for _, o := range db.orgs {
		if o.JoinPolicy == models.JoinPolicyDomain && slices.Contains(o.AllowedDomains, domain) {
			out = append(out, *cloneOrg(o))
		}
	}
	slices.SortFunc(out, func(a, b models.Organization) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (db *MemoryDatabase) ListMemberships(userID int64) ([]models.Membership, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := []models.Membership{}
	for _, m := range db.members {
		if m.userID != userID {
			continue
		}
		if o, ok := db.orgs[m.orgID]; ok {
			out = append(out, models.Membership{Organization: *cloneOrg(o), Role: string(m.role)})
		}
	}
	return out, nil
}

// AddOrganizationMember is a no-op when the user already belongs to the organization.
func (db *MemoryDatabase) AddOrganizationMember(orgID, userID int64, role models.OrgMemberRole) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.orgs[orgID]; !ok {
		return fmt.Errorf("organization %d: %w", orgID, ErrNotFound)
	}
	for _, m := range db.members {
		if m.orgID == orgID && m.userID == userID {
			return nil
		}
	}
	db.members = append(db.members, orgMember{orgID: orgID, userID: userID, role: role})
	return nil
}

func (db *MemoryDatabase) GetMemberRole(orgID, userID int64) (models.OrgMemberRole, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, m := range db.members {
		if m.orgID == orgID && m.userID == userID {
			return m.role, nil
		}
	}
	return "", fmt.Errorf("member %d of organization %d: %w", userID, orgID, ErrNotFound)
}

func (db *MemoryDatabase) SearchMembers(orgID int64, query string) ([]models.Member, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := []models.Member{}
	for _, m := range db.members {
		if m.orgID != orgID {
			continue
		}
		u, ok := db.users[m.userID]
		if !ok || !matchesMember(*u, query) {
			continue
		}
		out = append(out, models.Member{ID: u.ID, Username: u.Username, Email: u.Email, Role: string(m.role)})
	}
	return out, nil
}

func (db *MemoryDatabase) CreateLayer(layer *models.Layer) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.orgs[layer.OrganizationID]; !ok {
		return fmt.Errorf("organization %d: %w", layer.OrganizationID, ErrNotFound)
	}
	layer.ID = db.id()
	cp := *layer
	db.layers[layer.ID] = &cp
	return nil
}

func (db *MemoryDatabase) GetLayer(id int64) (*models.Layer, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	l, ok := db.layers[id]
	if !ok {
		return nil, fmt.Errorf("layer %d: %w", id, ErrNotFound)
	}
	cp := *l
	return &cp, nil
}

func (db *MemoryDatabase) AddLayerMember(layerID, userID int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.layers[layerID]; !ok {
		return fmt.Errorf("layer %d: %w", layerID, ErrNotFound)
	}
	if !slices.Contains(db.layerMembers[layerID], userID) {
		db.layerMembers[layerID] = append(db.layerMembers[layerID], userID)
	}
	return nil
}

func (db *MemoryDatabase) CreateInvitation(inv *models.Invite) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, id := range db.inviteOrder {
		other := db.invites[id]
		if other.Scope == inv.Scope && other.TargetID == inv.TargetID &&
			other.Email == inv.Email && other.Status == models.InvitePending {
			return fmt.Errorf("pending invite for %s: %w", inv.Email, ErrConflict)
		}
	}
	inv.ID = db.id()
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}
	cp := *inv
	db.invites[inv.ID] = &cp
	db.inviteOrder = append(db.inviteOrder, inv.ID)
	return nil
}

func (db *MemoryDatabase) GetInvitation(id int64) (*models.Invite, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	inv, ok := db.invites[id]
	if !ok {
		return nil, fmt.Errorf("invite %d: %w", id, ErrNotFound)
	}
	cp := *inv
	return &cp, nil
}

func (db *MemoryDatabase) GetInvitationByToken(token string) (*models.Invite, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, inv := range db.invites {
		if inv.Token == token {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("invite token: %w", ErrNotFound)
}

func (db *MemoryDatabase) ListInvitations(scope models.InviteScope, targetID int64) ([]models.Invite, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := []models.Invite{}
	for _, id := range db.inviteOrder {
		inv := db.invites[id]
		if inv.Scope == scope && inv.TargetID == targetID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

// UpdateInvitation stores the status and expiry of inv.
func (db *MemoryDatabase) UpdateInvitation(inv *models.Invite) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	cur, ok := db.invites[inv.ID]
	if !ok {
		return fmt.Errorf("invite %d: %w", inv.ID, ErrNotFound)
	}
	cur.Status = inv.Status
	cur.ExpiresAt = inv.ExpiresAt
	return nil
}

func (db *MemoryDatabase) HealthCheck() error { return nil }

func (db *MemoryDatabase) Close() error { return nil }

func cloneOrg(o *models.Organization) *models.Organization {
	cp := *o
	cp.AllowedDomains = slices.Clone(o.AllowedDomains)
	return &cp
}
