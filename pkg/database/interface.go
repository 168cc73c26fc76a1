package database

import (
	"errors"
	"strings"

	"go.uber.org/zap"

	"workspace-client/pkg/models"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// DatabaseInterface is the storage behind the dev gateway
type DatabaseInterface interface {
	// Users
	UpsertUser(username, email string) (*models.User, error)
	GetUserByID(id int64) (*models.User, error)
	GetUserByUsername(username string) (*models.User, error)

	// Organizations & memberships
	CreateOrganization(org *models.Organization, ownerID int64) error
	GetOrganization(id int64) (*models.Organization, error)
	GetOrganizationBySlug(slug string) (*models.Organization, error)
	// ListOrganizationsByDomain returns domain-policy organizations admitting domain.
	ListOrganizationsByDomain(domain string) ([]models.Organization, error)
	// ListMemberships returns the user's memberships in the order they were created.
	ListMemberships(userID int64) ([]models.Membership, error)
	AddOrganizationMember(orgID, userID int64, role models.OrgMemberRole) error
	GetMemberRole(orgID, userID int64) (models.OrgMemberRole, error)
	SearchMembers(orgID int64, query string) ([]models.Member, error)

	// Layers
	CreateLayer(layer *models.Layer) error
	GetLayer(id int64) (*models.Layer, error)
	AddLayerMember(layerID, userID int64) error

	// Invitations
	CreateInvitation(inv *models.Invite) error
	GetInvitation(id int64) (*models.Invite, error)
	GetInvitationByToken(token string) (*models.Invite, error)
	ListInvitations(scope models.InviteScope, targetID int64) ([]models.Invite, error)
	UpdateInvitation(inv *models.Invite) error

	HealthCheck() error
	Close() error
}

// DatabaseConfig selects the implementation
type DatabaseConfig struct {
	PostgresDSN string
	Debug       bool
}

// NewDatabase returns Postgres when a DSN is configured and reachable, memory otherwise.
func NewDatabase(config DatabaseConfig, log *zap.SugaredLogger) DatabaseInterface {
	if dsn := strings.TrimSpace(config.PostgresDSN); dsn != "" {
		db, err := NewPostgresDatabase(dsn)
		if err == nil {
			log.Infow("using postgres database")
			return db
		}
		log.Warnw("postgres unavailable, falling back to memory", "error", err)
	}
	log.Infow("using in-memory database")
	return NewMemoryDatabase()
}

// matchesMember is the member search predicate shared by implementations.
func matchesMember(u models.User, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(u.Username), q) || strings.Contains(strings.ToLower(u.Email), q)
}
