package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"workspace-client/pkg/models"
)

// GatewaySchema creates the dev gateway tables.
const GatewaySchema = `
CREATE TABLE IF NOT EXISTS users (
    id         BIGSERIAL PRIMARY KEY,
    username   TEXT NOT NULL UNIQUE,
    email      TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS organizations (
    id              BIGSERIAL PRIMARY KEY,
    slug            TEXT NOT NULL UNIQUE,
    name            TEXT NOT NULL,
    join_policy     TEXT NOT NULL DEFAULT 'invite',
    allowed_domains TEXT[] NOT NULL DEFAULT '{}',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS organization_memberships (
    id              BIGSERIAL PRIMARY KEY,
    organization_id BIGINT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
    user_id         BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    role            TEXT NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (organization_id, user_id)
);
CREATE TABLE IF NOT EXISTS layers (
    id              BIGSERIAL PRIMARY KEY,
    organization_id BIGINT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
    name            TEXT NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS layer_members (
    layer_id BIGINT NOT NULL REFERENCES layers(id) ON DELETE CASCADE,
    user_id  BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    PRIMARY KEY (layer_id, user_id)
);
CREATE TABLE IF NOT EXISTS invitations (
    id         BIGSERIAL PRIMARY KEY,
    scope      TEXT NOT NULL,
    target_id  BIGINT NOT NULL,
    email      TEXT NOT NULL,
    status     TEXT NOT NULL DEFAULT 'pending',
    inviter_id BIGINT NOT NULL,
    token      TEXT NOT NULL UNIQUE,
    expires_at TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS invitations_pending_email
    ON invitations (scope, target_id, email) WHERE status = 'pending';
`

// PostgresDatabase PostgreSQL implementation of DatabaseInterface
type PostgresDatabase struct {
	db *sql.DB
}

// NewPostgresDatabase connects with a few parameter sets and creates the schema.
func NewPostgresDatabase(dsn string) (*PostgresDatabase, error) {
	// Sanitize DSN to avoid stray CR/LF from env values
	dsn = strings.TrimSpace(dsn)
	strategies := []string{
		addConnectionParams(dsn, "connect_timeout=10"),
		addConnectionParams(dsn, "sslmode=require&connect_timeout=10"),
		dsn,
	}

	var lastErr error
	for _, strategy := range strategies {
		db, err := sql.Open("postgres", strategy)
		if err != nil {
			lastErr = err
			continue
		}
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err = db.Ping(); err != nil {
			lastErr = err
			db.Close()
			continue
		}
		if _, err = db.Exec(GatewaySchema); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
		return &PostgresDatabase{db: db}, nil
	}
	return nil, fmt.Errorf("failed to connect to PostgreSQL with all strategies: %w", lastErr)
}

// addConnectionParams appends query parameters to a DSN
func addConnectionParams(dsn, params string) string {
	if params == "" {
		return dsn
	}
	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}
	return dsn + separator + params
}

// translate maps driver errors to the package sentinels.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s: %w", what, ErrConflict)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s: %w", what, ErrNotFound)
		}
	}
	return fmt.Errorf("%s: %w", what, err)
}

// ================= Users =================

func (db *PostgresDatabase) UpsertUser(username, email string) (*models.User, error) {
	var u models.User
	err := db.db.QueryRow(`
        INSERT INTO users (username, email)
        VALUES ($1, $2)
        ON CONFLICT (username) DO UPDATE
            SET email = CASE WHEN EXCLUDED.email <> '' THEN EXCLUDED.email ELSE users.email END
        RETURNING id, username, email
    `, username, email).Scan(&u.ID, &u.Username, &u.Email)
	if err != nil {
		return nil, translate(err, "upsert user")
	}
	return &u, nil
}

func (db *PostgresDatabase) GetUserByID(id int64) (*models.User, error) {
	var u models.User
	err := db.db.QueryRow(`SELECT id, username, email FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Username, &u.Email)
	if err != nil {
		return nil, translate(err, "get user")
	}
	return &u, nil
}

func (db *PostgresDatabase) GetUserByUsername(username string) (*models.User, error) {
	var u models.User
	err := db.db.QueryRow(`SELECT id, username, email FROM users WHERE username = $1`, username).
		Scan(&u.ID, &u.Username, &u.Email)
	if err != nil {
		return nil, translate(err, "get user")
	}
	return &u, nil
}

// ================= Organizations & memberships =================

func (db *PostgresDatabase) CreateOrganization(org *models.Organization, ownerID int64) error {
	tx, err := db.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	org.JoinPolicy = org.JoinPolicy.OrDefault()
	domains := org.AllowedDomains
	if domains == nil {
		domains = []string{}
	}
	err = tx.QueryRow(`
        INSERT INTO organizations (slug, name, join_policy, allowed_domains)
        VALUES ($1, $2, $3, $4)
        RETURNING id
    `, org.Slug, org.Name, string(org.JoinPolicy), pq.Array(domains)).Scan(&org.ID)
	if err != nil {
		return translate(err, "create organization")
	}
	// owner membership
	if _, err = tx.Exec(`
        INSERT INTO organization_memberships (organization_id, user_id, role)
        VALUES ($1, $2, 'owner')
    `, org.ID, ownerID); err != nil {
		return translate(err, "add owner membership")
	}
	return tx.Commit()
}

const orgColumns = `o.id, o.slug, o.name, o.join_policy, o.allowed_domains`

func scanOrg(row interface{ Scan(...any) error }) (*models.Organization, error) {
	var o models.Organization
	var policy string
	var domains []string
	if err := row.Scan(&o.ID, &o.Slug, &o.Name, &policy, pq.Array(&domains)); err != nil {
		return nil, err
	}
	o.JoinPolicy = models.JoinPolicy(policy)
	if len(domains) > 0 {
		o.AllowedDomains = domains
	}
	return &o, nil
}

func (db *PostgresDatabase) GetOrganization(id int64) (*models.Organization, error) {
	o, err := scanOrg(db.db.QueryRow(`SELECT `+orgColumns+` FROM organizations o WHERE o.id = $1`, id))
	if err != nil {
		return nil, translate(err, "get organization")
	}
	return o, nil
}

func (db *PostgresDatabase) GetOrganizationBySlug(slug string) (*models.Organization, error) {
	o, err := scanOrg(db.db.QueryRow(`SELECT `+orgColumns+` FROM organizations o WHERE o.slug = $1`, slug))
	if err != nil {
		return nil, translate(err, "get organization")
	}
	return o, nil
}

func (db *PostgresDatabase) ListOrganizationsByDomain(domain string) ([]models.Organization, error) {
	rows, err := db.db.Query(`
        SELECT `+orgColumns+`
        FROM organizations o
        WHERE o.join_policy = 'domain' AND $1 = ANY(o.allowed_domains)
        ORDER BY o.id
    `, strings.ToLower(domain))
	if err != nil {
		return nil, fmt.Errorf("failed to discover organizations: %w", err)
	}
	defer rows.Close()
	out := []models.Organization{}
	for rows.Next() {
		o, err := scanOrg(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (db *PostgresDatabase) ListMemberships(userID int64) ([]models.Membership, error) {
	rows, err := db.db.Query(`
        SELECT `+orgColumns+`, m.role
        FROM organization_memberships m
        JOIN organizations o ON o.id = m.organization_id
        WHERE m.user_id = $1
        ORDER BY m.id
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()
	out := []models.Membership{}
	for rows.Next() {
		var m models.Membership
		var policy string
		var domains []string
		o := &m.Organization
		if err := rows.Scan(&o.ID, &o.Slug, &o.Name, &policy, pq.Array(&domains), &m.Role); err != nil {
			return nil, err
		}
		o.JoinPolicy = models.JoinPolicy(policy)
		if len(domains) > 0 {
			o.AllowedDomains = domains
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (db *PostgresDatabase) AddOrganizationMember(orgID, userID int64, role models.OrgMemberRole) error {
	_, err := db.db.Exec(`
        INSERT INTO organization_memberships (organization_id, user_id, role)
        VALUES ($1, $2, $3)
        ON CONFLICT (organization_id, user_id) DO NOTHING
    `, orgID, userID, string(role))
	return translate(err, "add member")
}

func (db *PostgresDatabase) GetMemberRole(orgID, userID int64) (models.OrgMemberRole, error) {
	var role string
	err := db.db.QueryRow(`
        SELECT role FROM organization_memberships WHERE organization_id = $1 AND user_id = $2
    `, orgID, userID).Scan(&role)
	if err != nil {
		return "", translate(err, "get member role")
	}
	return models.OrgMemberRole(role), nil
}

func (db *PostgresDatabase) SearchMembers(orgID int64, query string) ([]models.Member, error) {
	pattern := "%" + strings.TrimSpace(query) + "%"
	rows, err := db.db.Query(`
        SELECT u.id, u.username, u.email, m.role
        FROM organization_memberships m
        JOIN users u ON u.id = m.user_id
        WHERE m.organization_id = $1 AND (u.username ILIKE $2 OR u.email ILIKE $2)
        ORDER BY m.id
    `, orgID, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search members: %w", err)
	}
	defer rows.Close()
	out := []models.Member{}
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.ID, &m.Username, &m.Email, &m.Role); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ================= Layers =================

func (db *PostgresDatabase) CreateLayer(layer *models.Layer) error {
	err := db.db.QueryRow(`
        INSERT INTO layers (organization_id, name) VALUES ($1, $2) RETURNING id
    `, layer.OrganizationID, layer.Name).Scan(&layer.ID)
	return translate(err, "create layer")
}

func (db *PostgresDatabase) GetLayer(id int64) (*models.Layer, error) {
	var l models.Layer
	err := db.db.QueryRow(`SELECT id, organization_id, name FROM layers WHERE id = $1`, id).
		Scan(&l.ID, &l.OrganizationID, &l.Name)
	if err != nil {
		return nil, translate(err, "get layer")
	}
	return &l, nil
}

func (db *PostgresDatabase) AddLayerMember(layerID, userID int64) error {
	_, err := db.db.Exec(`
        INSERT INTO layer_members (layer_id, user_id) VALUES ($1, $2)
        ON CONFLICT DO NOTHING
    `, layerID, userID)
	return translate(err, "add layer member")
}

// ================= Invitations =================

const inviteColumns = `id, scope, target_id, email, status, inviter_id, token, expires_at, created_at`

func scanInvite(row interface{ Scan(...any) error }) (*models.Invite, error) {
	var inv models.Invite
	var scope, status string
	err := row.Scan(&inv.ID, &scope, &inv.TargetID, &inv.Email, &status, &inv.InviterID, &inv.Token, &inv.ExpiresAt, &inv.CreatedAt)
	if err != nil {
		return nil, err
	}
	inv.Scope = models.InviteScope(scope)
	inv.Status = models.InviteStatus(status)
	return &inv, nil
}

func (db *PostgresDatabase) CreateInvitation(inv *models.Invite) error {
	err := db.db.QueryRow(`
        INSERT INTO invitations (scope, target_id, email, status, inviter_id, token, expires_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at
    `, string(inv.Scope), inv.TargetID, inv.Email, string(inv.Status), inv.InviterID, inv.Token, inv.ExpiresAt).
		Scan(&inv.ID, &inv.CreatedAt)
	return translate(err, "create invitation")
}

func (db *PostgresDatabase) GetInvitation(id int64) (*models.Invite, error) {
	inv, err := scanInvite(db.db.QueryRow(`SELECT `+inviteColumns+` FROM invitations WHERE id = $1`, id))
	if err != nil {
		return nil, translate(err, "get invitation")
	}
	return inv, nil
}

func (db *PostgresDatabase) GetInvitationByToken(token string) (*models.Invite, error) {
	inv, err := scanInvite(db.db.QueryRow(`SELECT `+inviteColumns+` FROM invitations WHERE token = $1`, token))
	if err != nil {
		return nil, translate(err, "get invitation")
	}
	return inv, nil
}

func (db *PostgresDatabase) ListInvitations(scope models.InviteScope, targetID int64) ([]models.Invite, error) {
	rows, err := db.db.Query(`
        SELECT `+inviteColumns+` FROM invitations
        WHERE scope = $1 AND target_id = $2
        ORDER BY id
    `, string(scope), targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()
	out := []models.Invite{}
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

func (db *PostgresDatabase) UpdateInvitation(inv *models.Invite) error {
	res, err := db.db.Exec(`
        UPDATE invitations SET status = $1, expires_at = $2 WHERE id = $3
    `, string(inv.Status), inv.ExpiresAt, inv.ID)
	if err != nil {
		return translate(err, "update invitation")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("invite %d: %w", inv.ID, ErrNotFound)
	}
	return nil
}

// HealthCheck pings the database
func (db *PostgresDatabase) HealthCheck() error {
	return db.db.Ping()
}

// Close closes the connection pool
func (db *PostgresDatabase) Close() error {
	return db.db.Close()
}
