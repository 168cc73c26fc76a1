package database

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workspace-client/pkg/logger"
	"workspace-client/pkg/models"
)

// exercise runs the same checks against any implementation.
func exercise(t *testing.T, db DatabaseInterface) {
	t.Helper()
	suffix := time.Now().Format("150405.000000")

	alice, err := db.UpsertUser("alice-"+suffix, "alice@acme.com")
	require.NoError(t, err)
	again, err := db.UpsertUser("alice-"+suffix, "")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, again.ID)
	assert.Equal(t, "alice@acme.com", again.Email)

	bob, err := db.UpsertUser("bob-"+suffix, "bob@acme.com")
	require.NoError(t, err)

	org := &models.Organization{Slug: "acme-" + suffix, Name: "Acme", JoinPolicy: models.JoinPolicyDomain, AllowedDomains: []string{"acme.com"}}
	require.NoError(t, db.CreateOrganization(org, alice.ID))
	require.NotZero(t, org.ID)

	err = db.CreateOrganization(&models.Organization{Slug: org.Slug, Name: "Dup"}, bob.ID)
	assert.ErrorIs(t, err, ErrConflict)

	second := &models.Organization{Slug: "beta-" + suffix, Name: "Beta"}
	require.NoError(t, db.CreateOrganization(second, bob.ID))
	assert.Equal(t, models.JoinPolicyInvite, second.JoinPolicy)

	got, err := db.GetOrganizationBySlug(org.Slug)
	require.NoError(t, err)
	assert.Equal(t, []string{"acme.com"}, got.AllowedDomains)
	_, err = db.GetOrganization(-1)
	assert.ErrorIs(t, err, ErrNotFound)

	found, err := db.ListOrganizationsByDomain("ACME.com")
	require.NoError(t, err)
	ids := []int64{}
	for _, o := range found {
		ids = append(ids, o.ID)
	}
	assert.Contains(t, ids, org.ID)
	assert.NotContains(t, ids, second.ID)

	require.NoError(t, db.AddOrganizationMember(second.ID, alice.ID, models.RoleMember))
	require.NoError(t, db.AddOrganizationMember(second.ID, alice.ID, models.RoleAdmin))
	role, err := db.GetMemberRole(second.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, role)

	ms, err := db.ListMemberships(alice.ID)
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, org.ID, ms[0].Organization.ID)
	assert.Equal(t, "owner", ms[0].Role)
	assert.Equal(t, second.ID, ms[1].Organization.ID)

	members, err := db.SearchMembers(second.ID, "ALICE")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, alice.ID, members[0].ID)
	members, err = db.SearchMembers(second.ID, "")
	require.NoError(t, err)
	assert.Len(t, members, 2)

	layer := &models.Layer{OrganizationID: org.ID, Name: "Roadmap"}
	require.NoError(t, db.CreateLayer(layer))
	require.NoError(t, db.AddLayerMember(layer.ID, bob.ID))
	require.NoError(t, db.AddLayerMember(layer.ID, bob.ID))
	gotLayer, err := db.GetLayer(layer.ID)
	require.NoError(t, err)
	assert.Equal(t, "Roadmap", gotLayer.Name)

	inv := &models.Invite{
		Scope: models.ScopeLayer, TargetID: layer.ID, Email: "carl@x.com",
		Status: models.InvitePending, InviterID: alice.ID, Token: "tok-" + suffix,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, db.CreateInvitation(inv))
	dup := *inv
	dup.Token = "tok2-" + suffix
	assert.ErrorIs(t, db.CreateInvitation(&dup), ErrConflict)

	byToken, err := db.GetInvitationByToken(inv.Token)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, byToken.ID)

	inv.Status = models.InviteRevoked
	require.NoError(t, db.UpdateInvitation(inv))
	stored, err := db.GetInvitation(inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InviteRevoked, stored.Status)

	// a revoked invite no longer blocks a new one
	require.NoError(t, db.CreateInvitation(&dup))
	list, err := db.ListInvitations(models.ScopeLayer, layer.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, inv.ID, list[0].ID)

	empty, err := db.ListInvitations(models.ScopeOrg, layer.ID)
	require.NoError(t, err)
	assert.NotNil(t, empty)

	assert.NoError(t, db.HealthCheck())
}

func TestMemoryDatabase(t *testing.T) {
	exercise(t, NewMemoryDatabase())
}

func TestMemoryDatabase_NotFound(t *testing.T) {
	db := NewMemoryDatabase()
	_, err := db.GetUserByUsername("ghost")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, db.AddOrganizationMember(1, 1, models.RoleMember), ErrNotFound)
	assert.ErrorIs(t, db.CreateLayer(&models.Layer{OrganizationID: 9}), ErrNotFound)
	assert.ErrorIs(t, db.UpdateInvitation(&models.Invite{ID: 3}), ErrNotFound)
	_, err = db.GetMemberRole(1, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryDatabase_ReturnsCopies(t *testing.T) {
	db := NewMemoryDatabase()
	u, _ := db.UpsertUser("a", "")
	org := &models.Organization{Slug: "a", Name: "A", AllowedDomains: []string{"a.com"}}
	require.NoError(t, db.CreateOrganization(org, u.ID))
	org.AllowedDomains[0] = "changed.com"

	got, err := db.GetOrganization(org.ID)
	require.NoError(t, err)
	got.Name = "mutated"
	again, _ := db.GetOrganization(org.ID)
	assert.Equal(t, "A", again.Name)
	assert.Equal(t, []string{"a.com"}, again.AllowedDomains)
}

func TestNewDatabase_FallsBackToMemory(t *testing.T) {
	db := NewDatabase(DatabaseConfig{}, logger.Nop())
	_, ok := db.(*MemoryDatabase)
	assert.True(t, ok)
}

func TestPostgresDatabase_Integration(t *testing.T) {
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set")
	}
	db, err := NewPostgresDatabase(dsn)
	require.NoError(t, err)
	defer db.Close()
	exercise(t, db)
}

func TestGetDatabase_ReusesInstance(t *testing.T) {
	ResetDatabase()
	defer ResetDatabase()

	assert.Equal(t, "no_connection", GetConnectionStats()["status"])

	first := GetDatabase(DatabaseConfig{}, logger.Nop())
	_, err := first.UpsertUser("kept", "")
	require.NoError(t, err)

	second := GetDatabase(DatabaseConfig{}, logger.Nop())
	_, err = second.GetUserByUsername("kept")
	assert.NoError(t, err)

	stats := GetConnectionStats()
	assert.Equal(t, "connected", stats["status"])
	assert.Equal(t, "memory", stats["type"])
}
