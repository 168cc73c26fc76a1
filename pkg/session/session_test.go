package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workspace-client/pkg/models"
	"workspace-client/pkg/storage"
)

func TestSession_Empty(t *testing.T) {
	s := New(storage.NewMemoryStore())
	assert.Nil(t, s.Identity())
	assert.Empty(t, s.Token())
	assert.Empty(t, s.Username())
	_, ok := s.ActorID()
	assert.False(t, ok)
	assert.Nil(t, s.ActiveOrganization())
	assert.Empty(t, s.ActiveOrgID())
}

func TestSession_SignInAndSelect(t *testing.T) {
	s := New(storage.NewMemoryStore())
	require.NoError(t, s.SignIn(models.Identity{ID: 42, Username: "alice", Token: "tok"}))

	assert.Equal(t, "alice", s.Username())
	assert.Equal(t, "tok", s.Token())
	id, ok := s.ActorID()
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	require.NoError(t, s.SelectOrganization(models.Organization{
		ID: 7, Slug: "acme", Name: "Acme", AllowedDomains: []string{"acme.com"},
	}))
	assert.Equal(t, "7", s.ActiveOrgID())
	assert.Equal(t, &models.Organization{ID: 7, Slug: "acme", Name: "Acme"}, s.ActiveOrganization())

	require.NoError(t, s.SelectOrganization(models.Organization{ID: 9, Slug: "beta", Name: "Beta"}))
	assert.Equal(t, "9", s.ActiveOrgID())

	require.NoError(t, s.SignOut())
	assert.Nil(t, s.Identity())
	assert.Nil(t, s.ActiveOrganization())
}

func TestSession_IdentityWithoutID(t *testing.T) {
	s := New(storage.NewMemoryStore())
	require.NoError(t, s.SignIn(models.Identity{Username: "ghost"}))
	assert.Equal(t, "ghost", s.Username())
	_, ok := s.ActorID()
	assert.False(t, ok)
}

func TestSession_Rejects(t *testing.T) {
	s := New(storage.NewMemoryStore())
	assert.Error(t, s.SignIn(models.Identity{ID: 1}))
	assert.Error(t, s.SelectOrganization(models.Organization{Slug: "x"}))
}

func TestSession_CorruptRecordIsAbsent(t *testing.T) {
	mem := storage.NewMemoryStore()
	require.NoError(t, mem.Set(UserKey, "not json"))
	require.NoError(t, mem.Set(ActiveOrgKey, `{"id":0}`))
	s := New(mem)
	assert.Nil(t, s.Identity())
	assert.Nil(t, s.ActiveOrganization())
}

func TestIdentityFromToken(t *testing.T) {
	claims := &models.TokenClaims{
		UserID:   5,
		Username: "bob",
		Email:    "bob@example.com",
		Type:     "access",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("whatever"))
	require.NoError(t, err)

	id, err := IdentityFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, models.Identity{ID: 5, Username: "bob", Email: "bob@example.com", Token: token}, id)

	_, err = IdentityFromToken("garbage")
	assert.Error(t, err)

	empty, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.TokenClaims{}).SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = IdentityFromToken(empty)
	assert.Error(t, err)
}
