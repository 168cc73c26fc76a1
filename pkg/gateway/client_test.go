package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workspace-client/pkg/models"
)

type fakeCreds struct {
	token string
	orgID string
	actor int64
}

func (f fakeCreds) Token() string       { return f.token }
func (f fakeCreds) ActiveOrgID() string { return f.orgID }
func (f fakeCreds) ActorID() (int64, bool) {
	return f.actor, f.actor > 0
}

type recorded struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// recorder answers every request with status and body and keeps what it saw.
type recorder struct {
	mu     sync.Mutex
	calls  []recorded
	status int
	body   string
}

func (rec *recorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	rec.mu.Lock()
	rec.calls = append(rec.calls, recorded{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   body,
	})
	status, resp := rec.status, rec.body
	rec.mu.Unlock()
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(resp))
}

func (rec *recorder) last(t *testing.T) recorded {
	t.Helper()
	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.NotEmpty(t, rec.calls)
	return rec.calls[len(rec.calls)-1]
}

func newTestClient(t *testing.T, rec *recorder, creds Credentials) *Client {
	t.Helper()
	srv := httptest.NewServer(rec)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api/", creds)
}

func TestNew_DefaultBaseURL(t *testing.T) {
	c := New("  ", nil)
	assert.Equal(t, "http://localhost:8080/api", c.BaseURL())
}

func TestDecorate_AttachesHeaders(t *testing.T) {
	rec := &recorder{body: `[]`}
	c := newTestClient(t, rec, fakeCreds{token: "tok", orgID: "7"})

	_, err := c.Organizations.ListMemberships(context.Background(), "alice")
	require.NoError(t, err)

	got := rec.last(t)
	assert.Equal(t, "Bearer tok", got.Header.Get("Authorization"))
	assert.Equal(t, "7", got.Header.Get(HeaderOrgID))
	assert.NotEmpty(t, got.Header.Get(HeaderRequestID))
	assert.Equal(t, "/api/organizations/memberships/alice", got.Path)
}

func TestDecorate_NoCredentials(t *testing.T) {
	rec := &recorder{body: `[]`}
	c := newTestClient(t, rec, fakeCreds{})

	_, err := c.Organizations.Discover(context.Background(), "bob@acme.com")
	require.NoError(t, err)

	got := rec.last(t)
	assert.Empty(t, got.Header.Get("Authorization"))
	assert.Empty(t, got.Header.Get(HeaderOrgID))
	assert.Equal(t, "bob@acme.com", got.Query.Get("email"))
}

func TestOrganizations_Paths(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name   string
		body   string
		invoke func(c *Client) error
		method string
		path   string
		query  url.Values
	}{
		{
			name: "get by slug", body: `{"id":1,"slug":"acme","name":"Acme"}`,
			invoke: func(c *Client) error { _, err := c.Organizations.GetBySlug(ctx, "acme"); return err },
			method: http.MethodGet, path: "/api/orgs/slug/acme",
		},
		{
			name:   "join",
			invoke: func(c *Client) error { return c.Organizations.Join(ctx, 12) },
			method: http.MethodPost, path: "/api/orgs/12/join",
		},
		{
			name: "search members", body: `[{"id":3,"username":"carl","role":"member"}]`,
			invoke: func(c *Client) error { _, err := c.Organizations.SearchMembers(ctx, 12, "ca"); return err },
			method: http.MethodGet, path: "/api/orgs/12/members", query: url.Values{"q": {"ca"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{body: tt.body}
			c := newTestClient(t, rec, fakeCreds{})
			require.NoError(t, tt.invoke(c))
			got := rec.last(t)
			assert.Equal(t, tt.method, got.Method)
			assert.Equal(t, tt.path, got.Path)
			for k := range tt.query {
				assert.Equal(t, tt.query.Get(k), got.Query.Get(k))
			}
		})
	}
}

func TestOrganizations_ListMembershipsKeepsOrder(t *testing.T) {
	rec := &recorder{body: `[
		{"organization":{"id":3,"slug":"c","name":"C"},"role":"member"},
		{"organization":{"id":1,"slug":"a","name":"A"},"role":"owner"}
	]`}
	c := newTestClient(t, rec, nil)

	ms, err := c.Organizations.ListMemberships(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, int64(3), ms[0].Organization.ID)
	assert.Equal(t, "owner", ms[1].Role)
}

func TestOrganizations_Create(t *testing.T) {
	rec := &recorder{status: http.StatusCreated, body: `{"id":9,"slug":"acme","name":"Acme","joinPolicy":"domain"}`}
	c := newTestClient(t, rec, nil)

	org, err := c.Organizations.Create(context.Background(), models.CreateOrganizationRequest{
		Name: " Acme ", Slug: "acme", JoinPolicy: models.JoinPolicyDomain, AllowedDomains: []string{"acme.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(9), org.ID)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.last(t).Body, &body))
	assert.Equal(t, "Acme", body["name"])
	assert.Equal(t, "domain", body["joinPolicy"])
	assert.Equal(t, []any{"acme.com"}, body["allowedDomains"])

	_, err = c.Organizations.Create(context.Background(), models.CreateOrganizationRequest{Name: "x"})
	assert.Error(t, err)
	_, err = c.Organizations.Create(context.Background(), models.CreateOrganizationRequest{Name: "x", Slug: "x", JoinPolicy: "open"})
	assert.Error(t, err)
}

func TestInvites_CreateByScope(t *testing.T) {
	for _, tt := range []struct {
		scope models.InviteScope
		path  string
	}{
		{models.ScopeOrg, "/api/orgs/4/invites"},
		{models.ScopeLayer, "/api/layers/4/invites"},
	} {
		t.Run(string(tt.scope), func(t *testing.T) {
			rec := &recorder{body: `{"id":1,"email":"a@b.com","status":"pending"}`}
			c := newTestClient(t, rec, nil)

			inv, err := c.Invites.Create(context.Background(), tt.scope, 4, 42, "a@b.com", 0)
			require.NoError(t, err)
			assert.Equal(t, models.InvitePending, inv.Status)

			got := rec.last(t)
			assert.Equal(t, http.MethodPost, got.Method)
			assert.Equal(t, tt.path, got.Path)
			assert.Equal(t, "42", got.Query.Get("inviterId"))
			assert.JSONEq(t, `{"email":"a@b.com","expiresInHours":168}`, string(got.Body))
		})
	}
}

func TestInvites_List(t *testing.T) {
	rec := &recorder{body: `null`}
	c := newTestClient(t, rec, nil)

	list, err := c.Invites.List(context.Background(), models.ScopeLayer, 8)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
	assert.Equal(t, "/api/layers/8/invites", rec.last(t).Path)
}

func TestInvites_ResendRevoke(t *testing.T) {
	rec := &recorder{}
	c := newTestClient(t, rec, nil)
	ctx := context.Background()

	require.NoError(t, c.Invites.Resend(ctx, 5, 42, 0))
	got := rec.last(t)
	assert.Equal(t, "/api/invites/5/resend", got.Path)
	assert.Equal(t, "42", got.Query.Get("requesterId"))
	assert.Equal(t, "168", got.Query.Get("hours"))

	require.NoError(t, c.Invites.Resend(ctx, 5, 42, 24))
	assert.Equal(t, "24", rec.last(t).Query.Get("hours"))

	require.NoError(t, c.Invites.Revoke(ctx, 5, 42))
	got = rec.last(t)
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/api/invites/5/revoke", got.Path)
	assert.Equal(t, "42", got.Query.Get("requesterId"))
}

func TestInvites_PreviewAndAccept(t *testing.T) {
	rec := &recorder{body: `{"scope":"org","targetId":3,"email":"a@b.com","status":"pending"}`}
	c := newTestClient(t, rec, fakeCreds{actor: 42})
	ctx := context.Background()

	p, err := c.Invites.Preview(ctx, "tok en")
	require.NoError(t, err)
	assert.Equal(t, int64(3), p.TargetID)
	assert.Equal(t, "tok en", rec.last(t).Query.Get("token"))

	_, err = c.Invites.Accept(ctx, "abc")
	require.NoError(t, err)
	got := rec.last(t)
	assert.Equal(t, "/api/invites/accept", got.Path)
	assert.Equal(t, "42", got.Query.Get("acceptorId"))
	assert.JSONEq(t, `{"token":"abc"}`, string(got.Body))
}

func TestInvites_AcceptWithoutIdentity(t *testing.T) {
	rec := &recorder{}
	for _, creds := range []Credentials{nil, fakeCreds{token: "tok"}} {
		c := newTestClient(t, rec, creds)
		_, err := c.Invites.Accept(context.Background(), "abc")
		assert.ErrorIs(t, err, ErrIdentityRequired)
	}
	assert.Empty(t, rec.calls)
}

func TestServerError(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"flat message", `{"message":"email already invited"}`, "email already invited"},
		{"envelope", `{"success":false,"error":{"code":"FORBIDDEN","message":"not an admin"}}`, "not an admin"},
		{"string error", `{"error":"bad token"}`, "bad token"},
		{"no message", `{}`, ""},
		{"not json", `oops`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{status: http.StatusForbidden, body: tt.body}
			c := newTestClient(t, rec, nil)

			_, err := c.Invites.List(context.Background(), models.ScopeOrg, 1)
			var gerr *Error
			require.ErrorAs(t, err, &gerr)
			assert.Equal(t, KindServer, gerr.Kind)
			assert.Equal(t, http.StatusForbidden, gerr.Status)
			assert.Equal(t, tt.want, gerr.Message)
			assert.True(t, IsStatus(err, http.StatusForbidden))
			assert.False(t, IsNetwork(err))
		})
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := New(base, nil)
	_, err := c.Organizations.ListMemberships(context.Background(), "alice")
	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, KindNetwork, gerr.Kind)
	assert.Zero(t, gerr.Status)
	assert.True(t, IsNetwork(err))
	assert.Contains(t, MessageOf(err, "Failed to load"), "network error")
}

func TestMessageOf(t *testing.T) {
	assert.Empty(t, MessageOf(nil, "x"))
	assert.Equal(t, "nope", MessageOf(&Error{Kind: KindServer, Status: 400, Message: "nope"}, "fallback"))
	assert.Equal(t, "fallback", MessageOf(&Error{Kind: KindServer, Status: 400}, "fallback"))
	assert.Equal(t, "Bad Request", MessageOf(&Error{Kind: KindServer, Status: 400}, ""))
	assert.Equal(t, "Network error: server unreachable", MessageOf(&Error{Kind: KindNetwork, Err: errors.New("dial")}, ""))
	assert.Equal(t, "plain", MessageOf(errors.New("plain"), "fallback"))
}

func TestOrganizations_CreateLayer(t *testing.T) {
	rec := &recorder{status: http.StatusCreated, body: `{"id":4,"orgId":9,"name":"Roadmap"}`}
	c := newTestClient(t, rec, fakeCreds{token: "t"})

	layer, err := c.Organizations.CreateLayer(context.Background(), 9, " Roadmap ")
	require.NoError(t, err)
	assert.Equal(t, int64(4), layer.ID)

	got := rec.last(t)
	assert.Equal(t, "/api/layers", got.Path)
	assert.JSONEq(t, `{"orgId":9,"name":"Roadmap"}`, string(got.Body))

	_, err = c.Organizations.CreateLayer(context.Background(), 0, "x")
	assert.Error(t, err)
}

func TestDevLogin(t *testing.T) {
	rec := &recorder{body: `{"identity":{"id":3,"username":"alice","email":"a@acme.com","token":"jwt"},"expiresAt":1}`}
	c := newTestClient(t, rec, nil)

	id, err := c.DevLogin(context.Background(), " alice ", "a@acme.com")
	require.NoError(t, err)
	assert.Equal(t, models.Identity{ID: 3, Username: "alice", Email: "a@acme.com", Token: "jwt"}, *id)
	assert.Equal(t, "/api/dev/login", rec.last(t).Path)

	_, err = c.DevLogin(context.Background(), "  ", "")
	assert.Error(t, err)
}
