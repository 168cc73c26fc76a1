package invites

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workspace-client/pkg/gateway"
	"workspace-client/pkg/models"
)

type fakeActor struct{ id int64 }

func (a fakeActor) ActorID() (int64, bool) { return a.id, a.id > 0 }

type createCall struct {
	scope     models.InviteScope
	targetID  int64
	inviterID int64
	email     string
	hours     int
}

type fakeService struct {
	mu        sync.Mutex
	lists     [][]models.Invite // returned by successive List calls; the last one repeats
	listErr   error
	listCalls int
	creates   []createCall
	createErr map[string]error
	resends   []int64
	revokes   []int64
	actionErr error
	onCreate  func(email string)

	// when set, Create waits until this many calls are in flight
	barrier  int
	inFlight int
	release  chan struct{}
}

func (f *fakeService) List(_ context.Context, _ models.InviteScope, _ int64) ([]models.Invite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	if len(f.lists) == 0 {
		return nil, nil
	}
	i := f.listCalls - 1
	if i >= len(f.lists) {
		i = len(f.lists) - 1
	}
	return f.lists[i], nil
}

func (f *fakeService) Create(_ context.Context, scope models.InviteScope, targetID, inviterID int64, email string, hours int) (*models.Invite, error) {
	f.mu.Lock()
	f.creates = append(f.creates, createCall{scope, targetID, inviterID, email, hours})
	err := f.createErr[email]
	onCreate := f.onCreate
	var wait chan struct{}
	if f.barrier > 0 {
		f.inFlight++
		if f.inFlight == f.barrier {
			close(f.release)
		}
		wait = f.release
	}
	f.mu.Unlock()

	if onCreate != nil {
		onCreate(email)
	}
	if wait != nil {
		select {
		case <-wait:
		case <-time.After(2 * time.Second):
			return nil, errors.New("creates were not issued concurrently")
		}
	}
	if err != nil {
		return nil, err
	}
	return &models.Invite{Email: email, Status: models.InvitePending}, nil
}

func (f *fakeService) Resend(_ context.Context, id, _ int64, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resends = append(f.resends, id)
	return f.actionErr
}

func (f *fakeService) Revoke(_ context.Context, id, _ int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revokes = append(f.revokes, id)
	return f.actionErr
}

func invite(id int64, email string) models.Invite {
	return models.Invite{ID: id, Scope: models.ScopeOrg, Email: email, Status: models.InvitePending}
}

func rejected(msg string) error {
	return &gateway.Error{Kind: gateway.KindServer, Status: http.StatusBadRequest, Message: msg}
}

func TestNormalizeEmails(t *testing.T) {
	got := NormalizeEmails("Alice@Acme.com, bob@example.com\nCARL@x.com")
	assert.Equal(t, []string{"alice@acme.com", "bob@example.com", "carl@x.com"}, got)

	assert.Equal(t, []string{"a@b.com", "a@b.com"}, NormalizeEmails("a@b.com,A@B.COM"))
	assert.Equal(t, []string{"x@y.z", "p@q.r"}, NormalizeEmails(" ,,\tx@y.z \r\n  p@q.r,, "))
	assert.Empty(t, NormalizeEmails(""))
	assert.Empty(t, NormalizeEmails(" \n\t, ,"))
}

func TestNormalizeEmails_Idempotent(t *testing.T) {
	inputs := []string{
		"Alice@Acme.com, bob@example.com\nCARL@x.com",
		"  ,a@b.c,,D@E.F\t\tg@h.i ",
		"",
		"single@ONE.com",
		"dup@x.com dup@x.com,DUP@x.com",
	}
	for _, in := range inputs {
		once := NormalizeEmails(in)
		joined := ""
		for i, e := range once {
			if i > 0 {
				joined += ","
			}
			joined += e
		}
		assert.Equal(t, once, NormalizeEmails(joined), in)
	}
}

func TestSubmit_EmptyInputIsNoop(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\t ,, "} {
		svc := &fakeService{}
		m := NewManager(models.ScopeOrg, 1, svc, fakeActor{id: 42})
		m.SetInput(in)

		require.NoError(t, m.Submit(context.Background()))
		assert.Empty(t, svc.creates)
		assert.Zero(t, svc.listCalls)
		assert.Equal(t, in, m.Input())
		assert.Empty(t, m.Error())
		assert.False(t, m.Submitting())
	}
}

func TestSubmit_NoActorIsNoop(t *testing.T) {
	for _, actor := range []Actor{nil, fakeActor{}} {
		svc := &fakeService{}
		m := NewManager(models.ScopeOrg, 1, svc, actor)
		m.SetInput("a@b.com, c@d.com")

		require.NoError(t, m.Submit(context.Background()))
		assert.Empty(t, svc.creates)
		assert.Zero(t, svc.listCalls)
		assert.Equal(t, "a@b.com, c@d.com", m.Input())
	}
}

func TestSubmit_FansOutConcurrently(t *testing.T) {
	svc := &fakeService{
		barrier: 3,
		release: make(chan struct{}),
		lists:   [][]models.Invite{{invite(1, "a@b.com"), invite(2, "c@d.com"), invite(3, "e@f.com")}},
	}
	m := NewManager(models.ScopeLayer, 9, svc, fakeActor{id: 42}, WithExpiryHours(24))
	m.SetInput("A@b.com c@D.com,e@f.com")

	require.NoError(t, m.Submit(context.Background()))

	emails := make([]string, 0, len(svc.creates))
	for _, c := range svc.creates {
		assert.Equal(t, models.ScopeLayer, c.scope)
		assert.Equal(t, int64(9), c.targetID)
		assert.Equal(t, int64(42), c.inviterID)
		assert.Equal(t, 24, c.hours)
		emails = append(emails, c.email)
	}
	sort.Strings(emails)
	assert.Equal(t, []string{"a@b.com", "c@d.com", "e@f.com"}, emails)

	assert.Empty(t, m.Input())
	assert.Equal(t, 1, svc.listCalls)
	assert.Len(t, m.Invites(), 3)
	assert.Empty(t, m.Error())
}

func TestSubmit_AnyFailureFailsBatch(t *testing.T) {
	svc := &fakeService{createErr: map[string]error{"bad@x.com": rejected("email already invited")}}
	m := NewManager(models.ScopeOrg, 1, svc, fakeActor{id: 42})
	m.SetInput("good@x.com, bad@x.com, other@x.com")

	err := m.Submit(context.Background())
	require.Error(t, err)
	assert.Len(t, svc.creates, 3)
	assert.Equal(t, "good@x.com, bad@x.com, other@x.com", m.Input())
	assert.Zero(t, svc.listCalls)
	assert.Equal(t, "email already invited", m.Error())
	assert.False(t, m.Submitting())
}

func TestSubmit_ClearsPreviousError(t *testing.T) {
	svc := &fakeService{listErr: rejected("boom")}
	m := NewManager(models.ScopeOrg, 1, svc, fakeActor{id: 42})
	require.Error(t, m.Load(context.Background()))
	require.Equal(t, "boom", m.Error())

	svc.listErr = nil
	m.SetInput("a@b.com")
	require.NoError(t, m.Submit(context.Background()))
	assert.Empty(t, m.Error())
}

func TestSubmit_KeepsInputEditedInFlight(t *testing.T) {
	svc := &fakeService{}
	m := NewManager(models.ScopeOrg, 1, svc, fakeActor{id: 42})
	svc.onCreate = func(string) { m.SetInput("later@x.com") }
	m.SetInput("a@b.com")

	require.NoError(t, m.Submit(context.Background()))
	assert.Len(t, svc.creates, 1)
	assert.Equal(t, "later@x.com", m.Input())
}

func TestSubmit_ReloadFailureKeepsBatchResult(t *testing.T) {
	svc := &fakeService{listErr: rejected("list unavailable")}
	m := NewManager(models.ScopeOrg, 1, svc, fakeActor{id: 42})
	m.SetInput("a@b.com, c@d.com")

	require.NoError(t, m.Submit(context.Background()))
	assert.Len(t, svc.creates, 2)
	assert.Empty(t, m.Input())
	assert.Equal(t, 1, svc.listCalls)
	assert.Equal(t, "list unavailable", m.Error())
	assert.False(t, m.Submitting())
}

func TestLoad_ReplacesList(t *testing.T) {
	a := []models.Invite{invite(1, "a@x.com"), invite(2, "b@x.com"), invite(3, "c@x.com")}
	b := []models.Invite{invite(4, "d@x.com")}
	svc := &fakeService{lists: [][]models.Invite{a, b}}
	m := NewManager(models.ScopeOrg, 1, svc, nil)

	require.NoError(t, m.Load(context.Background()))
	assert.Equal(t, a, m.Invites())
	require.NoError(t, m.Load(context.Background()))
	assert.Equal(t, b, m.Invites())
	assert.False(t, m.Loading())
}

func TestLoad_FailureKeepsStaleList(t *testing.T) {
	a := []models.Invite{invite(1, "a@x.com")}
	svc := &fakeService{lists: [][]models.Invite{a}}
	m := NewManager(models.ScopeOrg, 1, svc, nil)
	require.NoError(t, m.Load(context.Background()))

	svc.listErr = rejected("forbidden")
	require.Error(t, m.Load(context.Background()))
	assert.Equal(t, a, m.Invites())
	assert.Equal(t, "forbidden", m.Error())
	assert.False(t, m.Loading())
}

func TestLoad_NetworkFailureMessage(t *testing.T) {
	svc := &fakeService{listErr: &gateway.Error{Kind: gateway.KindNetwork, Err: errors.New("dial tcp")}}
	m := NewManager(models.ScopeOrg, 1, svc, nil)
	require.Error(t, m.Load(context.Background()))
	assert.Contains(t, m.Error(), "network error")
}

func TestResendRevoke_Success(t *testing.T) {
	svc := &fakeService{lists: [][]models.Invite{{invite(5, "a@x.com")}}}
	m := NewManager(models.ScopeOrg, 1, svc, fakeActor{id: 42})

	require.NoError(t, m.Resend(context.Background(), 5))
	require.NoError(t, m.Revoke(context.Background(), 5))
	assert.Equal(t, []int64{5}, svc.resends)
	assert.Equal(t, []int64{5}, svc.revokes)
	assert.Equal(t, 2, svc.listCalls)
}

func TestResendRevoke_FailuresAreSilent(t *testing.T) {
	svc := &fakeService{actionErr: rejected("not allowed")}
	m := NewManager(models.ScopeOrg, 1, svc, fakeActor{id: 42})

	assert.Error(t, m.Resend(context.Background(), 5))
	assert.Error(t, m.Revoke(context.Background(), 6))
	assert.Empty(t, m.Error())
	assert.Equal(t, []int64{5}, svc.resends)
	assert.Equal(t, []int64{6}, svc.revokes)
	assert.Zero(t, svc.listCalls)
}

func TestResendRevoke_VisibleWithPolicy(t *testing.T) {
	svc := &fakeService{actionErr: rejected("not allowed")}
	m := NewManager(models.ScopeOrg, 1, svc, fakeActor{id: 42}, WithErrorPolicy(AllVisible()))

	assert.Error(t, m.Revoke(context.Background(), 6))
	assert.Equal(t, "not allowed", m.Error())
}

func TestResendRevoke_NoActorIsNoop(t *testing.T) {
	svc := &fakeService{}
	m := NewManager(models.ScopeOrg, 1, svc, fakeActor{})

	require.NoError(t, m.Resend(context.Background(), 5))
	require.NoError(t, m.Revoke(context.Background(), 5))
	assert.Empty(t, svc.resends)
	assert.Empty(t, svc.revokes)
}

func TestNewManager_Defaults(t *testing.T) {
	m := NewManager(models.ScopeLayer, 3, &fakeService{}, nil, WithExpiryHours(-1))
	assert.Equal(t, models.ScopeLayer, m.Scope())
	assert.Equal(t, int64(3), m.ResourceID())
	assert.NotNil(t, m.Invites())
	assert.Empty(t, m.Invites())
	assert.Equal(t, DefaultErrorPolicy(), ErrorPolicy{Load: Visible, Submit: Visible, Resend: Silent, Revoke: Silent})
}

func TestSubmit_ManyAddresses(t *testing.T) {
	svc := &fakeService{}
	m := NewManager(models.ScopeOrg, 1, svc, fakeActor{id: 1})
	raw := ""
	for i := 0; i < 25; i++ {
		raw += fmt.Sprintf("user%d@x.com ", i)
	}
	m.SetInput(raw)
	require.NoError(t, m.Submit(context.Background()))
	assert.Len(t, svc.creates, 25)
}
