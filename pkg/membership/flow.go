// Package membership resolves which organization the signed-in user works in.
package membership

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"workspace-client/pkg/gateway"
	"workspace-client/pkg/logger"
	"workspace-client/pkg/models"
)

var (
	// ErrNotReady is returned by Select before memberships have been loaded.
	ErrNotReady = errors.New("membership: memberships not loaded")
	// ErrUnknownOrganization is returned by Select for an organization the user is not a member of.
	ErrUnknownOrganization = errors.New("membership: not a member of organization")
)

type State int

const (
	StateUnauthenticated State = iota
	StateLoading
	StateReady
	StateSelected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateSelected:
		return "selected"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Session is the identity and selection storage the flow needs.
type Session interface {
	Identity() *models.Identity
	SelectOrganization(org models.Organization) error
}

// MembershipLister fetches a user's memberships. *gateway.OrganizationsService implements it.
type MembershipLister interface {
	ListMemberships(ctx context.Context, username string) ([]models.Membership, error)
}

// Navigator performs the navigation the flow ends in.
type Navigator interface {
	RedirectToLogin()
	OpenWorkspace(org models.Organization)
}

// Flow walks Unauthenticated -> Loading -> Ready -> Selected.
// A failed fetch ends in Failed, except a 401 which is sent back to login.
type Flow struct {
	session Session
	orgs    MembershipLister
	nav     Navigator
	log     *zap.SugaredLogger

	mu          sync.RWMutex
	state       State
	memberships []models.Membership
	selected    *models.Organization
	err         error
}

type Option func(*Flow)

func WithLogger(l *zap.SugaredLogger) Option {
	return func(f *Flow) { f.log = l }
}

func NewFlow(session Session, orgs MembershipLister, nav Navigator, opts ...Option) *Flow {
	f := &Flow{session: session, orgs: orgs, nav: nav, log: logger.Nop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Activate runs the flow once: exactly one memberships fetch when an identity exists, none otherwise.
func (f *Flow) Activate(ctx context.Context) error {
	identity := f.session.Identity()
	if identity == nil || identity.Username == "" {
		f.set(StateUnauthenticated, nil, nil)
		f.log.Debugw("no identity, redirecting to login")
		f.nav.RedirectToLogin()
		return nil
	}

	f.set(StateLoading, nil, nil)
	memberships, err := f.orgs.ListMemberships(ctx, identity.Username)
	if err != nil {
		if gateway.IsStatus(err, http.StatusUnauthorized) {
			f.set(StateUnauthenticated, nil, nil)
			f.log.Infow("session rejected, redirecting to login", "username", identity.Username)
			f.nav.RedirectToLogin()
			return nil
		}
		f.set(StateFailed, nil, err)
		f.log.Warnw("load memberships failed", "username", identity.Username, "error", err)
		return fmt.Errorf("load memberships: %w", err)
	}

	if memberships == nil {
		memberships = []models.Membership{}
	}
	f.set(StateReady, memberships, nil)
	f.log.Debugw("memberships loaded", "username", identity.Username, "count", len(memberships))
	return nil
}

// Select makes orgID the active organization and opens the workspace.
// It is valid in Ready and, to switch organizations, in Selected.
func (f *Flow) Select(orgID int64) error {
	f.mu.RLock()
	state := f.state
	memberships := f.memberships
	f.mu.RUnlock()

	if state != StateReady && state != StateSelected {
		return ErrNotReady
	}

	var org *models.Organization
	for i := range memberships {
		if memberships[i].Organization.ID == orgID {
			org = &memberships[i].Organization
			break
		}
	}
	if org == nil {
		return fmt.Errorf("%w %d", ErrUnknownOrganization, orgID)
	}

	if err := f.session.SelectOrganization(*org); err != nil {
		return fmt.Errorf("select organization: %w", err)
	}

	selected := *org
	f.mu.Lock()
	f.state = StateSelected
	f.selected = &selected
	f.mu.Unlock()

	f.log.Infow("organization selected", "orgId", selected.ID, "slug", selected.Slug)
	f.nav.OpenWorkspace(selected)
	return nil
}

// SelectBySlug is Select keyed by the organization slug.
func (f *Flow) SelectBySlug(slug string) error {
	for _, m := range f.Memberships() {
		if m.Organization.Slug == slug {
			return f.Select(m.Organization.ID)
		}
	}
	if f.State() != StateReady && f.State() != StateSelected {
		return ErrNotReady
	}
	return fmt.Errorf("%w %q", ErrUnknownOrganization, slug)
}

func (f *Flow) State() State {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state
}

// Memberships returns a copy of the loaded memberships in server order.
func (f *Flow) Memberships() []models.Membership {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]models.Membership, len(f.memberships))
	copy(out, f.memberships)
	return out
}

// Selected is the organization chosen in this flow, or nil.
func (f *Flow) Selected() *models.Organization {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.selected == nil {
		return nil
	}
	org := *f.selected
	return &org
}

// Err is the fetch error behind StateFailed.
func (f *Flow) Err() error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.err
}

func (f *Flow) set(state State, memberships []models.Membership, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = state
	f.memberships = memberships
	f.selected = nil
	f.err = err
}
