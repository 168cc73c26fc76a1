// Package invites keeps the pending-invite list of one organization or layer
// and drives create, resend and revoke against the gateway.
package invites

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"workspace-client/pkg/gateway"
	"workspace-client/pkg/logger"
	"workspace-client/pkg/models"
)

// Service is the gateway surface the manager calls. *gateway.InvitesService implements it.
type Service interface {
	List(ctx context.Context, scope models.InviteScope, targetID int64) ([]models.Invite, error)
	Create(ctx context.Context, scope models.InviteScope, targetID, inviterID int64, email string, expiresInHours int) (*models.Invite, error)
	Resend(ctx context.Context, inviteID, requesterID int64, hours int) error
	Revoke(ctx context.Context, inviteID, requesterID int64) error
}

// Actor resolves the id of the signed-in user. *session.Session implements it.
type Actor interface {
	ActorID() (int64, bool)
}

type Visibility int

const (
	Visible Visibility = iota
	Silent
)

// ErrorPolicy decides per operation whether a failure is recorded as the visible error.
type ErrorPolicy struct {
	Load   Visibility
	Submit Visibility
	Resend Visibility
	Revoke Visibility
}

// DefaultErrorPolicy shows Load and Submit failures and hides Resend and Revoke failures.
func DefaultErrorPolicy() ErrorPolicy {
	return ErrorPolicy{Load: Visible, Submit: Visible, Resend: Silent, Revoke: Silent}
}

// AllVisible shows every failure.
func AllVisible() ErrorPolicy {
	return ErrorPolicy{}
}

// Manager holds the invite list for one (scope, resource) pair.
// Operations may overlap; the list is always replaced as a whole and the last write wins.
type Manager struct {
	scope      models.InviteScope
	resourceID int64
	svc        Service
	actor      Actor
	policy     ErrorPolicy
	hours      int
	log        *zap.SugaredLogger

	mu         sync.Mutex
	invites    []models.Invite
	loading    int
	submitting bool
	input      string
	errMsg     string
}

type Option func(*Manager)

func WithErrorPolicy(p ErrorPolicy) Option {
	return func(m *Manager) { m.policy = p }
}

// WithExpiryHours sets the expiry used for new and resent invites. <= 0 keeps 168.
func WithExpiryHours(h int) Option {
	return func(m *Manager) { m.hours = h }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(m *Manager) { m.log = l }
}

func NewManager(scope models.InviteScope, resourceID int64, svc Service, actor Actor, opts ...Option) *Manager {
	m := &Manager{
		scope:      scope,
		resourceID: resourceID,
		svc:        svc,
		actor:      actor,
		policy:     DefaultErrorPolicy(),
		hours:      models.DefaultInviteHours,
		log:        logger.Nop(),
		invites:    []models.Invite{},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.hours <= 0 {
		m.hours = models.DefaultInviteHours
	}
	return m
}

// NormalizeEmails splits raw on commas and whitespace, lowercases every address and drops empties.
// Order and duplicates are kept.
func NormalizeEmails(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if e := strings.ToLower(strings.TrimSpace(f)); e != "" {
			out = append(out, e)
		}
	}
	return out
}

// Load fetches the invite list and replaces the current one.
// On failure the previous list stays in place.
func (m *Manager) Load(ctx context.Context) error {
	m.mu.Lock()
	m.loading++
	if m.policy.Load == Visible {
		m.errMsg = ""
	}
	m.mu.Unlock()

	list, err := m.svc.List(ctx, m.scope, m.resourceID)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading--
	if err != nil {
		m.fail(m.policy.Load, "load", err, "Failed to load invites")
		return err
	}
	if list == nil {
		list = []models.Invite{}
	}
	m.invites = list
	return nil
}

// Submit invites every address in the input buffer, all at once.
// Without addresses or a signed-in actor nothing is sent. If any invite fails
// the batch fails and the buffer is kept; otherwise the buffer is cleared and the list reloaded.
// The returned error is the batch result; a failed reload only shows up in Error.
func (m *Manager) Submit(ctx context.Context) error {
	m.mu.Lock()
	raw := m.input
	m.mu.Unlock()
	emails := NormalizeEmails(raw)
	if len(emails) == 0 {
		return nil
	}
	inviterID, ok := m.actorID()
	if !ok {
		return nil
	}

	m.mu.Lock()
	m.submitting = true
	if m.policy.Submit == Visible {
		m.errMsg = ""
	}
	m.mu.Unlock()

	var g errgroup.Group
	for _, email := range emails {
		g.Go(func() error {
			if _, err := m.svc.Create(ctx, m.scope, m.resourceID, inviterID, email, m.hours); err != nil {
				return fmt.Errorf("invite %s: %w", email, err)
			}
			return nil
		})
	}
	err := g.Wait()

	m.mu.Lock()
	m.submitting = false
	if err != nil {
		m.fail(m.policy.Submit, "submit", err, "Failed to send invites")
		m.mu.Unlock()
		return err
	}
	// input edited while the batch was in flight is kept
	if m.input == raw {
		m.input = ""
	}
	m.mu.Unlock()

	m.log.Infow("invites sent", "scope", m.scope, "resourceId", m.resourceID, "count", len(emails))
	if err := m.Load(ctx); err != nil {
		m.log.Warnw("reload after submit failed", "scope", m.scope, "resourceId", m.resourceID, "error", err)
	}
	return nil
}

// Resend re-delivers invite id and reloads the list. Without an actor it does nothing.
func (m *Manager) Resend(ctx context.Context, id int64) error {
	requesterID, ok := m.actorID()
	if !ok {
		return nil
	}
	if err := m.svc.Resend(ctx, id, requesterID, m.hours); err != nil {
		m.mu.Lock()
		m.fail(m.policy.Resend, "resend", err, "Failed to resend invite")
		m.mu.Unlock()
		return err
	}
	return m.Load(ctx)
}

// Revoke cancels invite id and reloads the list. Without an actor it does nothing.
func (m *Manager) Revoke(ctx context.Context, id int64) error {
	requesterID, ok := m.actorID()
	if !ok {
		return nil
	}
	if err := m.svc.Revoke(ctx, id, requesterID); err != nil {
		m.mu.Lock()
		m.fail(m.policy.Revoke, "revoke", err, "Failed to revoke invite")
		m.mu.Unlock()
		return err
	}
	return m.Load(ctx)
}

// fail records err per visibility. Callers hold m.mu.
func (m *Manager) fail(v Visibility, op string, err error, fallback string) {
	if v == Visible {
		m.errMsg = gateway.MessageOf(err, fallback)
	}
	m.log.Debugw("invite operation failed", "op", op, "scope", m.scope, "resourceId", m.resourceID, "error", err)
}

func (m *Manager) actorID() (int64, bool) {
	if m.actor == nil {
		return 0, false
	}
	return m.actor.ActorID()
}

// SetInput replaces the raw address buffer Submit reads.
func (m *Manager) SetInput(raw string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.input = raw
}

func (m *Manager) Input() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.input
}

// Invites returns a copy of the current list.
func (m *Manager) Invites() []models.Invite {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Invite, len(m.invites))
	copy(out, m.invites)
	return out
}

func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading > 0
}

func (m *Manager) Submitting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submitting
}

// Error is the visible error message, or "".
func (m *Manager) Error() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errMsg
}

func (m *Manager) Scope() models.InviteScope { return m.scope }

func (m *Manager) ResourceID() int64 { return m.resourceID }
