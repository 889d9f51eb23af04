package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bookstore/storefront/internal/domain/session"
	"github.com/bookstore/storefront/internal/domain/shared"
	"github.com/bookstore/storefront/internal/infrastructure/event"
	"github.com/bookstore/storefront/internal/infrastructure/localstore"
	"github.com/bookstore/storefront/internal/infrastructure/logger"
)

// SessionManager owns the stored credential and the current identity.
// Transitions are published on the event bus in the order they happen.
type SessionManager struct {
	store  localstore.Store
	key    string
	bus    shared.EventBus
	logger *zap.Logger
	now    func() time.Time

	events *event.OrderedPublisher

	mu         sync.Mutex
	credential Credential
	identity   session.Identity
}

// SessionOption configures a SessionManager
type SessionOption func(*SessionManager)

// WithSessionLogger sets the logger
func WithSessionLogger(l *zap.Logger) SessionOption {
	return func(m *SessionManager) {
		m.logger = l
	}
}

// WithClock replaces time.Now for expiry checks
func WithClock(now func() time.Time) SessionOption {
	return func(m *SessionManager) {
		m.now = now
	}
}

// NewSessionManager creates a signed-out manager. Call Restore to pick up a
// stored credential.
func NewSessionManager(store localstore.Store, key string, bus shared.EventBus, opts ...SessionOption) *SessionManager {
	m := &SessionManager{
		store:    store,
		key:      key,
		bus:      bus,
		logger:   zap.NewNop(),
		now:      time.Now,
		events:   event.NewOrderedPublisher(bus),
		identity: session.Anonymous(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Restore sets the initial identity from the stored credential. It does not
// publish a transition. A malformed or expired credential is discarded.
func (m *SessionManager) Restore(ctx context.Context) (session.Identity, error) {
	raw, err := m.store.Get(ctx, m.key)
	if errors.Is(err, localstore.ErrNotFound) {
		return m.Current(), nil
	}
	if err != nil {
		return m.Current(), err
	}

	cred, err := ParseCredential(string(raw))
	if err == nil && cred.Expired(m.now()) {
		err = ErrExpiredToken
	}
	if err != nil {
		logger.Enrich(ctx, m.logger).Info("discarding stored credential", zap.Error(err))
		if delErr := m.store.Delete(ctx, m.key); delErr != nil {
			m.logger.Warn("failed to delete stored credential", zap.Error(delErr))
		}
		return m.Current(), nil
	}

	m.mu.Lock()
	m.credential = cred
	m.identity = session.SignedInAs(cred.UserID)
	id := m.identity
	m.mu.Unlock()
	return id, nil
}

// Current returns the current identity
func (m *SessionManager) Current() session.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity
}

// Token returns the bearer credential, or "" when signed out
func (m *SessionManager) Token(context.Context) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.identity.SignedIn {
		return ""
	}
	return m.credential.Token
}

// Login stores token and signs in as the user it names. Logging in again as
// the same user replaces the token without a transition.
func (m *SessionManager) Login(ctx context.Context, token string) (session.Identity, error) {
	cred, err := ParseCredential(token)
	if err == nil && cred.Expired(m.now()) {
		err = ErrExpiredToken
	}
	if err != nil {
		return m.Current(), session.ErrInvalidCredential.Wrap(err)
	}
	if err := m.store.Set(ctx, m.key, []byte(token)); err != nil {
		return m.Current(), err
	}

	m.mu.Lock()
	from := m.identity
	m.credential = cred
	m.identity = session.SignedInAs(cred.UserID)
	to := m.identity
	if from != to {
		m.enqueue(ctx, session.Transition{From: from, To: to, Reason: session.ReasonLogin})
	}
	m.mu.Unlock()

	m.events.Flush()
	return to, nil
}

// Logout forgets the credential and signs out
func (m *SessionManager) Logout(ctx context.Context) error {
	return m.signOut(ctx, session.ReasonLogout)
}

// Expire signs out because the backend rejected the credential
func (m *SessionManager) Expire(ctx context.Context) error {
	return m.signOut(ctx, session.ReasonExpired)
}

func (m *SessionManager) signOut(ctx context.Context, reason session.Reason) error {
	m.mu.Lock()
	from := m.identity
	m.credential = Credential{}
	m.identity = session.Anonymous()
	if from.SignedIn {
		m.enqueue(ctx, session.Transition{From: from, To: m.identity, Reason: reason})
	}
	m.mu.Unlock()

	// The in-memory sign-out stands even if the stored token cannot be removed.
	err := m.store.Delete(ctx, m.key)
	if err != nil {
		logger.Enrich(ctx, m.logger).Error("failed to delete stored credential",
			zap.String("reason", string(reason)),
			zap.Error(err),
		)
	}

	m.events.Flush()
	return err
}

// OnTransition registers callback for every later transition
func (m *SessionManager) OnTransition(callback func(ctx context.Context, t session.Transition)) func() {
	h := event.HandlerFunc(func(ctx context.Context, e shared.DomainEvent) error {
		if te, ok := e.(*session.TransitionedEvent); ok {
			callback(ctx, te.Transition)
		}
		return nil
	}, session.EventTypeSessionTransitioned)
	m.bus.Subscribe(h)

	var once sync.Once
	return func() {
		once.Do(func() { m.bus.Unsubscribe(h) })
	}
}

// enqueue records t for publication; callers hold m.mu
func (m *SessionManager) enqueue(ctx context.Context, t session.Transition) {
	m.logger.Info("session transition",
		zap.String("reason", string(t.Reason)),
		zap.Bool("signed_in", t.To.SignedIn),
		zap.String("user_id", t.To.UserID),
	)
	m.events.Enqueue(ctx, session.NewTransitionedEvent(t))
}

var (
	_ session.Observer = (*SessionManager)(nil)
	_ session.Expirer  = (*SessionManager)(nil)
)
