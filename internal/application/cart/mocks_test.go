package cart

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bookstore/storefront/internal/domain/cart"
	"github.com/bookstore/storefront/internal/domain/order"
	"github.com/bookstore/storefront/internal/domain/session"
	"github.com/bookstore/storefront/internal/domain/shared"
	"github.com/bookstore/storefront/internal/domain/shared/valueobject"
	"github.com/bookstore/storefront/internal/infrastructure/event"
)

var (
	errNetwork = cart.ErrNetworkFailure.WithMessage("connection reset by peer")
	errExpired = cart.ErrAuthorizationExpired.WithMessage("token expired")
	errStock   = cart.ErrValidationRejected.WithMessage("not enough stock")
)

// MockGateway is a mock implementation of cart.RemoteGateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Fetch(ctx context.Context) (cart.RemoteCart, error) {
	args := m.Called(ctx)
	return args.Get(0).(cart.RemoteCart), args.Error(1)
}

func (m *MockGateway) Add(ctx context.Context, productID string, quantity int) (cart.RemoteCart, error) {
	args := m.Called(ctx, productID, quantity)
	return args.Get(0).(cart.RemoteCart), args.Error(1)
}

func (m *MockGateway) Update(ctx context.Context, lineID string, quantity int) error {
	args := m.Called(ctx, lineID, quantity)
	return args.Error(0)
}

func (m *MockGateway) Remove(ctx context.Context, lineID string) error {
	args := m.Called(ctx, lineID)
	return args.Error(0)
}

func (m *MockGateway) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockCatalog is a mock implementation of cart.Catalog
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) FetchProductDisplay(ctx context.Context, productID string) (cart.ProductSummary, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).(cart.ProductSummary), args.Error(1)
}

// MockOrderCreator is a mock implementation of order.Creator
type MockOrderCreator struct {
	mock.Mock
}

func (m *MockOrderCreator) CreateOrder(ctx context.Context, req order.Request) (order.Confirmation, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(order.Confirmation), args.Error(1)
}

// memoryLocal is a cart.LocalStore that counts saves
type memoryLocal struct {
	mu    sync.Mutex
	state cart.State
	found bool
	saves int
	err   error
}

func (l *memoryLocal) Load(context.Context) (cart.State, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state, l.found, l.err
}

// Save fails on a done context the way the sqlite and redis stores do
func (l *memoryLocal) Save(ctx context.Context, s cart.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state, l.found = s, true
	l.saves++
	return nil
}

func (l *memoryLocal) snapshot() (cart.State, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state, l.saves
}

// fakeSession is a session.Observer and session.Expirer driven by the test
type fakeSession struct {
	mu       sync.Mutex
	identity session.Identity
	nextID   int
	subs     []subscription
	expired  int
}

type subscription struct {
	id int
	fn func(context.Context, session.Transition)
}

func (f *fakeSession) Current() session.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.identity
}

func (f *fakeSession) OnTransition(fn func(context.Context, session.Transition)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := f.nextID
	f.subs = append(f.subs, subscription{id: id, fn: fn})
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		for i, s := range f.subs {
			if s.id == id {
				f.subs = append(f.subs[:i], f.subs[i+1:]...)
				return
			}
		}
	}
}

func (f *fakeSession) Expire(ctx context.Context) error {
	f.mu.Lock()
	f.expired++
	signedIn := f.identity.SignedIn
	f.mu.Unlock()
	if signedIn {
		f.transition(ctx, session.Anonymous(), session.ReasonExpired)
	}
	return nil
}

func (f *fakeSession) expirations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.expired
}

func (f *fakeSession) transition(ctx context.Context, to session.Identity, reason session.Reason) {
	f.mu.Lock()
	t := session.Transition{From: f.identity, To: to, Reason: reason}
	f.identity = to
	subs := append([]subscription(nil), f.subs...)
	f.mu.Unlock()
	for _, s := range subs {
		s.fn(ctx, t)
	}
}

// eventLog records cart events in delivery order
type eventLog struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (l *eventLog) record(_ context.Context, e shared.DomainEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) changeReasons() []cart.ChangeReason {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []cart.ChangeReason
	for _, e := range l.events {
		if c, ok := e.(*cart.CartChangedEvent); ok {
			out = append(out, c.Reason)
		}
	}
	return out
}

func (l *eventLog) failures() []*cart.CartMutationFailedEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*cart.CartMutationFailedEvent
	for _, e := range l.events {
		if f, ok := e.(*cart.CartMutationFailedEvent); ok {
			out = append(out, f)
		}
	}
	return out
}

func (l *eventLog) loads() []*cart.CartLoadedEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*cart.CartLoadedEvent
	for _, e := range l.events {
		if f, ok := e.(*cart.CartLoadedEvent); ok {
			out = append(out, f)
		}
	}
	return out
}

func (l *eventLog) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}

type harness struct {
	store   *Store
	gw      *MockGateway
	local   *memoryLocal
	session *fakeSession
	events  *eventLog
}

func newHarness(t *testing.T, cfg Config, opts ...Option) *harness {
	t.Helper()
	if cfg.Currency == "" {
		cfg.Currency = valueobject.VND
	}
	h := &harness{
		gw:      &MockGateway{},
		local:   &memoryLocal{},
		session: &fakeSession{},
		events:  &eventLog{},
	}
	opts = append([]Option{WithExpirer(h.session)}, opts...)
	h.store = NewStore(cfg, h.local, h.gw, h.session, event.NewInMemoryEventBus(nil), opts...)
	h.store.Subscribe(h.events.record)
	t.Cleanup(h.store.Close)
	return h
}

// signIn starts the store as user-1 with remote holding the given cart
func (h *harness) signIn(t *testing.T, remote cart.State) {
	t.Helper()
	h.session.identity = session.SignedInAs("user-1")
	h.gw.On("Fetch", mock.Anything).Return(remoteOf(remote), nil).Once()
	require.NoError(t, h.store.Start(context.Background()))
	require.Equal(t, cart.PhaseAuthenticated, h.store.Phase())
	h.events.reset()
}

// remoteOf renders s the way the remote cart reports it
func remoteOf(s cart.State) cart.RemoteCart {
	rc := cart.RemoteCart{CartID: "cart-1"}
	for _, item := range s.Items() {
		rc.Lines = append(rc.Lines, cart.RemoteLine{
			LineID:    item.ProductID(),
			ProductID: item.ProductID(),
			Quantity:  item.Quantity,
			Title:     item.Product.Title,
			Author:    item.Product.Author,
			Price:     item.Product.Price,
		})
	}
	return rc
}

// blockUntil returns a Run func that waits for gate to close
func blockUntil(gate <-chan struct{}) func(mock.Arguments) {
	return func(mock.Arguments) { <-gate }
}
