// Package cart is the storefront's live cart: optimistic commands against
// the remote cart, rollback on failure, and reloads on session changes.
package cart

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/bookstore/storefront/internal/domain/cart"
	"github.com/bookstore/storefront/internal/domain/session"
	"github.com/bookstore/storefront/internal/domain/shared"
	"github.com/bookstore/storefront/internal/domain/shared/valueobject"
	"github.com/bookstore/storefront/internal/infrastructure/event"
	"github.com/bookstore/storefront/internal/infrastructure/logger"
	"github.com/bookstore/storefront/internal/infrastructure/telemetry"
)

const defaultEnrichConcurrency = 4

// Metric outcomes
const (
	outcomeSuccess = "success"
	outcomeSkipped = "skipped"
)

// Config holds cart behaviour settings
type Config struct {
	Currency valueobject.Currency
	// RollbackFailedAdds undoes an optimistic add when the remote add fails.
	// Off by default: the item stays and the shopper is notified.
	RollbackFailedAdds bool
	EnrichConcurrency  int
}

// Metrics records cart outcomes
type Metrics interface {
	RecordMutation(ctx context.Context, operation, outcome string)
	RecordRollback(ctx context.Context, operation string)
	RecordLoad(ctx context.Context, source string)
}

type noopMetrics struct{}

func (noopMetrics) RecordMutation(context.Context, string, string) {}
func (noopMetrics) RecordRollback(context.Context, string)         {}
func (noopMetrics) RecordLoad(context.Context, string)             {}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(m Metrics) Option {
	return func(s *Store) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithCatalog enables product-display enrichment during loads
func WithCatalog(c cart.Catalog) Option {
	return func(s *Store) {
		s.catalog = c
	}
}

// WithExpirer lets the store sign the session out when the remote rejects
// the credential
func WithExpirer(e session.Expirer) Option {
	return func(s *Store) {
		s.expirer = e
	}
}

// Snapshot is a consistent read of the live cart
type Snapshot struct {
	Cart       cart.State        `json:"cart"`
	Phase      cart.Phase        `json:"phase"`
	TotalItems int               `json:"total_items"`
	TotalPrice valueobject.Money `json:"total_price"`
}

// Store owns the one live cart of the application. Commands apply their
// change before returning and resolve the remote call in the background;
// readers always get immutable snapshots.
type Store struct {
	cfg     Config
	local   cart.LocalStore
	remote  cart.RemoteGateway
	catalog cart.Catalog
	session session.Observer
	expirer session.Expirer
	bus     shared.EventBus
	events  *event.OrderedPublisher
	metrics Metrics
	logger  *zap.Logger

	mu          sync.Mutex
	state       cart.State
	phase       cart.Phase
	generation  uint64
	journal     *journal
	unsubscribe func()

	inflight sync.WaitGroup
}

// NewStore creates an anonymous, empty Store. Call Start to load the cart and
// follow session transitions.
func NewStore(
	cfg Config,
	local cart.LocalStore,
	remote cart.RemoteGateway,
	sess session.Observer,
	bus shared.EventBus,
	opts ...Option,
) *Store {
	if cfg.Currency == "" {
		cfg.Currency = valueobject.DefaultCurrency
	}
	if cfg.EnrichConcurrency <= 0 {
		cfg.EnrichConcurrency = defaultEnrichConcurrency
	}
	s := &Store{
		cfg:     cfg,
		local:   local,
		remote:  remote,
		session: sess,
		bus:     bus,
		events:  event.NewOrderedPublisher(bus),
		metrics: noopMetrics{},
		logger:  zap.NewNop(),
		state:   cart.Empty(cfg.Currency),
		phase:   cart.PhaseAnonymous,
		journal: newJournal(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start subscribes to session transitions and runs the initial load
func (s *Store) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.unsubscribe == nil {
		s.unsubscribe = s.session.OnTransition(s.onTransition)
	}
	s.mu.Unlock()
	return s.Load(ctx)
}

// Close stops following the session and waits for in-flight remote calls
func (s *Store) Close() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	s.inflight.Wait()
}

// Wait blocks until every remote call and background load started so far
// has resolved
func (s *Store) Wait() {
	s.inflight.Wait()
}

// Snapshot returns the live cart with its phase and totals
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	state, phase := s.state, s.phase
	s.mu.Unlock()
	return Snapshot{
		Cart:       state,
		Phase:      phase,
		TotalItems: state.TotalItems(),
		TotalPrice: state.TotalPrice(),
	}
}

// State returns the live cart
func (s *Store) State() cart.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Phase returns the lifecycle phase
func (s *Store) Phase() cart.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// TotalPrice returns the price of the live cart
func (s *Store) TotalPrice() valueobject.Money {
	return s.State().TotalPrice()
}

// TotalItems returns the number of units in the live cart
func (s *Store) TotalItems() int {
	return s.State().TotalItems()
}

// Subscribe registers fn for cart events; with no types it receives
// CartChanged, CartMutationFailed and CartLoaded.
func (s *Store) Subscribe(fn func(ctx context.Context, e shared.DomainEvent), eventTypes ...string) (unsubscribe func()) {
	if len(eventTypes) == 0 {
		eventTypes = []string{cart.EventTypeCartChanged, cart.EventTypeCartMutationFailed, cart.EventTypeCartLoaded}
	}
	h := event.HandlerFunc(func(ctx context.Context, e shared.DomainEvent) error {
		fn(ctx, e)
		return nil
	}, eventTypes...)
	s.bus.Subscribe(h)

	var once sync.Once
	return func() {
		once.Do(func() { s.bus.Unsubscribe(h) })
	}
}

// AddItem adds quantity units of product. Only signed-in shoppers may add.
func (s *Store) AddItem(ctx context.Context, product cart.ProductSummary, quantity int) (*Pending, error) {
	productID := product.ProductID
	return s.mutate(ctx, cart.OperationAdd, productID, s.cfg.RollbackFailedAdds,
		func(current cart.State) (cart.State, []string, remoteCall, error) {
			next, err := current.Add(product, quantity)
			if err != nil {
				return current, nil, nil, err
			}
			return next, []string{productID}, func(ctx context.Context) (string, error) {
				rc, err := s.remote.Add(ctx, productID, quantity)
				if err != nil {
					return "", err
				}
				line, _ := rc.Line(productID)
				return line.LineID, nil
			}, nil
		})
}

// UpdateQuantity sets the quantity of a line; zero or less removes it
func (s *Store) UpdateQuantity(ctx context.Context, productID string, quantity int) (*Pending, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, productID)
	}
	return s.mutate(ctx, cart.OperationUpdate, productID, true,
		func(current cart.State) (cart.State, []string, remoteCall, error) {
			item, ok := current.Get(productID)
			if !ok {
				return current, nil, nil, cart.ErrItemNotInCart
			}
			if item.Quantity == quantity {
				return current, nil, nil, nil
			}
			next, err := current.SetQuantity(productID, quantity)
			if err != nil {
				return current, nil, nil, err
			}
			lineID := item.LineRef()
			return next, []string{productID}, func(ctx context.Context) (string, error) {
				return "", s.remote.Update(ctx, lineID, quantity)
			}, nil
		})
}

// RemoveItem drops a line
func (s *Store) RemoveItem(ctx context.Context, productID string) (*Pending, error) {
	return s.mutate(ctx, cart.OperationRemove, productID, true,
		func(current cart.State) (cart.State, []string, remoteCall, error) {
			item, ok := current.Get(productID)
			if !ok {
				return current, nil, nil, cart.ErrItemNotInCart
			}
			lineID := item.LineRef()
			return current.Remove(productID), []string{productID}, func(ctx context.Context) (string, error) {
				return "", s.remote.Remove(ctx, lineID)
			}, nil
		})
}

// ClearCart empties the cart
func (s *Store) ClearCart(ctx context.Context) (*Pending, error) {
	return s.mutate(ctx, cart.OperationClear, "", true,
		func(current cart.State) (cart.State, []string, remoteCall, error) {
			// Products with writes still in flight are cleared remotely
			// too, even when no line for them is showing.
			ids := make([]string, 0, current.Len())
			for _, item := range current.Items() {
				ids = append(ids, item.ProductID())
			}
			for _, id := range s.journal.tracked() {
				if current.IndexOf(id) < 0 {
					ids = append(ids, id)
				}
			}
			return current.Clear(), ids, func(ctx context.Context) (string, error) {
				return "", s.remote.Clear(ctx)
			}, nil
		})
}

// remoteCall performs the remote half of a command and may return the
// remote line ID of the touched product
type remoteCall func(ctx context.Context) (lineID string, err error)

// plan computes a command's optimistic state from the current one. A nil
// remoteCall with a nil error means there is nothing to do.
type plan func(current cart.State) (next cart.State, touched []string, call remoteCall, err error)

type mutation struct {
	op        cart.Operation
	productID string
	rollback  bool
	entries   []*journalEntry
	epoch     uint64
	call      remoteCall
}

func (s *Store) mutate(ctx context.Context, op cart.Operation, productID string, rollback bool, p plan) (*Pending, error) {
	s.mu.Lock()
	if err := s.checkMutableLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	next, touched, call, err := p(s.state)
	if err != nil || call == nil {
		s.mu.Unlock()
		if err != nil {
			return nil, err
		}
		s.metrics.RecordMutation(ctx, string(op), outcomeSkipped)
		return resolved(op), nil
	}

	m := &mutation{
		op:        op,
		productID: productID,
		rollback:  rollback,
		entries:   s.journal.record(s.state, next, writeKindOf(op), touched...),
		epoch:     s.journal.epoch,
		call:      call,
	}
	s.setLocked(ctx, next, cart.ReasonMutation)
	s.mu.Unlock()
	s.events.Flush()

	return s.dispatch(ctx, m), nil
}

func (s *Store) checkMutableLocked() error {
	switch s.phase {
	case cart.PhaseAuthenticated:
		return nil
	case cart.PhaseLoading:
		return cart.ErrCartLoading
	default:
		return cart.ErrSignInRequired
	}
}

// dispatch runs the remote call of m in the background. The call outlives
// the caller's context.
func (s *Store) dispatch(ctx context.Context, m *mutation) *Pending {
	p := newPending(m.op)
	ctx = context.WithoutCancel(ctx)

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		ctx, span := telemetry.StartSpan(ctx, "cart."+string(m.op), trace.SpanKindInternal,
			attribute.String("cart.product_id", m.productID),
		)
		defer span.End()

		lineID, err := m.call(ctx)
		if err != nil {
			telemetry.RecordError(span, err)
		}
		s.settle(ctx, m, lineID, err)
		p.resolve(err)
	}()
	return p
}

// settle applies the outcome of a remote call
func (s *Store) settle(ctx context.Context, m *mutation, lineID string, err error) {
	if err == nil {
		s.mu.Lock()
		s.journal.commit(m.entries)
		if lineID != "" && m.epoch == s.journal.epoch {
			if next := s.state.WithRemoteLineID(m.productID, lineID); !next.Equal(s.state) {
				s.setLocked(ctx, next, cart.ReasonRemote)
			}
		}
		s.mu.Unlock()
		s.events.Flush()
		s.metrics.RecordMutation(ctx, string(m.op), outcomeSuccess)
		return
	}

	kind := cart.Classify(err)
	rolledBack := false

	s.mu.Lock()
	if m.rollback {
		var next cart.State
		next, rolledBack = s.journal.revert(s.state, m.entries)
		if rolledBack && !next.Equal(s.state) {
			s.setLocked(ctx, next, cart.ReasonRollback)
		}
	} else {
		s.journal.commit(m.entries)
	}
	s.events.Enqueue(ctx, cart.NewCartMutationFailedEvent(m.op, m.productID, err, rolledBack))
	s.mu.Unlock()
	s.events.Flush()

	logger.Enrich(ctx, s.logger).Warn("cart command failed",
		zap.String("operation", string(m.op)),
		zap.String("product_id", m.productID),
		zap.String("kind", string(kind)),
		zap.Bool("rolled_back", rolledBack),
		zap.Error(err),
	)
	s.metrics.RecordMutation(ctx, string(m.op), string(kind))
	if rolledBack {
		s.metrics.RecordRollback(ctx, string(m.op))
	}
	if kind == cart.FailureAuthorizationExpired {
		s.expire(ctx)
	}
}

func (s *Store) expire(ctx context.Context) {
	if s.expirer == nil {
		return
	}
	if err := s.expirer.Expire(ctx); err != nil {
		logger.Enrich(ctx, s.logger).Error("failed to expire session", zap.Error(err))
	}
}

// setLocked replaces the live state, writes it through to the device and
// queues a change event. Callers hold s.mu and flush afterwards.
func (s *Store) setLocked(ctx context.Context, next cart.State, reason cart.ChangeReason) {
	s.state = next
	s.saveLocked(ctx)
	s.events.Enqueue(ctx, cart.NewCartChangedEvent(reason, s.phase, next))
}

// saveLocked writes the live state to the device. The write is not tied to
// the caller's request.
func (s *Store) saveLocked(ctx context.Context) {
	if err := s.local.Save(context.WithoutCancel(ctx), s.state); err != nil {
		logger.Enrich(ctx, s.logger).Warn("failed to save local cart snapshot", zap.Error(err))
	}
}

// onTransition swaps the cart for the new identity. Signing out clears the
// memory copy without touching the device snapshot or the remote cart.
func (s *Store) onTransition(ctx context.Context, t session.Transition) {
	logger.Enrich(ctx, s.logger).Info("session changed, reloading cart",
		zap.String("reason", string(t.Reason)),
		zap.Bool("signed_in", t.To.SignedIn),
	)

	if !t.To.SignedIn {
		s.mu.Lock()
		s.generation++
		s.journal.reset()
		s.state = cart.Empty(s.cfg.Currency)
		s.phase = cart.PhaseAnonymous
		s.events.Enqueue(ctx, cart.NewCartChangedEvent(cart.ReasonSession, s.phase, s.state))
		s.mu.Unlock()
		s.events.Flush()
	}

	gen, identity := s.beginLoad(ctx)
	ctx = context.WithoutCancel(ctx)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		if err := s.runLoad(ctx, gen, identity); err != nil {
			logger.Enrich(ctx, s.logger).Warn("cart reload failed", zap.Error(err))
		}
	}()
}
