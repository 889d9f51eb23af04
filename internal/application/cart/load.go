package cart

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bookstore/storefront/internal/domain/cart"
	"github.com/bookstore/storefront/internal/domain/session"
	"github.com/bookstore/storefront/internal/infrastructure/logger"
	"github.com/bookstore/storefront/internal/infrastructure/telemetry"
)

// Load replaces the live cart from its source of truth: the device snapshot
// when signed out, the remote cart when signed in. If the remote cart cannot
// be fetched the device snapshot is used instead, the cart drops to the
// anonymous phase and the fetch error is returned.
func (s *Store) Load(ctx context.Context) error {
	gen, identity := s.beginLoad(ctx)
	return s.runLoad(ctx, gen, identity)
}

// beginLoad claims a new load generation; loads from older generations are
// discarded when they finish
func (s *Store) beginLoad(ctx context.Context) (uint64, session.Identity) {
	identity := s.session.Current()

	s.mu.Lock()
	s.generation++
	gen := s.generation
	if identity.SignedIn && s.phase != cart.PhaseLoading {
		s.phase = cart.PhaseLoading
		s.events.Enqueue(ctx, cart.NewCartChangedEvent(cart.ReasonSession, s.phase, s.state))
	}
	s.mu.Unlock()
	s.events.Flush()
	return gen, identity
}

func (s *Store) runLoad(ctx context.Context, gen uint64, identity session.Identity) error {
	ctx, span := telemetry.StartSpan(ctx, "cart.load", trace.SpanKindInternal,
		attribute.Bool("session.signed_in", identity.SignedIn),
	)
	defer span.End()

	if !identity.SignedIn {
		s.apply(ctx, gen, s.localSnapshot(ctx), cart.PhaseAnonymous, cart.SourceLocal, 0)
		return nil
	}

	rc, err := s.remote.Fetch(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return s.fallback(ctx, gen, err)
	}

	state, failures, err := s.fromRemote(ctx, rc)
	if err != nil {
		telemetry.RecordError(span, err)
		return s.fallback(ctx, gen, err)
	}
	s.apply(ctx, gen, state, cart.PhaseAuthenticated, cart.SourceRemote, failures)
	return nil
}

// fallback shows the device snapshot after a failed remote load
func (s *Store) fallback(ctx context.Context, gen uint64, cause error) error {
	kind := cart.Classify(cause)
	logger.Enrich(ctx, s.logger).Warn("remote cart unavailable, using local snapshot",
		zap.String("kind", string(kind)),
		zap.Error(cause),
	)

	if s.apply(ctx, gen, s.localSnapshot(ctx), cart.PhaseAnonymous, cart.SourceFallback, 0) {
		s.events.Enqueue(ctx, cart.NewCartMutationFailedEvent(cart.OperationLoad, "", cause, false))
		s.events.Flush()
	}
	if kind == cart.FailureAuthorizationExpired {
		s.expire(ctx)
	}
	return cause
}

// apply installs a loaded cart unless a newer load or transition has started
// since gen was claimed. Only remote loads are written back to the device.
func (s *Store) apply(ctx context.Context, gen uint64, state cart.State, phase cart.Phase, source cart.LoadSource, failures int) bool {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		logger.Enrich(ctx, s.logger).Debug("discarding stale cart load", zap.String("source", string(source)))
		return false
	}
	s.journal.reset()
	s.state = state
	s.phase = phase
	if source == cart.SourceRemote {
		s.saveLocked(ctx)
	}
	s.events.Enqueue(ctx,
		cart.NewCartChangedEvent(cart.ReasonLoad, phase, state),
		cart.NewCartLoadedEvent(source, state.Len(), failures),
	)
	s.mu.Unlock()
	s.events.Flush()

	s.metrics.RecordLoad(ctx, string(source))
	logger.Enrich(ctx, s.logger).Debug("cart loaded",
		zap.String("source", string(source)),
		zap.Int("items", state.Len()),
		zap.Int("enrichment_failures", failures),
	)
	return true
}

// localSnapshot reads the device snapshot; a missing or unreadable snapshot
// is an empty cart
func (s *Store) localSnapshot(ctx context.Context) cart.State {
	state, found, err := s.local.Load(ctx)
	if err != nil {
		logger.Enrich(ctx, s.logger).Warn("failed to read local cart snapshot", zap.Error(err))
		return cart.Empty(s.cfg.Currency)
	}
	if !found {
		return cart.Empty(s.cfg.Currency)
	}
	return state
}

// fromRemote builds the cart from remote lines, enriching each distinct
// product with catalog display fields. A failed lookup keeps the fields the
// remote line carries and is counted, not returned.
func (s *Store) fromRemote(ctx context.Context, rc cart.RemoteCart) (cart.State, int, error) {
	ids := make([]string, 0, len(rc.Lines))
	seen := make(map[string]struct{}, len(rc.Lines))
	for _, line := range rc.Lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}

	display, failures := s.enrich(ctx, ids)

	items := make([]cart.CartItem, 0, len(rc.Lines))
	for _, line := range rc.Lines {
		product := productFromLine(line)
		if d, ok := display[line.ProductID]; ok {
			product = mergeDisplay(product, d)
		}
		items = append(items, cart.CartItem{
			Product:      product,
			Quantity:     line.Quantity,
			RemoteLineID: line.LineID,
		})
	}

	state, err := cart.FromItems(s.cfg.Currency, items)
	if err != nil {
		return cart.State{}, failures, err
	}
	return state, failures, nil
}

func (s *Store) enrich(ctx context.Context, ids []string) (map[string]cart.ProductSummary, int) {
	if s.catalog == nil || len(ids) == 0 {
		return nil, 0
	}

	results := make([]cart.ProductSummary, len(ids))
	found := make([]bool, len(ids))

	var g errgroup.Group
	g.SetLimit(s.cfg.EnrichConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			p, err := s.catalog.FetchProductDisplay(ctx, id)
			if err != nil {
				logger.Enrich(ctx, s.logger).Debug("product display lookup failed",
					zap.String("product_id", id),
					zap.Error(err),
				)
				return nil
			}
			results[i], found[i] = p, true
			return nil
		})
	}
	_ = g.Wait()

	display := make(map[string]cart.ProductSummary, len(ids))
	failures := 0
	for i, id := range ids {
		if !found[i] {
			failures++
			continue
		}
		display[id] = results[i]
	}
	if failures > 0 {
		logger.Enrich(ctx, s.logger).Info("cart enrichment incomplete",
			zap.Int("failed", failures),
			zap.Int("products", len(ids)),
		)
	}
	return display, failures
}

func productFromLine(line cart.RemoteLine) cart.ProductSummary {
	return cart.ProductSummary{
		ProductID:     line.ProductID,
		Title:         line.Title,
		Author:        line.Author,
		Publisher:     line.Publisher,
		Format:        line.Format,
		Price:         line.Price,
		ImageURL:      line.ImageURL,
		StockQuantity: line.StockQuantity,
	}
}

// mergeDisplay prefers catalog display fields and the remote line's price;
// blanks on either side are filled from the other
func mergeDisplay(base, d cart.ProductSummary) cart.ProductSummary {
	out := base
	out.Title = firstNonEmpty(d.Title, base.Title)
	out.Author = firstNonEmpty(d.Author, base.Author)
	out.Publisher = firstNonEmpty(d.Publisher, base.Publisher)
	out.Format = firstNonEmpty(d.Format, base.Format)
	out.ImageURL = firstNonEmpty(d.ImageURL, base.ImageURL)
	if d.StockQuantity > 0 {
		out.StockQuantity = d.StockQuantity
	}
	if base.Price.IsZero() && !d.Price.IsZero() && d.Price.Currency() == base.Price.Currency() {
		out.Price = d.Price
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
