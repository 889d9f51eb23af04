package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bookstore/storefront/internal/domain/cart"
	"github.com/bookstore/storefront/internal/domain/cart/carttest"
	"github.com/bookstore/storefront/internal/domain/session"
	"github.com/bookstore/storefront/internal/domain/shared/valueobject"
)

func TestStore_StartAnonymous_UsesLocalSnapshot(t *testing.T) {
	h := newHarness(t, Config{})
	h.local.state, h.local.found = carttest.State("A", 1, "B", 2), true

	require.NoError(t, h.store.Start(context.Background()))

	snap := h.store.Snapshot()
	assert.Equal(t, cart.PhaseAnonymous, snap.Phase)
	assert.Equal(t, map[string]int{"A": 1, "B": 2}, carttest.Quantities(snap.Cart))
	assert.Equal(t, 3, snap.TotalItems)
	assert.True(t, snap.TotalPrice.Equals(valueobject.MustMoney(3000, valueobject.VND)))

	_, saves := h.local.snapshot()
	assert.Zero(t, saves, "a local load is not written back")
	h.gw.AssertNotCalled(t, "Fetch", mock.Anything)
}

func TestStore_StartAnonymous_NoSnapshot(t *testing.T) {
	h := newHarness(t, Config{})
	require.NoError(t, h.store.Start(context.Background()))
	assert.True(t, h.store.State().IsEmpty())
}

func TestStore_StartAnonymous_UnreadableSnapshot(t *testing.T) {
	h := newHarness(t, Config{})
	h.local.err = errors.New("corrupt snapshot")
	require.NoError(t, h.store.Start(context.Background()))
	assert.True(t, h.store.State().IsEmpty())
}

func TestStore_AnonymousMutationsRejected(t *testing.T) {
	h := newHarness(t, Config{})
	h.local.state, h.local.found = carttest.State("A", 1), true
	require.NoError(t, h.store.Start(context.Background()))
	before := h.store.State()

	_, err := h.store.AddItem(context.Background(), carttest.Book("B", 1000), 1)
	assert.ErrorIs(t, err, cart.ErrSignInRequired)

	_, err = h.store.UpdateQuantity(context.Background(), "A", 4)
	assert.ErrorIs(t, err, cart.ErrSignInRequired)

	_, err = h.store.ClearCart(context.Background())
	assert.ErrorIs(t, err, cart.ErrSignInRequired)

	assert.True(t, before.Equal(h.store.State()))
	h.gw.AssertNotCalled(t, "Add", mock.Anything, mock.Anything, mock.Anything)
}

func TestStore_SignedInLoad_EnrichesProducts(t *testing.T) {
	catalog := &MockCatalog{}
	h := newHarness(t, Config{EnrichConcurrency: 2}, WithCatalog(catalog))

	dune := carttest.Book("A", 0)
	dune.Title, dune.Author, dune.ImageURL = "Dune", "Frank Herbert", "https://img/a.jpg"
	catalog.On("FetchProductDisplay", mock.Anything, "A").Return(dune, nil)
	catalog.On("FetchProductDisplay", mock.Anything, "B").Return(cart.ProductSummary{}, errNetwork)

	h.session.identity = session.SignedInAs("user-1")
	h.gw.On("Fetch", mock.Anything).Return(remoteOf(carttest.State("A", 2, "B", 1)), nil).Once()
	require.NoError(t, h.store.Start(context.Background()))

	snap := h.store.Snapshot()
	assert.Equal(t, cart.PhaseAuthenticated, snap.Phase)
	assert.Equal(t, []string{"A", "B"}, carttest.Order(snap.Cart))

	a, _ := snap.Cart.Get("A")
	assert.Equal(t, "Dune", a.Product.Title)
	assert.Equal(t, "https://img/a.jpg", a.Product.ImageURL)
	assert.True(t, a.Product.Price.Equals(valueobject.MustMoney(1000, valueobject.VND)), "remote line price wins")
	assert.Equal(t, "A", a.RemoteLineID)

	b, _ := snap.Cart.Get("B")
	assert.Equal(t, "Book B", b.Product.Title, "failed lookup keeps remote fields")

	loads := h.events.loads()
	require.Len(t, loads, 1)
	assert.Equal(t, cart.SourceRemote, loads[0].Source)
	assert.Equal(t, 1, loads[0].Enrichment)

	saved, _ := h.local.snapshot()
	assert.True(t, saved.Equal(snap.Cart), "remote load is written through")
}

func TestStore_SignedInLoad_FallsBackToLocal(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantExpire bool
	}{
		{name: "network failure", err: errNetwork},
		{name: "authorization expired", err: errExpired, wantExpire: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, Config{})
			h.local.state, h.local.found = carttest.State("L", 3), true
			h.session.identity = session.SignedInAs("user-1")
			h.gw.On("Fetch", mock.Anything).Return(cart.RemoteCart{}, tt.err).Once()

			err := h.store.Start(context.Background())
			h.store.Wait()

			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, cart.PhaseAnonymous, h.store.Phase())
			assert.Equal(t, map[string]int{"L": 3}, carttest.Quantities(h.store.State()))

			failures := h.events.failures()
			require.NotEmpty(t, failures)
			assert.Equal(t, cart.OperationLoad, failures[0].Operation)
			assert.Equal(t, cart.Classify(tt.err), failures[0].Kind)

			if tt.wantExpire {
				assert.Equal(t, 1, h.session.expirations())
				assert.False(t, h.session.Current().SignedIn)
			} else {
				assert.Zero(t, h.session.expirations())
			}
		})
	}
}

func TestStore_AddItem(t *testing.T) {
	ctx := context.Background()

	t.Run("optimistic then acknowledged", func(t *testing.T) {
		h := newHarness(t, Config{})
		h.signIn(t, carttest.State("A", 1))

		gate := make(chan struct{})
		after := carttest.State("A", 1, "B", 2)
		ack := remoteOf(after)
		ack.Lines[1].LineID = "line-B"
		h.gw.On("Add", mock.Anything, "B", 2).Run(blockUntil(gate)).Return(ack, nil).Once()

		p, err := h.store.AddItem(ctx, carttest.Book("B", 1000), 2)
		require.NoError(t, err)

		b, ok := h.store.State().Get("B")
		require.True(t, ok, "visible before the remote call resolves")
		assert.Equal(t, 2, b.Quantity)
		assert.Empty(t, b.RemoteLineID)

		close(gate)
		require.NoError(t, p.Wait())

		b, _ = h.store.State().Get("B")
		assert.Equal(t, "line-B", b.RemoteLineID)
		assert.Equal(t, []cart.ChangeReason{cart.ReasonMutation, cart.ReasonRemote}, h.events.changeReasons())
	})

	t.Run("existing product increments", func(t *testing.T) {
		h := newHarness(t, Config{})
		h.signIn(t, carttest.State("A", 1))
		h.gw.On("Add", mock.Anything, "A", 3).Return(remoteOf(carttest.State("A", 4)), nil).Once()

		p, err := h.store.AddItem(ctx, carttest.Book("A", 1000), 3)
		require.NoError(t, err)
		require.NoError(t, p.Wait())
		assert.Equal(t, map[string]int{"A": 4}, carttest.Quantities(h.store.State()))
	})

	t.Run("invalid quantity", func(t *testing.T) {
		h := newHarness(t, Config{})
		h.signIn(t, carttest.State())

		_, err := h.store.AddItem(ctx, carttest.Book("A", 1000), 0)
		assert.ErrorIs(t, err, cart.ErrInvalidQuantity)
		assert.True(t, h.store.State().IsEmpty())
	})

	t.Run("failure keeps the item by default", func(t *testing.T) {
		h := newHarness(t, Config{})
		h.signIn(t, carttest.State("A", 1))
		h.gw.On("Add", mock.Anything, "B", 1).Return(cart.RemoteCart{}, errStock).Once()

		p, err := h.store.AddItem(ctx, carttest.Book("B", 1000), 1)
		require.NoError(t, err)
		assert.ErrorIs(t, p.Wait(), cart.ErrValidationRejected)

		assert.Equal(t, map[string]int{"A": 1, "B": 1}, carttest.Quantities(h.store.State()))
		failures := h.events.failures()
		require.Len(t, failures, 1)
		assert.False(t, failures[0].RolledBack)
		assert.Equal(t, cart.FailureValidationRejected, failures[0].Kind)
	})

	t.Run("failure rolls back when configured", func(t *testing.T) {
		h := newHarness(t, Config{RollbackFailedAdds: true})
		h.signIn(t, carttest.State("A", 1))
		before := h.store.State()
		h.gw.On("Add", mock.Anything, "A", 2).Return(cart.RemoteCart{}, errNetwork).Once()

		p, err := h.store.AddItem(ctx, carttest.Book("A", 1000), 2)
		require.NoError(t, err)
		assert.Error(t, p.Wait())

		assert.Equal(t, before, h.store.State())
		require.Len(t, h.events.failures(), 1)
		assert.True(t, h.events.failures()[0].RolledBack)
	})
}

func TestStore_RemoveItem_RollbackRestoresExactState(t *testing.T) {
	h := newHarness(t, Config{})
	h.signIn(t, carttest.State("A", 2, "B", 1, "C", 5))
	before := h.store.State()

	h.gw.On("Remove", mock.Anything, "B").Return(errNetwork).Once()
	p, err := h.store.RemoveItem(context.Background(), "B")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, carttest.Order(h.store.State()))

	assert.ErrorIs(t, p.Wait(), cart.ErrNetworkFailure)
	assert.Equal(t, before, h.store.State())
	assert.Equal(t, []cart.ChangeReason{cart.ReasonMutation, cart.ReasonRollback}, h.events.changeReasons())

	saved, _ := h.local.snapshot()
	assert.True(t, saved.Equal(before), "rollback is written through")
}

func TestStore_RemoveItem_Missing(t *testing.T) {
	h := newHarness(t, Config{})
	h.signIn(t, carttest.State("A", 2))

	_, err := h.store.RemoveItem(context.Background(), "Z")
	assert.ErrorIs(t, err, cart.ErrItemNotInCart)
	_, err = h.store.UpdateQuantity(context.Background(), "Z", 0)
	assert.ErrorIs(t, err, cart.ErrItemNotInCart)
}

func TestStore_UpdateQuantity_SnapshotChain(t *testing.T) {
	tests := []struct {
		name string
		// run resolves the two calls in some order
		run  func(t *testing.T, first, second chan struct{}, p1, p2 *Pending)
		errs [2]error
		want map[string]int
	}{
		{
			name: "first fails before second succeeds",
			errs: [2]error{errNetwork, nil},
			run: func(t *testing.T, first, second chan struct{}, p1, p2 *Pending) {
				close(first)
				require.Error(t, p1.Wait())
				close(second)
				require.NoError(t, p2.Wait())
			},
			want: map[string]int{"A": 3, "B": 1},
		},
		{
			name: "first fails after second succeeds",
			errs: [2]error{errNetwork, nil},
			run: func(t *testing.T, first, second chan struct{}, p1, p2 *Pending) {
				close(second)
				require.NoError(t, p2.Wait())
				close(first)
				require.Error(t, p1.Wait())
			},
			want: map[string]int{"A": 3, "B": 1},
		},
		{
			name: "both fail in order",
			errs: [2]error{errNetwork, errStock},
			run: func(t *testing.T, first, second chan struct{}, p1, p2 *Pending) {
				close(first)
				require.Error(t, p1.Wait())
				close(second)
				require.Error(t, p2.Wait())
			},
			want: map[string]int{"A": 2, "B": 1},
		},
		{
			name: "both fail in reverse order",
			errs: [2]error{errNetwork, errStock},
			run: func(t *testing.T, first, second chan struct{}, p1, p2 *Pending) {
				close(second)
				require.Error(t, p2.Wait())
				close(first)
				require.Error(t, p1.Wait())
			},
			want: map[string]int{"A": 2, "B": 1},
		},
		{
			name: "second fails",
			errs: [2]error{nil, errNetwork},
			run: func(t *testing.T, first, second chan struct{}, p1, p2 *Pending) {
				close(first)
				require.NoError(t, p1.Wait())
				close(second)
				require.Error(t, p2.Wait())
			},
			want: map[string]int{"A": 5, "B": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			h := newHarness(t, Config{})
			h.signIn(t, carttest.State("A", 2, "B", 1))

			first, second := make(chan struct{}), make(chan struct{})
			h.gw.On("Update", mock.Anything, "A", 5).Run(blockUntil(first)).Return(tt.errs[0]).Once()
			h.gw.On("Update", mock.Anything, "A", 3).Run(blockUntil(second)).Return(tt.errs[1]).Once()

			p1, err := h.store.UpdateQuantity(ctx, "A", 5)
			require.NoError(t, err)
			p2, err := h.store.UpdateQuantity(ctx, "A", 3)
			require.NoError(t, err)
			assert.Equal(t, map[string]int{"A": 3, "B": 1}, carttest.Quantities(h.store.State()))

			tt.run(t, first, second, p1, p2)

			assert.Equal(t, tt.want, carttest.Quantities(h.store.State()))
			assert.Equal(t, []string{"A", "B"}, carttest.Order(h.store.State()))
			assert.Zero(t, h.store.journal.pending())
		})
	}
}

func TestStore_AddLayersOnFailedWrite(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		// expect registers the failing call, held until gate closes
		expect func(h *harness, gate chan struct{})
		issue  func(ctx context.Context, s *Store) (*Pending, error)
		want   map[string]int
	}{
		{
			name: "failed update",
			expect: func(h *harness, gate chan struct{}) {
				h.gw.On("Update", mock.Anything, "A", 5).Run(blockUntil(gate)).Return(errNetwork).Once()
			},
			issue: func(ctx context.Context, s *Store) (*Pending, error) {
				return s.UpdateQuantity(ctx, "A", 5)
			},
			want: map[string]int{"A": 3, "B": 1},
		},
		{
			name: "failed remove",
			expect: func(h *harness, gate chan struct{}) {
				h.gw.On("Remove", mock.Anything, "A").Run(blockUntil(gate)).Return(errNetwork).Once()
			},
			issue: func(ctx context.Context, s *Store) (*Pending, error) {
				return s.RemoveItem(ctx, "A")
			},
			want: map[string]int{"A": 3, "B": 1},
		},
		{
			name: "failed clear",
			expect: func(h *harness, gate chan struct{}) {
				h.gw.On("Clear", mock.Anything).Run(blockUntil(gate)).Return(errNetwork).Once()
			},
			issue: func(ctx context.Context, s *Store) (*Pending, error) {
				return s.ClearCart(ctx)
			},
			want: map[string]int{"A": 3, "B": 1},
		},
		{
			name: "rolled back add",
			cfg:  Config{RollbackFailedAdds: true},
			expect: func(h *harness, gate chan struct{}) {
				h.gw.On("Add", mock.Anything, "A", 4).Run(blockUntil(gate)).Return(cart.RemoteCart{}, errNetwork).Once()
			},
			issue: func(ctx context.Context, s *Store) (*Pending, error) {
				return s.AddItem(ctx, carttest.Book("A", 1000), 4)
			},
			want: map[string]int{"A": 3, "B": 1},
		},
	}

	for _, tt := range tests {
		for _, failFirst := range []bool{true, false} {
			name := tt.name + "/add settles first"
			if failFirst {
				name = tt.name + "/failure settles first"
			}
			t.Run(name, func(t *testing.T) {
				ctx := context.Background()
				h := newHarness(t, tt.cfg)
				h.signIn(t, carttest.State("A", 2, "B", 1))

				failGate, addGate := make(chan struct{}), make(chan struct{})
				tt.expect(h, failGate)
				h.gw.On("Add", mock.Anything, "A", 1).Run(blockUntil(addGate)).
					Return(remoteOf(carttest.State("A", 3, "B", 1)), nil).Once()

				failed, err := tt.issue(ctx, h.store)
				require.NoError(t, err)
				added, err := h.store.AddItem(ctx, carttest.Book("A", 1000), 1)
				require.NoError(t, err)

				if failFirst {
					close(failGate)
					require.Error(t, failed.Wait())
					close(addGate)
					require.NoError(t, added.Wait())
				} else {
					close(addGate)
					require.NoError(t, added.Wait())
					close(failGate)
					require.Error(t, failed.Wait())
				}

				got := h.store.State()
				assert.Equal(t, tt.want, carttest.Quantities(got))
				a, _ := got.Get("A")
				assert.Equal(t, "A", a.RemoteLineID)
				assert.Zero(t, h.store.journal.pending())

				saved, _ := h.local.snapshot()
				assert.True(t, saved.Equal(got), "rebuilt line is written through")
			})
		}
	}
}

func TestStore_WriteThroughOutlivesCanceledRequest(t *testing.T) {
	h := newHarness(t, Config{})
	h.signIn(t, carttest.State("A", 1))
	h.gw.On("Add", mock.Anything, "B", 1).Return(remoteOf(carttest.State("A", 1, "B", 1)), nil).Once()
	_, savesBefore := h.local.snapshot()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p, err := h.store.AddItem(ctx, carttest.Book("B", 1000), 1)
	require.NoError(t, err)
	require.NoError(t, p.Wait())

	saved, saves := h.local.snapshot()
	assert.Greater(t, saves, savesBefore)
	assert.Equal(t, map[string]int{"A": 1, "B": 1}, carttest.Quantities(saved))
}

func TestStore_UpdateQuantity_Idempotent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Config{})
	h.signIn(t, carttest.State("A", 2))
	h.gw.On("Update", mock.Anything, "A", 4).Return(nil).Once()

	p, err := h.store.UpdateQuantity(ctx, "A", 4)
	require.NoError(t, err)
	require.NoError(t, p.Wait())
	once := h.store.State()

	p, err = h.store.UpdateQuantity(ctx, "A", 4)
	require.NoError(t, err)
	require.NoError(t, p.Wait())

	assert.Equal(t, once, h.store.State())
	h.gw.AssertNumberOfCalls(t, "Update", 1)
}

func TestStore_UpdateQuantity_ZeroRemoves(t *testing.T) {
	ctx := context.Background()
	initial := carttest.State("A", 2, "B", 1)

	viaUpdate := newHarness(t, Config{})
	viaUpdate.signIn(t, initial)
	viaUpdate.gw.On("Remove", mock.Anything, "A").Return(nil).Once()
	p, err := viaUpdate.store.UpdateQuantity(ctx, "A", 0)
	require.NoError(t, err)
	require.NoError(t, p.Wait())
	assert.Equal(t, cart.OperationRemove, p.Operation())

	viaRemove := newHarness(t, Config{})
	viaRemove.signIn(t, initial)
	viaRemove.gw.On("Remove", mock.Anything, "A").Return(nil).Once()
	p, err = viaRemove.store.RemoveItem(ctx, "A")
	require.NoError(t, err)
	require.NoError(t, p.Wait())

	assert.Equal(t, viaRemove.store.State(), viaUpdate.store.State())
	viaUpdate.gw.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestStore_ClearCart(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		h := newHarness(t, Config{})
		h.signIn(t, carttest.State("A", 2, "B", 1))
		h.gw.On("Clear", mock.Anything).Return(nil).Once()

		p, err := h.store.ClearCart(ctx)
		require.NoError(t, err)
		require.NoError(t, p.Wait())
		assert.True(t, h.store.State().IsEmpty())
		assert.Zero(t, h.store.TotalItems())
	})

	t.Run("failure restores every line in order", func(t *testing.T) {
		h := newHarness(t, Config{})
		h.signIn(t, carttest.State("A", 2, "B", 1, "C", 4))
		before := h.store.State()
		h.gw.On("Clear", mock.Anything).Return(errNetwork).Once()

		p, err := h.store.ClearCart(ctx)
		require.NoError(t, err)
		assert.True(t, h.store.State().IsEmpty())
		assert.Error(t, p.Wait())

		assert.Equal(t, before, h.store.State())
	})
}

func TestStore_AuthorizationExpiredDuringMutation(t *testing.T) {
	h := newHarness(t, Config{})
	h.signIn(t, carttest.State("A", 2, "B", 1))
	h.gw.On("Update", mock.Anything, "A", 9).Return(errExpired).Once()

	p, err := h.store.UpdateQuantity(context.Background(), "A", 9)
	require.NoError(t, err)
	assert.ErrorIs(t, p.Wait(), cart.ErrAuthorizationExpired)
	h.store.Wait()

	assert.Equal(t, 1, h.session.expirations())
	assert.Equal(t, cart.PhaseAnonymous, h.store.Phase())
	// the device snapshot written while signed in is shown again
	assert.Equal(t, map[string]int{"A": 2, "B": 1}, carttest.Quantities(h.store.State()))
}

func TestStore_SessionRoundTripReproducesCart(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Config{})
	remote := carttest.State("A", 2, "B", 1)
	h.signIn(t, remote)
	signedIn := h.store.State()

	h.session.transition(ctx, session.Anonymous(), session.ReasonLogout)
	h.store.Wait()
	assert.Equal(t, cart.PhaseAnonymous, h.store.Phase())
	h.gw.AssertNotCalled(t, "Clear", mock.Anything)

	h.gw.On("Fetch", mock.Anything).Return(remoteOf(remote), nil).Once()
	h.session.transition(ctx, session.SignedInAs("user-1"), session.ReasonLogin)
	h.store.Wait()

	assert.Equal(t, cart.PhaseAuthenticated, h.store.Phase())
	assert.True(t, signedIn.Equal(h.store.State()))
}

func TestStore_LogoutClearsMemoryBeforeReload(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Config{})
	h.signIn(t, carttest.State("A", 2))
	_, savesBefore := h.local.snapshot()

	h.session.transition(ctx, session.Anonymous(), session.ReasonLogout)
	h.store.Wait()

	reasons := h.events.changeReasons()
	require.NotEmpty(t, reasons)
	assert.Equal(t, cart.ReasonSession, reasons[0])
	_, savesAfter := h.local.snapshot()
	assert.Equal(t, savesBefore, savesAfter, "sign-out does not overwrite the device snapshot")
}

func TestStore_StaleLoadIsDiscarded(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Config{})
	h.signIn(t, carttest.State("A", 2))

	gate := make(chan struct{})
	h.gw.On("Fetch", mock.Anything).Run(blockUntil(gate)).Return(remoteOf(carttest.State("X", 7)), nil).Once()
	h.session.transition(ctx, session.SignedInAs("user-2"), session.ReasonLogin)

	assert.Equal(t, cart.PhaseLoading, h.store.Phase())
	_, err := h.store.AddItem(ctx, carttest.Book("B", 1000), 1)
	assert.ErrorIs(t, err, cart.ErrCartLoading)

	h.session.transition(ctx, session.Anonymous(), session.ReasonLogout)
	close(gate)
	h.store.Wait()

	assert.Equal(t, cart.PhaseAnonymous, h.store.Phase())
	_, hasX := h.store.State().Get("X")
	assert.False(t, hasX, "the user-2 load finished after sign-out and was dropped")
}

func TestStore_RollbackAfterReloadIsIgnored(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Config{})
	h.signIn(t, carttest.State("A", 2))

	gate := make(chan struct{})
	h.gw.On("Remove", mock.Anything, "A").Run(blockUntil(gate)).Return(errNetwork).Once()
	p, err := h.store.RemoveItem(ctx, "A")
	require.NoError(t, err)

	h.gw.On("Fetch", mock.Anything).Return(remoteOf(carttest.State("C", 1)), nil).Once()
	require.NoError(t, h.store.Load(ctx))

	close(gate)
	require.Error(t, p.Wait())

	assert.Equal(t, map[string]int{"C": 1}, carttest.Quantities(h.store.State()))
	failures := h.events.failures()
	require.Len(t, failures, 1)
	assert.False(t, failures[0].RolledBack)
}

func TestStore_SubscribeUnsubscribe(t *testing.T) {
	h := newHarness(t, Config{})
	log := &eventLog{}
	unsubscribe := h.store.Subscribe(log.record, cart.EventTypeCartLoaded)

	require.NoError(t, h.store.Start(context.Background()))
	unsubscribe()
	unsubscribe()
	require.NoError(t, h.store.Load(context.Background()))

	assert.Len(t, log.loads(), 1)
	assert.Empty(t, log.changeReasons())
}

func TestPending_WaitContext(t *testing.T) {
	p := newPending(cart.OperationUpdate)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.WaitContext(ctx), context.Canceled)

	p.resolve(errNetwork)
	assert.ErrorIs(t, p.WaitContext(context.Background()), cart.ErrNetworkFailure)
	<-p.Done()
}
