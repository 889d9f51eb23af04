package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cartapp "github.com/bookstore/storefront/internal/application/cart"
	"github.com/bookstore/storefront/internal/domain/cart"
	"github.com/bookstore/storefront/internal/domain/order"
	"github.com/bookstore/storefront/internal/domain/shared/valueobject"
	"github.com/bookstore/storefront/internal/infrastructure/auth"
	"github.com/bookstore/storefront/internal/infrastructure/event"
	"github.com/bookstore/storefront/internal/infrastructure/localstore"
	"github.com/bookstore/storefront/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

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
	return m.Called(ctx, lineID, quantity).Error(0)
}

func (m *MockGateway) Remove(ctx context.Context, lineID string) error {
	return m.Called(ctx, lineID).Error(0)
}

func (m *MockGateway) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// MockOrderCreator is a mock implementation of order.Creator
type MockOrderCreator struct {
	mock.Mock
}

func (m *MockOrderCreator) CreateOrder(ctx context.Context, req order.Request) (order.Confirmation, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(order.Confirmation), args.Error(1)
}

func vnd(amount float64) valueobject.Money {
	return valueobject.MustMoney(amount, valueobject.VND)
}

// duneCart is the remote cart of user 7: two copies of Dune
var duneCart = cart.RemoteCart{
	CartID: "c-7",
	Lines: []cart.RemoteLine{
		{LineID: "L1", ProductID: "12", Quantity: 2, Title: "Dune", Author: "Frank Herbert", Price: vnd(120000)},
	},
}

// testApp is the cart, session and HTTP surface wired the way main wires
// them, with the bookstore backend mocked
type testApp struct {
	engine   *gin.Engine
	store    *cartapp.Store
	sessions *auth.SessionManager
	gateway  *MockGateway
	orders   *MockOrderCreator
	stream   *CartStreamHandler
}

func newTestApp(t *testing.T, streamOpts ...CartStreamOption) *testApp {
	t.Helper()

	bus := event.NewInMemoryEventBus(nil)
	kv := localstore.NewMemoryStore()
	sessions := auth.NewSessionManager(kv, "token", bus)
	gateway := new(MockGateway)
	orders := new(MockOrderCreator)

	store := cartapp.NewStore(
		cartapp.Config{Currency: valueobject.VND},
		localstore.NewCartSnapshotStore(kv, "bookstore-cart", valueobject.VND),
		gateway,
		sessions,
		bus,
		cartapp.WithExpirer(sessions),
	)
	require.NoError(t, store.Start(context.Background()))
	t.Cleanup(store.Close)

	stream := NewCartStreamHandler(store, streamOpts...)
	stream.Start()
	t.Cleanup(stream.Stop)

	engine := gin.New()
	engine.Use(middleware.RequestID())
	api := engine.Group("/api/v1")
	NewCartHandler(store, cartapp.NewHandoff(store, orders, nil)).RegisterRoutes(api)
	NewSessionHandler(sessions).RegisterRoutes(api)
	stream.RegisterRoutes(api)
	engine.GET("/health", NewSystemHandler("storefront", store).Health)

	return &testApp{
		engine:   engine,
		store:    store,
		sessions: sessions,
		gateway:  gateway,
		orders:   orders,
		stream:   stream,
	}
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func userToken(t *testing.T, userID int) string {
	return signToken(t, jwt.MapClaims{
		"sub":    "reader@example.com",
		"userId": userID,
		"scope":  auth.ScopeUser,
		"exp":    time.Now().Add(time.Hour).Unix(),
	})
}

// signIn logs user 7 in over HTTP and waits for the remote cart to load
func (a *testApp) signIn(t *testing.T, remote cart.RemoteCart) {
	t.Helper()
	a.gateway.On("Fetch", mock.Anything).Return(remote, nil).Once()

	w := a.do(t, http.MethodPost, "/api/v1/session/login", map[string]string{"token": userToken(t, 7)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	a.store.Wait()
	require.Equal(t, cart.PhaseAuthenticated, a.store.Phase())
}

func (a *testApp) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

// envelope decodes the standard response with data left raw
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
		Details   []struct {
			Field string `json:"field"`
		} `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

type cartBody struct {
	Phase cart.Phase `json:"phase"`
	Items []struct {
		ProductID    string `json:"productId"`
		Quantity     int    `json:"quantity"`
		RemoteLineID string `json:"remoteLineId"`
		Subtotal     struct {
			Amount string `json:"amount"`
		} `json:"subtotal"`
	} `json:"items"`
	TotalItems int `json:"totalItems"`
	TotalPrice struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	} `json:"totalPrice"`
}

func decodeCart(t *testing.T, w *httptest.ResponseRecorder) cartBody {
	t.Helper()
	env := decodeEnvelope(t, w)
	require.True(t, env.Success, w.Body.String())
	var body cartBody
	require.NoError(t, json.Unmarshal(env.Data, &body))
	return body
}

func (b cartBody) quantities() map[string]int {
	out := make(map[string]int, len(b.Items))
	for _, item := range b.Items {
		out[item.ProductID] = item.Quantity
	}
	return out
}
