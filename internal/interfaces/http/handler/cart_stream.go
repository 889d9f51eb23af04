package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	cartapp "github.com/bookstore/storefront/internal/application/cart"
	"github.com/bookstore/storefront/internal/domain/cart"
	"github.com/bookstore/storefront/internal/domain/shared"
	"github.com/bookstore/storefront/internal/interfaces/http/dto"
)

// SSE event names
const (
	SSEEventSnapshot  = "snapshot"
	SSEEventCart      = "cart"
	SSEEventFailure   = "cart_error"
	SSEEventLoaded    = "cart_loaded"
	SSEEventHeartbeat = "heartbeat"
)

// sseBufferSize is how many messages a slow client may fall behind before
// messages are dropped. Every cart message carries the whole cart, so a
// client that misses one is current again after the next.
const sseBufferSize = 64

// CartEventSource is the live cart as the change stream uses it
type CartEventSource interface {
	Snapshot() cartapp.Snapshot
	Subscribe(fn func(ctx context.Context, e shared.DomainEvent), eventTypes ...string) (unsubscribe func())
}

// SSEClient represents a connected SSE client
type SSEClient struct {
	ID   string
	Chan chan SSEMessage
}

// SSEMessage represents a message to be sent to SSE clients
type SSEMessage struct {
	Event string
	ID    string
	Data  []byte
}

// CartStreamHandler pushes cart changes and failure notifications to
// connected clients as Server-Sent Events
type CartStreamHandler struct {
	BaseHandler
	source     CartEventSource
	logger     *zap.Logger
	heartbeat  time.Duration
	maxClients int

	clients sync.Map // map[string]*SSEClient

	mu          sync.Mutex
	unsubscribe func()
	ctx         context.Context
	cancel      context.CancelFunc
}

// CartStreamOption configures a CartStreamHandler
type CartStreamOption func(*CartStreamHandler)

// WithStreamLogger sets the logger for the handler
func WithStreamLogger(l *zap.Logger) CartStreamOption {
	return func(h *CartStreamHandler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithHeartbeat sets the heartbeat interval
func WithHeartbeat(interval time.Duration) CartStreamOption {
	return func(h *CartStreamHandler) {
		if interval > 0 {
			h.heartbeat = interval
		}
	}
}

// WithMaxClients caps concurrent stream connections; zero means no cap
func WithMaxClients(n int) CartStreamOption {
	return func(h *CartStreamHandler) {
		h.maxClients = n
	}
}

// NewCartStreamHandler creates a new CartStreamHandler
func NewCartStreamHandler(source CartEventSource, opts ...CartStreamOption) *CartStreamHandler {
	h := &CartStreamHandler{
		source:    source,
		logger:    zap.NewNop(),
		heartbeat: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.ctx, h.cancel = context.WithCancel(context.Background())
	return h
}

// Start subscribes to cart events and starts the heartbeat
func (h *CartStreamHandler) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.unsubscribe != nil {
		return
	}
	h.unsubscribe = h.source.Subscribe(h.handleEvent)
	go h.sendHeartbeats()
}

// Stop unsubscribes and disconnects every client
func (h *CartStreamHandler) Stop() {
	h.mu.Lock()
	unsubscribe := h.unsubscribe
	h.unsubscribe = nil
	h.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	h.cancel()
}

func (h *CartStreamHandler) handleEvent(_ context.Context, e shared.DomainEvent) {
	var name string
	var payload any
	switch ev := e.(type) {
	case *cart.CartChangedEvent:
		name = SSEEventCart
		payload = toCartResponse(cartapp.Snapshot{
			Cart:       ev.Cart,
			Phase:      ev.Phase,
			TotalItems: ev.TotalItems,
			TotalPrice: ev.TotalPrice,
		})
	case *cart.CartMutationFailedEvent:
		name, payload = SSEEventFailure, ev
	case *cart.CartLoadedEvent:
		name, payload = SSEEventLoaded, ev
	default:
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Failed to encode cart event", zap.String("event_type", e.EventType()), zap.Error(err))
		return
	}
	h.broadcast(SSEMessage{Event: name, ID: e.EventID().String(), Data: data})
}

func (h *CartStreamHandler) broadcast(msg SSEMessage) {
	h.clients.Range(func(_, value any) bool {
		client, ok := value.(*SSEClient)
		if !ok {
			return true
		}
		select {
		case client.Chan <- msg:
		default:
			h.logger.Warn("Client channel full, dropping message",
				zap.String("client_id", client.ID),
				zap.String("event", msg.Event))
		}
		return true
	})
}

func (h *CartStreamHandler) sendHeartbeats() {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			h.broadcast(SSEMessage{
				Event: SSEEventHeartbeat,
				Data:  fmt.Appendf(nil, `{"timestamp":%d}`, time.Now().Unix()),
			})
		}
	}
}

// Stream serves the change stream. The first message is the current cart.
func (h *CartStreamHandler) Stream(c *gin.Context) {
	if h.maxClients > 0 && h.ClientCount() >= h.maxClients {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeTooManyRequests, "Maximum number of stream connections reached")
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	client := &SSEClient{
		ID:   uuid.NewString(),
		Chan: make(chan SSEMessage, sseBufferSize),
	}
	// Register before taking the snapshot so no change falls in between
	h.clients.Store(client.ID, client)
	defer h.clients.Delete(client.ID)

	log := h.logger.With(zap.String("client_id", client.ID))
	log.Info("SSE client connected")

	snapshot, err := json.Marshal(toCartResponse(h.source.Snapshot()))
	if err != nil {
		log.Error("Failed to encode cart snapshot", zap.Error(err))
		return
	}
	c.Status(http.StatusOK)
	writeEvent(c.Writer, SSEMessage{Event: SSEEventSnapshot, ID: client.ID, Data: snapshot})
	c.Writer.Flush()

	reqCtx := c.Request.Context()
	for {
		select {
		case <-reqCtx.Done():
			log.Info("SSE client disconnected")
			return
		case <-h.ctx.Done():
			log.Info("SSE handler stopped, disconnecting client")
			return
		case msg := <-client.Chan:
			writeEvent(c.Writer, msg)
			c.Writer.Flush()
		}
	}
}

func writeEvent(w io.Writer, msg SSEMessage) {
	if msg.Event != "" {
		fmt.Fprintf(w, "event: %s\n", msg.Event)
	}
	if msg.ID != "" {
		fmt.Fprintf(w, "id: %s\n", msg.ID)
	}
	fmt.Fprintf(w, "data: %s\n\n", msg.Data)
}

// ClientCount returns the number of connected SSE clients
func (h *CartStreamHandler) ClientCount() int {
	count := 0
	h.clients.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}

// RegisterRoutes registers the stream route
func (h *CartStreamHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/cart/stream", h.Stream)
}
