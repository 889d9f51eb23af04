package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/bookstore/storefront/internal/domain/session"
	"github.com/bookstore/storefront/internal/interfaces/http/middleware"
)

// SessionService signs the shopper in and out
type SessionService interface {
	Current() session.Identity
	Login(ctx context.Context, token string) (session.Identity, error)
	Logout(ctx context.Context) error
}

// SessionHandler serves the session endpoints. The cart follows the
// session on its own; these endpoints only change who is signed in.
type SessionHandler struct {
	BaseHandler
	sessions SessionService
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(sessions SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Get returns the current identity
func (h *SessionHandler) Get(c *gin.Context) {
	h.Success(c, h.sessions.Current())
}

// Login stores a bearer token and signs in as its user
func (h *SessionHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	identity, err := h.sessions.Login(c.Request.Context(), req.Token)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, identity)
}

// Logout signs out. Signing out while anonymous succeeds.
func (h *SessionHandler) Logout(c *gin.Context) {
	if err := h.sessions.Logout(c.Request.Context()); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, h.sessions.Current())
}

// RegisterRoutes registers the session routes
func (h *SessionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/session")
	group.GET("", h.Get)
	group.POST("/login", h.Login)
	group.POST("/logout", h.Logout)
}
