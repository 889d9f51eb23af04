package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/bookstore/storefront/internal/domain/session"
	"github.com/bookstore/storefront/internal/infrastructure/logger"
	"github.com/bookstore/storefront/internal/interfaces/http/middleware"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
		registrars: make([]RouteRegistrar, 0),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup registers all routes with the engine
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// EngineConfig holds what the middleware stack needs
type EngineConfig struct {
	ServiceName  string
	MaxBodySize  int64
	AllowOrigins []string
	Logger       *zap.Logger
	// Session labels spans with the signed-in user; optional
	Session session.Observer
	// Meter records HTTP metrics; optional
	Meter metric.Meter
	// Metrics is served on /metrics; optional
	Metrics http.Handler
	// Health is served on /health; optional
	Health gin.HandlerFunc
}

// NewEngine creates a gin engine with the storefront middleware stack and
// the unversioned /health and /metrics routes
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	l := cfg.Logger
	if l == nil {
		l = zap.NewNop()
	}

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(l), logger.Recovery(l))
	engine.Use(middleware.Tracing(cfg.ServiceName, cfg.Session)...)
	if cfg.Meter != nil {
		mw, err := middleware.HTTPMetrics(cfg.Meter)
		if err != nil {
			return nil, err
		}
		engine.Use(mw)
	}
	engine.Use(middleware.Secure())

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.AllowOrigins
	engine.Use(middleware.CORSWithConfig(cors))

	if cfg.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}

	if cfg.Health != nil {
		engine.GET("/health", cfg.Health)
	}
	if cfg.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(cfg.Metrics))
	}
	return engine, nil
}
