package api

import (
	"net/http"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"

	"github.com/opshub-io/opshub/pkg/access"
	"github.com/opshub-io/opshub/pkg/audit"
	"github.com/opshub-io/opshub/pkg/auth"
	"github.com/opshub-io/opshub/pkg/httputil"
	"github.com/opshub-io/opshub/pkg/middleware"
	"github.com/opshub-io/opshub/pkg/navigation"
	"github.com/opshub-io/opshub/pkg/observability"
	"github.com/opshub-io/opshub/pkg/registry"
	"github.com/opshub-io/opshub/pkg/tenants"
)

// Server wires the access-resolution API together
type Server struct {
	router *mux.Router

	registry  *registry.Registry
	tenants   *tenants.Store
	matrix    *access.MatrixStore
	overrides *access.OverrideStore
	service   access.Service
	cache     *access.CachedService
	builder   *navigation.Builder

	tokens   *auth.TokenManager
	auditRec *audit.Recorder
	auditAPI *audit.Handlers
	redis    *redis.Client

	logger  *observability.Logger
	metrics *observability.Metrics
}

// Config collects the server's dependencies
type Config struct {
	Registry  *registry.Registry
	Tenants   *tenants.Store
	Matrix    *access.MatrixStore
	Overrides *access.OverrideStore

	// Service resolves enablement and effective sets. Pass the cached
	// service when caching is enabled, the bare resolver otherwise.
	Service access.Service

	// Cache enables synchronous invalidation after writes; nil when
	// caching is disabled.
	Cache *access.CachedService

	Tokens        *auth.TokenManager
	AuditRecorder *audit.Recorder
	AuditStore    *audit.Store

	// Redis switches general rate limiting to the shared Redis-backed
	// limiter so budgets hold across instances; nil keeps the in-memory
	// limiter.
	Redis *redis.Client

	Logger  *observability.Logger
	Metrics *observability.Metrics
}

// NewServer creates the API server and sets up all routes
func NewServer(cfg Config) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		registry:  cfg.Registry,
		tenants:   cfg.Tenants,
		matrix:    cfg.Matrix,
		overrides: cfg.Overrides,
		service:   cfg.Service,
		cache:     cfg.Cache,
		builder:   navigation.NewBuilder(cfg.Registry),
		tokens:    cfg.Tokens,
		auditRec:  cfg.AuditRecorder,
		redis:     cfg.Redis,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
	}
	if s.auditRec == nil {
		s.auditRec = audit.NewRecorder(audit.NewNoOpLogger(), cfg.Logger)
	}
	if cfg.AuditStore != nil {
		s.auditAPI = audit.NewHandlers(cfg.AuditStore)
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.Use(httputil.RequestIDMiddleware)
	s.router.Use(httputil.RecoveryMiddleware)
	s.router.Use(httputil.ContentTypeMiddleware)
	s.router.Use(httputil.MaxBytesMiddleware(1 << 20))
	if s.metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(s.metrics))
	}

	authMW := middleware.NewAuthMiddleware(s.tokens, false)
	rateMW := middleware.NewRateLimitMiddleware()

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(authMW.Handler)
	if s.redis != nil {
		api.Use(middleware.NewDistributedRateLimitMiddleware(s.redis).Handler)
	} else {
		api.Use(rateMW.Handler)
	}

	// Navigation
	api.HandleFunc("/modules", s.getNavigation).Methods("GET")

	// Role matrix (tenant-wide)
	tenantRoutes := api.PathPrefix("/tenants/{tenant_id}").Subrouter()
	tenantRoutes.Use(middleware.TenantContextMiddleware(s.tenants))
	tenantRoutes.HandleFunc("/role-matrix", s.getMatrix).Methods("GET")
	tenantRoutes.Handle("/role-matrix", rateMW.WriteHandler(http.HandlerFunc(s.putMatrix))).Methods("PUT")

	// Per-user overrides
	tenantRoutes.HandleFunc("/users/{user_id}/module-overrides", s.getOverrides).Methods("GET")
	tenantRoutes.Handle("/users/{user_id}/module-overrides", rateMW.WriteHandler(http.HandlerFunc(s.putOverrides))).Methods("PUT")

	// Token administration (super admin)
	api.HandleFunc("/tokens", s.createToken).Methods("POST")
	api.HandleFunc("/tokens/{hash}", s.revokeToken).Methods("DELETE")

	// Audit trail (super admin, checked inside the handlers)
	if s.auditAPI != nil {
		s.auditAPI.RegisterRoutes(api)
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Router exposes the underlying router for the cmd wiring
func (s *Server) Router() *mux.Router {
	return s.router
}
