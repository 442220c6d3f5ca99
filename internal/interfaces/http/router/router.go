package router

import (
	"net/http"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/auth"
	"github.com/erp/backoffice/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// Guard builds the permission check for one route
type Guard func(action shared.Action) gin.HandlerFunc

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup, guard Guard)
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	policy     shared.Policy
	middleware []gin.HandlerFunc
	health     gin.HandlerFunc
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

// WithPolicy replaces the permission policy. The default trusts the
// permissions carried in the verified token.
func WithPolicy(policy shared.Policy) RouterOption {
	return func(r *Router) {
		r.policy = policy
	}
}

// WithMiddleware adds middleware to the versioned API group only
func WithMiddleware(mw ...gin.HandlerFunc) RouterOption {
	return func(r *Router) {
		r.middleware = append(r.middleware, mw...)
	}
}

// WithHealth serves h on /health and /api/<version>/health
func WithHealth(h gin.HandlerFunc) RouterOption {
	return func(r *Router) {
		r.health = h
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
		policy:     auth.NewClaimsPolicy(),
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
	if r.health != nil {
		r.engine.GET("/health", r.health)
	}

	api := r.engine.Group("/api/" + r.apiVersion)
	if len(r.middleware) > 0 {
		api.Use(r.middleware...)
	}
	if r.health != nil {
		api.GET("/health", r.health)
	}

	guard := r.guard()
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api, guard)
	}
}

func (r *Router) guard() Guard {
	return func(action shared.Action) gin.HandlerFunc {
		return middleware.RequirePermission(r.policy, action)
	}
}

// DomainGroup collects the routes of one bounded context under a prefix.
// Every route names the action it requires.
type DomainGroup struct {
	name       string
	prefix     string
	routes     []routeDefinition
	middleware []gin.HandlerFunc
}

type routeDefinition struct {
	method  string
	path    string
	action  shared.Action
	handler gin.HandlerFunc
}

// NewDomainGroup creates a new domain-specific route group
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{
		name:   name,
		prefix: prefix,
	}
}

// Use adds middleware to this group
func (dg *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, middleware...)
	return dg
}

func (dg *DomainGroup) add(method, path string, action shared.Action, handler gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, routeDefinition{
		method:  method,
		path:    path,
		action:  action,
		handler: handler,
	})
	return dg
}

// GET registers a GET route
func (dg *DomainGroup) GET(path string, action shared.Action, handler gin.HandlerFunc) *DomainGroup {
	return dg.add(http.MethodGet, path, action, handler)
}

// POST registers a POST route
func (dg *DomainGroup) POST(path string, action shared.Action, handler gin.HandlerFunc) *DomainGroup {
	return dg.add(http.MethodPost, path, action, handler)
}

// PUT registers a PUT route
func (dg *DomainGroup) PUT(path string, action shared.Action, handler gin.HandlerFunc) *DomainGroup {
	return dg.add(http.MethodPut, path, action, handler)
}

// PATCH registers a PATCH route
func (dg *DomainGroup) PATCH(path string, action shared.Action, handler gin.HandlerFunc) *DomainGroup {
	return dg.add(http.MethodPatch, path, action, handler)
}

// DELETE registers a DELETE route
func (dg *DomainGroup) DELETE(path string, action shared.Action, handler gin.HandlerFunc) *DomainGroup {
	return dg.add(http.MethodDelete, path, action, handler)
}

// RegisterRoutes implements RouteRegistrar. The permission check runs
// before the handler.
func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup, guard Guard) {
	group := rg.Group(dg.prefix)
	if len(dg.middleware) > 0 {
		group.Use(dg.middleware...)
	}

	for _, route := range dg.routes {
		group.Handle(route.method, route.path, guard(route.action), route.handler)
	}
}

// Name returns the group name
func (dg *DomainGroup) Name() string {
	return dg.name
}

// Prefix returns the group prefix
func (dg *DomainGroup) Prefix() string {
	return dg.prefix
}

// Actions lists "METHOD path" to action for every route, for audits and tests
func (dg *DomainGroup) Actions() map[string]shared.Action {
	out := make(map[string]shared.Action, len(dg.routes))
	for _, route := range dg.routes {
		out[route.method+" "+dg.prefix+route.path] = route.action
	}
	return out
}
