package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/projpool/projpool/internal/handlers/middleware"
)

// Route of a blueprint
type Route struct {
	Method string

	// gorilla/mux path template, e.g. /project/{id}
	Path    string
	Summary string
	Auth    middleware.Level

	// Zero values of request and response bodies
	// Only their types matter: API docs describe bodies with them
	Request  any
	Response any

	// Request body may be omitted
	OptionalBody bool

	// Status on success, 200 if not set
	Status int

	Handler http.Handler
}

// Blueprint is a named group of related routes
type Blueprint struct {
	Name        string
	Description string
	Routes      []Route
}

type authenticator interface {
	Require(level middleware.Level) func(http.Handler) http.Handler
}

type instrumenter interface {
	Instrument(name string, next http.Handler) http.Handler
}

// Registry mounts blueprints on router and remembers them for API docs
type Registry struct {
	router  *mux.Router
	auth    authenticator
	metrics instrumenter

	blueprints []Blueprint
	names      map[string]struct{}
}

func NewRegistry(router *mux.Router, auth authenticator, metrics instrumenter) (*Registry, error) {
	if router == nil || auth == nil {
		return nil, errors.New("router and authenticator must not be nil")
	}

	return &Registry{
		router:  router,
		auth:    auth,
		metrics: metrics,
		names:   make(map[string]struct{}),
	}, nil
}

// Register mounts every route of the blueprint or nothing if any route is broken
func (reg *Registry) Register(bp Blueprint) error {
	if bp.Name == "" {
		return errors.New("blueprint name must not be empty")
	}
	if _, ok := reg.names[bp.Name]; ok {
		return fmt.Errorf("blueprint %q already registered", bp.Name)
	}

	for _, route := range bp.Routes {
		if route.Method == "" || route.Path == "" || route.Handler == nil {
			return fmt.Errorf("blueprint %q has incomplete route %s %s", bp.Name, route.Method, route.Path)
		}
	}

	for _, route := range bp.Routes {
		h := reg.auth.Require(route.Auth)(route.Handler)
		if reg.metrics != nil {
			h = reg.metrics.Instrument(route.Path, h)
		}
		reg.router.Handle(route.Path, h).Methods(route.Method)
	}

	reg.names[bp.Name] = struct{}{}
	reg.blueprints = append(reg.blueprints, bp)

	return nil
}

// Blueprints in registration order
func (reg *Registry) Blueprints() []Blueprint {
	bps := make([]Blueprint, len(reg.blueprints))
	copy(bps, reg.blueprints)
	return bps
}

// Names of registered blueprints in registration order
func (reg *Registry) Names() []string {
	names := make([]string, 0, len(reg.blueprints))
	for _, bp := range reg.blueprints {
		names = append(names, bp.Name)
	}
	return names
}
