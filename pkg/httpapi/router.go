// Package httpapi implements the REST surface under /api/v0 (spec §6):
// a Go 1.22+ method+pattern http.ServeMux wrapped with go-chi/cors, backed
// entirely by pkg/catalog's ProjectStore, pkg/watcher's Watcher, and the
// Query Executor. Mirrors the teacher's handler-struct-plus-RegisterRoutes
// shape (pkg/handlers/projects.go) without its tenant/JWT auth middleware,
// since spec §1 scopes this system to a single operator, not multi-tenant
// end users behind an identity provider.
package httpapi

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-engine/pkg/catalog"
	"github.com/ekaya-inc/ekaya-engine/pkg/watcher"
)

// Server wires the catalog and watcher into an http.Handler.
type Server struct {
	store   *catalog.ProjectStore
	watch   *watcher.Watcher
	logger  *zap.Logger
	devProx *httputil.ReverseProxy
}

// NewServer builds the REST surface. devServerURL, when non-empty, enables
// a reverse proxy to a front-end dev server for any request the API router
// itself doesn't claim (spec §6: "NODE_ENV=development enable front-end
// proxy").
func NewServer(store *catalog.ProjectStore, watch *watcher.Watcher, logger *zap.Logger, devServerURL string) (*Server, error) {
	s := &Server{store: store, watch: watch, logger: logger}
	if devServerURL != "" {
		target, err := url.Parse(devServerURL)
		if err != nil {
			return nil, err
		}
		s.devProx = httputil.NewSingleHostReverseProxy(target)
	}
	return s, nil
}

// Handler builds the full CORS-wrapped http.Handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerProjectRoutes(mux)
	s.registerPackageRoutes(mux)
	s.registerConnectionRoutes(mux)
	s.registerWatchRoutes(mux)

	var root http.Handler = mux
	if s.devProx != nil {
		root = s.withDevProxyFallback(mux)
	}

	corsMW := cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	})
	return corsMW(root)
}

// withDevProxyFallback routes anything not matched by the API mux to the
// front-end dev server, mirroring create-react-app/vite's own dev proxy
// so /api/v0/* is served locally while everything else (HMR, static
// assets) comes from the dev server.
func (s *Server) withDevProxyFallback(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, pattern := mux.Handler(r)
		if pattern == "" {
			s.devProx.ServeHTTP(w, r)
			return
		}
		mux.ServeHTTP(w, r)
	})
}
