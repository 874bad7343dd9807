// Package twin is an in-memory stand-in for the HOHO mini-program API. It
// serves the routes the journeys and the smoke suite call, with the same
// success shapes and rejection statuses, so runs can be exercised without
// the production backend.
package twin

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Options configures a twin server.
type Options struct {
	// Secret signs bearer tokens. Empty means a fixed development secret.
	Secret []byte
	// VerificationCode is the only SMS code registration accepts.
	VerificationCode string
	AdminUsername    string
	AdminPassword    string
	Logger           *zap.Logger
	// NoSeed starts with an empty catalogue.
	NoSeed bool
}

// DefaultOptions matches the credentials the CLI uses by default.
func DefaultOptions() Options {
	return Options{
		Secret:           []byte("hoho-twin-dev-secret"),
		VerificationCode: "123456",
		AdminUsername:    "admin",
		AdminPassword:    "Admin@123456",
	}
}

// Server is the twin HTTP server.
type Server struct {
	opts   Options
	store  *MemoryStore
	issuer *Issuer
	router *chi.Mux
	logger *zap.Logger
	faults *FaultRegistry
}

// New creates a twin server. Zero-valued options fall back to DefaultOptions.
func New(opts Options) *Server {
	def := DefaultOptions()
	if len(opts.Secret) == 0 {
		opts.Secret = def.Secret
	}
	if opts.VerificationCode == "" {
		opts.VerificationCode = def.VerificationCode
	}
	if opts.AdminUsername == "" {
		opts.AdminUsername = def.AdminUsername
		opts.AdminPassword = def.AdminPassword
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	st := NewMemoryStore()
	if !opts.NoSeed {
		st.Seed()
	}

	s := &Server{
		opts:   opts,
		store:  st,
		issuer: NewIssuer(opts.Secret),
		logger: opts.Logger,
		faults: NewFaultRegistry(),
	}
	s.router = s.routes()
	return s
}

// Store exposes the backing store for seeding and inspection.
func (s *Server) Store() *MemoryStore { return s.store }

// Faults exposes the fault registry.
func (s *Server) Faults() *FaultRegistry { return s.faults }

// ServeHTTP implements http.Handler so the twin can be mounted in tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully. ready, if non-nil, receives the bound address.
func (s *Server) ListenAndServe(ctx context.Context, addr string, ready func(net.Addr)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:      s,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("twin listening", zap.String("addr", ln.Addr().String()))
		errc <- srv.Serve(ln)
	}()
	if ready != nil {
		ready(ln.Addr())
	}

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("twin shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	<-errc
	return nil
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(s.requestLog)
	r.Use(s.faultInjection)

	r.Get("/health", s.health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.health)

		r.Post("/auth/register", s.register)
		r.Post("/auth/login", s.login)
		r.Post("/users/register", s.register)
		r.Post("/users/login", s.login)

		r.Get("/assets", s.listAssets)
		r.Get("/assets/{id}", s.getAsset)
		r.Get("/listings", s.listListings)
		r.Get("/listings/{id}", s.getListing)
		r.Get("/events", s.listEvents)

		r.Group(func(r chi.Router) {
			r.Use(s.requireRole(RoleUser))
			r.Get("/airdrops", s.listAirdrops)
			r.Get("/user/profile", s.profile)
			r.Get("/user/points", s.points)
			r.Get("/user/points/history", s.pointHistory)
			r.Get("/user/assets", s.userAssets)
			r.Get("/jingtan/assets", s.jingtanAssets)
		})

		r.Route("/admin", s.adminRoutes)
	})

	r.Route("/admin", s.adminRoutes)
	r.Route(controlPrefix, s.controlRoutes)
	return r
}

func (s *Server) adminRoutes(r chi.Router) {
	r.Post("/login", s.adminLogin)
	r.Group(func(r chi.Router) {
		r.Use(s.requireRole(RoleAdmin))
		r.Get("/users", s.adminUsers)
		r.Get("/stats", s.adminStats)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// Error writes the API's error envelope.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]any{
		"code":    status,
		"message": message,
	})
}
