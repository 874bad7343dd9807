package twin

import (
	"fmt"
	"maps"
	"net/http"
	"strings"
	"sync"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Fault replaces the response for one request path.
type Fault struct {
	StatusCode int           `json:"status_code"`
	Body       string        `json:"body,omitempty"`
	Delay      time.Duration `json:"delay,omitempty"`
}

// FaultRegistry maps exact request paths to injected faults.
type FaultRegistry struct {
	mu     sync.RWMutex
	faults map[string]Fault
}

// NewFaultRegistry creates an empty registry.
func NewFaultRegistry() *FaultRegistry {
	return &FaultRegistry{faults: make(map[string]Fault)}
}

// Set injects a fault for path.
func (fr *FaultRegistry) Set(path string, f Fault) {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	fr.faults[path] = f
}

// Remove clears the fault for path and reports whether one existed.
func (fr *FaultRegistry) Remove(path string) bool {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	_, ok := fr.faults[path]
	delete(fr.faults, path)
	return ok
}

// Check returns the fault for path, if any.
func (fr *FaultRegistry) Check(path string) (Fault, bool) {
	fr.mu.RLock()
	defer fr.mu.RUnlock()
	f, ok := fr.faults[path]
	return f, ok
}

// All returns a copy of the registered faults.
func (fr *FaultRegistry) All() map[string]Fault {
	fr.mu.RLock()
	defer fr.mu.RUnlock()
	return maps.Clone(fr.faults)
}

// Reset clears every fault.
func (fr *FaultRegistry) Reset() {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	fr.faults = make(map[string]Fault)
}

// faultInjection applies a registered fault before routing. A delay honours
// the request context so a client timeout ends it early. Control plane
// paths are never faulted.
func (s *Server) faultInjection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, ok := s.faults.Check(r.URL.Path)
		if !ok || strings.HasPrefix(r.URL.Path, controlPrefix+"/") {
			next.ServeHTTP(w, r)
			return
		}
		if f.Delay > 0 {
			select {
			case <-time.After(f.Delay):
			case <-r.Context().Done():
				return
			}
		}
		if f.StatusCode == 0 {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.StatusCode)
		if f.Body != "" {
			fmt.Fprint(w, f.Body)
		} else {
			fmt.Fprintf(w, `{"code":%d,"message":"injected fault"}`, f.StatusCode)
		}
	})
}

// requestLog logs each request at debug level.
func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.logger.Debug("request",
			zap.String("request_id", chimw.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
