package twin

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// controlPrefix mounts the twin's own control plane. It stays clear of
// /admin, which belongs to the HOHO admin API.
const controlPrefix = "/_twin"

func (s *Server) controlRoutes(r chi.Router) {
	r.Get("/health", s.health)
	r.Post("/reset", s.handleReset)
	r.Get("/state", s.handleState)
	r.Get("/faults", s.handleListFaults)
	r.Post("/fault/*", s.handleInjectFault)
	r.Delete("/fault/*", s.handleRemoveFault)
}

// handleReset restores the store to its startup state and clears faults.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.store.Reset(!s.opts.NoSeed)
	s.faults.Reset()
	s.logger.Info("twin reset")
	JSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, s.store.Snapshot())
}

func (s *Server) handleListFaults(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, s.faults.All())
}

// faultRequest is the wire form of a Fault. Delay is a Go duration string.
type faultRequest struct {
	StatusCode int    `json:"status_code"`
	Body       string `json:"body"`
	Delay      string `json:"delay"`
}

func (s *Server) handleInjectFault(w http.ResponseWriter, r *http.Request) {
	endpoint := "/" + chi.URLParam(r, "*")

	var req faultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid fault config: "+err.Error())
		return
	}
	f := Fault{StatusCode: req.StatusCode, Body: req.Body}
	if req.Delay != "" {
		d, err := time.ParseDuration(req.Delay)
		if err != nil {
			Error(w, http.StatusBadRequest, "invalid delay: "+err.Error())
			return
		}
		f.Delay = d
	}
	if f.StatusCode == 0 && f.Delay == 0 {
		Error(w, http.StatusBadRequest, "fault needs a status_code or a delay")
		return
	}

	s.faults.Set(endpoint, f)
	JSON(w, http.StatusOK, map[string]any{
		"status":   "injected",
		"endpoint": endpoint,
		"fault":    f,
	})
}

func (s *Server) handleRemoveFault(w http.ResponseWriter, r *http.Request) {
	endpoint := "/" + chi.URLParam(r, "*")
	if !s.faults.Remove(endpoint) {
		Error(w, http.StatusNotFound, "no fault registered for "+endpoint)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"status": "removed", "endpoint": endpoint})
}
