package twin

import (
	"net/http"
	"testing"
)

func TestControlResetRestoresSeed(t *testing.T) {
	s := New(Options{})
	registerUser(t, s)

	_, state := do(t, s, "GET", "/_twin/state", nil, "")
	if users, _ := state["users"].([]any); len(users) != 1 {
		t.Fatalf("expected 1 user before reset, got %v", state["users"])
	}

	rec, _ := do(t, s, "POST", "/_twin/reset", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("reset: expected 200, got %d", rec.Code)
	}

	_, state = do(t, s, "GET", "/_twin/state", nil, "")
	if users, _ := state["users"].([]any); len(users) != 0 {
		t.Errorf("expected no users after reset, got %d", len(users))
	}
	if assets, _ := state["assets"].([]any); len(assets) != 3 {
		t.Errorf("expected seeded assets after reset, got %d", len(assets))
	}

	_, body := do(t, s, "POST", "/api/v1/auth/register", map[string]string{
		"phone": "13800138000", "password": "Test123456!", "code": "123456",
	}, "")
	if id, _ := body["user_id"].(float64); id != 10001 {
		t.Errorf("expected IDs to restart at 10001, got %v", body["user_id"])
	}
}

func TestControlResetKeepsNoSeed(t *testing.T) {
	s := New(Options{NoSeed: true})
	do(t, s, "POST", "/_twin/reset", nil, "")
	if n := s.Store().Assets.Count(); n != 0 {
		t.Errorf("expected empty catalogue, got %d assets", n)
	}
}

func TestControlFaults(t *testing.T) {
	s := New(Options{})

	rec, _ := do(t, s, "POST", "/_twin/fault/api/v1/assets", map[string]any{"status_code": 503}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("inject: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec, _ := do(t, s, "GET", "/api/v1/assets", nil, ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected injected 503, got %d", rec.Code)
	}

	_, faults := do(t, s, "GET", "/_twin/faults", nil, "")
	if _, ok := faults["/api/v1/assets"]; !ok {
		t.Errorf("expected fault listed, got %v", faults)
	}

	if rec, _ := do(t, s, "DELETE", "/_twin/fault/api/v1/assets", nil, ""); rec.Code != http.StatusOK {
		t.Errorf("remove: expected 200, got %d", rec.Code)
	}
	if rec, _ := do(t, s, "DELETE", "/_twin/fault/api/v1/assets", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("second remove: expected 404, got %d", rec.Code)
	}
	if rec, _ := do(t, s, "GET", "/api/v1/assets", nil, ""); rec.Code != http.StatusOK {
		t.Errorf("expected 200 after removal, got %d", rec.Code)
	}
}

func TestControlRejectsBadFaults(t *testing.T) {
	s := New(Options{})
	tests := []struct {
		name string
		body map[string]any
	}{
		{"empty", map[string]any{}},
		{"bad delay", map[string]any{"delay": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := do(t, s, "POST", "/_twin/fault/health", tt.body, "")
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestControlPathsIgnoreFaults(t *testing.T) {
	s := New(Options{})
	s.Faults().Set("/_twin/state", Fault{StatusCode: http.StatusInternalServerError})
	if rec, _ := do(t, s, "GET", "/_twin/state", nil, ""); rec.Code != http.StatusOK {
		t.Errorf("expected control plane unaffected, got %d", rec.Code)
	}

	do(t, s, "POST", "/_twin/reset", nil, "")
	if n := len(s.Faults().All()); n != 0 {
		t.Errorf("expected reset to clear faults, got %d", n)
	}
}
