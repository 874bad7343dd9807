package twin

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

var phonePattern = regexp.MustCompile(`^1\d{10}$`)

type credentials struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Code     string `json:"code"`
	Username string `json:"username"`
}

func decode(w http.ResponseWriter, r *http.Request) (credentials, bool) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return c, false
	}
	return c, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		Error(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) issueUser(w http.ResponseWriter, status int, u User) {
	token, err := s.issuer.Issue(strconv.FormatInt(u.ID, 10), RoleUser)
	if err != nil {
		s.logger.Error("issue token", zap.Error(err))
		Error(w, http.StatusInternalServerError, "token error")
		return
	}
	JSON(w, status, map[string]any{"token": token, "user_id": u.ID, "user": u})
}

// register creates an account. Registering an existing phone with the same
// password signs in again, so repeated runs against one twin keep passing.
func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	c, ok := decode(w, r)
	if !ok {
		return
	}
	switch {
	case !phonePattern.MatchString(c.Phone):
		Error(w, http.StatusBadRequest, "invalid phone number")
		return
	case c.Password == "":
		Error(w, http.StatusBadRequest, "password is required")
		return
	case c.Code != s.opts.VerificationCode:
		Error(w, http.StatusBadRequest, "invalid verification code")
		return
	}

	u, created := s.store.RegisterOrGet(c.Phone, c.Password)
	if !created {
		if u.password != c.Password {
			Error(w, http.StatusConflict, "phone already registered")
			return
		}
		s.issueUser(w, http.StatusOK, u)
		return
	}
	s.logger.Info("user registered", zap.Int64("user_id", u.ID))
	s.issueUser(w, http.StatusCreated, u)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	c, ok := decode(w, r)
	if !ok {
		return
	}
	u, exists := s.store.UserByPhone(c.Phone)
	if !exists || u.password != c.Password {
		Error(w, http.StatusUnauthorized, "invalid phone or password")
		return
	}
	s.issueUser(w, http.StatusOK, u)
}

func (s *Server) listAssets(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, page(s.store.Assets.List()))
}

func (s *Server) getAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	a, found := s.store.Assets.Get(id)
	if !found {
		Error(w, http.StatusNotFound, "asset not found")
		return
	}
	JSON(w, http.StatusOK, a)
}

type listingView struct {
	Listing
	Asset *Asset `json:"asset,omitempty"`
}

func (s *Server) listListings(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, page(s.store.Listings.Filter(func(l Listing) bool { return l.Status == "on_sale" })))
}

func (s *Server) getListing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	l, found := s.store.Listings.Get(id)
	if !found {
		Error(w, http.StatusNotFound, "listing not found")
		return
	}
	v := listingView{Listing: l}
	if a, ok := s.store.Assets.Get(l.AssetID); ok {
		v.Asset = &a
	}
	JSON(w, http.StatusOK, v)
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, page(s.store.Events.List()))
}

func (s *Server) listAirdrops(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, page(s.store.Airdrops.List()))
}

// currentUser resolves the token subject to a stored user.
func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) (User, bool) {
	id, err := subjectID(r.Context())
	if err != nil {
		Error(w, http.StatusUnauthorized, "invalid token subject")
		return User{}, false
	}
	u, ok := s.store.Users.Get(id)
	if !ok {
		Error(w, http.StatusUnauthorized, "user not found")
		return User{}, false
	}
	return u, true
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	if u, ok := s.currentUser(w, r); ok {
		JSON(w, http.StatusOK, u)
	}
}

func (s *Server) points(w http.ResponseWriter, r *http.Request) {
	if u, ok := s.currentUser(w, r); ok {
		JSON(w, http.StatusOK, map[string]any{"balance": u.Points})
	}
}

func (s *Server) pointHistory(w http.ResponseWriter, r *http.Request) {
	u, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	JSON(w, http.StatusOK, page(s.store.Points.Filter(func(p PointRecord) bool { return p.UserID == u.ID })))
}

func (s *Server) userAssets(w http.ResponseWriter, r *http.Request) {
	u, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	JSON(w, http.StatusOK, page(s.store.Holdings.Filter(func(h Holding) bool { return h.UserID == u.ID })))
}

func (s *Server) jingtanAssets(w http.ResponseWriter, r *http.Request) {
	u, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	JSON(w, http.StatusOK, page(s.store.Holdings.Filter(func(h Holding) bool {
		return h.UserID == u.ID && h.Source == "jingtan"
	})))
}

func (s *Server) adminLogin(w http.ResponseWriter, r *http.Request) {
	c, ok := decode(w, r)
	if !ok {
		return
	}
	if c.Username != s.opts.AdminUsername || c.Password != s.opts.AdminPassword {
		Error(w, http.StatusUnauthorized, "invalid username or password")
		return
	}
	token, err := s.issuer.Issue(c.Username, RoleAdmin)
	if err != nil {
		s.logger.Error("issue admin token", zap.Error(err))
		Error(w, http.StatusInternalServerError, "token error")
		return
	}
	JSON(w, http.StatusOK, map[string]any{"token": token, "username": c.Username})
}

func (s *Server) adminUsers(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, page(s.store.Users.List()))
}

func (s *Server) adminStats(w http.ResponseWriter, r *http.Request) {
	var issued int64
	for _, p := range s.store.Points.List() {
		issued += p.Amount
	}
	JSON(w, http.StatusOK, map[string]any{
		"users":         s.store.Users.Count(),
		"assets":        s.store.Assets.Count(),
		"listings":      s.store.Listings.Count(),
		"events":        s.store.Events.Count(),
		"points_issued": issued,
	})
}
