// Package session holds the correlation state threaded through one journey
// run: tokens from login steps and entity IDs discovered in listings.
//
// A Session is created empty at the start of a run and discarded at the end.
// It is only touched by the goroutine executing the run, so it has no lock.
package session

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Well-known keys written by the built-in journeys.
const (
	UserToken  = "user_token"
	AdminToken = "admin_token"
	UserID     = "user_id"
	AssetID    = "asset_id"
	ListingID  = "listing_id"
)

// ErrNoToken is returned by TokenClaims when the key is unset.
var ErrNoToken = errors.New("no token in session")

// Session is a mutable bag of string values keyed by name.
type Session struct {
	values map[string]string
}

// New returns an empty session.
func New() *Session {
	return &Session{values: make(map[string]string)}
}

// Get returns the value for key and whether it is set to a non-empty value.
func (s *Session) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok && v != ""
}

// Value returns the value for key, or "" when unset.
func (s *Session) Value(key string) string {
	return s.values[key]
}

// Has reports whether key holds a non-empty value.
func (s *Session) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Set stores value under key. Setting "" clears the key.
func (s *Session) Set(key, value string) {
	if value == "" {
		delete(s.values, key)
		return
	}
	s.values[key] = value
}

// Keys returns the set keys in sorted order.
func (s *Session) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a copy of all values, for templates and expressions.
func (s *Session) Snapshot() map[string]string {
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Claims is the subset of token claims worth showing in a report.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// TokenClaims decodes the JWT stored under key without verifying its
// signature. The harness never holds the server's signing key; the claims
// are for display only and must not be used for authorization.
func (s *Session) TokenClaims(key string) (Claims, error) {
	raw, ok := s.Get(key)
	if !ok {
		return Claims{}, fmt.Errorf("%s: %w", key, ErrNoToken)
	}

	var rc jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &rc); err != nil {
		return Claims{}, fmt.Errorf("decoding %s: %w", key, err)
	}

	c := Claims{Subject: rc.Subject}
	if rc.ExpiresAt != nil {
		c.ExpiresAt = rc.ExpiresAt.Time
	}
	return c, nil
}
