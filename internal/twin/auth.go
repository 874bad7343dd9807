package twin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles carried in token claims.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// tokenTTL bounds how long an issued token stays valid.
const tokenTTL = 24 * time.Hour

// Claims are the token claims the twin issues.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 bearer tokens.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

// NewIssuer creates an Issuer with the given signing secret.
func NewIssuer(secret []byte) *Issuer {
	return &Issuer{secret: secret, now: time.Now}
}

// Issue signs a token for subject with the given role.
func (i *Issuer) Issue(subject, role string) (string, error) {
	now := i.now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "hoho-twin",
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a signed token.
func (i *Issuer) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, err
	}
	return claims, nil
}

type claimsKey struct{}

// claimsFrom returns the verified claims attached by requireRole.
func claimsFrom(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey{}).(*Claims)
	return c
}

// subjectID returns the numeric subject of the request's token.
func subjectID(ctx context.Context) (int64, error) {
	c := claimsFrom(ctx)
	if c == nil {
		return 0, errors.New("no claims")
	}
	return strconv.ParseInt(c.Subject, 10, 64)
}

// requireRole rejects requests without a valid bearer token for role.
func (s *Server) requireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			raw := strings.TrimPrefix(auth, "Bearer ")
			if auth == "" || raw == auth || raw == "" {
				Error(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			claims, err := s.issuer.Verify(raw)
			if err != nil {
				Error(w, http.StatusUnauthorized, "invalid token")
				return
			}
			if claims.Role != role {
				Error(w, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
		})
	}
}
