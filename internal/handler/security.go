package handler

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"

	"github.com/xenking/threadcraft/internal/domain/auth"
)

// Request headers carrying credentials.
const (
	APIKeyHeader        = "X-API-Key"
	AuthorizationHeader = "Authorization"
)

// RoleAdmin is the role claim required on admin tokens.
const RoleAdmin = "admin"

// AdminClaims are the claims of an identity-provider token for an admin.
type AdminClaims struct {
	jwt.RegisteredClaims
	Name string `json:"name"`
	Role string `json:"role"`
}

// AdminConfig configures admin token verification.
type AdminConfig struct {
	// JWTSecret is the HS256 signing key shared with the identity provider.
	JWTSecret []byte
	// Issuer must match the iss claim when set.
	Issuer string
}

// SecurityHandler authenticates storefront API keys and admin tokens.
type SecurityHandler struct {
	apikeys auth.Repository
	pepper  string
	admin   AdminConfig
	now     func() time.Time
}

// NewSecurityHandler creates a SecurityHandler. API keys are hashed with
// HMAC-SHA256 under pepper before lookup.
func NewSecurityHandler(apikeys auth.Repository, pepper string, admin AdminConfig) *SecurityHandler {
	return &SecurityHandler{
		apikeys: apikeys,
		pepper:  pepper,
		admin:   admin,
		now:     time.Now,
	}
}

// HandleAPIKey resolves a raw storefront key to its stored record.
func (s *SecurityHandler) HandleAPIKey(ctx context.Context, key string) (*auth.APIKeyInfo, error) {
	if key == "" {
		return nil, errUnauthorized
	}
	hexHash := auth.HashKey(key, s.pepper)

	info, err := s.apikeys.FindByHash(ctx, hexHash)
	if err != nil {
		if errors.Is(err, auth.ErrKeyNotFound) {
			return nil, errUnauthorized
		}
		return nil, errors.Wrap(err, "find api key")
	}

	// The repository matched on the hash; compare again in constant time so
	// a wrong row can never authenticate.
	want, err := hex.DecodeString(info.KeyHash)
	if err != nil {
		return nil, errUnauthorized
	}
	got, _ := hex.DecodeString(hexHash)
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return nil, errUnauthorized
	}
	return info, nil
}

// HandleBearer verifies an admin token and returns the acting admin.
func (s *SecurityHandler) HandleBearer(token string) (auth.Actor, error) {
	if len(s.admin.JWTSecret) == 0 {
		return auth.Actor{}, errUnauthorized
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.admin.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.admin.Issuer))
	}

	var claims AdminClaims
	if _, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.admin.JWTSecret, nil
	}, opts...); err != nil {
		return auth.Actor{}, errUnauthorized
	}
	if claims.Role != RoleAdmin {
		return auth.Actor{}, errForbidden
	}

	actor := auth.Actor{ID: claims.Subject, Name: claims.Name}
	if err := actor.Validate(); err != nil {
		return auth.Actor{}, errUnauthorized
	}
	return actor, nil
}

// RequireAPIKey admits requests with a key holding scope.
func (s *SecurityHandler) RequireAPIKey(scope string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, err := s.HandleAPIKey(r.Context(), r.Header.Get(APIKeyHeader))
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !info.HasScope(scope) {
			writeError(w, r, errForbidden)
			return
		}
		next(w, r.WithContext(auth.WithAPIKey(r.Context(), info)))
	}
}

// RequireAdmin admits requests with a valid admin bearer token and stores
// the actor in the context.
func (s *SecurityHandler) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scheme, token, ok := strings.Cut(r.Header.Get(AuthorizationHeader), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			writeError(w, r, errUnauthorized)
			return
		}
		actor, err := s.HandleBearer(strings.TrimSpace(token))
		if err != nil {
			writeError(w, r, err)
			return
		}
		next(w, r.WithContext(auth.WithActor(r.Context(), actor)))
	}
}
