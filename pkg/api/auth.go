package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Mindburn-Labs/charter/pkg/identity"
)

// HeaderCaller names the caller when no JWT secret is configured.
const HeaderCaller = "X-Caller"

var errNoCredentials = errors.New("no credentials")

type callerKey struct{}

// WithCaller stores the authenticated caller in ctx.
func WithCaller(ctx context.Context, id identity.Identity) context.Context {
	return context.WithValue(ctx, callerKey{}, id)
}

// CallerFrom returns the authenticated caller, or the zero identity.
func CallerFrom(ctx context.Context) identity.Identity {
	id, _ := ctx.Value(callerKey{}).(identity.Identity)
	return id
}

// Authenticator resolves the caller of a request. With a secret it accepts
// only HS256 bearer tokens whose subject is the caller address; without one
// it trusts the X-Caller header, which is meant for local development.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Enforced reports whether tokens are required.
func (a *Authenticator) Enforced() bool {
	return len(a.secret) > 0
}

// Resolve returns errNoCredentials when the request carries none.
func (a *Authenticator) Resolve(r *http.Request) (identity.Identity, error) {
	if !a.Enforced() {
		h := r.Header.Get(HeaderCaller)
		if h == "" {
			return identity.Zero, errNoCredentials
		}
		return identity.Parse(h)
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return identity.Zero, errNoCredentials
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return identity.Zero, errors.New("invalid Authorization header format (expected 'Bearer <token>')")
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return identity.Zero, fmt.Errorf("invalid or expired token: %w", err)
	}
	if claims.Subject == "" {
		return identity.Zero, errors.New("token subject is required")
	}
	return identity.Parse(claims.Subject)
}

// Middleware stores the caller in the request context. Requests without
// credentials pass through anonymously; bad credentials are rejected.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := a.Resolve(r)
		switch {
		case errors.Is(err, errNoCredentials):
			next.ServeHTTP(w, r)
		case err != nil:
			WriteUnauthorized(w, r, err.Error())
		default:
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), id)))
		}
	})
}

// IssueToken signs an HS256 token for id valid for ttl.
func IssueToken(secret string, id identity.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   id.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
