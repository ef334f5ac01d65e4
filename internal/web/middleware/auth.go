package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/JonMunkholm/opsboard/internal/backend"
	"github.com/JonMunkholm/opsboard/internal/config"
	"github.com/JonMunkholm/opsboard/internal/core"
)

// TokenCookie is the cookie the login page stores the bearer token in.
const TokenCookie = "token"

var (
	ErrInvalidToken       = errors.New("invalid bearer token")
	ErrInvalidSigningAlgo = errors.New("unexpected signing method")
)

// Claims are the bearer token claims the dashboard reads.
type Claims struct {
	Role string `json:"role"`
	// UserID is set by backends that do not fill "sub".
	UserID string `json:"id,omitempty"`
	jwt.RegisteredClaims
}

// Actor returns the caller described by the claims.
func (c *Claims) Actor() core.Actor {
	id := c.Subject
	if id == "" {
		id = c.UserID
	}
	if id == "" {
		id = "unknown"
	}
	return core.Actor{ID: id, Role: c.Role}
}

// BearerToken reads "Authorization: Bearer <token>", falling back to the
// token cookie for browser page loads.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(TokenCookie); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}

// ParseToken reads the claims of a token. With a secret the HS256
// signature and expiry are verified; without one the token is only decoded
// and the backend remains the authority.
func ParseToken(token, secret string) (*Claims, error) {
	claims := &Claims{}
	if secret == "" {
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		return claims, nil
	}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSigningAlgo
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// Auth returns middleware that forwards the caller's bearer token to the
// backend and records the caller as the request actor.
//
// Requests without a token are passed to onFail with core.ErrUnauthenticated
// when cfg.Required is set; otherwise they continue anonymously and the
// backend client falls back to its service token. Tokens that fail to parse
// are always refused.
func Auth(cfg config.AuthConfig, onFail func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				if cfg.Required {
					onFail(w, r, core.ErrUnauthenticated)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			claims, err := ParseToken(token, cfg.JWTSecret)
			if err != nil {
				onFail(w, r, fmt.Errorf("%w: %w", core.ErrUnauthenticated, err))
				return
			}

			ctx := backend.ContextWithToken(r.Context(), token)
			ctx = core.ContextWithActor(ctx, claims.Actor())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
