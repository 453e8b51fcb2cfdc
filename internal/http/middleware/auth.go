package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const (
	adminClaimsKey  contextKey = "adminClaims"
	authorClaimsKey contextKey = "authorClaims"
)

var errMissingBearer = errors.New("missing authorization header")

// AuthorClaims identifies a signed-in letter writer.
type AuthorClaims struct {
	jwt.RegisteredClaims
	Handle             string `json:"handle,omitempty"`
	StoreCrisisHistory bool   `json:"store_crisis_history,omitempty"`
}

// UserID returns the author's subject.
func (c AuthorClaims) UserID() string {
	return c.Subject
}

func parseBearer(r *http.Request, secret string, claims jwt.Claims) error {
	auth := r.Header.Get("Authorization")
	if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
		return errMissingBearer
	}
	token, err := jwt.ParseWithClaims(strings.TrimPrefix(auth, "Bearer "), claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return err
	}
	if !token.Valid {
		return jwt.ErrTokenInvalidClaims
	}
	return nil
}

// AdminJWT enforces an HMAC-signed JWT for moderator endpoints.
func AdminJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				writeError(w, http.StatusUnauthorized, "admin auth disabled")
				return
			}
			claims := jwt.RegisteredClaims{}
			if err := parseBearer(r, secret, &claims); err != nil {
				writeError(w, http.StatusUnauthorized, authMessage(err))
				return
			}
			ctx := context.WithValue(r.Context(), adminClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminClaimsFromContext returns admin JWT claims if present.
func AdminClaimsFromContext(ctx context.Context) (jwt.RegisteredClaims, bool) {
	claims, ok := ctx.Value(adminClaimsKey).(jwt.RegisteredClaims)
	return claims, ok
}

// OptionalAuthor attaches author claims when a valid token is sent and lets
// guests through. A token that is present but invalid is rejected.
func OptionalAuthor(secret string) func(http.Handler) http.Handler {
	return authorMiddleware(secret, false)
}

// RequireAuthor rejects requests without a valid author token.
func RequireAuthor(secret string) func(http.Handler) http.Handler {
	return authorMiddleware(secret, true)
}

func authorMiddleware(secret string, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				if required {
					writeError(w, http.StatusUnauthorized, "author auth disabled")
					return
				}
				next.ServeHTTP(w, r)
				return
			}
			claims := AuthorClaims{}
			err := parseBearer(r, secret, &claims)
			switch {
			case errors.Is(err, errMissingBearer) && !required:
				next.ServeHTTP(w, r)
				return
			case err != nil:
				writeError(w, http.StatusUnauthorized, authMessage(err))
				return
			case claims.Subject == "":
				writeError(w, http.StatusUnauthorized, "token has no subject")
				return
			}
			ctx := context.WithValue(r.Context(), authorClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuthorFromContext returns the signed-in author, if any.
func AuthorFromContext(ctx context.Context) (AuthorClaims, bool) {
	claims, ok := ctx.Value(authorClaimsKey).(AuthorClaims)
	return claims, ok
}

// WithAuthor stores claims on ctx. Handlers use it in tests and jobs.
func WithAuthor(ctx context.Context, claims AuthorClaims) context.Context {
	return context.WithValue(ctx, authorClaimsKey, claims)
}

func authMessage(err error) string {
	if errors.Is(err, errMissingBearer) {
		return errMissingBearer.Error()
	}
	return "invalid token"
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
