// Package middleware provides HTTP middleware for authenticating trigger callers.
package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

// callerKey is the context key for storing the authenticated caller.
const callerKey ContextKey = "caller"

// Callers recorded when no token subject is available
const (
	CallerSecret    = "cron-secret"
	CallerAnonymous = "anonymous"
)

// TokenValidator validates signed trigger tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (SubjectGetter, error)
}

// SubjectGetter is satisfied by jwt claims.
type SubjectGetter interface {
	GetSubject() (string, error)
}

// AuthOptions configures the trigger auth middleware
type AuthOptions struct {
	// Secret is compared in constant time against the bearer token
	Secret string
	// Validator accepts signed tokens; nil disables token auth
	Validator TokenValidator
	// AllowUnauthenticated lets every request through as CallerAnonymous
	AllowUnauthenticated bool
	// OnReject is called for every rejected request; may be nil
	OnReject func(r *http.Request)
}

// TriggerAuth accepts `Authorization: Bearer <secret>` or `Bearer <signed token>`.
// Rejected requests get 401 {"error":"Unauthorized"}.
func TriggerAuth(opts AuthOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if opts.AllowUnauthenticated {
				next.ServeHTTP(w, withCaller(r, CallerAnonymous))
				return
			}

			token, ok := bearerToken(r)
			if !ok {
				reject(w, r, opts)
				return
			}

			if opts.Secret != "" && subtle.ConstantTimeCompare([]byte(token), []byte(opts.Secret)) == 1 {
				next.ServeHTTP(w, withCaller(r, CallerSecret))
				return
			}

			if opts.Validator != nil {
				claims, err := opts.Validator.ValidateToken(token)
				if err == nil {
					subject, _ := claims.GetSubject()
					if subject == "" {
						subject = CallerAnonymous
					}
					next.ServeHTTP(w, withCaller(r, subject))
					return
				}
			}

			reject(w, r, opts)
		})
	}
}

// bearerToken extracts the token from a case-insensitive "Bearer" Authorization header
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func reject(w http.ResponseWriter, r *http.Request, opts AuthOptions) {
	if opts.OnReject != nil {
		opts.OnReject(r)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
}

func withCaller(r *http.Request, caller string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), callerKey, caller))
}

// GetCaller returns the authenticated caller from the request context, or "".
func GetCaller(r *http.Request) string {
	caller, _ := r.Context().Value(callerKey).(string)
	return caller
}
