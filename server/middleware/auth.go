// Package middleware provides the per-request access-control pipeline:
// session decoding, identity resolution, the read and write gates, and
// per-class rate limiting.
package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"go.uber.org/zap"

	"github.com/dashport/dashport/auth"
	"github.com/dashport/dashport/session"
)

// contextKey is the private key type for request-scoped values
type contextKey string

const (
	principalKey  contextKey = "principal"
	sessionKey    contextKey = "session"
	clientAddrKey contextKey = "client_addr"
	RequestIDKey  contextKey = "request_id"
)

// RequestID adds a unique request ID to each request context
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := generateRequestID()
			w.Header().Set("X-Request-ID", requestID)
			ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionContext decodes the session cookie once per request and threads the
// state through the request context. There is no ambient session object;
// everything downstream reads this value.
func SessionContext(sessions *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if st := sessions.Read(r); st != nil {
				r = r.WithContext(context.WithValue(r.Context(), sessionKey, st))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Identity resolves the effective principal for every request and stores it
// (along with the resolved client address) in the request context. Anonymous
// requests pass through with no principal; only a store read failure stops
// the request.
func Identity(resolver *auth.IdentityResolver, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			addr := auth.ResolveClientAddr(r)
			ctx := context.WithValue(r.Context(), clientAddrKey, addr)

			var sessionUsername string
			if st := GetSession(ctx); st != nil {
				sessionUsername = st.Username
			}

			principal, err := resolver.Resolve(ctx, r, sessionUsername)
			if err != nil {
				logger.Error("Identity resolution failed", zap.Error(err))
				sendErrorResponse(w, logger, "STORE_IO_FAILURE", "User store unavailable", http.StatusInternalServerError, false)
				return
			}
			if principal != nil {
				ctx = context.WithValue(ctx, principalKey, principal)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser is the read gate: any authenticated or local principal passes,
// anonymous requests are rejected with an authentication-required signal.
func RequireUser(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := GetPrincipal(r.Context()); !ok {
				logger.Debug("Read gate rejected anonymous request",
					zap.String("path", r.URL.Path),
					zap.String("client_addr", GetClientAddr(r.Context())))
				sendErrorResponse(w, logger, "AUTHENTICATION_REQUIRED", auth.ErrAuthenticationRequired.Error(), http.StatusUnauthorized, true)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin is the write gate: only administrators or local principals
// pass. Everyone else gets an authorization-denied signal, deliberately not
// an authentication-required one.
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := GetPrincipal(r.Context())
			if !ok || !principal.IsAdmin {
				logger.Debug("Write gate rejected request",
					zap.String("path", r.URL.Path),
					zap.Bool("authenticated", ok),
					zap.String("client_addr", GetClientAddr(r.Context())))
				sendErrorResponse(w, logger, "ADMIN_REQUIRED", auth.ErrAuthorizationDenied.Error(), http.StatusForbidden, false)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetPrincipal extracts the resolved principal from the request context.
func GetPrincipal(ctx context.Context) (*auth.Principal, bool) {
	principal, ok := ctx.Value(principalKey).(*auth.Principal)
	return principal, ok
}

// GetSession extracts the decoded session state from the request context, or
// nil when the request carries no valid session cookie.
func GetSession(ctx context.Context) *session.State {
	st, _ := ctx.Value(sessionKey).(*session.State)
	return st
}

// GetClientAddr extracts the resolved client address from the request context.
func GetClientAddr(ctx context.Context) string {
	addr, _ := ctx.Value(clientAddrKey).(string)
	return addr
}

// generateRequestID creates a random request ID
func generateRequestID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// sendErrorResponse writes a minimal JSON error without pulling in the
// handlers package.
func sendErrorResponse(w http.ResponseWriter, logger *zap.Logger, code, message string, statusCode int, loginRequired bool) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	body := `{"code":"` + code + `","message":"` + message + `"`
	if loginRequired {
		body += `,"login_required":true`
	}
	body += `}`

	if _, err := w.Write([]byte(body)); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}
