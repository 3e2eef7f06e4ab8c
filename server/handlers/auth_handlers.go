package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/dashport/dashport/audit"
	"github.com/dashport/dashport/auth"
	"github.com/dashport/dashport/metrics"
	"github.com/dashport/dashport/server/middleware"
	"github.com/dashport/dashport/session"
	"github.com/dashport/dashport/userstore"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates a username/password pair and issues a persistent
// session on success. Failure is a generic invalid-credentials response
// whether or not the username exists.
func Login(authn *auth.Authenticator, sessions *session.Manager, auditor audit.Recorder, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addr := middleware.GetClientAddr(r.Context())

		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
			SendErrorResponse(w, logger, fmt.Errorf("%w: username and password are required", auth.ErrValidation), http.StatusBadRequest)
			return
		}

		user, roles, err := authn.Authenticate(r.Context(), req.Username, req.Password)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				metrics.AuthAttemptsTotal.WithLabelValues("failure").Inc()
				auditor.Record(audit.ActionLoginFailed, req.Username, addr, nil)
			}
			SendErrorResponse(w, logger, err, http.StatusInternalServerError)
			return
		}

		token := auth.SessionFingerprint(user.Roles, user.Password)
		if err := sessions.Issue(w, &session.State{Username: user.Username, Token: token}); err != nil {
			logger.Error("Failed to issue session", zap.Error(err))
			SendErrorResponse(w, logger, err, http.StatusInternalServerError)
			return
		}

		principal := &auth.Principal{
			Username: user.Username,
			Roles:    user.Roles,
			Email:    user.Email,
			IsAdmin:  auth.IsAdmin(user.Roles, roles),
		}

		metrics.AuthAttemptsTotal.WithLabelValues("success").Inc()
		auditor.Record(audit.ActionLoginSuccess, user.Username, addr, nil)
		logger.Info("User logged in",
			zap.String("username", user.Username),
			zap.String("client_addr", addr))

		SendJSONResponse(w, map[string]any{"success": true, "user": principal})
	}
}

// Logout clears the session cookie.
func Logout(sessions *session.Manager, auditor audit.Recorder, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addr := middleware.GetClientAddr(r.Context())

		username := ""
		if principal, ok := middleware.GetPrincipal(r.Context()); ok {
			username = principal.Username
		}

		sessions.Clear(w)
		auditor.Record(audit.ActionLogout, username, addr, nil)
		SendJSONResponse(w, map[string]any{"success": true})
	}
}

// Status reports the authenticated principal. For non-local sessions that
// carry a fingerprint token, it recomputes the fingerprint against the
// current user record; a mismatch means the user's roles or password changed
// since login, so the session is cleared and the caller must re-authenticate.
// Sessions without a token predate fingerprinting and are grandfathered.
func Status(store userstore.Store, sessions *session.Manager, auditor audit.Recorder, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		addr := middleware.GetClientAddr(ctx)

		principal, ok := middleware.GetPrincipal(ctx)
		if !ok {
			SendErrorResponse(w, logger, auth.ErrAuthenticationRequired, http.StatusUnauthorized)
			return
		}

		if principal.IsLocal {
			SendJSONResponse(w, map[string]any{"authenticated": true, "user": principal})
			return
		}

		st := middleware.GetSession(ctx)
		if st != nil && st.Token != "" {
			doc, err := store.Load(ctx)
			if err != nil {
				SendErrorResponse(w, logger, err, http.StatusInternalServerError)
				return
			}

			user := doc.FindUser(principal.Username)
			if user == nil || st.Token != auth.SessionFingerprint(user.Roles, user.Password) {
				sessions.Clear(w)
				metrics.SessionsInvalidatedTotal.Inc()
				auditor.Record(audit.ActionSessionInvalidated, principal.Username, addr,
					map[string]any{"reason": "role_or_password_changed"})
				logger.Info("Session invalidated by fingerprint mismatch",
					zap.String("username", principal.Username))
				SendErrorResponse(w, logger, auth.ErrAuthenticationRequired, http.StatusUnauthorized)
				return
			}
		}

		SendJSONResponse(w, map[string]any{"authenticated": true, "user": principal})
	}
}
