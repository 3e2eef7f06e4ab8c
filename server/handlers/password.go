package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/dashport/dashport/audit"
	"github.com/dashport/dashport/auth"
	"github.com/dashport/dashport/server/middleware"
	"github.com/dashport/dashport/session"
	"github.com/dashport/dashport/userstore"
)

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword updates the acting user's own password. It requires an
// authenticated non-local session and current-password proof. The session
// fingerprint is refreshed afterwards so the actor is not logged out by
// their own change, while every other session for the user goes stale.
func ChangePassword(store userstore.Store, sessions *session.Manager, auditor audit.Recorder, minPasswordLength int, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		addr := middleware.GetClientAddr(ctx)

		principal, ok := middleware.GetPrincipal(ctx)
		if !ok {
			SendErrorResponse(w, logger, auth.ErrAuthenticationRequired, http.StatusUnauthorized)
			return
		}
		if principal.IsLocal {
			// Local sessions have no backing user record to change.
			SendErrorResponse(w, logger, fmt.Errorf("%w: local sessions have no password", auth.ErrValidation), http.StatusBadRequest)
			return
		}

		var req changePasswordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CurrentPassword == "" || req.NewPassword == "" {
			SendErrorResponse(w, logger, fmt.Errorf("%w: current_password and new_password are required", auth.ErrValidation), http.StatusBadRequest)
			return
		}
		if len(req.NewPassword) < minPasswordLength {
			auditor.Record(audit.ActionPasswordChangeFailed, principal.Username, addr,
				map[string]any{"reason": "weak_password"})
			SendErrorResponse(w, logger,
				fmt.Errorf("%w: password must be at least %d characters", auth.ErrValidation, minPasswordLength),
				http.StatusBadRequest)
			return
		}

		var newToken string
		err := store.Update(ctx, func(doc *userstore.Document) error {
			user := doc.FindUser(principal.Username)
			if user == nil {
				return userstore.ErrUserNotFound
			}
			if !verifyStoredPassword(user.Password, req.CurrentPassword) {
				return auth.ErrInvalidCredentials
			}

			digest, err := auth.HashPassword(req.NewPassword)
			if err != nil {
				return err
			}
			user.Password = digest
			newToken = auth.SessionFingerprint(user.Roles, digest)
			return nil
		})
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				auditor.Record(audit.ActionPasswordChangeFailed, principal.Username, addr,
					map[string]any{"reason": "wrong_current_password"})
			}
			SendErrorResponse(w, logger, err, http.StatusInternalServerError)
			return
		}

		if err := sessions.Issue(w, &session.State{Username: principal.Username, Token: newToken}); err != nil {
			logger.Error("Failed to refresh session after password change", zap.Error(err))
		}

		auditor.Record(audit.ActionPasswordChanged, principal.Username, addr, nil)
		logger.Info("Password changed", zap.String("username", principal.Username))
		SendJSONResponse(w, map[string]any{"success": true})
	}
}

// verifyStoredPassword checks a presented password against a stored value
// that may be a bcrypt digest or a legacy plaintext record. Exactly one of
// the two checks runs, dispatched on the stored form.
func verifyStoredPassword(stored, presented string) bool {
	if auth.LooksHashed(stored) {
		return auth.VerifyPassword(presented, stored)
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}
