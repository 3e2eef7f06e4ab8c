package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/dashport/dashport/audit"
	"github.com/dashport/dashport/auth"
	"github.com/dashport/dashport/server/middleware"
	"github.com/dashport/dashport/userstore"
)

type profileRequest struct {
	Email     *string `json:"email,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
}

// UpdateProfile lets an authenticated user change their own non-privileged
// fields. Roles and password are out of reach here; roles are admin-only and
// the password has its own proof-carrying endpoint.
func UpdateProfile(store userstore.Store, auditor audit.Recorder, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		addr := middleware.GetClientAddr(ctx)

		principal, ok := middleware.GetPrincipal(ctx)
		if !ok {
			SendErrorResponse(w, logger, auth.ErrAuthenticationRequired, http.StatusUnauthorized)
			return
		}
		if principal.IsLocal {
			SendErrorResponse(w, logger, fmt.Errorf("%w: local sessions have no profile", auth.ErrValidation), http.StatusBadRequest)
			return
		}

		var req profileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			SendErrorResponse(w, logger, fmt.Errorf("%w: malformed request body", auth.ErrValidation), http.StatusBadRequest)
			return
		}
		if req.Email != nil && *req.Email != "" && !strings.Contains(*req.Email, "@") {
			SendErrorResponse(w, logger, fmt.Errorf("%w: malformed email address", auth.ErrValidation), http.StatusBadRequest)
			return
		}

		var updated userstore.User
		err := store.Update(ctx, func(doc *userstore.Document) error {
			user := doc.FindUser(principal.Username)
			if user == nil {
				return userstore.ErrUserNotFound
			}
			if req.Email != nil {
				user.Email = *req.Email
			}
			if req.FirstName != nil {
				user.FirstName = *req.FirstName
			}
			if req.LastName != nil {
				user.LastName = *req.LastName
			}
			updated = user.Redacted()
			return nil
		})
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusInternalServerError)
			return
		}

		auditor.Record(audit.ActionProfileUpdate, principal.Username, addr, nil)
		SendJSONResponse(w, map[string]any{"success": true, "user": updated})
	}
}
