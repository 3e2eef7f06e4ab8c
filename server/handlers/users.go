package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dashport/dashport/audit"
	"github.com/dashport/dashport/auth"
	"github.com/dashport/dashport/server/middleware"
	"github.com/dashport/dashport/userstore"
)

type createUserRequest struct {
	Username  string   `json:"username"`
	Password  string   `json:"password"`
	Email     string   `json:"email"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Roles     []string `json:"roles"`
}

type updateUserRequest struct {
	Password  *string   `json:"password,omitempty"`
	Email     *string   `json:"email,omitempty"`
	FirstName *string   `json:"first_name,omitempty"`
	LastName  *string   `json:"last_name,omitempty"`
	Roles     *[]string `json:"roles,omitempty"`
}

// ListUsers returns all user records with passwords stripped.
func ListUsers(store userstore.Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := store.Load(r.Context())
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusInternalServerError)
			return
		}

		users := make([]userstore.User, 0, len(doc.Users))
		for _, u := range doc.Users {
			users = append(users, u.Redacted())
		}
		SendJSONResponse(w, map[string]any{"users": users})
	}
}

// CreateUser adds a new user record. The password is hashed at creation;
// plaintext never reaches the document for new accounts.
func CreateUser(store userstore.Store, auditor audit.Recorder, minPasswordLength int, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		addr := middleware.GetClientAddr(ctx)
		actor := actorUsername(ctx)

		var req createUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
			SendErrorResponse(w, logger, fmt.Errorf("%w: username is required", auth.ErrValidation), http.StatusBadRequest)
			return
		}
		if len(req.Password) < minPasswordLength {
			SendErrorResponse(w, logger,
				fmt.Errorf("%w: password must be at least %d characters", auth.ErrValidation, minPasswordLength),
				http.StatusBadRequest)
			return
		}
		if req.Email != "" && !strings.Contains(req.Email, "@") {
			SendErrorResponse(w, logger, fmt.Errorf("%w: malformed email address", auth.ErrValidation), http.StatusBadRequest)
			return
		}

		digest, err := auth.HashPassword(req.Password)
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusInternalServerError)
			return
		}

		err = store.Update(ctx, func(doc *userstore.Document) error {
			if doc.FindUser(req.Username) != nil {
				return userstore.ErrUserExists
			}
			doc.Users = append(doc.Users, userstore.User{
				Username:  req.Username,
				Password:  digest,
				Email:     req.Email,
				FirstName: req.FirstName,
				LastName:  req.LastName,
				Roles:     req.Roles,
			})
			return nil
		})
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusInternalServerError)
			return
		}

		auditor.Record(audit.ActionUserCreated, actor, addr, map[string]any{"target": req.Username})
		logger.Info("User created",
			zap.String("username", req.Username),
			zap.String("actor", actor))
		SendJSONResponse(w, map[string]any{"success": true})
	}
}

// UpdateUser modifies any field of an existing user. Stripping admin roles
// from the last administrator is refused; otherwise the next status check
// would lock everyone out of the admin surface.
func UpdateUser(store userstore.Store, auditor audit.Recorder, minPasswordLength int, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		addr := middleware.GetClientAddr(ctx)
		actor := actorUsername(ctx)
		username := chi.URLParam(r, "username")

		var req updateUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			SendErrorResponse(w, logger, fmt.Errorf("%w: malformed request body", auth.ErrValidation), http.StatusBadRequest)
			return
		}
		if req.Password != nil && len(*req.Password) < minPasswordLength {
			SendErrorResponse(w, logger,
				fmt.Errorf("%w: password must be at least %d characters", auth.ErrValidation, minPasswordLength),
				http.StatusBadRequest)
			return
		}
		if req.Email != nil && *req.Email != "" && !strings.Contains(*req.Email, "@") {
			SendErrorResponse(w, logger, fmt.Errorf("%w: malformed email address", auth.ErrValidation), http.StatusBadRequest)
			return
		}

		err := store.Update(ctx, func(doc *userstore.Document) error {
			user := doc.FindUser(username)
			if user == nil {
				return userstore.ErrUserNotFound
			}

			if req.Roles != nil {
				wasAdmin := auth.IsAdmin(user.Roles, doc.Roles)
				willBeAdmin := auth.IsAdmin(*req.Roles, doc.Roles)
				if wasAdmin && !willBeAdmin && countAdmins(doc) == 1 {
					return auth.ErrLastAdmin
				}
				user.Roles = *req.Roles
			}
			if req.Password != nil {
				digest, err := auth.HashPassword(*req.Password)
				if err != nil {
					return err
				}
				user.Password = digest
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
			return nil
		})
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusInternalServerError)
			return
		}

		auditor.Record(audit.ActionUserUpdated, actor, addr, map[string]any{"target": username})
		SendJSONResponse(w, map[string]any{"success": true})
	}
}

// DeleteUser removes a user record, refusing to delete the last
// administrator.
func DeleteUser(store userstore.Store, auditor audit.Recorder, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		addr := middleware.GetClientAddr(ctx)
		actor := actorUsername(ctx)
		username := chi.URLParam(r, "username")

		err := store.Update(ctx, func(doc *userstore.Document) error {
			user := doc.FindUser(username)
			if user == nil {
				return userstore.ErrUserNotFound
			}
			if auth.IsAdmin(user.Roles, doc.Roles) && countAdmins(doc) == 1 {
				return auth.ErrLastAdmin
			}

			users := doc.Users[:0]
			for _, u := range doc.Users {
				if u.Username != username {
					users = append(users, u)
				}
			}
			doc.Users = users
			return nil
		})
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusInternalServerError)
			return
		}

		auditor.Record(audit.ActionUserDeleted, actor, addr, map[string]any{"target": username})
		logger.Info("User deleted",
			zap.String("username", username),
			zap.String("actor", actor))
		SendJSONResponse(w, map[string]any{"success": true})
	}
}

// countAdmins returns how many users currently satisfy the admin predicate.
func countAdmins(doc *userstore.Document) int {
	n := 0
	for _, u := range doc.Users {
		if auth.IsAdmin(u.Roles, doc.Roles) {
			n++
		}
	}
	return n
}

// actorUsername names the acting principal for audit entries; local admins
// act as "localhost".
func actorUsername(ctx context.Context) string {
	if principal, ok := middleware.GetPrincipal(ctx); ok {
		return principal.Username
	}
	return ""
}
