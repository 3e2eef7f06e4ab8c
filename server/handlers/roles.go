package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dashport/dashport/audit"
	"github.com/dashport/dashport/auth"
	"github.com/dashport/dashport/server/middleware"
	"github.com/dashport/dashport/userstore"
)

type roleRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Categories  []string `json:"categories"`
	IsAdmin     bool     `json:"is_admin"`
}

// ListRoles returns the complete role table.
func ListRoles(store userstore.Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := store.Load(r.Context())
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusInternalServerError)
			return
		}
		SendJSONResponse(w, map[string]any{"roles": doc.Roles})
	}
}

// CreateRole adds a new role.
func CreateRole(store userstore.Store, auditor audit.Recorder, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		addr := middleware.GetClientAddr(ctx)
		actor := actorUsername(ctx)

		var req roleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
			SendErrorResponse(w, logger, fmt.Errorf("%w: role name is required", auth.ErrValidation), http.StatusBadRequest)
			return
		}

		err := store.Update(ctx, func(doc *userstore.Document) error {
			if doc.FindRole(req.Name) != nil {
				return userstore.ErrRoleExists
			}
			doc.Roles = append(doc.Roles, userstore.Role{
				Name:        req.Name,
				Description: req.Description,
				Categories:  req.Categories,
				IsAdmin:     req.IsAdmin,
			})
			return nil
		})
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusInternalServerError)
			return
		}

		auditor.Record(audit.ActionRolesUpdated, actor, addr, map[string]any{"role": req.Name, "change": "created"})
		SendJSONResponse(w, map[string]any{"success": true})
	}
}

// UpdateRole modifies an existing role. Clearing is_admin on the role named
// Admins is stored as requested but has no effect on the admin predicate,
// which always honors that name.
func UpdateRole(store userstore.Store, auditor audit.Recorder, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		addr := middleware.GetClientAddr(ctx)
		actor := actorUsername(ctx)
		name := chi.URLParam(r, "name")

		var req roleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			SendErrorResponse(w, logger, fmt.Errorf("%w: malformed request body", auth.ErrValidation), http.StatusBadRequest)
			return
		}

		err := store.Update(ctx, func(doc *userstore.Document) error {
			role := doc.FindRole(name)
			if role == nil {
				return userstore.ErrRoleNotFound
			}
			role.Description = req.Description
			role.Categories = req.Categories
			role.IsAdmin = req.IsAdmin
			return nil
		})
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusInternalServerError)
			return
		}

		auditor.Record(audit.ActionRolesUpdated, actor, addr, map[string]any{"role": name, "change": "updated"})
		SendJSONResponse(w, map[string]any{"success": true})
	}
}

// DeleteRole removes a role. Deletion is refused while any user still
// references the role name.
func DeleteRole(store userstore.Store, auditor audit.Recorder, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		addr := middleware.GetClientAddr(ctx)
		actor := actorUsername(ctx)
		name := chi.URLParam(r, "name")

		err := store.Update(ctx, func(doc *userstore.Document) error {
			if doc.FindRole(name) == nil {
				return userstore.ErrRoleNotFound
			}
			for _, u := range doc.Users {
				for _, roleName := range u.Roles {
					if roleName == name {
						return fmt.Errorf("%w: role %q is assigned to user %q", userstore.ErrRoleInUse, name, u.Username)
					}
				}
			}

			roles := doc.Roles[:0]
			for _, role := range doc.Roles {
				if role.Name != name {
					roles = append(roles, role)
				}
			}
			doc.Roles = roles
			return nil
		})
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusInternalServerError)
			return
		}

		auditor.Record(audit.ActionRoleDeleted, actor, addr, map[string]any{"role": name})
		logger.Info("Role deleted",
			zap.String("role", name),
			zap.String("actor", actor))
		SendJSONResponse(w, map[string]any{"success": true})
	}
}
