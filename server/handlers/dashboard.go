package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/dashport/dashport/auth"
	"github.com/dashport/dashport/dashconfig"
	"github.com/dashport/dashport/server/middleware"
	"github.com/dashport/dashport/userstore"
)

// GetDashboardConfig returns the dashboard document with the service list
// filtered down to the caller's accessible categories. Admin status grants
// no read-side exemption; visibility is purely the role-category union.
func GetDashboardConfig(dash *dashconfig.Store, users userstore.Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		doc, err := dash.Load(ctx)
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusInternalServerError)
			return
		}

		filtered, err := visibleServices(ctx, users, doc.Services)
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusInternalServerError)
			return
		}

		SendJSONResponse(w, dashconfig.Document{
			Services:     filtered,
			PortMappings: doc.PortMappings,
			Settings:     doc.Settings,
		})
	}
}

// UpdateDashboardConfig replaces the whole dashboard document.
func UpdateDashboardConfig(dash *dashconfig.Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var doc dashconfig.Document
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			SendErrorResponse(w, logger, fmt.Errorf("%w: malformed configuration document", auth.ErrValidation), http.StatusBadRequest)
			return
		}

		if err := dash.Save(r.Context(), &doc); err != nil {
			SendErrorResponse(w, logger, err, http.StatusInternalServerError)
			return
		}
		SendJSONResponse(w, map[string]any{"success": true, "message": "Configuration updated"})
	}
}

// GetServices returns the service list filtered by accessible categories.
func GetServices(dash *dashconfig.Store, users userstore.Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		doc, err := dash.Load(ctx)
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusInternalServerError)
			return
		}

		filtered, err := visibleServices(ctx, users, doc.Services)
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusInternalServerError)
			return
		}
		SendJSONResponse(w, filtered)
	}
}

// UpdateServices replaces the service list.
func UpdateServices(dash *dashconfig.Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var services []dashconfig.Service
		if err := json.NewDecoder(r.Body).Decode(&services); err != nil {
			SendErrorResponse(w, logger, fmt.Errorf("%w: malformed service list", auth.ErrValidation), http.StatusBadRequest)
			return
		}

		err := dash.Update(r.Context(), func(doc *dashconfig.Document) error {
			doc.Services = services
			return nil
		})
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusInternalServerError)
			return
		}
		SendJSONResponse(w, map[string]any{"success": true, "message": "Services updated"})
	}
}

// GetSettings returns the general settings block.
func GetSettings(dash *dashconfig.Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := dash.Load(r.Context())
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusInternalServerError)
			return
		}
		SendJSONResponse(w, doc.Settings)
	}
}

// UpdateSettings replaces the general settings block.
func UpdateSettings(dash *dashconfig.Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var settings map[string]any
		if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
			SendErrorResponse(w, logger, fmt.Errorf("%w: malformed settings", auth.ErrValidation), http.StatusBadRequest)
			return
		}

		err := dash.Update(r.Context(), func(doc *dashconfig.Document) error {
			doc.Settings = settings
			return nil
		})
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusInternalServerError)
			return
		}
		SendJSONResponse(w, map[string]any{"success": true, "message": "Settings updated"})
	}
}

// visibleServices filters the service list down to the categories reachable
// from the caller's roles, consulting the current role table.
func visibleServices(ctx context.Context, users userstore.Store, services []dashconfig.Service) ([]dashconfig.Service, error) {
	doc, err := users.Load(ctx)
	if err != nil {
		return nil, err
	}

	principal, _ := middleware.GetPrincipal(ctx)
	accessible := auth.AccessibleCategories(principal, doc.Roles)

	return auth.FilterByCategory(services, func(s dashconfig.Service) string {
		return s.Category
	}, accessible), nil
}
