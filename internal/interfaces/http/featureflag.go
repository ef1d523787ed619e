package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"hishab/internal/domain/featureflag"
	"hishab/internal/domain/user"
	"hishab/internal/shared/middleware"
)

type FeatureFlagHandler struct {
	flags *featureflag.Service
	users *user.Service
}

func NewFeatureFlagHandler(flags *featureflag.Service, users *user.Service) *FeatureFlagHandler {
	return &FeatureFlagHandler{flags: flags, users: users}
}

type UpsertFlagRequest struct {
	Description       *string `json:"description"`
	Enabled           *bool   `json:"enabled"`
	RolloutPercentage *int    `json:"rolloutPercentage"`
}

type EvaluateFlagResponse struct {
	Key     string `json:"key"`
	Enabled bool   `json:"enabled"`
}

// HandleAdminFlags lists all flags, admins only
func (h *FeatureFlagHandler) HandleAdminFlags(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.requireAdmin(w, r) {
		return
	}

	flags, err := h.flags.List(r.Context())
	if err != nil {
		log.Printf("Error listing feature flags: %v", err)
		http.Error(w, "Failed to list feature flags", http.StatusInternalServerError)
		return
	}
	if flags == nil {
		flags = []*featureflag.FeatureFlag{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"flags": flags})
}

// HandleAdminFlagByKey handles PUT (upsert) and DELETE on /api/admin/feature-flags/{key}
func (h *FeatureFlagHandler) HandleAdminFlagByKey(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	key := r.PathValue("key")

	switch r.Method {
	case http.MethodPut:
		var req UpsertFlagRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		flag, err := h.flags.Upsert(r.Context(), featureflag.UpsertFlagParams{
			Key:               key,
			Description:       req.Description,
			Enabled:           req.Enabled,
			RolloutPercentage: req.RolloutPercentage,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(flag)

	case http.MethodDelete:
		if err := h.flags.Delete(r.Context(), key); err != nil {
			if errors.Is(err, featureflag.ErrNotFound) {
				http.Error(w, "Feature flag not found", http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleEvaluate evaluates a flag for the calling user
func (h *FeatureFlagHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	key := r.PathValue("key")

	enabled, err := h.flags.IsEnabled(r.Context(), key, userID)
	if err != nil {
		log.Printf("Error evaluating flag %s for user %s: %v", key, userID, err)
		http.Error(w, "Failed to evaluate feature flag", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(EvaluateFlagResponse{Key: key, Enabled: enabled})
}

// requireAdmin writes an error response and returns false unless the
// caller is an admin.
func (h *FeatureFlagHandler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return false
	}
	u, err := h.users.Get(r.Context(), userID)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return false
	}
	if !u.IsAdmin {
		http.Error(w, "Admin access required", http.StatusForbidden)
		return false
	}
	return true
}
