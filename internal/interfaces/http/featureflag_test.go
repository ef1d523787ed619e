package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"hishab/internal/domain/featureflag"
	"hishab/internal/domain/user"
)

// MockFeatureFlagRepository implements featureflag.Repository for testing
type MockFeatureFlagRepository struct {
	GetByKeyFunc func(ctx context.Context, key string) (*featureflag.FeatureFlag, error)
	ListFunc     func(ctx context.Context) ([]*featureflag.FeatureFlag, error)
	UpsertFunc   func(ctx context.Context, params featureflag.UpsertFlagParams) (*featureflag.FeatureFlag, error)
	DeleteFunc   func(ctx context.Context, key string) error
}

func (m *MockFeatureFlagRepository) GetByKey(ctx context.Context, key string) (*featureflag.FeatureFlag, error) {
	return m.GetByKeyFunc(ctx, key)
}

func (m *MockFeatureFlagRepository) List(ctx context.Context) ([]*featureflag.FeatureFlag, error) {
	return m.ListFunc(ctx)
}

func (m *MockFeatureFlagRepository) Upsert(ctx context.Context, params featureflag.UpsertFlagParams) (*featureflag.FeatureFlag, error) {
	return m.UpsertFunc(ctx, params)
}

func (m *MockFeatureFlagRepository) Delete(ctx context.Context, key string) error {
	return m.DeleteFunc(ctx, key)
}

func usersWithAdmin(adminID string) *user.Service {
	repo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*user.User, error) {
			return &user.User{ID: id, IsAdmin: id == adminID}, nil
		},
	}
	return user.NewService(repo)
}

func TestHandleEvaluate(t *testing.T) {
	repo := &MockFeatureFlagRepository{
		GetByKeyFunc: func(ctx context.Context, key string) (*featureflag.FeatureFlag, error) {
			switch key {
			case "new-dashboard":
				return &featureflag.FeatureFlag{Key: key, Enabled: true, RolloutPercentage: 100}, nil
			case "dark-launch":
				return &featureflag.FeatureFlag{Key: key, Enabled: false, RolloutPercentage: 100}, nil
			default:
				return nil, featureflag.ErrNotFound
			}
		},
	}
	handler := NewFeatureFlagHandler(featureflag.NewService(repo), usersWithAdmin("admin-1"))

	tests := []struct {
		name        string
		key         string
		wantEnabled bool
	}{
		{"Fully Rolled Out", "new-dashboard", true},
		{"Disabled Flag", "dark-launch", false},
		{"Missing Flag", "no-such-flag", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := authedRequest(http.MethodGet, "/api/feature-flags/"+tt.key+"/evaluate", "", "user-1")
			req.SetPathValue("key", tt.key)
			w := httptest.NewRecorder()
			handler.HandleEvaluate(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
			}

			var resp EvaluateFlagResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Enabled != tt.wantEnabled {
				t.Errorf("expected enabled=%v, got %v", tt.wantEnabled, resp.Enabled)
			}
		})
	}
}

func TestHandleAdminFlagsRequiresAdmin(t *testing.T) {
	repo := &MockFeatureFlagRepository{
		ListFunc: func(ctx context.Context) ([]*featureflag.FeatureFlag, error) {
			return []*featureflag.FeatureFlag{{Key: "new-dashboard"}}, nil
		},
	}
	handler := NewFeatureFlagHandler(featureflag.NewService(repo), usersWithAdmin("admin-1"))

	tests := []struct {
		name           string
		userID         string
		expectedStatus int
	}{
		{"Admin", "admin-1", http.StatusOK},
		{"Regular User", "user-1", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := authedRequest(http.MethodGet, "/api/admin/feature-flags", "", tt.userID)
			w := httptest.NewRecorder()
			handler.HandleAdminFlags(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestHandleAdminFlagUpsert(t *testing.T) {
	var gotParams featureflag.UpsertFlagParams
	repo := &MockFeatureFlagRepository{
		UpsertFunc: func(ctx context.Context, params featureflag.UpsertFlagParams) (*featureflag.FeatureFlag, error) {
			gotParams = params
			flag := &featureflag.FeatureFlag{Key: params.Key}
			if params.Enabled != nil {
				flag.Enabled = *params.Enabled
			}
			if params.RolloutPercentage != nil {
				flag.RolloutPercentage = *params.RolloutPercentage
			}
			return flag, nil
		},
	}
	handler := NewFeatureFlagHandler(featureflag.NewService(repo), usersWithAdmin("admin-1"))

	req := authedRequest(http.MethodPut, "/api/admin/feature-flags/new-dashboard", `{"enabled":true,"rolloutPercentage":25}`, "admin-1")
	req.SetPathValue("key", "new-dashboard")
	w := httptest.NewRecorder()
	handler.HandleAdminFlagByKey(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	if gotParams.Key != "new-dashboard" {
		t.Errorf("expected key from the path, got %q", gotParams.Key)
	}
	if gotParams.RolloutPercentage == nil || *gotParams.RolloutPercentage != 25 {
		t.Errorf("rollout percentage not passed through: %+v", gotParams.RolloutPercentage)
	}
}
