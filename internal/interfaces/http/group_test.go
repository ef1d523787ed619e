package http

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hishab/internal/domain/group"
	"hishab/internal/domain/user"
	"hishab/internal/shared/middleware"
)

// MockGroupRepository implements group.Repository for testing
type MockGroupRepository struct {
	CreateFunc          func(ctx context.Context, params group.CreateGroupParams, inviteCode string) (*group.Group, error)
	GetByIDFunc         func(ctx context.Context, id string) (*group.Group, error)
	GetByInviteCodeFunc func(ctx context.Context, code string) (*group.Group, error)
	ListByUserFunc      func(ctx context.Context, userID string) ([]*group.Group, error)
	UpdateFunc          func(ctx context.Context, id string, params group.UpdateGroupParams) (*group.Group, error)
	AddMemberFunc       func(ctx context.Context, groupID, userID string) error
	RemoveMemberFunc    func(ctx context.Context, groupID, userID string) error
	TouchActivityFunc   func(ctx context.Context, groupID string, at time.Time) error
	DeleteFunc          func(ctx context.Context, id string) error
}

func (m *MockGroupRepository) Create(ctx context.Context, params group.CreateGroupParams, inviteCode string) (*group.Group, error) {
	return m.CreateFunc(ctx, params, inviteCode)
}

func (m *MockGroupRepository) GetByID(ctx context.Context, id string) (*group.Group, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *MockGroupRepository) GetByInviteCode(ctx context.Context, code string) (*group.Group, error) {
	return m.GetByInviteCodeFunc(ctx, code)
}

func (m *MockGroupRepository) ListByUser(ctx context.Context, userID string) ([]*group.Group, error) {
	return m.ListByUserFunc(ctx, userID)
}

func (m *MockGroupRepository) Update(ctx context.Context, id string, params group.UpdateGroupParams) (*group.Group, error) {
	return m.UpdateFunc(ctx, id, params)
}

func (m *MockGroupRepository) AddMember(ctx context.Context, groupID, userID string) error {
	return m.AddMemberFunc(ctx, groupID, userID)
}

func (m *MockGroupRepository) RemoveMember(ctx context.Context, groupID, userID string) error {
	return m.RemoveMemberFunc(ctx, groupID, userID)
}

func (m *MockGroupRepository) TouchActivity(ctx context.Context, groupID string, at time.Time) error {
	if m.TouchActivityFunc != nil {
		return m.TouchActivityFunc(ctx, groupID, at)
	}
	return nil
}

func (m *MockGroupRepository) Delete(ctx context.Context, id string) error {
	return m.DeleteFunc(ctx, id)
}

type mockTransactionSource struct {
	expenses     []group.Expense
	settlementID string
	settled      []group.SettlementParams
}

func (m *mockTransactionSource) ListExpenses(ctx context.Context, groupID string) ([]group.Expense, error) {
	return m.expenses, nil
}

func (m *mockTransactionSource) CreateSettlement(ctx context.Context, params group.SettlementParams) (string, error) {
	m.settled = append(m.settled, params)
	return m.settlementID, nil
}

type mockMemberDirectory struct {
	byEmail map[string][2]string // email -> id, name
}

func (m *mockMemberDirectory) LookupByEmail(ctx context.Context, email string) (string, string, error) {
	if entry, ok := m.byEmail[email]; ok {
		return entry[0], entry[1], nil
	}
	return "", "", user.ErrNotFound
}

func authedRequest(method, target, body, userID string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, userID)
	return req.WithContext(ctx)
}

func tripGroupFixture() *group.Group {
	return &group.Group{
		ID:        "group-1",
		Name:      "Cox's Bazar Trip",
		OwnerID:   "user-1",
		MemberIDs: []string{"user-2", "user-3"},
		Currency:  "BDT",
	}
}

func TestHandleBalances(t *testing.T) {
	repo := &MockGroupRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*group.Group, error) {
			return tripGroupFixture(), nil
		},
	}
	// A pays 100 split across B (30) and C (20); A self-share 50
	source := &mockTransactionSource{
		expenses: []group.Expense{
			{PayerID: "user-1", Shares: []group.Share{
				{UserID: "user-1", Amount: 50},
				{UserID: "user-2", Amount: 30},
				{UserID: "user-3", Amount: 20},
			}},
		},
	}
	svc := group.NewService(repo, source, &mockMemberDirectory{}, nil)
	handler := NewGroupHandler(svc, nil)

	req := authedRequest(http.MethodGet, "/api/groups/group-1/balances", "", "user-2")
	req.SetPathValue("id", "group-1")
	w := httptest.NewRecorder()
	handler.HandleBalances(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var resp struct {
		Ledger map[string]float64 `json:"ledger"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	want := map[string]float64{"user-1": 50, "user-2": -30, "user-3": -20}
	for userID, expected := range want {
		if got := resp.Ledger[userID]; math.Abs(got-expected) > 1e-9 {
			t.Errorf("ledger[%s] = %v, want %v", userID, got, expected)
		}
	}

	var sum float64
	for _, v := range resp.Ledger {
		sum += v
	}
	if math.Abs(sum) > 1e-9 {
		t.Errorf("ledger should sum to zero, got %v", sum)
	}
}

func TestHandleBalancesForbidden(t *testing.T) {
	repo := &MockGroupRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*group.Group, error) {
			return tripGroupFixture(), nil
		},
	}
	svc := group.NewService(repo, &mockTransactionSource{}, &mockMemberDirectory{}, nil)
	handler := NewGroupHandler(svc, nil)

	req := authedRequest(http.MethodGet, "/api/groups/group-1/balances", "", "stranger")
	req.SetPathValue("id", "group-1")
	w := httptest.NewRecorder()
	handler.HandleBalances(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected status %d, got %d", http.StatusForbidden, w.Code)
	}
}

func TestHandleSuggestions(t *testing.T) {
	repo := &MockGroupRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*group.Group, error) {
			return tripGroupFixture(), nil
		},
	}
	// user-1 owes 50; user-2 and user-3 are owed 30 and 20
	source := &mockTransactionSource{
		expenses: []group.Expense{
			{PayerID: "user-2", Shares: []group.Share{{UserID: "user-1", Amount: 30}}},
			{PayerID: "user-3", Shares: []group.Share{{UserID: "user-1", Amount: 20}}},
		},
	}
	svc := group.NewService(repo, source, &mockMemberDirectory{}, nil)
	handler := NewGroupHandler(svc, nil)

	req := authedRequest(http.MethodGet, "/api/groups/group-1/settlements/suggestions", "", "user-1")
	req.SetPathValue("id", "group-1")
	w := httptest.NewRecorder()
	handler.HandleSuggestions(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var resp struct {
		Suggestions []group.Settlement `json:"suggestions"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Suggestions) != 2 {
		t.Fatalf("expected 2 suggestions, got %d: %+v", len(resp.Suggestions), resp.Suggestions)
	}
	for _, s := range resp.Suggestions {
		if s.From != "user-1" {
			t.Errorf("every transfer should come from user-1, got %+v", s)
		}
	}
}

func TestHandleSettle(t *testing.T) {
	repo := &MockGroupRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*group.Group, error) {
			return tripGroupFixture(), nil
		},
	}
	source := &mockTransactionSource{settlementID: "tx-9"}
	svc := group.NewService(repo, source, &mockMemberDirectory{}, nil)
	handler := NewGroupHandler(svc, nil)

	tests := []struct {
		name           string
		body           string
		userID         string
		expectedStatus int
	}{
		{
			name:           "Valid Settlement",
			body:           `{"toUserId":"user-2","amount":320.5}`,
			userID:         "user-1",
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Missing Recipient",
			body:           `{"amount":100}`,
			userID:         "user-1",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Negative Amount",
			body:           `{"toUserId":"user-2","amount":-5}`,
			userID:         "user-1",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Non Member",
			body:           `{"toUserId":"user-2","amount":100}`,
			userID:         "stranger",
			expectedStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := authedRequest(http.MethodPost, "/api/groups/group-1/settle", tt.body, tt.userID)
			req.SetPathValue("id", "group-1")
			w := httptest.NewRecorder()
			handler.HandleSettle(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}

	if len(source.settled) != 1 {
		t.Fatalf("expected exactly one recorded settlement, got %d", len(source.settled))
	}
	if source.settled[0].ToUserID != "user-2" || source.settled[0].Amount != 320.5 {
		t.Errorf("unexpected settlement params: %+v", source.settled[0])
	}
}

func TestHandleMembersOwnerOnly(t *testing.T) {
	repo := &MockGroupRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*group.Group, error) {
			return tripGroupFixture(), nil
		},
		AddMemberFunc: func(ctx context.Context, groupID, userID string) error {
			return nil
		},
	}
	directory := &mockMemberDirectory{byEmail: map[string][2]string{
		"karim@example.com": {"user-4", "Karim"},
	}}
	svc := group.NewService(repo, &mockTransactionSource{}, directory, nil)
	handler := NewGroupHandler(svc, nil)

	tests := []struct {
		name           string
		body           string
		userID         string
		expectedStatus int
	}{
		{
			name:           "Owner Adds Member",
			body:           `{"email":"karim@example.com"}`,
			userID:         "user-1",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Member Cannot Add",
			body:           `{"email":"karim@example.com"}`,
			userID:         "user-2",
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "Unknown Email",
			body:           `{"email":"nobody@example.com"}`,
			userID:         "user-1",
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := authedRequest(http.MethodPost, "/api/groups/group-1/members", tt.body, tt.userID)
			req.SetPathValue("id", "group-1")
			w := httptest.NewRecorder()
			handler.HandleMembers(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestHandleJoin(t *testing.T) {
	joined := false
	repo := &MockGroupRepository{
		GetByInviteCodeFunc: func(ctx context.Context, code string) (*group.Group, error) {
			if code == "a1b2c3d4" {
				return tripGroupFixture(), nil
			}
			return nil, group.ErrNotFound
		},
		GetByIDFunc: func(ctx context.Context, id string) (*group.Group, error) {
			return tripGroupFixture(), nil
		},
		AddMemberFunc: func(ctx context.Context, groupID, userID string) error {
			joined = true
			return nil
		},
	}
	svc := group.NewService(repo, &mockTransactionSource{}, &mockMemberDirectory{}, nil)
	handler := NewGroupHandler(svc, nil)

	req := authedRequest(http.MethodPost, "/api/groups/join", `{"inviteCode":"a1b2c3d4"}`, "user-9")
	w := httptest.NewRecorder()
	handler.HandleJoin(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	if !joined {
		t.Error("expected the user to be added as a member")
	}

	// Bad code gets a 404
	req = authedRequest(http.MethodPost, "/api/groups/join", `{"inviteCode":"wrong"}`, "user-9")
	w = httptest.NewRecorder()
	handler.HandleJoin(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}

func TestHandleGroupsUnauthorized(t *testing.T) {
	handler := NewGroupHandler(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/groups/", nil)
	w := httptest.NewRecorder()
	handler.HandleGroups(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}
