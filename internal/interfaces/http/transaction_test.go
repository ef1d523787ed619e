package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hishab/internal/domain/transaction"
)

// MockTransactionRepository implements transaction.Repository for testing
type MockTransactionRepository struct {
	CreateFunc            func(ctx context.Context, params transaction.CreateTransactionParams) (*transaction.Transaction, error)
	GetByIDFunc           func(ctx context.Context, id, userID string) (*transaction.Transaction, error)
	ListFunc              func(ctx context.Context, userID string, filter transaction.ListFilter) ([]*transaction.Transaction, int, error)
	ListByGroupFunc       func(ctx context.Context, groupID string) ([]*transaction.Transaction, error)
	ListGroupExpensesFunc func(ctx context.Context, groupID string) ([]*transaction.Transaction, error)
	UpdateFunc            func(ctx context.Context, id, userID string, params transaction.UpdateTransactionParams) (*transaction.Transaction, error)
	DeleteFunc            func(ctx context.Context, id, userID string) error
	ActiveUserIDsFunc     func(ctx context.Context, since, until time.Time) ([]string, error)
}

func (m *MockTransactionRepository) Create(ctx context.Context, params transaction.CreateTransactionParams) (*transaction.Transaction, error) {
	return m.CreateFunc(ctx, params)
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id, userID string) (*transaction.Transaction, error) {
	return m.GetByIDFunc(ctx, id, userID)
}

func (m *MockTransactionRepository) List(ctx context.Context, userID string, filter transaction.ListFilter) ([]*transaction.Transaction, int, error) {
	return m.ListFunc(ctx, userID, filter)
}

func (m *MockTransactionRepository) ListByGroup(ctx context.Context, groupID string) ([]*transaction.Transaction, error) {
	return m.ListByGroupFunc(ctx, groupID)
}

func (m *MockTransactionRepository) ListGroupExpenses(ctx context.Context, groupID string) ([]*transaction.Transaction, error) {
	if m.ListGroupExpensesFunc != nil {
		return m.ListGroupExpensesFunc(ctx, groupID)
	}
	return nil, nil
}

func (m *MockTransactionRepository) Update(ctx context.Context, id, userID string, params transaction.UpdateTransactionParams) (*transaction.Transaction, error) {
	return m.UpdateFunc(ctx, id, userID, params)
}

func (m *MockTransactionRepository) Delete(ctx context.Context, id, userID string) error {
	return m.DeleteFunc(ctx, id, userID)
}

func (m *MockTransactionRepository) ActiveUserIDs(ctx context.Context, since, until time.Time) ([]string, error) {
	if m.ActiveUserIDsFunc != nil {
		return m.ActiveUserIDsFunc(ctx, since, until)
	}
	return nil, nil
}

func TestHandleCreateTransaction(t *testing.T) {
	repo := &MockTransactionRepository{
		CreateFunc: func(ctx context.Context, params transaction.CreateTransactionParams) (*transaction.Transaction, error) {
			return &transaction.Transaction{
				ID:      "tx-1",
				UserID:  params.UserID,
				Type:    params.Type,
				Amount:  params.Amount,
				GroupID: params.GroupID,
				Splits:  params.Splits,
			}, nil
		},
	}
	handler := NewTransactionHandler(transaction.NewService(repo, nil, nil))

	tests := []struct {
		name           string
		body           string
		expectedStatus int
	}{
		{
			name:           "Valid Expense",
			body:           `{"type":"expense","amount":450,"note":"Dinner at beach"}`,
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Group Expense With Splits",
			body:           `{"type":"expense","amount":90,"groupId":"group-1","splitWith":[{"userId":"user-1","amount":30},{"userId":"user-2","amount":30},{"userId":"user-3","amount":30}]}`,
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Splits Without Group",
			body:           `{"type":"expense","amount":90,"splitWith":[{"userId":"user-1","amount":90}]}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Split Sum Mismatch",
			body:           `{"type":"expense","amount":90,"groupId":"group-1","splitWith":[{"userId":"user-1","amount":10}]}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Zero Amount",
			body:           `{"type":"expense","amount":0}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Invalid Type",
			body:           `{"type":"transfer","amount":10}`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := authedRequest(http.MethodPost, "/api/transactions/", tt.body, "user-1")
			w := httptest.NewRecorder()
			handler.HandleTransactions(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestHandleListTransactions(t *testing.T) {
	var gotFilter transaction.ListFilter
	repo := &MockTransactionRepository{
		ListFunc: func(ctx context.Context, userID string, filter transaction.ListFilter) ([]*transaction.Transaction, int, error) {
			gotFilter = filter
			return []*transaction.Transaction{
				{ID: "tx-1", UserID: userID, Type: "expense", Amount: 120},
			}, 1, nil
		},
	}
	handler := NewTransactionHandler(transaction.NewService(repo, nil, nil))

	req := authedRequest(http.MethodGet, "/api/transactions/?type=expense&category=food&limit=10&offset=20", "", "user-1")
	w := httptest.NewRecorder()
	handler.HandleTransactions(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	if gotFilter.Type != "expense" || gotFilter.Category != "food" {
		t.Errorf("filter not passed through: %+v", gotFilter)
	}
	if gotFilter.Limit != 10 || gotFilter.Offset != 20 {
		t.Errorf("pagination not passed through: %+v", gotFilter)
	}

	var resp TransactionListResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Total != 1 || len(resp.Transactions) != 1 {
		t.Errorf("unexpected list response: total=%d len=%d", resp.Total, len(resp.Transactions))
	}
}

func TestHandleListTransactionsBadDate(t *testing.T) {
	handler := NewTransactionHandler(transaction.NewService(&MockTransactionRepository{}, nil, nil))

	req := authedRequest(http.MethodGet, "/api/transactions/?from=yesterday", "", "user-1")
	w := httptest.NewRecorder()
	handler.HandleTransactions(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestHandleTransactionByID(t *testing.T) {
	repo := &MockTransactionRepository{
		GetByIDFunc: func(ctx context.Context, id, userID string) (*transaction.Transaction, error) {
			if id == "tx-1" && userID == "user-1" {
				return &transaction.Transaction{ID: "tx-1", UserID: "user-1", Type: "expense", Amount: 50}, nil
			}
			return nil, transaction.ErrNotFound
		},
		DeleteFunc: func(ctx context.Context, id, userID string) error {
			if id == "tx-1" && userID == "user-1" {
				return nil
			}
			return transaction.ErrNotFound
		},
	}
	handler := NewTransactionHandler(transaction.NewService(repo, nil, nil))

	tests := []struct {
		name           string
		method         string
		id             string
		userID         string
		expectedStatus int
	}{
		{"Get Own", http.MethodGet, "tx-1", "user-1", http.StatusOK},
		{"Get Someone Elses", http.MethodGet, "tx-1", "user-2", http.StatusNotFound},
		{"Get Missing", http.MethodGet, "tx-404", "user-1", http.StatusNotFound},
		{"Delete Own", http.MethodDelete, "tx-1", "user-1", http.StatusNoContent},
		{"Delete Missing", http.MethodDelete, "tx-404", "user-1", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := authedRequest(tt.method, "/api/transactions/"+tt.id, "", tt.userID)
			req.SetPathValue("id", tt.id)
			w := httptest.NewRecorder()
			handler.HandleTransactionByID(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}
