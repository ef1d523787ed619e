package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"hishab/internal/domain/transaction"
	"hishab/internal/shared/middleware"
)

type TransactionHandler struct {
	transactions *transaction.Service
}

func NewTransactionHandler(transactions *transaction.Service) *TransactionHandler {
	return &TransactionHandler{transactions: transactions}
}

type CreateTransactionRequest struct {
	Type      string              `json:"type"`
	Amount    float64             `json:"amount"`
	Currency  string              `json:"currency"`
	Category  string              `json:"category"`
	Note      string              `json:"note"`
	Date      *time.Time          `json:"date"`
	GroupID   *string             `json:"groupId"`
	SplitWith []transaction.Split `json:"splitWith"`
	SplitType string              `json:"splitType"`
	PaidBy    *string             `json:"paidBy"`
	Tags      []string            `json:"tags"`
}

type UpdateTransactionRequest struct {
	Type     *string    `json:"type"`
	Amount   *float64   `json:"amount"`
	Category *string    `json:"category"`
	Note     *string    `json:"note"`
	Date     *time.Time `json:"date"`
	Tags     []string   `json:"tags"`
}

type TransactionListResponse struct {
	Transactions []*transaction.Transaction `json:"transactions"`
	Total        int                        `json:"total"`
}

// HandleTransactions handles GET (list with filters) and POST (create) on /api/transactions/
func (h *TransactionHandler) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.handleList(w, r, userID)
	case http.MethodPost:
		h.handleCreate(w, r, userID)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *TransactionHandler) handleList(w http.ResponseWriter, r *http.Request, userID string) {
	filter, err := parseListFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	transactions, total, err := h.transactions.List(r.Context(), userID, filter)
	if err != nil {
		log.Printf("Error listing transactions for user %s: %v", userID, err)
		http.Error(w, "Failed to list transactions", http.StatusInternalServerError)
		return
	}
	if transactions == nil {
		transactions = []*transaction.Transaction{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(TransactionListResponse{
		Transactions: transactions,
		Total:        total,
	})
}

func (h *TransactionHandler) handleCreate(w http.ResponseWriter, r *http.Request, userID string) {
	var req CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	params := transaction.CreateTransactionParams{
		UserID:    userID,
		Type:      req.Type,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Category:  req.Category,
		Note:      req.Note,
		GroupID:   req.GroupID,
		Splits:    req.SplitWith,
		SplitType: req.SplitType,
		PaidBy:    req.PaidBy,
		Tags:      req.Tags,
	}
	if req.Date != nil {
		params.Date = *req.Date
	}

	created, err := h.transactions.Create(r.Context(), params)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

// HandleTransactionByID handles GET, PATCH and DELETE on /api/transactions/{id}
func (h *TransactionHandler) HandleTransactionByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	transactionID := r.PathValue("id")
	if transactionID == "" {
		http.Error(w, "Transaction ID is required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		t, err := h.transactions.Get(r.Context(), transactionID, userID)
		if err != nil {
			writeTransactionError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(t)

	case http.MethodPatch:
		var req UpdateTransactionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		t, err := h.transactions.Update(r.Context(), transactionID, userID, transaction.UpdateTransactionParams{
			Type:     req.Type,
			Amount:   req.Amount,
			Category: req.Category,
			Note:     req.Note,
			Date:     req.Date,
			Tags:     req.Tags,
		})
		if err != nil {
			writeTransactionError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(t)

	case http.MethodDelete:
		if err := h.transactions.Delete(r.Context(), transactionID, userID); err != nil {
			writeTransactionError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func parseListFilter(r *http.Request) (transaction.ListFilter, error) {
	var filter transaction.ListFilter
	q := r.URL.Query()

	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, errors.New("invalid 'from' date, expected RFC3339")
		}
		filter.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, errors.New("invalid 'to' date, expected RFC3339")
		}
		filter.To = &t
	}
	filter.Type = q.Get("type")
	filter.Category = q.Get("category")
	if v := q.Get("groupId"); v != "" {
		filter.GroupID = &v
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, errors.New("invalid 'limit'")
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, errors.New("invalid 'offset'")
		}
		filter.Offset = n
	}
	return filter, nil
}

func writeTransactionError(w http.ResponseWriter, err error) {
	if errors.Is(err, transaction.ErrNotFound) {
		http.Error(w, "Transaction not found", http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusBadRequest)
}
