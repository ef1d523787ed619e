package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"hishab/internal/domain/recurring"
	"hishab/internal/shared/middleware"
)

type RecurringHandler struct {
	recurring *recurring.Service
}

func NewRecurringHandler(svc *recurring.Service) *RecurringHandler {
	return &RecurringHandler{recurring: svc}
}

type CreateRecurringRequest struct {
	Type             string     `json:"type"`
	SubscriptionType string     `json:"subscriptionType"`
	Category         string     `json:"category"`
	Amount           float64    `json:"amount"`
	Currency         string     `json:"currency"`
	Note             string     `json:"note"`
	Frequency        string     `json:"frequency"`
	NextRunDate      *time.Time `json:"nextRunDate"`
	EndDate          *time.Time `json:"endDate"`
	AutoPay          bool       `json:"autoPay"`
	ReminderDays     []int      `json:"reminderDays"`
}

type UpdateRecurringRequest struct {
	SubscriptionType *string    `json:"subscriptionType"`
	Category         *string    `json:"category"`
	Amount           *float64   `json:"amount"`
	Note             *string    `json:"note"`
	Frequency        *string    `json:"frequency"`
	NextRunDate      *time.Time `json:"nextRunDate"`
	EndDate          *time.Time `json:"endDate"`
	AutoPay          *bool      `json:"autoPay"`
	ReminderDays     []int      `json:"reminderDays"`
}

type MarkPaidRequest struct {
	PaidDate *time.Time `json:"paidDate"`
}

// HandleRecurring handles GET (list mine) and POST (create) on /api/recurring/
func (h *RecurringHandler) HandleRecurring(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodGet:
		subscriptions, err := h.recurring.ListForUser(r.Context(), userID)
		if err != nil {
			log.Printf("Error listing recurring transactions for user %s: %v", userID, err)
			http.Error(w, "Failed to list recurring transactions", http.StatusInternalServerError)
			return
		}
		if subscriptions == nil {
			subscriptions = []*recurring.RecurringTransaction{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"recurring": subscriptions})

	case http.MethodPost:
		var req CreateRecurringRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		created, err := h.recurring.Create(r.Context(), recurring.CreateParams{
			UserID:           userID,
			Type:             req.Type,
			SubscriptionType: req.SubscriptionType,
			Category:         req.Category,
			Amount:           req.Amount,
			Currency:         req.Currency,
			Note:             req.Note,
			Frequency:        req.Frequency,
			NextRunDate:      req.NextRunDate,
			EndDate:          req.EndDate,
			AutoPay:          req.AutoPay,
			ReminderDays:     req.ReminderDays,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(created)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleRecurringByID handles PUT and DELETE on /api/recurring/{id}
func (h *RecurringHandler) HandleRecurringByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id := r.PathValue("id")

	switch r.Method {
	case http.MethodPut:
		var req UpdateRecurringRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		updated, err := h.recurring.Update(r.Context(), id, userID, recurring.UpdateParams{
			SubscriptionType: req.SubscriptionType,
			Category:         req.Category,
			Amount:           req.Amount,
			Note:             req.Note,
			Frequency:        req.Frequency,
			NextRunDate:      req.NextRunDate,
			EndDate:          req.EndDate,
			AutoPay:          req.AutoPay,
			ReminderDays:     req.ReminderDays,
		})
		if err != nil {
			writeRecurringError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(updated)

	case http.MethodDelete:
		if err := h.recurring.Delete(r.Context(), id, userID); err != nil {
			writeRecurringError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleToggle flips a subscription between active and paused
func (h *RecurringHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id := r.PathValue("id")

	current, err := h.recurring.Get(r.Context(), id, userID)
	if err != nil {
		writeRecurringError(w, err)
		return
	}
	if err := h.recurring.SetActive(r.Context(), id, userID, !current.IsActive); err != nil {
		writeRecurringError(w, err)
		return
	}

	updated, err := h.recurring.Get(r.Context(), id, userID)
	if err != nil {
		writeRecurringError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(updated)
}

// HandleMarkPaid records a payment and advances the next run date
func (h *RecurringHandler) HandleMarkPaid(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req MarkPaidRequest
	if r.Body != nil {
		// An empty body means "paid today"
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	paidDate := time.Now()
	if req.PaidDate != nil {
		paidDate = *req.PaidDate
	}

	updated, err := h.recurring.MarkAsPaid(r.Context(), r.PathValue("id"), userID, paidDate)
	if err != nil {
		writeRecurringError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(updated)
}

// HandleUpcoming lists subscriptions due within ?days=N (default 7)
func (h *RecurringHandler) HandleUpcoming(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	days := 0
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "Invalid 'days'", http.StatusBadRequest)
			return
		}
		days = n
	}

	upcoming, err := h.recurring.ListUpcoming(r.Context(), userID, days)
	if err != nil {
		log.Printf("Error listing upcoming payments for user %s: %v", userID, err)
		http.Error(w, "Failed to list upcoming payments", http.StatusInternalServerError)
		return
	}
	if upcoming == nil {
		upcoming = []recurring.Upcoming{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"upcoming": upcoming})
}

func writeRecurringError(w http.ResponseWriter, err error) {
	if errors.Is(err, recurring.ErrNotFound) {
		http.Error(w, "Recurring transaction not found", http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusBadRequest)
}
