package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"hishab/internal/domain/group"
	"hishab/internal/domain/transaction"
	"hishab/internal/domain/user"
	"hishab/internal/shared/middleware"
)

type GroupHandler struct {
	groups       *group.Service
	transactions *transaction.Service
}

func NewGroupHandler(groups *group.Service, transactions *transaction.Service) *GroupHandler {
	return &GroupHandler{groups: groups, transactions: transactions}
}

type CreateGroupRequest struct {
	Name              string `json:"name"`
	Description       string `json:"description"`
	Category          string `json:"category"`
	Avatar            string `json:"avatar"`
	Currency          string `json:"currency"`
	AllowMemberInvite *bool  `json:"allowMemberInvite"`
	AutoSplit         *bool  `json:"autoSplit"`
	RequireApproval   *bool  `json:"requireApproval"`
}

type UpdateGroupRequest struct {
	Name              *string `json:"name"`
	Description       *string `json:"description"`
	Category          *string `json:"category"`
	Avatar            *string `json:"avatar"`
	Currency          *string `json:"currency"`
	AllowMemberInvite *bool   `json:"allowMemberInvite"`
	AutoSplit         *bool   `json:"autoSplit"`
	RequireApproval   *bool   `json:"requireApproval"`
}

type JoinGroupRequest struct {
	InviteCode string `json:"inviteCode"`
}

type AddMemberRequest struct {
	Email string `json:"email"`
}

type RemoveMemberRequest struct {
	UserID string `json:"userId"`
}

type SettleRequest struct {
	ToUserID string  `json:"toUserId"`
	Amount   float64 `json:"amount"`
}

// HandleGroups handles GET (list mine) and POST (create) on /api/groups/
func (h *GroupHandler) HandleGroups(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodGet:
		groups, err := h.groups.ListForUser(r.Context(), userID)
		if err != nil {
			log.Printf("Error listing groups for user %s: %v", userID, err)
			http.Error(w, "Failed to list groups", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"groups": groups})

	case http.MethodPost:
		var req CreateGroupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		created, err := h.groups.Create(r.Context(), group.CreateGroupParams{
			Name:              req.Name,
			Description:       req.Description,
			Category:          req.Category,
			Avatar:            req.Avatar,
			Currency:          req.Currency,
			OwnerID:           userID,
			AllowMemberInvite: req.AllowMemberInvite,
			AutoSplit:         req.AutoSplit,
			RequireApproval:   req.RequireApproval,
		})
		if err != nil {
			writeGroupError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(created)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleGroupByID handles GET and PATCH on /api/groups/{id}
func (h *GroupHandler) HandleGroupByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	groupID := r.PathValue("id")

	switch r.Method {
	case http.MethodGet:
		g, err := h.groups.Get(r.Context(), groupID, userID)
		if err != nil {
			writeGroupError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(g)

	case http.MethodPatch:
		var req UpdateGroupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		g, err := h.groups.Update(r.Context(), groupID, userID, group.UpdateGroupParams{
			Name:              req.Name,
			Description:       req.Description,
			Category:          req.Category,
			Avatar:            req.Avatar,
			Currency:          req.Currency,
			AllowMemberInvite: req.AllowMemberInvite,
			AutoSplit:         req.AutoSplit,
			RequireApproval:   req.RequireApproval,
		})
		if err != nil {
			writeGroupError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(g)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleJoin lets the caller join a group by invite code
func (h *GroupHandler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req JoinGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.InviteCode == "" {
		http.Error(w, "Invite code is required", http.StatusBadRequest)
		return
	}

	g, err := h.groups.JoinByCode(r.Context(), req.InviteCode, userID)
	if err != nil {
		writeGroupError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(g)
}

// HandleMembers handles POST (add by email) and DELETE (remove) on /api/groups/{id}/members
func (h *GroupHandler) HandleMembers(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	groupID := r.PathValue("id")

	switch r.Method {
	case http.MethodPost:
		var req AddMemberRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.Email == "" {
			http.Error(w, "Email is required", http.StatusBadRequest)
			return
		}
		g, err := h.groups.AddMemberByEmail(r.Context(), groupID, userID, req.Email)
		if err != nil {
			writeGroupError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(g)

	case http.MethodDelete:
		var req RemoveMemberRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.UserID == "" {
			http.Error(w, "User ID is required", http.StatusBadRequest)
			return
		}
		g, err := h.groups.RemoveMember(r.Context(), groupID, userID, req.UserID)
		if err != nil {
			writeGroupError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(g)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleGroupTransactions lists a group's transactions, members only
func (h *GroupHandler) HandleGroupTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	groupID := r.PathValue("id")

	// Membership check happens in the group service
	if _, err := h.groups.Get(r.Context(), groupID, userID); err != nil {
		writeGroupError(w, err)
		return
	}

	transactions, err := h.transactions.ListByGroup(r.Context(), groupID)
	if err != nil {
		log.Printf("Error listing transactions for group %s: %v", groupID, err)
		http.Error(w, "Failed to list transactions", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"transactions": transactions})
}

// HandleBalances returns each participant's net balance, unrounded
func (h *GroupHandler) HandleBalances(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ledger, err := h.groups.Balances(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		writeGroupError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"ledger": ledger.Balances()})
}

// HandleSuggestions returns greedy settlement suggestions, amounts at 2dp
func (h *GroupHandler) HandleSuggestions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	suggestions, err := h.groups.SuggestSettlements(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		writeGroupError(w, err)
		return
	}
	if suggestions == nil {
		suggestions = []group.Settlement{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"suggestions": suggestions})
}

// HandleSettle records a settlement payment from the caller
func (h *GroupHandler) HandleSettle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req SettleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	transactionID, err := h.groups.Settle(r.Context(), r.PathValue("id"), userID, req.ToUserID, req.Amount)
	if err != nil {
		writeGroupError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"transactionId": transactionID})
}

func writeGroupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, group.ErrNotFound):
		http.Error(w, "Group not found", http.StatusNotFound)
	case errors.Is(err, group.ErrForbidden):
		http.Error(w, "Access forbidden", http.StatusForbidden)
	case errors.Is(err, group.ErrOwnerOnly):
		http.Error(w, "Only the group owner can perform this action", http.StatusForbidden)
	case errors.Is(err, group.ErrInvalidInviteCode):
		http.Error(w, "Invalid invite code", http.StatusNotFound)
	case errors.Is(err, user.ErrNotFound):
		http.Error(w, "No user with that email", http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}
