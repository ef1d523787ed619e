package notification

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"hishab/internal/domain/group"
	"hishab/internal/domain/transaction"
)

// GroupSource loads groups for event notifications. Implemented by the
// group repository.
type GroupSource interface {
	GetByID(ctx context.Context, id string) (*group.Group, error)
}

// NameSource resolves user display names. Implemented by the user service.
type NameSource interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

// Events fans group and transaction events out as push notifications.
// It implements the notifier interfaces consumed by the group and
// transaction services. All methods are best-effort: failures are
// logged and never propagated back to the business operation.
type Events struct {
	sender *Service
	groups GroupSource
	names  NameSource
}

func NewEvents(sender *Service, groups GroupSource, names NameSource) *Events {
	return &Events{sender: sender, groups: groups, names: names}
}

// NotifyNewExpense tells the other group members a shared expense was
// recorded. The payer is excluded from the recipient list.
func (e *Events) NotifyNewExpense(ctx context.Context, tx *transaction.Transaction) {
	if tx.GroupID == nil {
		return
	}

	g, err := e.groups.GetByID(ctx, *tx.GroupID)
	if err != nil {
		log.Printf("Error loading group %s for expense notification: %v", *tx.GroupID, err)
		return
	}

	payerID := tx.UserID
	if tx.PaidBy != nil {
		payerID = *tx.PaidBy
	}

	title := fmt.Sprintf("New expense in %s", g.Name)
	body := fmt.Sprintf("%s%s - %s", currencySymbol(tx.Currency), formatAmount(tx.Amount), tx.Note)
	data := map[string]string{
		"groupId":       g.ID,
		"transactionId": tx.ID,
	}

	for _, userID := range groupMembers(g) {
		if userID == payerID {
			continue
		}
		if err := e.sender.SendToUser(ctx, userID, title, body, CategoryTransactions, cloneData(data)); err != nil {
			log.Printf("Error notifying user %s of new expense: %v", userID, err)
		}
	}
}

// NotifyMemberAdded tells everyone in the group, owner included, that a
// new member joined.
func (e *Events) NotifyMemberAdded(ctx context.Context, g *group.Group, memberName string) {
	title := fmt.Sprintf("New member in %s", g.Name)
	body := fmt.Sprintf("%s joined the group", memberName)
	data := map[string]string{"groupId": g.ID}

	for _, userID := range groupMembers(g) {
		if err := e.sender.SendToUser(ctx, userID, title, body, CategoryGroups, cloneData(data)); err != nil {
			log.Printf("Error notifying user %s of new member: %v", userID, err)
		}
	}
}

// NotifySettlement tells the recipient of a settlement that a debt was
// paid off.
func (e *Events) NotifySettlement(ctx context.Context, g *group.Group, fromUserID, toUserID string, amount float64) {
	fromName, err := e.names.DisplayName(ctx, fromUserID)
	if err != nil {
		log.Printf("Error resolving name for user %s: %v", fromUserID, err)
		fromName = "A group member"
	}

	title := fmt.Sprintf("Settlement in %s", g.Name)
	body := fmt.Sprintf("%s settled %s%s", fromName, currencySymbol(g.Currency), formatAmount(amount))
	data := map[string]string{"groupId": g.ID}

	if err := e.sender.SendToUser(ctx, toUserID, title, body, CategoryGroups, data); err != nil {
		log.Printf("Error notifying user %s of settlement: %v", toUserID, err)
	}
}

// groupMembers returns the owner plus all member IDs.
func groupMembers(g *group.Group) []string {
	ids := make([]string, 0, len(g.MemberIDs)+1)
	ids = append(ids, g.OwnerID)
	for _, id := range g.MemberIDs {
		if id == g.OwnerID {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func currencySymbol(currency string) string {
	switch currency {
	case "", "BDT":
		return "৳"
	case "USD":
		return "$"
	case "EUR":
		return "€"
	case "INR":
		return "₹"
	default:
		return currency + " "
	}
}

// formatAmount trims trailing zeros so 250.00 renders as 250.
func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}
