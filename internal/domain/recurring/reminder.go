package recurring

import (
	"fmt"
	"time"
)

// Notification priorities
const (
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

var subscriptionTypeLabels = map[string]string{
	TypeBill:         "Bill",
	TypeEMI:          "EMI",
	TypeRent:         "Rent",
	TypeSubscription: "Subscription",
	TypeOther:        "Recurring payment",
}

// Reminder is a due-date notification ready to be delivered.
type Reminder struct {
	Title        string
	Message      string
	Priority     string
	DueDate      time.Time
	DaysUntilDue int
}

// EvaluateReminder decides whether a subscription is due for a reminder
// right now. A reminder fires when the number of whole days until the
// due date matches one of the configured offsets, and is suppressed when
// a reminder for that same day count has already gone out; marking the
// subscription paid clears the suppression along with the due date.
func EvaluateReminder(sub *RecurringTransaction, now time.Time) (*Reminder, bool) {
	if !sub.IsActive || sub.NextRunDate == nil {
		return nil, false
	}

	due := Midnight(*sub.NextRunDate)
	// A due date past the end date means the subscription has run its course.
	if sub.EndDate != nil && due.After(*sub.EndDate) {
		return nil, false
	}
	daysUntilDue := DaysUntil(due, now)

	shouldRemind := false
	for _, d := range sub.EffectiveReminderDays() {
		if d == daysUntilDue {
			shouldRemind = true
			break
		}
	}
	if !shouldRemind {
		return nil, false
	}

	// Already reminded for this day count
	if sub.LastReminderSent != nil && DaysUntil(due, *sub.LastReminderSent) == daysUntilDue {
		return nil, false
	}

	label := subscriptionTypeLabels[sub.SubscriptionType]
	if label == "" {
		label = subscriptionTypeLabels[TypeOther]
	}

	var title string
	switch daysUntilDue {
	case 0:
		title = fmt.Sprintf("%s due today", label)
	case 1:
		title = fmt.Sprintf("%s due tomorrow", label)
	default:
		title = fmt.Sprintf("%s due in %d days", label, daysUntilDue)
	}

	category := sub.Category
	if category == "" {
		category = label
	}
	message := fmt.Sprintf("%s: %s%.2f", category, currencySymbol(sub.Currency), sub.Amount)
	if sub.Note != "" {
		message += " - " + sub.Note
	}

	priority := PriorityNormal
	if daysUntilDue == 0 {
		priority = PriorityHigh
	}

	return &Reminder{
		Title:        title,
		Message:      message,
		Priority:     priority,
		DueDate:      due,
		DaysUntilDue: daysUntilDue,
	}, true
}

func currencySymbol(code string) string {
	switch code {
	case "BDT", "":
		return "৳"
	case "USD":
		return "$"
	case "EUR":
		return "€"
	case "INR":
		return "₹"
	default:
		return code + " "
	}
}
