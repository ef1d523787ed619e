package recurring

import (
	"context"
	"time"
)

// Repository defines the interface for recurring transaction data access.
// Defined in the domain layer, implemented in the infrastructure layer.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (*RecurringTransaction, error)
	GetByID(ctx context.Context, id, userID string) (*RecurringTransaction, error)
	ListByUser(ctx context.Context, userID string) ([]*RecurringTransaction, error)
	// ListActive returns every active subscription with a due date set,
	// across all users. Feeds the reminder sweep.
	ListActive(ctx context.Context) ([]*RecurringTransaction, error)
	// ListDueBefore returns a user's active subscriptions due before the
	// cutoff. Overdue entries are included so they surface as such.
	ListDueBefore(ctx context.Context, userID string, until time.Time) ([]*RecurringTransaction, error)
	Update(ctx context.Context, id, userID string, params UpdateParams) (*RecurringTransaction, error)
	SetActive(ctx context.Context, id, userID string, active bool) error
	// MarkPaid stores the payment date and new due date, and clears
	// lastReminderSent so the next cycle reminds from scratch.
	MarkPaid(ctx context.Context, id string, lastPaid, nextRun time.Time) error
	SetLastReminderSent(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id, userID string) error
}
