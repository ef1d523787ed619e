package transaction

import (
	"context"
	"time"
)

// Repository defines the interface for transaction data access.
// Defined in the domain layer, implemented in the infrastructure layer.
type Repository interface {
	Create(ctx context.Context, params CreateTransactionParams) (*Transaction, error)
	GetByID(ctx context.Context, id, userID string) (*Transaction, error)
	List(ctx context.Context, userID string, filter ListFilter) ([]*Transaction, int, error)
	ListByGroup(ctx context.Context, groupID string) ([]*Transaction, error)
	// ListGroupExpenses returns only type='expense' rows; settlements are
	// expenses too and are included.
	ListGroupExpenses(ctx context.Context, groupID string) ([]*Transaction, error)
	Update(ctx context.Context, id, userID string, params UpdateTransactionParams) (*Transaction, error)
	Delete(ctx context.Context, id, userID string) error

	// ActiveUserIDs returns distinct user IDs with at least one transaction
	// dated within [since, until). Used for broadcast segmentation.
	ActiveUserIDs(ctx context.Context, since, until time.Time) ([]string, error)
}
