package user

import (
	"context"
	"time"
)

// Repository defines the interface for user data access.
// Defined in the domain layer, implemented in the infrastructure layer.
type Repository interface {
	Create(ctx context.Context, params CreateUserParams) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Update(ctx context.Context, userID string, params UpdateUserParams) (*User, error)
	TouchLastActive(ctx context.Context, userID string, at time.Time) error

	// Broadcast segment queries
	NotifiableUserIDs(ctx context.Context) ([]string, error)
	PremiumUserIDs(ctx context.Context) ([]string, error)
}
