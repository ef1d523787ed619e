package transaction

import (
	"context"
	"errors"
	"log"
	"time"
)

// Notifier sends transaction event notifications. Delivery failures are
// logged by implementations, never surfaced to the caller.
type Notifier interface {
	NotifyNewExpense(ctx context.Context, tx *Transaction)
}

// GroupRecorder keeps group activity and expense totals current as
// transactions are recorded. Implemented by the group storage layer.
type GroupRecorder interface {
	RecordExpense(ctx context.Context, groupID string, amount float64, at time.Time) error
}

// Service contains the business logic for transaction operations
type Service struct {
	repo     Repository
	notifier Notifier
	groups   GroupRecorder
}

func NewService(repo Repository, notifier Notifier, groups GroupRecorder) *Service {
	return &Service{repo: repo, notifier: notifier, groups: groups}
}

// Create records a transaction. Group expenses bump the group's totals
// and trigger a fire-and-forget notification to the other members;
// settlements stay silent because the settlement flow sends its own.
func (s *Service) Create(ctx context.Context, params CreateTransactionParams) (*Transaction, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.repo.Create(ctx, params)
	if err != nil {
		return nil, err
	}

	if tx.GroupID != nil && !tx.IsSettlement {
		if s.groups != nil && tx.Type == TypeExpense {
			if err := s.groups.RecordExpense(ctx, *tx.GroupID, tx.Amount, tx.Date); err != nil {
				log.Printf("Warning: failed to update totals for group %s: %v", *tx.GroupID, err)
			}
		}
		if s.notifier != nil {
			// Detached from the request so a slow push never delays the response.
			go s.notifier.NotifyNewExpense(context.Background(), tx)
		}
	}

	return tx, nil
}

func (s *Service) Get(ctx context.Context, id, userID string) (*Transaction, error) {
	if id == "" {
		return nil, errors.New("transaction ID is required")
	}
	return s.repo.GetByID(ctx, id, userID)
}

func (s *Service) List(ctx context.Context, userID string, filter ListFilter) ([]*Transaction, int, error) {
	if userID == "" {
		return nil, 0, errors.New("user ID is required")
	}
	if filter.Limit < 1 || filter.Limit > 500 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.List(ctx, userID, filter)
}

// ListByGroup returns all of a group's transactions, newest first.
// Membership is enforced by the caller against the group domain.
func (s *Service) ListByGroup(ctx context.Context, groupID string) ([]*Transaction, error) {
	if groupID == "" {
		return nil, errors.New("group ID is required")
	}
	return s.repo.ListByGroup(ctx, groupID)
}

func (s *Service) Update(ctx context.Context, id, userID string, params UpdateTransactionParams) (*Transaction, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, userID, params)
}

func (s *Service) Delete(ctx context.Context, id, userID string) error {
	if id == "" {
		return errors.New("transaction ID is required")
	}
	return s.repo.Delete(ctx, id, userID)
}

// ActiveUserIDs exposes transaction-derived activity for broadcast
// segmentation.
func (s *Service) ActiveUserIDs(ctx context.Context, since, until time.Time) ([]string, error) {
	return s.repo.ActiveUserIDs(ctx, since, until)
}
