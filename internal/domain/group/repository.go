package group

import (
	"context"
	"time"
)

// Repository defines the interface for group data access.
// Defined in the domain layer, implemented in the infrastructure layer.
type Repository interface {
	Create(ctx context.Context, params CreateGroupParams, inviteCode string) (*Group, error)
	GetByID(ctx context.Context, id string) (*Group, error)
	GetByInviteCode(ctx context.Context, code string) (*Group, error)
	ListByUser(ctx context.Context, userID string) ([]*Group, error)
	Update(ctx context.Context, id string, params UpdateGroupParams) (*Group, error)
	AddMember(ctx context.Context, groupID, userID string) error
	RemoveMember(ctx context.Context, groupID, userID string) error
	TouchActivity(ctx context.Context, groupID string, at time.Time) error
	Delete(ctx context.Context, id string) error
}
