package notification

import (
	"context"
	"time"
)

// Repository defines the interface for notification data access.
// Defined in the domain layer, implemented in the infrastructure layer.
type Repository interface {
	// Device tokens
	UpsertDeviceToken(ctx context.Context, params CreateDeviceTokenParams) (*DeviceToken, error)
	GetActiveTokensByUserID(ctx context.Context, userID string) ([]*DeviceToken, error)
	GetAllActiveTokens(ctx context.Context) ([]*DeviceToken, error)
	DeactivateToken(ctx context.Context, token string) error
	ReassignToken(ctx context.Context, token string, newUserID string) error

	// Notification preferences
	GetPreferences(ctx context.Context, userID string) (*NotificationPreference, error)
	UpsertPreferences(ctx context.Context, userID string, params UpdatePreferenceParams) (*NotificationPreference, error)

	// Notifications
	CreateNotification(ctx context.Context, params CreateNotificationParams) (*Notification, error)
	ListByUserID(ctx context.Context, userID string, page, perPage int) ([]*Notification, int, error)
	MarkOpened(ctx context.Context, notificationID string, userID string) error

	// Scheduled broadcasts
	CreateBroadcast(ctx context.Context, params CreateBroadcastParams) (*Broadcast, error)
	ListBroadcasts(ctx context.Context) ([]*Broadcast, error)
	// ListDueBroadcasts returns unsent broadcasts with sendAt <= now.
	ListDueBroadcasts(ctx context.Context, now time.Time) ([]*Broadcast, error)
	MarkBroadcastSent(ctx context.Context, id string, at time.Time) error
	DeleteBroadcast(ctx context.Context, id string) error
}
