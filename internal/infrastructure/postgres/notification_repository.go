package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"hishab/internal/domain/notification"
)

type NotificationRepository struct {
	db *DB
}

func NewNotificationRepository(db *DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// UpsertDeviceToken registers or updates a device token for a user.
// If the token exists for a different user, it is reassigned.
func (r *NotificationRepository) UpsertDeviceToken(ctx context.Context, params notification.CreateDeviceTokenParams) (*notification.DeviceToken, error) {
	// Reassign if the token belongs to another user
	_, err := r.db.ExecContext(ctx,
		`UPDATE fcm_device_tokens SET user_id = $1, is_active = true, last_used = NOW() WHERE token = $2 AND user_id != $1`,
		params.UserID, params.Token,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reassign device token: %w", err)
	}

	query := `
		INSERT INTO fcm_device_tokens (user_id, token, device_type)
		VALUES ($1, $2, $3)
		ON CONFLICT (token) DO UPDATE
			SET user_id = EXCLUDED.user_id,
			    device_type = EXCLUDED.device_type,
			    is_active = true,
			    last_used = NOW()
		RETURNING id, user_id, token, device_type, is_active, created_at, last_used
	`

	var dt notification.DeviceToken
	err = r.db.QueryRowContext(ctx, query, params.UserID, params.Token, params.DeviceType).Scan(
		&dt.ID, &dt.UserID, &dt.Token, &dt.DeviceType, &dt.IsActive, &dt.CreatedAt, &dt.LastUsed,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert device token: %w", err)
	}

	return &dt, nil
}

func (r *NotificationRepository) GetActiveTokensByUserID(ctx context.Context, userID string) ([]*notification.DeviceToken, error) {
	query := `
		SELECT id, user_id, token, device_type, is_active, created_at, last_used
		FROM fcm_device_tokens
		WHERE user_id = $1 AND is_active = true
		ORDER BY last_used DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get device tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*notification.DeviceToken
	for rows.Next() {
		var dt notification.DeviceToken
		if err := rows.Scan(&dt.ID, &dt.UserID, &dt.Token, &dt.DeviceType, &dt.IsActive, &dt.CreatedAt, &dt.LastUsed); err != nil {
			return nil, fmt.Errorf("failed to scan device token: %w", err)
		}
		tokens = append(tokens, &dt)
	}

	return tokens, rows.Err()
}

func (r *NotificationRepository) GetAllActiveTokens(ctx context.Context) ([]*notification.DeviceToken, error) {
	query := `
		SELECT id, user_id, token, device_type, is_active, created_at, last_used
		FROM fcm_device_tokens
		WHERE is_active = true
		ORDER BY user_id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get all active device tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*notification.DeviceToken
	for rows.Next() {
		var dt notification.DeviceToken
		if err := rows.Scan(&dt.ID, &dt.UserID, &dt.Token, &dt.DeviceType, &dt.IsActive, &dt.CreatedAt, &dt.LastUsed); err != nil {
			return nil, fmt.Errorf("failed to scan device token: %w", err)
		}
		tokens = append(tokens, &dt)
	}

	return tokens, rows.Err()
}

func (r *NotificationRepository) DeactivateToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE fcm_device_tokens SET is_active = false WHERE token = $1`,
		token,
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate token: %w", err)
	}
	return nil
}

func (r *NotificationRepository) ReassignToken(ctx context.Context, token string, newUserID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE fcm_device_tokens SET user_id = $1, is_active = true, last_used = NOW() WHERE token = $2`,
		newUserID, token,
	)
	if err != nil {
		return fmt.Errorf("failed to reassign token: %w", err)
	}
	return nil
}

// GetPreferences returns notification preferences for a user.
// Returns notification.ErrPreferencesNotFound if no preferences exist.
func (r *NotificationRepository) GetPreferences(ctx context.Context, userID string) (*notification.NotificationPreference, error) {
	query := `
		SELECT id, user_id, general_enabled, groups_enabled, reminders_enabled, transactions_enabled, updated_at
		FROM fcm_notification_preferences
		WHERE user_id = $1
	`

	var pref notification.NotificationPreference
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&pref.ID, &pref.UserID, &pref.GeneralEnabled, &pref.GroupsEnabled,
		&pref.RemindersEnabled, &pref.TransactionsEnabled, &pref.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, notification.ErrPreferencesNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification preferences: %w", err)
	}

	return &pref, nil
}

func (r *NotificationRepository) UpsertPreferences(ctx context.Context, userID string, params notification.UpdatePreferenceParams) (*notification.NotificationPreference, error) {
	var general any
	var groups any
	var reminders any
	var transactions any

	if params.GeneralEnabled != nil {
		general = *params.GeneralEnabled
	}
	if params.GroupsEnabled != nil {
		groups = *params.GroupsEnabled
	}
	if params.RemindersEnabled != nil {
		reminders = *params.RemindersEnabled
	}
	if params.TransactionsEnabled != nil {
		transactions = *params.TransactionsEnabled
	}

	query := `
		INSERT INTO fcm_notification_preferences (user_id, general_enabled, groups_enabled, reminders_enabled, transactions_enabled)
		VALUES (
			$1,
			COALESCE($2::boolean, true),
			COALESCE($3::boolean, true),
			COALESCE($4::boolean, true),
			COALESCE($5::boolean, true)
		)
		ON CONFLICT (user_id) DO UPDATE
			SET general_enabled = COALESCE($2::boolean, fcm_notification_preferences.general_enabled),
			    groups_enabled = COALESCE($3::boolean, fcm_notification_preferences.groups_enabled),
			    reminders_enabled = COALESCE($4::boolean, fcm_notification_preferences.reminders_enabled),
			    transactions_enabled = COALESCE($5::boolean, fcm_notification_preferences.transactions_enabled),
			    updated_at = NOW()
		RETURNING id, user_id, general_enabled, groups_enabled, reminders_enabled, transactions_enabled, updated_at
	`

	var pref notification.NotificationPreference
	err := r.db.QueryRowContext(ctx, query, userID, general, groups, reminders, transactions).Scan(
		&pref.ID, &pref.UserID, &pref.GeneralEnabled, &pref.GroupsEnabled,
		&pref.RemindersEnabled, &pref.TransactionsEnabled, &pref.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert notification preferences: %w", err)
	}

	return &pref, nil
}

func (r *NotificationRepository) CreateNotification(ctx context.Context, params notification.CreateNotificationParams) (*notification.Notification, error) {
	dataJSON, err := json.Marshal(params.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification data: %w", err)
	}

	query := `
		INSERT INTO fcm_notifications (user_id, title, message, category, data)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, user_id, title, message, category, data, opened_at, created_at
	`

	var n notification.Notification
	var dataBytes []byte
	var openedAt sql.NullTime

	err = r.db.QueryRowContext(ctx, query, params.UserID, params.Title, params.Message, params.Category, dataJSON).Scan(
		&n.ID, &n.UserID, &n.Title, &n.Message, &n.Category, &dataBytes, &openedAt, &n.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	if openedAt.Valid {
		n.OpenedAt = &openedAt.Time
	}

	if len(dataBytes) > 0 {
		if err := json.Unmarshal(dataBytes, &n.Data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal notification data: %w", err)
		}
	}

	return &n, nil
}

func (r *NotificationRepository) ListByUserID(ctx context.Context, userID string, page, perPage int) ([]*notification.Notification, int, error) {
	// Get total count
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM fcm_notifications WHERE user_id = $1`,
		userID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	offset := (page - 1) * perPage
	query := `
		SELECT id, user_id, title, message, category, data, opened_at, created_at
		FROM fcm_notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, userID, perPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*notification.Notification
	for rows.Next() {
		var n notification.Notification
		var dataBytes []byte
		var openedAt sql.NullTime

		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Category, &dataBytes, &openedAt, &n.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan notification: %w", err)
		}

		if openedAt.Valid {
			n.OpenedAt = &openedAt.Time
		}

		if len(dataBytes) > 0 {
			if err := json.Unmarshal(dataBytes, &n.Data); err != nil {
				return nil, 0, fmt.Errorf("failed to unmarshal notification data: %w", err)
			}
		}

		notifications = append(notifications, &n)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating notifications: %w", err)
	}

	return notifications, total, nil
}

func (r *NotificationRepository) MarkOpened(ctx context.Context, notificationID string, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE fcm_notifications
		SET opened_at = COALESCE(opened_at, $1)
		WHERE id = $2 AND user_id = $3`,
		time.Now(), notificationID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification as opened: %w", err)
	}
	return requireRowAffected(result, notification.ErrNotificationNotFound)
}

const broadcastColumns = `id, title, message, category, data, user_ids, segment, send_at, sent, sent_at, created_by, created_at`

func scanBroadcast(row interface{ Scan(...any) error }) (*notification.Broadcast, error) {
	var b notification.Broadcast
	var dataBytes, userIDsBytes, segmentBytes []byte
	var sentAt sql.NullTime
	var createdBy sql.NullString

	err := row.Scan(
		&b.ID, &b.Title, &b.Message, &b.Category, &dataBytes, &userIDsBytes,
		&segmentBytes, &b.SendAt, &b.Sent, &sentAt, &createdBy, &b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if sentAt.Valid {
		b.SentAt = &sentAt.Time
	}
	if createdBy.Valid {
		b.CreatedBy = createdBy.String
	}
	if len(dataBytes) > 0 {
		if err := json.Unmarshal(dataBytes, &b.Data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal broadcast data: %w", err)
		}
	}
	if len(userIDsBytes) > 0 {
		if err := json.Unmarshal(userIDsBytes, &b.UserIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal broadcast recipients: %w", err)
		}
	}
	if len(segmentBytes) > 0 {
		if err := json.Unmarshal(segmentBytes, &b.Segment); err != nil {
			return nil, fmt.Errorf("failed to unmarshal broadcast segment: %w", err)
		}
	}

	return &b, nil
}

func (r *NotificationRepository) CreateBroadcast(ctx context.Context, params notification.CreateBroadcastParams) (*notification.Broadcast, error) {
	dataJSON, err := json.Marshal(params.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal broadcast data: %w", err)
	}
	userIDs := params.UserIDs
	if userIDs == nil {
		userIDs = []string{}
	}
	userIDsJSON, err := json.Marshal(userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal broadcast recipients: %w", err)
	}

	var segmentJSON any
	if params.Segment != nil {
		b, err := json.Marshal(params.Segment)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal broadcast segment: %w", err)
		}
		segmentJSON = b
	}

	var createdBy any
	if params.CreatedBy != "" {
		createdBy = params.CreatedBy
	}

	query := `
		INSERT INTO scheduled_broadcasts (title, message, category, data, user_ids, segment, send_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + broadcastColumns

	b, err := scanBroadcast(r.db.QueryRowContext(ctx, query,
		params.Title, params.Message, params.Category, dataJSON, userIDsJSON,
		segmentJSON, params.SendAt, createdBy,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create broadcast: %w", err)
	}
	return b, nil
}

func (r *NotificationRepository) ListBroadcasts(ctx context.Context) ([]*notification.Broadcast, error) {
	query := `SELECT ` + broadcastColumns + ` FROM scheduled_broadcasts ORDER BY created_at DESC`
	return r.listBroadcasts(ctx, query)
}

// ListDueBroadcasts returns unsent broadcasts whose send time has passed,
// oldest first.
func (r *NotificationRepository) ListDueBroadcasts(ctx context.Context, now time.Time) ([]*notification.Broadcast, error) {
	query := `SELECT ` + broadcastColumns + ` FROM scheduled_broadcasts WHERE sent = false AND send_at <= $1 ORDER BY send_at`
	return r.listBroadcasts(ctx, query, now)
}

func (r *NotificationRepository) listBroadcasts(ctx context.Context, query string, args ...any) ([]*notification.Broadcast, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list broadcasts: %w", err)
	}
	defer rows.Close()

	var broadcasts []*notification.Broadcast
	for rows.Next() {
		b, err := scanBroadcast(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan broadcast: %w", err)
		}
		broadcasts = append(broadcasts, b)
	}

	return broadcasts, rows.Err()
}

func (r *NotificationRepository) MarkBroadcastSent(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE scheduled_broadcasts SET sent = true, sent_at = $2 WHERE id = $1`,
		id, at,
	)
	if err != nil {
		return fmt.Errorf("failed to mark broadcast sent: %w", err)
	}
	return requireRowAffected(result, notification.ErrBroadcastNotFound)
}

func (r *NotificationRepository) DeleteBroadcast(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM scheduled_broadcasts WHERE id = $1 AND sent = false`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete broadcast: %w", err)
	}
	return requireRowAffected(result, notification.ErrBroadcastNotFound)
}
