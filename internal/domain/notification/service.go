package notification

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// UserDirectory exposes the user lookups broadcast segments need.
// Implemented by the user service.
type UserDirectory interface {
	// NotifiableUserIDs returns IDs of active users with notifications enabled.
	NotifiableUserIDs(ctx context.Context) ([]string, error)
	// PremiumUserIDs returns IDs of users on a premium plan.
	PremiumUserIDs(ctx context.Context) ([]string, error)
}

// ActivitySource reports which users recorded transactions in a window.
// Implemented by the transaction repository.
type ActivitySource interface {
	ActiveUserIDs(ctx context.Context, since, until time.Time) ([]string, error)
}

// Service contains the business logic for notification operations
type Service struct {
	repo      Repository
	messenger Messenger
	directory UserDirectory
	activity  ActivitySource
}

// NewService creates a new notification service
func NewService(repo Repository, messenger Messenger, directory UserDirectory, activity ActivitySource) *Service {
	return &Service{repo: repo, messenger: messenger, directory: directory, activity: activity}
}

// RegisterDevice registers a device token for the authenticated user.
// If the token already belongs to another user, it is reassigned.
// Creates default notification preferences if none exist.
func (s *Service) RegisterDevice(ctx context.Context, params CreateDeviceTokenParams) (*DeviceToken, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	token, err := s.repo.UpsertDeviceToken(ctx, params)
	if err != nil {
		return nil, err
	}

	// Ensure notification preferences exist for this user
	_, err = s.repo.GetPreferences(ctx, params.UserID)
	if err != nil {
		// Create default preferences
		_, err = s.repo.UpsertPreferences(ctx, params.UserID, UpdatePreferenceParams{})
		if err != nil {
			log.Printf("Warning: failed to create default notification preferences for user %s: %v", params.UserID, err)
		}
	}

	return token, nil
}

// DeactivateDevice marks a device token inactive, e.g. on logout.
func (s *Service) DeactivateDevice(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidToken
	}
	return s.repo.DeactivateToken(ctx, token)
}

// GetPreferences returns the notification preferences for a user.
// Returns default (all-enabled) preferences if none have been created yet.
func (s *Service) GetPreferences(ctx context.Context, userID string) (*NotificationPreference, error) {
	if userID == "" {
		return nil, errors.New("valid user ID is required")
	}

	prefs, err := s.repo.GetPreferences(ctx, userID)
	if err != nil {
		// Return defaults if not found
		return &NotificationPreference{
			UserID:              userID,
			GeneralEnabled:      true,
			GroupsEnabled:       true,
			RemindersEnabled:    true,
			TransactionsEnabled: true,
		}, nil
	}

	return prefs, nil
}

// UpdatePreferences updates notification preferences for a user
func (s *Service) UpdatePreferences(ctx context.Context, userID string, params UpdatePreferenceParams) (*NotificationPreference, error) {
	if userID == "" {
		return nil, errors.New("valid user ID is required")
	}

	return s.repo.UpsertPreferences(ctx, userID, params)
}

// ListNotifications returns paginated notifications for a user
func (s *Service) ListNotifications(ctx context.Context, userID string, page, perPage int) ([]*Notification, int, error) {
	if userID == "" {
		return nil, 0, errors.New("valid user ID is required")
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	return s.repo.ListByUserID(ctx, userID, page, perPage)
}

// MarkNotificationOpened marks a notification as opened by the authenticated user
func (s *Service) MarkNotificationOpened(ctx context.Context, notificationID string, userID string) error {
	if notificationID == "" {
		return errors.New("notification ID is required")
	}
	if userID == "" {
		return errors.New("valid user ID is required")
	}

	return s.repo.MarkOpened(ctx, notificationID, userID)
}

// SendToUser sends a push notification to a specific user.
// Respects notification preferences and creates a notification record.
func (s *Service) SendToUser(ctx context.Context, userID string, title, body, category string, data map[string]string) error {
	if !IsValidCategory(category) {
		return ErrInvalidCategory
	}

	// Check preferences
	prefs, err := s.GetPreferences(ctx, userID)
	if err != nil {
		return err
	}

	if !prefs.IsCategoryEnabled(category) {
		log.Printf("Notification skipped for user %s: category %q disabled", userID, category)
		return nil
	}

	// Get active device tokens
	tokens, err := s.repo.GetActiveTokensByUserID(ctx, userID)
	if err != nil {
		return err
	}

	if len(tokens) == 0 {
		log.Printf("No active device tokens for user %s", userID)
		return nil
	}

	// Add route from category if not present
	if data == nil {
		data = make(map[string]string)
	}
	if _, ok := data["route"]; !ok {
		data["route"] = category
	}

	// Send to all active tokens via FCM (if messenger is configured)
	if s.messenger != nil {
		tokenStrings := make([]string, len(tokens))
		for i, t := range tokens {
			tokenStrings[i] = t.Token
		}

		if err := s.messenger.SendMulticast(ctx, tokenStrings, title, body, data); err != nil {
			log.Printf("Error sending notification to user %s: %v", userID, err)
		}
	}

	// Store notification record
	_, err = s.repo.CreateNotification(ctx, CreateNotificationParams{
		UserID:   userID,
		Title:    title,
		Message:  body,
		Category: category,
		Data:     data,
	})
	if err != nil {
		log.Printf("Error storing notification for user %s: %v", userID, err)
	}

	return nil
}

// SendToToken sends a push notification to a specific device token
func (s *Service) SendToToken(ctx context.Context, token, title, body, category string, data map[string]string) error {
	if token == "" {
		return ErrInvalidToken
	}
	if !IsValidCategory(category) {
		return ErrInvalidCategory
	}

	if data == nil {
		data = make(map[string]string)
	}
	if _, ok := data["route"]; !ok {
		data["route"] = category
	}

	if s.messenger == nil {
		return nil
	}

	return s.messenger.Send(ctx, token, title, body, data)
}

// CreateBroadcast schedules a broadcast for later delivery.
// This is intended for staff/admin use only (enforced at the handler level).
func (s *Service) CreateBroadcast(ctx context.Context, params CreateBroadcastParams) (*Broadcast, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	return s.repo.CreateBroadcast(ctx, params)
}

// ListBroadcasts returns all scheduled broadcasts, newest first.
func (s *Service) ListBroadcasts(ctx context.Context) ([]*Broadcast, error) {
	return s.repo.ListBroadcasts(ctx)
}

// DeleteBroadcast removes a scheduled broadcast that has not been sent yet.
func (s *Service) DeleteBroadcast(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("broadcast ID is required")
	}
	return s.repo.DeleteBroadcast(ctx, id)
}

// BroadcastRunResult summarizes a broadcast sweep.
type BroadcastRunResult struct {
	Processed int
	Delivered int
	Errors    int
}

// ProcessDueBroadcasts delivers every unsent broadcast whose send time has
// passed. Each broadcast is resolved to its recipient set, fanned out through
// SendToUser, then marked sent. A failing broadcast is logged and skipped so
// one bad record cannot stall the rest of the sweep.
func (s *Service) ProcessDueBroadcasts(ctx context.Context, now time.Time) (*BroadcastRunResult, error) {
	due, err := s.repo.ListDueBroadcasts(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("listing due broadcasts: %w", err)
	}

	result := &BroadcastRunResult{}
	for _, b := range due {
		result.Processed++

		recipients, err := s.resolveRecipients(ctx, b, now)
		if err != nil {
			log.Printf("Error resolving recipients for broadcast %s: %v", b.ID, err)
			result.Errors++
			continue
		}

		for _, userID := range recipients {
			if err := s.SendToUser(ctx, userID, b.Title, b.Message, b.Category, cloneData(b.Data)); err != nil {
				log.Printf("Error delivering broadcast %s to user %s: %v", b.ID, userID, err)
				result.Errors++
				continue
			}
			result.Delivered++
		}

		if err := s.repo.MarkBroadcastSent(ctx, b.ID, now); err != nil {
			log.Printf("Error marking broadcast %s as sent: %v", b.ID, err)
			result.Errors++
		}
	}

	if result.Processed > 0 {
		log.Printf("Broadcast sweep complete: processed=%d delivered=%d errors=%d",
			result.Processed, result.Delivered, result.Errors)
	}

	return result, nil
}

// resolveRecipients expands a broadcast target into concrete user IDs.
// Explicit user lists win; then segments; with neither, everyone who has
// an active device token is targeted.
func (s *Service) resolveRecipients(ctx context.Context, b *Broadcast, now time.Time) ([]string, error) {
	if len(b.UserIDs) > 0 {
		return b.UserIDs, nil
	}

	if b.Segment != nil {
		return s.resolveSegment(ctx, b.Segment, now)
	}

	tokens, err := s.repo.GetAllActiveTokens(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(tokens))
	var ids []string
	for _, t := range tokens {
		if _, ok := seen[t.UserID]; ok {
			continue
		}
		seen[t.UserID] = struct{}{}
		ids = append(ids, t.UserID)
	}
	return ids, nil
}

func (s *Service) resolveSegment(ctx context.Context, seg *Segment, now time.Time) ([]string, error) {
	switch seg.Type {
	case SegmentPremium:
		return s.directory.PremiumUserIDs(ctx)

	case SegmentInactive:
		days := seg.Days
		if days <= 0 {
			days = 7
		}
		notifiable, err := s.directory.NotifiableUserIDs(ctx)
		if err != nil {
			return nil, err
		}
		active, err := s.activity.ActiveUserIDs(ctx, now.AddDate(0, 0, -days), now)
		if err != nil {
			return nil, err
		}
		return subtract(notifiable, active), nil

	case SegmentChurnRisk:
		// Users active earlier in the window but silent for the last month.
		windowStart := now.AddDate(0, 0, -churnWindowDays)
		recentStart := now.AddDate(0, 0, -churnRecentDays)

		earlier, err := s.activity.ActiveUserIDs(ctx, windowStart, recentStart)
		if err != nil {
			return nil, err
		}
		recent, err := s.activity.ActiveUserIDs(ctx, recentStart, now)
		if err != nil {
			return nil, err
		}
		notifiable, err := s.directory.NotifiableUserIDs(ctx)
		if err != nil {
			return nil, err
		}
		return intersect(subtract(earlier, recent), notifiable), nil

	default:
		return nil, fmt.Errorf("unknown segment type %q", seg.Type)
	}
}

// subtract returns the members of a that are not in b, preserving order.
func subtract(a, b []string) []string {
	exclude := make(map[string]struct{}, len(b))
	for _, id := range b {
		exclude[id] = struct{}{}
	}
	var out []string
	for _, id := range a {
		if _, ok := exclude[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// intersect returns the members of a that are also in b, preserving a's order.
func intersect(a, b []string) []string {
	include := make(map[string]struct{}, len(b))
	for _, id := range b {
		include[id] = struct{}{}
	}
	var out []string
	for _, id := range a {
		if _, ok := include[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// cloneData copies broadcast data so per-recipient route defaults do not
// leak between sends.
func cloneData(data map[string]string) map[string]string {
	if data == nil {
		return nil
	}
	out := make(map[string]string, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
