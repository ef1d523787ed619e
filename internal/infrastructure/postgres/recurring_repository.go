package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"hishab/internal/domain/recurring"
)

type RecurringRepository struct {
	db *DB
}

func NewRecurringRepository(db *DB) *RecurringRepository {
	return &RecurringRepository{db: db}
}

const recurringColumns = `id, user_id, type, subscription_type, category, amount, currency, note, frequency, next_run_date, end_date, last_paid_date, auto_pay, last_reminder_sent, reminder_days, is_active, created_at, updated_at`

func scanRecurring(row interface{ Scan(...any) error }) (*recurring.RecurringTransaction, error) {
	var rt recurring.RecurringTransaction
	var nextRun, endDate, lastPaid, lastReminder sql.NullTime
	var reminderDaysJSON []byte

	err := row.Scan(
		&rt.ID, &rt.UserID, &rt.Type, &rt.SubscriptionType, &rt.Category, &rt.Amount,
		&rt.Currency, &rt.Note, &rt.Frequency, &nextRun, &endDate, &lastPaid, &rt.AutoPay,
		&lastReminder, &reminderDaysJSON, &rt.IsActive, &rt.CreatedAt, &rt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if nextRun.Valid {
		rt.NextRunDate = &nextRun.Time
	}
	if endDate.Valid {
		rt.EndDate = &endDate.Time
	}
	if lastPaid.Valid {
		rt.LastPaidDate = &lastPaid.Time
	}
	if lastReminder.Valid {
		rt.LastReminderSent = &lastReminder.Time
	}
	if len(reminderDaysJSON) > 0 {
		if err := json.Unmarshal(reminderDaysJSON, &rt.ReminderDays); err != nil {
			return nil, fmt.Errorf("failed to unmarshal reminder days: %w", err)
		}
	}

	return &rt, nil
}

func (r *RecurringRepository) Create(ctx context.Context, params recurring.CreateParams) (*recurring.RecurringTransaction, error) {
	reminderDaysJSON, err := json.Marshal(params.ReminderDays)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal reminder days: %w", err)
	}

	query := `
		INSERT INTO recurring_transactions (user_id, type, subscription_type, category, amount, currency, note, frequency, next_run_date, end_date, auto_pay, reminder_days)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + recurringColumns

	rt, err := scanRecurring(r.db.QueryRowContext(ctx, query,
		params.UserID, params.Type, params.SubscriptionType, params.Category, params.Amount,
		params.Currency, params.Note, params.Frequency, params.NextRunDate, params.EndDate,
		params.AutoPay, reminderDaysJSON,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create recurring transaction: %w", err)
	}
	return rt, nil
}

func (r *RecurringRepository) GetByID(ctx context.Context, id, userID string) (*recurring.RecurringTransaction, error) {
	query := `SELECT ` + recurringColumns + ` FROM recurring_transactions WHERE id = $1 AND user_id = $2`

	rt, err := scanRecurring(r.db.QueryRowContext(ctx, query, id, userID))
	if err == sql.ErrNoRows {
		return nil, recurring.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recurring transaction: %w", err)
	}
	return rt, nil
}

func (r *RecurringRepository) ListByUser(ctx context.Context, userID string) ([]*recurring.RecurringTransaction, error) {
	query := `SELECT ` + recurringColumns + ` FROM recurring_transactions WHERE user_id = $1 ORDER BY next_run_date NULLS LAST, created_at`
	return r.list(ctx, query, userID)
}

// ListActive returns every active subscription with a due date, across
// all users. Feeds the reminder sweep.
func (r *RecurringRepository) ListActive(ctx context.Context) ([]*recurring.RecurringTransaction, error) {
	query := `SELECT ` + recurringColumns + ` FROM recurring_transactions WHERE is_active = true AND next_run_date IS NOT NULL ORDER BY next_run_date`
	return r.list(ctx, query)
}

// ListDueBefore returns active subscriptions with a due date before the
// cutoff, overdue ones included.
func (r *RecurringRepository) ListDueBefore(ctx context.Context, userID string, until time.Time) ([]*recurring.RecurringTransaction, error) {
	query := `
		SELECT ` + recurringColumns + `
		FROM recurring_transactions
		WHERE user_id = $1 AND is_active = true
		  AND next_run_date IS NOT NULL AND next_run_date <= $2
		ORDER BY next_run_date
	`
	return r.list(ctx, query, userID, until)
}

func (r *RecurringRepository) list(ctx context.Context, query string, args ...any) ([]*recurring.RecurringTransaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list recurring transactions: %w", err)
	}
	defer rows.Close()

	var subs []*recurring.RecurringTransaction
	for rows.Next() {
		rt, err := scanRecurring(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recurring transaction: %w", err)
		}
		subs = append(subs, rt)
	}

	return subs, rows.Err()
}

func (r *RecurringRepository) Update(ctx context.Context, id, userID string, params recurring.UpdateParams) (*recurring.RecurringTransaction, error) {
	var subType, category, amount, note, frequency, nextRun any
	if params.SubscriptionType != nil {
		subType = *params.SubscriptionType
	}
	if params.Category != nil {
		category = *params.Category
	}
	if params.Amount != nil {
		amount = *params.Amount
	}
	if params.Note != nil {
		note = *params.Note
	}
	if params.Frequency != nil {
		frequency = *params.Frequency
	}
	if params.NextRunDate != nil {
		nextRun = *params.NextRunDate
	}
	var endDate, autoPay any
	if params.EndDate != nil {
		endDate = *params.EndDate
	}
	if params.AutoPay != nil {
		autoPay = *params.AutoPay
	}

	var reminderDays any
	if params.ReminderDays != nil {
		b, err := json.Marshal(params.ReminderDays)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal reminder days: %w", err)
		}
		reminderDays = b
	}

	query := `
		UPDATE recurring_transactions
		SET subscription_type = COALESCE($3::text, subscription_type),
		    category = COALESCE($4::text, category),
		    amount = COALESCE($5::double precision, amount),
		    note = COALESCE($6::text, note),
		    frequency = COALESCE($7::text, frequency),
		    next_run_date = COALESCE($8::timestamptz, next_run_date),
		    end_date = COALESCE($9::timestamptz, end_date),
		    auto_pay = COALESCE($10::boolean, auto_pay),
		    reminder_days = COALESCE($11::jsonb, reminder_days),
		    updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + recurringColumns

	rt, err := scanRecurring(r.db.QueryRowContext(ctx, query, id, userID, subType, category, amount, note, frequency, nextRun, endDate, autoPay, reminderDays))
	if err == sql.ErrNoRows {
		return nil, recurring.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update recurring transaction: %w", err)
	}
	return rt, nil
}

func (r *RecurringRepository) SetActive(ctx context.Context, id, userID string, active bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE recurring_transactions SET is_active = $3, updated_at = NOW() WHERE id = $1 AND user_id = $2`,
		id, userID, active,
	)
	if err != nil {
		return fmt.Errorf("failed to set recurring transaction active: %w", err)
	}
	return requireRowAffected(result, recurring.ErrNotFound)
}

// MarkPaid stores the payment and advances the due date. The reminder
// marker is cleared so the next cycle reminds from scratch.
func (r *RecurringRepository) MarkPaid(ctx context.Context, id string, lastPaid, nextRun time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE recurring_transactions
		SET last_paid_date = $2, next_run_date = $3, last_reminder_sent = NULL, updated_at = NOW()
		WHERE id = $1`,
		id, lastPaid, nextRun,
	)
	if err != nil {
		return fmt.Errorf("failed to mark recurring transaction paid: %w", err)
	}
	return requireRowAffected(result, recurring.ErrNotFound)
}

func (r *RecurringRepository) SetLastReminderSent(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE recurring_transactions SET last_reminder_sent = $2 WHERE id = $1`,
		id, at,
	)
	if err != nil {
		return fmt.Errorf("failed to set last reminder sent: %w", err)
	}
	return requireRowAffected(result, recurring.ErrNotFound)
}

func (r *RecurringRepository) Delete(ctx context.Context, id, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM recurring_transactions WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete recurring transaction: %w", err)
	}
	return requireRowAffected(result, recurring.ErrNotFound)
}

// requireRowAffected maps a zero-row update or delete to notFound.
func requireRowAffected(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}
