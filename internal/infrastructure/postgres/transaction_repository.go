package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"hishab/internal/domain/transaction"
)

type TransactionRepository struct {
	db *DB
}

func NewTransactionRepository(db *DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `id, user_id, type, amount, currency, category, note, date, group_id, splits, split_type, paid_by, is_settlement, settled_with, tags, created_at, updated_at`

func scanTransaction(row interface{ Scan(...any) error }) (*transaction.Transaction, error) {
	var t transaction.Transaction
	var groupID, paidBy, settledWith sql.NullString
	var splitsJSON []byte

	err := row.Scan(
		&t.ID, &t.UserID, &t.Type, &t.Amount, &t.Currency, &t.Category, &t.Note, &t.Date,
		&groupID, &splitsJSON, &t.SplitType, &paidBy, &t.IsSettlement, &settledWith,
		pq.Array(&t.Tags), &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if groupID.Valid {
		t.GroupID = &groupID.String
	}
	if paidBy.Valid {
		t.PaidBy = &paidBy.String
	}
	if settledWith.Valid {
		t.SettledWith = &settledWith.String
	}
	if len(splitsJSON) > 0 {
		if err := json.Unmarshal(splitsJSON, &t.Splits); err != nil {
			return nil, fmt.Errorf("failed to unmarshal splits: %w", err)
		}
	}

	return &t, nil
}

func (r *TransactionRepository) Create(ctx context.Context, params transaction.CreateTransactionParams) (*transaction.Transaction, error) {
	splitsJSON, err := json.Marshal(params.Splits)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal splits: %w", err)
	}

	tags := params.Tags
	if tags == nil {
		tags = []string{}
	}

	query := `
		INSERT INTO transactions (id, user_id, type, amount, currency, category, note, date, group_id, splits, split_type, paid_by, is_settlement, settled_with, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING ` + transactionColumns

	t, err := scanTransaction(r.db.QueryRowContext(ctx, query,
		uuid.New().String(), params.UserID, params.Type, params.Amount, params.Currency, params.Category,
		params.Note, params.Date, params.GroupID, splitsJSON, params.SplitType,
		params.PaidBy, params.IsSettlement, params.SettledWith, pq.Array(tags),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return t, nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id, userID string) (*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1 AND user_id = $2`

	t, err := scanTransaction(r.db.QueryRowContext(ctx, query, id, userID))
	if err == sql.ErrNoRows {
		return nil, transaction.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

func (r *TransactionRepository) List(ctx context.Context, userID string, filter transaction.ListFilter) ([]*transaction.Transaction, int, error) {
	where := "user_id = $1"
	args := []any{userID}

	addCond := func(cond string, value any) {
		args = append(args, value)
		where += " AND " + cond + "$" + strconv.Itoa(len(args))
	}

	if filter.From != nil {
		addCond("date >= ", *filter.From)
	}
	if filter.To != nil {
		addCond("date < ", *filter.To)
	}
	if filter.Type != "" {
		addCond("type = ", filter.Type)
	}
	if filter.Category != "" {
		addCond("category = ", filter.Category)
	}
	if filter.GroupID != nil {
		addCond("group_id = ", *filter.GroupID)
	}

	var total int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE `+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(
		`SELECT %s FROM transactions WHERE %s ORDER BY date DESC, created_at DESC LIMIT $%d OFFSET $%d`,
		transactionColumns, where, len(args)-1, len(args),
	)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*transaction.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}

	return transactions, total, rows.Err()
}

func (r *TransactionRepository) ListByGroup(ctx context.Context, groupID string) ([]*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE group_id = $1 ORDER BY date DESC, created_at DESC`
	return r.list(ctx, query, groupID)
}

// ListGroupExpenses returns the expense rows the group ledger folds over,
// settlements included, oldest first.
func (r *TransactionRepository) ListGroupExpenses(ctx context.Context, groupID string) ([]*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE group_id = $1 AND type = 'expense' ORDER BY date, created_at`
	return r.list(ctx, query, groupID)
}

func (r *TransactionRepository) list(ctx context.Context, query string, args ...any) ([]*transaction.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*transaction.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}

	return transactions, rows.Err()
}

func (r *TransactionRepository) Update(ctx context.Context, id, userID string, params transaction.UpdateTransactionParams) (*transaction.Transaction, error) {
	var txType, amount, category, note, date any
	if params.Type != nil {
		txType = *params.Type
	}
	if params.Amount != nil {
		amount = *params.Amount
	}
	if params.Category != nil {
		category = *params.Category
	}
	if params.Note != nil {
		note = *params.Note
	}
	if params.Date != nil {
		date = *params.Date
	}

	query := `
		UPDATE transactions
		SET type = COALESCE($3::text, type),
		    amount = COALESCE($4::double precision, amount),
		    category = COALESCE($5::text, category),
		    note = COALESCE($6::text, note),
		    date = COALESCE($7::timestamptz, date),
		    tags = COALESCE($8::text[], tags),
		    updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + transactionColumns

	var tags any
	if params.Tags != nil {
		tags = pq.Array(params.Tags)
	}

	t, err := scanTransaction(r.db.QueryRowContext(ctx, query, id, userID, txType, amount, category, note, date, tags))
	if err == sql.ErrNoRows {
		return nil, transaction.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}
	return t, nil
}

func (r *TransactionRepository) Delete(ctx context.Context, id, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return transaction.ErrNotFound
	}
	return nil
}

// ActiveUserIDs returns distinct users with a transaction dated in
// [since, until). Feeds broadcast segmentation.
func (r *TransactionRepository) ActiveUserIDs(ctx context.Context, since, until time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT user_id FROM transactions WHERE date >= $1 AND date < $2`,
		since, until,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list active user IDs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user ID: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
