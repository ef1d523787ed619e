package transaction

import (
	"context"
	"time"

	"hishab/internal/domain/group"
)

// LedgerSource adapts the transaction repository to the group domain's
// TransactionSource interface: it feeds stored group expenses into the
// ledger fold and records settlements as ordinary expense rows.
type LedgerSource struct {
	repo Repository
}

func NewLedgerSource(repo Repository) *LedgerSource {
	return &LedgerSource{repo: repo}
}

func (s *LedgerSource) ListExpenses(ctx context.Context, groupID string) ([]group.Expense, error) {
	txs, err := s.repo.ListGroupExpenses(ctx, groupID)
	if err != nil {
		return nil, err
	}

	expenses := make([]group.Expense, 0, len(txs))
	for _, tx := range txs {
		e := group.Expense{PayerID: tx.UserID}
		for _, split := range tx.Splits {
			e.Shares = append(e.Shares, group.Share{
				UserID: split.UserID,
				Amount: split.Amount,
			})
		}
		expenses = append(expenses, e)
	}
	return expenses, nil
}

// CreateSettlement stores the settlement as an expense whose two shares
// move the amount from payer to recipient. The payer's share is negative
// so the ledger fold credits them back what they hand over.
func (s *LedgerSource) CreateSettlement(ctx context.Context, params group.SettlementParams) (string, error) {
	from := params.FromUserID
	to := params.ToUserID

	tx, err := s.repo.Create(ctx, CreateTransactionParams{
		UserID:       from,
		Type:         TypeExpense,
		Amount:       params.Amount,
		Note:         "Settlement payment",
		Date:         time.Now(),
		GroupID:      &params.GroupID,
		SplitType:    SplitCustom,
		PaidBy:       &from,
		IsSettlement: true,
		SettledWith:  &to,
		Splits: []Split{
			{UserID: from, Amount: -params.Amount},
			{UserID: to, Amount: params.Amount},
		},
	})
	if err != nil {
		return "", err
	}
	return tx.ID, nil
}
