package group

import "math"

// settleEpsilon is the threshold below which a balance counts as settled.
// Split amounts are entered with two decimal places, so anything under a
// cent is rounding residue.
const settleEpsilon = 0.01

// Share is one participant's slice of a group expense.
type Share struct {
	UserID string  `json:"userId"`
	Amount float64 `json:"amount"`
}

// Expense is the portion of a group transaction the ledger is built from.
type Expense struct {
	PayerID string
	Shares  []Share
}

// Ledger holds each member's net position within a group: positive means
// the group owes them, negative means they owe the group. Members are
// remembered in order of first appearance so that derived output such as
// settlement suggestions is deterministic.
type Ledger struct {
	balances map[string]float64
	order    []string
}

func NewLedger() *Ledger {
	return &Ledger{balances: make(map[string]float64)}
}

// BuildLedger folds a list of expenses into a fresh ledger.
func BuildLedger(expenses []Expense) *Ledger {
	l := NewLedger()
	for _, e := range expenses {
		l.Apply(e)
	}
	return l
}

// Apply folds a single expense into the ledger. For every share that is
// not the payer's own, the payer is credited and the sharer debited. The
// payer's own share never moves money, but still registers the payer as
// a participant so they appear in the ledger with a zero balance.
func (l *Ledger) Apply(e Expense) {
	l.add(e.PayerID, 0)
	for _, s := range e.Shares {
		if s.UserID == e.PayerID {
			continue
		}
		l.add(e.PayerID, s.Amount)
		l.add(s.UserID, -s.Amount)
	}
}

func (l *Ledger) add(userID string, amount float64) {
	if _, seen := l.balances[userID]; !seen {
		l.order = append(l.order, userID)
	}
	l.balances[userID] += amount
}

// Balance returns a single member's net position.
func (l *Ledger) Balance(userID string) float64 {
	return l.balances[userID]
}

// Balances returns a copy of all net positions keyed by user ID.
func (l *Ledger) Balances() map[string]float64 {
	out := make(map[string]float64, len(l.balances))
	for id, b := range l.balances {
		out[id] = b
	}
	return out
}

// Settlement is a suggested transfer from a debtor to a creditor.
type Settlement struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
}

// SuggestSettlements pairs debtors against creditors greedily: the
// current debtor pays the current creditor as much as either side can
// absorb, and whichever side drops under the epsilon advances. Balances
// within epsilon of zero produce no transfer at all. The result clears
// every balance but is not guaranteed to use the minimum possible number
// of transfers.
func (l *Ledger) SuggestSettlements() []Settlement {
	type party struct {
		userID string
		amount float64
	}

	var debtors, creditors []party
	for _, id := range l.order {
		b := l.balances[id]
		switch {
		case b < -settleEpsilon:
			debtors = append(debtors, party{userID: id, amount: -b})
		case b > settleEpsilon:
			creditors = append(creditors, party{userID: id, amount: b})
		}
	}

	suggestions := []Settlement{}
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		debtor := &debtors[i]
		creditor := &creditors[j]
		amount := math.Min(debtor.amount, creditor.amount)

		suggestions = append(suggestions, Settlement{
			From:   debtor.userID,
			To:     creditor.userID,
			Amount: math.Round(amount*100) / 100,
		})

		debtor.amount -= amount
		creditor.amount -= amount

		if debtor.amount < settleEpsilon {
			i++
		}
		if creditor.amount < settleEpsilon {
			j++
		}
	}

	return suggestions
}
