package transaction

import (
	"errors"
	"math"
	"time"
)

// Transaction types
const (
	TypeExpense = "expense"
	TypeIncome  = "income"
)

// Split types
const (
	SplitEqual      = "equal"
	SplitCustom     = "custom"
	SplitPercentage = "percentage"
)

// splitTolerance is how far split amounts may drift from the transaction
// amount before the split is rejected. Covers per-share rounding to cents.
const splitTolerance = 0.01

var validTypes = map[string]struct{}{
	TypeExpense: {},
	TypeIncome:  {},
}

var validSplitTypes = map[string]struct{}{
	SplitEqual:      {},
	SplitCustom:     {},
	SplitPercentage: {},
}

// Domain errors
var (
	ErrNotFound          = errors.New("transaction not found")
	ErrInvalidType       = errors.New("transaction type must be 'expense' or 'income'")
	ErrInvalidAmount     = errors.New("transaction amount must be positive")
	ErrInvalidSplitType  = errors.New("split type must be 'equal', 'custom' or 'percentage'")
	ErrSplitMismatch     = errors.New("split amounts must add up to the transaction amount")
	ErrSplitWithoutGroup = errors.New("split expenses require a group")
)

// Split is one participant's portion of a shared expense. Settlement
// transactions carry a negative amount for the paying side.
type Split struct {
	UserID string  `json:"userId"`
	Amount float64 `json:"amount"`
}

type Transaction struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Type         string    `json:"type"`
	Amount       float64   `json:"amount"`
	Currency     string    `json:"currency"`
	Category     string    `json:"category"`
	Note         string    `json:"note,omitempty"`
	Date         time.Time `json:"date"`
	GroupID      *string   `json:"groupId,omitempty"`
	Splits       []Split   `json:"splitWith,omitempty"`
	SplitType    string    `json:"splitType"`
	PaidBy       *string   `json:"paidBy,omitempty"`
	IsSettlement bool      `json:"isSettlement"`
	SettledWith  *string   `json:"settledWith,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type CreateTransactionParams struct {
	UserID       string
	Type         string
	Amount       float64
	Currency     string
	Category     string
	Note         string
	Date         time.Time
	GroupID      *string
	Splits       []Split
	SplitType    string
	PaidBy       *string
	IsSettlement bool
	SettledWith  *string
	Tags         []string
}

func (p *CreateTransactionParams) Validate() error {
	if p.UserID == "" {
		return errors.New("user ID is required")
	}
	if _, ok := validTypes[p.Type]; !ok {
		return ErrInvalidType
	}
	if p.Amount <= 0 {
		return ErrInvalidAmount
	}
	if p.Currency == "" {
		p.Currency = "BDT"
	}
	if p.Category == "" {
		p.Category = InferCategory(p.Note)
	}
	if p.Date.IsZero() {
		p.Date = time.Now()
	}
	if p.SplitType == "" {
		p.SplitType = SplitEqual
	}
	if _, ok := validSplitTypes[p.SplitType]; !ok {
		return ErrInvalidSplitType
	}
	if len(p.Splits) > 0 {
		if p.GroupID == nil {
			return ErrSplitWithoutGroup
		}
		// Settlement splits deliberately sum to zero, not to the amount,
		// and income splits carry shares of whatever came in.
		if p.Type == TypeExpense && !p.IsSettlement {
			sum := 0.0
			for _, s := range p.Splits {
				sum += s.Amount
			}
			if math.Abs(sum-p.Amount) > splitTolerance {
				return ErrSplitMismatch
			}
		}
	}
	return nil
}

type UpdateTransactionParams struct {
	Type     *string
	Amount   *float64
	Category *string
	Note     *string
	Date     *time.Time
	Tags     []string
}

func (p UpdateTransactionParams) Validate() error {
	if p.Type != nil {
		if _, ok := validTypes[*p.Type]; !ok {
			return ErrInvalidType
		}
	}
	if p.Amount != nil && *p.Amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// ListFilter narrows List results. Zero values mean "no constraint".
type ListFilter struct {
	From     *time.Time
	To       *time.Time
	Type     string
	Category string
	GroupID  *string
	Limit    int
	Offset   int
}
