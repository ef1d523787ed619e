package recurring

import (
	"errors"
	"time"
)

// Frequencies
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
	FrequencyYearly  = "yearly"
)

// Subscription types
const (
	TypeBill         = "bill"
	TypeEMI          = "emi"
	TypeRent         = "rent"
	TypeSubscription = "subscription"
	TypeOther        = "other"
)

var validFrequencies = map[string]struct{}{
	FrequencyDaily:   {},
	FrequencyWeekly:  {},
	FrequencyMonthly: {},
	FrequencyYearly:  {},
}

var validSubscriptionTypes = map[string]struct{}{
	TypeBill:         {},
	TypeEMI:          {},
	TypeRent:         {},
	TypeSubscription: {},
	TypeOther:        {},
}

// Domain errors
var (
	ErrNotFound                = errors.New("recurring transaction not found")
	ErrInvalidFrequency        = errors.New("frequency must be 'daily', 'weekly', 'monthly' or 'yearly'")
	ErrInvalidSubscriptionType = errors.New("invalid subscription type")
	ErrInvalidAmount           = errors.New("amount must be positive")
)

// defaultReminderDays are the offsets (in days before the due date) at
// which reminders fire when the subscription does not configure its own.
var defaultReminderDays = []int{3, 1, 0}

type RecurringTransaction struct {
	ID               string     `json:"id"`
	UserID           string     `json:"userId"`
	Type             string     `json:"type"` // expense or income
	SubscriptionType string     `json:"subscriptionType"`
	Category         string     `json:"category"`
	Amount           float64    `json:"amount"`
	Currency         string     `json:"currency"`
	Note             string     `json:"note,omitempty"`
	Frequency        string     `json:"frequency"`
	NextRunDate      *time.Time `json:"nextRunDate,omitempty"`
	EndDate          *time.Time `json:"endDate,omitempty"`
	LastPaidDate     *time.Time `json:"lastPaidDate,omitempty"`
	AutoPay          bool       `json:"autoPay"`
	LastReminderSent *time.Time `json:"lastReminderSent,omitempty"`
	ReminderDays     []int      `json:"reminderDays"`
	IsActive         bool       `json:"isActive"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// EffectiveReminderDays returns the configured reminder offsets, or the
// default [3, 1, 0] when none are set.
func (r *RecurringTransaction) EffectiveReminderDays() []int {
	if len(r.ReminderDays) == 0 {
		return defaultReminderDays
	}
	return r.ReminderDays
}

type CreateParams struct {
	UserID           string
	Type             string
	SubscriptionType string
	Category         string
	Amount           float64
	Currency         string
	Note             string
	Frequency        string
	NextRunDate      *time.Time
	EndDate          *time.Time
	AutoPay          bool
	ReminderDays     []int
}

func (p *CreateParams) Validate() error {
	if p.UserID == "" {
		return errors.New("user ID is required")
	}
	if p.Type == "" {
		p.Type = "expense"
	}
	if p.Type != "expense" && p.Type != "income" {
		return errors.New("type must be 'expense' or 'income'")
	}
	if p.SubscriptionType == "" {
		p.SubscriptionType = TypeOther
	}
	if _, ok := validSubscriptionTypes[p.SubscriptionType]; !ok {
		return ErrInvalidSubscriptionType
	}
	if p.Amount <= 0 {
		return ErrInvalidAmount
	}
	if p.Currency == "" {
		p.Currency = "BDT"
	}
	if _, ok := validFrequencies[p.Frequency]; !ok {
		return ErrInvalidFrequency
	}
	// A subscription with no first due date would never surface in the
	// reminder sweep or the upcoming list, so it starts today.
	if p.NextRunDate == nil {
		now := time.Now()
		p.NextRunDate = &now
	}
	if p.EndDate != nil && p.EndDate.Before(*p.NextRunDate) {
		return errors.New("end date cannot be before the next due date")
	}
	for _, d := range p.ReminderDays {
		if d < 0 {
			return errors.New("reminder days cannot be negative")
		}
	}
	return nil
}

type UpdateParams struct {
	SubscriptionType *string
	Category         *string
	Amount           *float64
	Note             *string
	Frequency        *string
	NextRunDate      *time.Time
	EndDate          *time.Time
	AutoPay          *bool
	ReminderDays     []int
}

func (p UpdateParams) Validate() error {
	if p.SubscriptionType != nil {
		if _, ok := validSubscriptionTypes[*p.SubscriptionType]; !ok {
			return ErrInvalidSubscriptionType
		}
	}
	if p.Amount != nil && *p.Amount <= 0 {
		return ErrInvalidAmount
	}
	if p.Frequency != nil {
		if _, ok := validFrequencies[*p.Frequency]; !ok {
			return ErrInvalidFrequency
		}
	}
	return nil
}
