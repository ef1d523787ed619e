package notification

import (
	"errors"
	"time"
)

// Broadcast segment types
const (
	SegmentInactive  = "inactive"
	SegmentPremium   = "premium"
	SegmentChurnRisk = "churn_risk"
)

// Churn-risk window bounds, in days of inactivity.
const (
	churnRecentDays = 30
	churnWindowDays = 90
)

// Segment selects broadcast recipients by behavior instead of an
// explicit user list.
type Segment struct {
	Type string `json:"type"`
	// Days applies to the inactive segment only; zero means 7.
	Days int `json:"days,omitempty"`
}

func (s *Segment) Validate() error {
	switch s.Type {
	case SegmentInactive, SegmentPremium, SegmentChurnRisk:
		return nil
	default:
		return errors.New("segment type must be 'inactive', 'premium' or 'churn_risk'")
	}
}

// Broadcast is a scheduled push notification to a set of users. Targets
// are either an explicit user list, a segment, or (when both are empty)
// everyone with an active device token.
type Broadcast struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Category  string            `json:"category"`
	Data      map[string]string `json:"data,omitempty"`
	UserIDs   []string          `json:"userIds,omitempty"`
	Segment   *Segment          `json:"segment,omitempty"`
	SendAt    time.Time         `json:"sendAt"`
	Sent      bool              `json:"sent"`
	SentAt    *time.Time        `json:"sentAt,omitempty"`
	CreatedBy string            `json:"createdBy"`
	CreatedAt time.Time         `json:"createdAt"`
}

type CreateBroadcastParams struct {
	Title     string
	Message   string
	Category  string
	Data      map[string]string
	UserIDs   []string
	Segment   *Segment
	SendAt    time.Time
	CreatedBy string
}

func (p *CreateBroadcastParams) Validate() error {
	if p.Title == "" {
		return errors.New("broadcast title is required")
	}
	if p.Message == "" {
		return errors.New("broadcast message is required")
	}
	if p.Category == "" {
		p.Category = CategoryGeneral
	}
	if !IsValidCategory(p.Category) {
		return ErrInvalidCategory
	}
	if p.SendAt.IsZero() {
		p.SendAt = time.Now()
	}
	if p.Segment != nil {
		if err := p.Segment.Validate(); err != nil {
			return err
		}
	}
	return nil
}
