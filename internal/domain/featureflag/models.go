package featureflag

import (
	"errors"
	"strings"
	"time"
)

// Domain errors
var (
	ErrNotFound   = errors.New("feature flag not found")
	ErrInvalidKey = errors.New("feature flag key is required")
)

type FeatureFlag struct {
	ID                string    `json:"id"`
	Key               string    `json:"key"`
	Description       string    `json:"description"`
	Enabled           bool      `json:"enabled"`
	RolloutPercentage int       `json:"rolloutPercentage"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// UpsertFlagParams creates or updates a flag by key. Nil fields keep the
// stored value; rollout is clamped to [0, 100].
type UpsertFlagParams struct {
	Key               string
	Description       *string
	Enabled           *bool
	RolloutPercentage *int
}

func (p *UpsertFlagParams) Validate() error {
	p.Key = strings.TrimSpace(p.Key)
	if p.Key == "" {
		return ErrInvalidKey
	}
	if p.RolloutPercentage != nil {
		if *p.RolloutPercentage < 0 {
			*p.RolloutPercentage = 0
		}
		if *p.RolloutPercentage > 100 {
			*p.RolloutPercentage = 100
		}
	}
	return nil
}
