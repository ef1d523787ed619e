package featureflag

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
)

// Service contains the business logic for feature flag evaluation and
// administration.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// IsEnabled evaluates a flag for a user. The rules apply in order:
// a missing flag is off, a disabled flag is off, a rollout of 100 or
// more is on for everyone, and anything in between buckets the user
// deterministically. Partial rollouts without a user ID are off.
func (s *Service) IsEnabled(ctx context.Context, key, userID string) (bool, error) {
	flag, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if !flag.Enabled {
		return false, nil
	}
	if flag.RolloutPercentage >= 100 {
		return true, nil
	}
	if userID == "" {
		return false, nil
	}

	return Bucket(userID, key) < flag.RolloutPercentage, nil
}

// Bucket maps a user/flag pair onto [0, 100). The same pair always lands
// in the same bucket, so a user's rollout membership is stable across
// evaluations and only grows as the percentage is raised.
func Bucket(userID, key string) int {
	h := sha256.Sum256([]byte(userID + ":" + key))
	return int(binary.BigEndian.Uint32(h[:4]) % 100)
}

func (s *Service) Get(ctx context.Context, key string) (*FeatureFlag, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}
	return s.repo.GetByKey(ctx, key)
}

func (s *Service) List(ctx context.Context) ([]*FeatureFlag, error) {
	return s.repo.List(ctx)
}

func (s *Service) Upsert(ctx context.Context, params UpsertFlagParams) (*FeatureFlag, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Upsert(ctx, params)
}

func (s *Service) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	return s.repo.Delete(ctx, key)
}
