package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"hishab/internal/domain/featureflag"
)

type FeatureFlagRepository struct {
	db *DB
}

func NewFeatureFlagRepository(db *DB) *FeatureFlagRepository {
	return &FeatureFlagRepository{db: db}
}

const flagColumns = `id, key, description, enabled, rollout_percentage, created_at, updated_at`

func scanFlag(row interface{ Scan(...any) error }) (*featureflag.FeatureFlag, error) {
	var f featureflag.FeatureFlag
	err := row.Scan(&f.ID, &f.Key, &f.Description, &f.Enabled, &f.RolloutPercentage, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *FeatureFlagRepository) GetByKey(ctx context.Context, key string) (*featureflag.FeatureFlag, error) {
	query := `SELECT ` + flagColumns + ` FROM feature_flags WHERE key = $1`

	f, err := scanFlag(r.db.QueryRowContext(ctx, query, key))
	if err == sql.ErrNoRows {
		return nil, featureflag.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feature flag: %w", err)
	}
	return f, nil
}

func (r *FeatureFlagRepository) List(ctx context.Context) ([]*featureflag.FeatureFlag, error) {
	query := `SELECT ` + flagColumns + ` FROM feature_flags ORDER BY key`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list feature flags: %w", err)
	}
	defer rows.Close()

	var flags []*featureflag.FeatureFlag
	for rows.Next() {
		f, err := scanFlag(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feature flag: %w", err)
		}
		flags = append(flags, f)
	}

	return flags, rows.Err()
}

func (r *FeatureFlagRepository) Upsert(ctx context.Context, params featureflag.UpsertFlagParams) (*featureflag.FeatureFlag, error) {
	var description, enabled, rollout any
	if params.Description != nil {
		description = *params.Description
	}
	if params.Enabled != nil {
		enabled = *params.Enabled
	}
	if params.RolloutPercentage != nil {
		rollout = *params.RolloutPercentage
	}

	query := `
		INSERT INTO feature_flags (key, description, enabled, rollout_percentage)
		VALUES (
			$1,
			COALESCE($2::text, ''),
			COALESCE($3::boolean, false),
			COALESCE($4::integer, 100)
		)
		ON CONFLICT (key) DO UPDATE
			SET description = COALESCE($2::text, feature_flags.description),
			    enabled = COALESCE($3::boolean, feature_flags.enabled),
			    rollout_percentage = COALESCE($4::integer, feature_flags.rollout_percentage),
			    updated_at = NOW()
		RETURNING ` + flagColumns

	f, err := scanFlag(r.db.QueryRowContext(ctx, query, params.Key, description, enabled, rollout))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert feature flag: %w", err)
	}
	return f, nil
}

func (r *FeatureFlagRepository) Delete(ctx context.Context, key string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM feature_flags WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("failed to delete feature flag: %w", err)
	}
	return requireRowAffected(result, featureflag.ErrNotFound)
}
