package featureflag

import "context"

// Repository defines the interface for feature flag data access.
// Defined in the domain layer, implemented in the infrastructure layer.
type Repository interface {
	GetByKey(ctx context.Context, key string) (*FeatureFlag, error)
	List(ctx context.Context) ([]*FeatureFlag, error)
	Upsert(ctx context.Context, params UpsertFlagParams) (*FeatureFlag, error)
	Delete(ctx context.Context, key string) error
}
