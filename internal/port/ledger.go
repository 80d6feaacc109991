package port

import (
	"context"

	"resumematch/internal/domain"
)

// Ledger is the durable record of profiles and their feedback history.
// Every mutating call is persisted before it returns.
type Ledger interface {
	// Put creates or replaces a profile, keeping any feedback already recorded.
	Put(ctx context.Context, id, summary string, metadata domain.Metadata) error

	// Get returns domain.ErrNotFound when id is unknown.
	Get(ctx context.Context, id string) (domain.Profile, error)

	List(ctx context.Context) ([]domain.Profile, error)

	Delete(ctx context.Context, id string) error

	// AppendFeedback returns domain.ErrNotFound when id is unknown.
	AppendFeedback(ctx context.Context, id string, positive bool, comment string) error

	AggregateFeedback(ctx context.Context) (domain.FeedbackStats, error)

	Close() error
}
