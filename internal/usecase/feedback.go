package usecase

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"resumematch/internal/domain"
)

// AddFeedback appends a verdict to a profile's history. Unknown ids return
// domain.ErrNotFound.
func (e *Engine) AddFeedback(ctx context.Context, id string, positive bool, comment string) error {
	if err := e.ledger.AppendFeedback(ctx, id, positive, strings.TrimSpace(comment)); err != nil {
		return storageErr("append feedback", err)
	}
	e.log.Info("feedback recorded", zap.String("profile_id", id), zap.Bool("positive", positive))
	return nil
}

func (e *Engine) FeedbackStats(ctx context.Context) (domain.FeedbackStats, error) {
	stats, err := e.ledger.AggregateFeedback(ctx)
	if err != nil {
		return domain.FeedbackStats{}, storageErr("aggregate feedback", err)
	}
	return stats, nil
}
