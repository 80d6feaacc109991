package embedding

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"resumematch/internal/adapter/retry"
	"resumematch/internal/domain"
	"resumematch/internal/logger"
	"resumematch/internal/port"
)

// Guarded retries transient embedding failures and reports exhausted
// budgets as domain.ErrOracleUnavailable.
type Guarded struct {
	inner    port.Embedder
	policy   retry.Policy
	provider string
	log      *zap.Logger
}

func NewGuarded(inner port.Embedder, policy retry.Policy, provider string, log *zap.Logger) *Guarded {
	return &Guarded{inner: inner, policy: policy, provider: provider, log: logger.OrNop(log)}
}

func (g *Guarded) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors, attempts, err := retry.Do(ctx, g.policy, func(ctx context.Context) ([][]float32, error) {
		return g.inner.Embed(ctx, texts)
	})
	fields := append(logger.OracleFields(g.provider, g.inner.ModelName()),
		zap.Int("inputs", len(texts)), zap.Int("attempts", attempts))
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, fmt.Errorf("embed %d texts: %w", len(texts), ctx.Err())
		}
		g.log.Warn("embedding failed", append(fields, zap.Error(err))...)
		return nil, fmt.Errorf("%w: embed %d texts: %v", domain.ErrOracleUnavailable, len(texts), err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", domain.ErrOracleUnavailable, len(vectors), len(texts))
	}
	g.log.Debug("embedded", fields...)
	return vectors, nil
}

func (g *Guarded) Dimension() int {
	return g.inner.Dimension()
}

func (g *Guarded) ModelName() string {
	return g.inner.ModelName()
}
