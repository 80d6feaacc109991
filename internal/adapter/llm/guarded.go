package llm

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"resumematch/internal/adapter/retry"
	"resumematch/internal/domain"
	"resumematch/internal/logger"
	"resumematch/internal/port"
)

const maxLogLen = 200

// Guarded throttles calls to an oracle, retries transient failures, and
// reports any call it gives up on as domain.ErrOracleUnavailable. A call
// cancelled by the caller returns context.Canceled instead.
type Guarded struct {
	inner    port.Oracle
	policy   retry.Policy
	limiter  *rate.Limiter
	provider string
	log      *zap.Logger
}

// NewGuarded wraps inner. A non-positive rps disables throttling.
func NewGuarded(inner port.Oracle, policy retry.Policy, rps float64, burst int, provider string, log *zap.Logger) *Guarded {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if rps > 0 {
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return &Guarded{
		inner:    inner,
		policy:   policy,
		limiter:  limiter,
		provider: provider,
		log:      logger.OrNop(log),
	}
}

func (g *Guarded) Infer(ctx context.Context, prompt string) (string, error) {
	fields := logger.OracleFields(g.provider, g.inner.ModelName())

	out, attempts, err := retry.Do(ctx, g.policy, func(ctx context.Context) (string, error) {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", err
		}
		return g.inner.Infer(ctx, prompt)
	})
	fields = append(fields, zap.Int("attempts", attempts))
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return "", fmt.Errorf("oracle call: %w", ctx.Err())
		}
		g.log.Warn("oracle call failed", append(fields, zap.Error(err))...)
		return "", fmt.Errorf("%w: %v", domain.ErrOracleUnavailable, err)
	}

	g.log.Debug("oracle response",
		append(fields,
			zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
			zap.Int("response_length", utf8.RuneCountInString(out)),
			zap.String("response_preview", logger.TruncateForLog(out, maxLogLen)),
		)...,
	)
	return out, nil
}

func (g *Guarded) ModelName() string {
	return g.inner.ModelName()
}
