package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"resumematch/internal/adapter/cache"
	"resumematch/internal/adapter/ranker"
	"resumematch/internal/domain"
	"resumematch/internal/logger"
)

const maxLogLen = 200

// Search returns up to n profiles nearest to query, in index distance order.
// It never calls the scoring oracle.
func (e *Engine) Search(ctx context.Context, query string, n int) ([]domain.Profile, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrValidation)
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: n must be positive, got %d", domain.ErrValidation, n)
	}

	ids, err := e.recall(ctx, query, n*e.opts.SearchOverfetch)
	if err != nil {
		return nil, err
	}
	profiles, err := e.resolve(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(profiles) > n {
		profiles = profiles[:n]
	}
	return profiles, nil
}

// MatchRequest configures a single job match.
type MatchRequest struct {
	JobText string
	TopN    int
	// SkipKeyTerms disables key-term extraction for this call.
	SkipKeyTerms bool
}

// Match ranks stored profiles against jobText and returns at most topN.
func (e *Engine) Match(ctx context.Context, jobText string, topN int) ([]domain.MatchResult, error) {
	report, err := e.MatchReport(ctx, MatchRequest{JobText: jobText, TopN: topN})
	if err != nil {
		return nil, err
	}
	return report.Results, nil
}

// MatchReport recalls candidates from the index, drops those the ledger no
// longer knows, scores the rest with the oracle and keeps the best TopN.
// An unparseable score ranks the candidate at 0. An oracle that cannot be
// reached fails the whole call.
func (e *Engine) MatchReport(ctx context.Context, req MatchRequest) (domain.MatchReport, error) {
	if strings.TrimSpace(req.JobText) == "" {
		return domain.MatchReport{}, fmt.Errorf("%w: empty job description", domain.ErrValidation)
	}
	if req.TopN <= 0 {
		return domain.MatchReport{}, fmt.Errorf("%w: top_n must be positive, got %d", domain.ErrValidation, req.TopN)
	}
	if e.oracle == nil {
		return domain.MatchReport{}, fmt.Errorf("%w: no scoring oracle configured", domain.ErrOracleUnavailable)
	}

	width := max(e.opts.RecallWidth, req.TopN)
	ids, err := e.recall(ctx, req.JobText, width)
	if err != nil {
		return domain.MatchReport{}, err
	}
	profiles, err := e.resolve(ctx, ids)
	if err != nil {
		return domain.MatchReport{}, err
	}

	report := domain.MatchReport{Results: []domain.MatchResult{}}
	if len(profiles) == 0 {
		return report, nil
	}

	if e.opts.KeyTerms && !req.SkipKeyTerms {
		report.KeyTerms = e.KeyTerms(ctx, req.JobText)
	}

	results, err := e.scoreAll(ctx, profiles, req.JobText, report.KeyTerms)
	if err != nil {
		return domain.MatchReport{}, err
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > req.TopN {
		results = results[:req.TopN]
	}
	report.Results = results

	e.log.Info("job matched",
		zap.Int("recall_width", width),
		zap.Int("recalled", len(ids)),
		zap.Int("scored", len(profiles)),
		zap.Int("returned", len(results)),
	)
	return report, nil
}

// KeyTerms extracts weighting terms from a job description, or returns the
// sentinel when no extractor is configured or extraction fails.
func (e *Engine) KeyTerms(ctx context.Context, jobText string) []string {
	if e.keyTerms == nil {
		return []string{ranker.NoKeyTerms}
	}
	return e.keyTerms.Extract(ctx, jobText)
}

func (e *Engine) scoreAll(ctx context.Context, profiles []domain.Profile, jobText string, keyTerms []string) ([]domain.MatchResult, error) {
	results := make([]domain.MatchResult, len(profiles))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)
	for i, p := range profiles {
		g.Go(func() error {
			score, err := e.score(gctx, p, jobText, keyTerms)
			if err != nil {
				return err
			}
			results[i] = domain.MatchResult{
				ProfileID: p.ID,
				Summary:   p.Summary,
				Score:     score,
				Metadata:  p.Metadata,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *Engine) score(ctx context.Context, p domain.Profile, jobText string, keyTerms []string) (float64, error) {
	var key string
	if e.cache != nil {
		key = cache.Key(p.ID, p.Summary, jobText, keyTerms)
		if v, ok := e.cache.Get(key); ok {
			return v, nil
		}
	}

	raw, err := e.oracle.Infer(ctx, ranker.RelevancePrompt(p.Summary, jobText, keyTerms))
	if err != nil {
		return 0, oracleErr("score profile "+p.ID, err)
	}

	s := ranker.ParseScore(raw)
	if s.Kind == ranker.KindNumeric {
		if e.cache != nil {
			e.cache.Put(key, p.ID, s.Value)
		}
	} else {
		e.log.Warn("unparseable relevance score, ranking as 0",
			zap.String("profile_id", p.ID),
			zap.String("response_preview", logger.TruncateForLog(s.Raw, maxLogLen)),
		)
	}
	return s.Rank(), nil
}

// recall embeds text and returns distinct profile ids from the k nearest
// chunks, in first-hit order.
func (e *Engine) recall(ctx context.Context, text string, k int) ([]string, error) {
	vectors, err := e.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, oracleErr("embed query", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: embedder returned %d vectors for 1 query", domain.ErrOracleUnavailable, len(vectors))
	}

	hits, err := e.index.Query(ctx, vectors[0], k)
	if err != nil {
		return nil, storageErr("query index", err)
	}

	seen := make(map[string]struct{}, len(hits))
	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		if _, dup := seen[h.ProfileID]; dup {
			continue
		}
		seen[h.ProfileID] = struct{}{}
		ids = append(ids, h.ProfileID)
	}
	return ids, nil
}

// resolve looks ids up in the ledger, keeping order. Ids the ledger does not
// know are chunks left behind by an interrupted ingest or delete and are
// skipped.
func (e *Engine) resolve(ctx context.Context, ids []string) ([]domain.Profile, error) {
	profiles := make([]domain.Profile, 0, len(ids))
	for _, id := range ids {
		p, err := e.ledger.Get(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			e.log.Debug("index hit has no ledger entry", zap.String("profile_id", id))
			continue
		}
		if err != nil {
			return nil, storageErr("resolve profile "+id, err)
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}
