package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"resumematch/internal/adapter/ranker"
	"resumematch/internal/domain"
)

// MetaSource records the file a profile was ingested from.
const MetaSource = "source"

type IngestRequest struct {
	// ID defaults to a random UUID.
	ID       string
	Text     string
	Summary  string
	Metadata domain.Metadata
	// SkipClassify ingests text the classifier would reject.
	SkipClassify bool
}

type IngestResult struct {
	ID      string
	Chunks  int
	Verdict domain.Verdict
}

// AddResume classifies, summarizes, chunks and embeds text, then writes the
// ledger entry followed by the index chunks. Re-running it for the same id
// converges to the same state. If the ledger write lands but indexing fails
// the error is a storage failure and the call should be retried.
func (e *Engine) AddResume(ctx context.Context, req IngestRequest) (IngestResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return IngestResult{}, fmt.Errorf("%w: resume text is empty", domain.ErrValidation)
	}
	for name, v := range map[string]string{"id": req.ID, "text": req.Text, "summary": req.Summary} {
		if !utf8.ValidString(v) {
			return IngestResult{}, fmt.Errorf("%w: resume %s is not valid UTF-8", domain.ErrValidation, name)
		}
	}
	if err := req.Metadata.Validate(); err != nil {
		return IngestResult{}, err
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.NewString()
	}
	result := IngestResult{ID: id}

	result.Verdict = e.classifier.Classify(req.Text)
	if !result.Verdict.Admissible && !req.SkipClassify {
		return result, fmt.Errorf("%w: %s", domain.ErrNotAdmissible, result.Verdict.Rationale)
	}

	summary := strings.TrimSpace(req.Summary)
	if summary == "" {
		s, err := e.summarize(ctx, req.Text)
		if err != nil {
			return result, err
		}
		summary = s
	}

	chunks := e.chunker.Chunk(id, req.Text, req.Metadata)
	if len(chunks) == 0 {
		return result, fmt.Errorf("%w: text produced no chunks", domain.ErrValidation)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := e.embedder.Embed(ctx, texts)
	if err != nil {
		return result, oracleErr("embed chunks", err)
	}
	if len(vectors) != len(chunks) {
		return result, fmt.Errorf("%w: embedder returned %d vectors for %d chunks", domain.ErrOracleUnavailable, len(vectors), len(chunks))
	}
	for i := range chunks {
		chunks[i].Vector = vectors[i]
	}

	unlock := e.locks.Lock(id)
	defer unlock()

	if err := e.ledger.Put(ctx, id, summary, req.Metadata); err != nil {
		return result, storageErr("write profile", err)
	}
	if e.cache != nil {
		e.cache.InvalidateProfile(id)
	}

	if err := e.index.Upsert(ctx, chunks); err != nil {
		e.log.Warn("profile written but indexing failed", zap.String("profile_id", id), zap.Error(err))
		return result, storageErr("ledger written, index failed; retry", err)
	}
	if err := e.index.Prune(ctx, id, len(chunks)); err != nil {
		e.log.Warn("stale chunks left after re-ingest", zap.String("profile_id", id), zap.Error(err))
		return result, storageErr("ledger written, index prune failed; retry", err)
	}

	result.Chunks = len(chunks)
	e.log.Info("profile ingested",
		zap.String("profile_id", id),
		zap.Int("chunks", len(chunks)),
		zap.Int("classifier_score", result.Verdict.Score),
	)
	return result, nil
}

func (e *Engine) summarize(ctx context.Context, text string) (string, error) {
	if e.summarizer == nil {
		return ranker.Truncate(text, e.opts.FallbackChars), nil
	}
	summary, err := e.summarizer.Summarize(ctx, text)
	if err != nil {
		return "", oracleErr("summarize", err)
	}
	if strings.TrimSpace(summary) == "" {
		return ranker.Truncate(text, e.opts.FallbackChars), nil
	}
	return summary, nil
}

// ProfileIDForPath derives a stable profile id from a file path.
func ProfileIDForPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	hash := sha256.Sum256([]byte(path))
	return hex.EncodeToString(hash[:8])
}

// IngestFile extracts text from path and ingests it. Without an explicit id
// the profile id is derived from the path, so re-ingesting a file replaces
// its profile.
func (e *Engine) IngestFile(ctx context.Context, path string, req IngestRequest) (IngestResult, error) {
	if e.extractor == nil {
		return IngestResult{}, errors.New("engine has no text extractor")
	}
	text, err := e.extractor.Extract(path)
	if err != nil {
		return IngestResult{}, fmt.Errorf("extract %s: %w", path, err)
	}

	req.Text = text
	if strings.TrimSpace(req.ID) == "" {
		req.ID = ProfileIDForPath(path)
	}
	if _, ok := req.Metadata[MetaSource]; !ok {
		req.Metadata = req.Metadata.Clone()
		req.Metadata[MetaSource] = filepath.Base(path)
	}
	return e.AddResume(ctx, req)
}

// DeleteProfile removes a profile's chunks and then its ledger entry.
func (e *Engine) DeleteProfile(ctx context.Context, id string) error {
	unlock := e.locks.Lock(id)
	defer unlock()

	if _, err := e.ledger.Get(ctx, id); err != nil {
		return storageErr("get profile", err)
	}
	if err := e.index.DeleteProfile(ctx, id); err != nil {
		return storageErr("delete chunks", err)
	}
	if err := e.ledger.Delete(ctx, id); err != nil {
		return storageErr("delete profile", err)
	}
	if e.cache != nil {
		e.cache.InvalidateProfile(id)
	}
	e.log.Info("profile deleted", zap.String("profile_id", id))
	return nil
}

// Profile returns domain.ErrNotFound for an unknown id.
func (e *Engine) Profile(ctx context.Context, id string) (domain.Profile, error) {
	p, err := e.ledger.Get(ctx, id)
	if err != nil {
		return domain.Profile{}, storageErr("get profile", err)
	}
	return p, nil
}

func (e *Engine) Profiles(ctx context.Context) ([]domain.Profile, error) {
	profiles, err := e.ledger.List(ctx)
	if err != nil {
		return nil, storageErr("list profiles", err)
	}
	return profiles, nil
}

func (e *Engine) Classify(text string) domain.Verdict {
	return e.classifier.Classify(text)
}
