// Package usecase implements the engine behind every CLI command.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"resumematch/internal/adapter/cache"
	"resumematch/internal/domain"
	"resumematch/internal/logger"
	"resumematch/internal/port"
)

// Deps are the collaborators an Engine is built from. Oracle, KeyTerms,
// Summarizer, Extractor and Cache are optional.
type Deps struct {
	Ledger     port.Ledger
	Index      port.VectorIndex
	Embedder   port.Embedder
	Chunker    port.Chunker
	Classifier port.Classifier

	Oracle     port.Oracle
	KeyTerms   port.KeyTermExtractor
	Summarizer port.Summarizer
	Extractor  port.Extractor
	Cache      *cache.ScoreCache
}

// Options tune recall and scoring.
type Options struct {
	// RecallWidth is the minimum number of index hits fetched before
	// scoring. The effective width is max(RecallWidth, topN).
	RecallWidth int
	// Concurrency caps in-flight scoring calls.
	Concurrency int
	// SearchOverfetch multiplies n for plain search so deduplication
	// by profile still leaves n candidates.
	SearchOverfetch int
	// KeyTerms enables key-term extraction before scoring.
	KeyTerms bool
	// FallbackChars bounds the summary taken from the text itself when no
	// summarizer is configured.
	FallbackChars int
}

func DefaultOptions() Options {
	return Options{
		RecallWidth:     10,
		Concurrency:     4,
		SearchOverfetch: 3,
		KeyTerms:        true,
		FallbackChars:   1000,
	}
}

// Engine is constructed once per process and shared by every command.
type Engine struct {
	ledger     port.Ledger
	index      port.VectorIndex
	embedder   port.Embedder
	chunker    port.Chunker
	classifier port.Classifier

	oracle     port.Oracle
	keyTerms   port.KeyTermExtractor
	summarizer port.Summarizer
	extractor  port.Extractor
	cache      *cache.ScoreCache

	opts  Options
	log   *zap.Logger
	locks keyedMutex
}

func NewEngine(deps Deps, opts Options, log *zap.Logger) (*Engine, error) {
	switch {
	case deps.Ledger == nil:
		return nil, errors.New("engine requires a ledger")
	case deps.Index == nil:
		return nil, errors.New("engine requires a vector index")
	case deps.Embedder == nil:
		return nil, errors.New("engine requires an embedder")
	case deps.Chunker == nil:
		return nil, errors.New("engine requires a chunker")
	case deps.Classifier == nil:
		return nil, errors.New("engine requires a classifier")
	}

	defaults := DefaultOptions()
	if opts.RecallWidth <= 0 {
		opts.RecallWidth = defaults.RecallWidth
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaults.Concurrency
	}
	if opts.SearchOverfetch <= 0 {
		opts.SearchOverfetch = defaults.SearchOverfetch
	}
	if opts.FallbackChars <= 0 {
		opts.FallbackChars = defaults.FallbackChars
	}

	return &Engine{
		ledger:     deps.Ledger,
		index:      deps.Index,
		embedder:   deps.Embedder,
		chunker:    deps.Chunker,
		classifier: deps.Classifier,
		oracle:     deps.Oracle,
		keyTerms:   deps.KeyTerms,
		summarizer: deps.Summarizer,
		extractor:  deps.Extractor,
		cache:      deps.Cache,
		opts:       opts,
		log:        logger.OrNop(log),
	}, nil
}

// Stats is a snapshot of what the engine holds.
type Stats struct {
	Profiles int
	Chunks   int
}

func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	profiles, err := e.ledger.List(ctx)
	if err != nil {
		return Stats{}, storageErr("list profiles", err)
	}
	chunks, err := e.index.Count()
	if err != nil {
		return Stats{}, storageErr("count chunks", err)
	}
	return Stats{Profiles: len(profiles), Chunks: chunks}, nil
}

// storageErr tags err as a storage failure unless it already carries a
// more specific kind.
func storageErr(op string, err error) error {
	for _, kind := range []error{domain.ErrStorage, domain.ErrNotFound, domain.ErrValidation, context.Canceled, context.DeadlineExceeded} {
		if errors.Is(err, kind) {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrStorage, op, err)
}

// oracleErr tags err as an oracle outage unless it already is one or the
// caller cancelled.
func oracleErr(op string, err error) error {
	if errors.Is(err, domain.ErrOracleUnavailable) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrOracleUnavailable, op, err)
}

// keyedMutex serializes ingestion and deletion per profile id.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
