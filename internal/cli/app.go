package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"resumematch/config"
	"resumematch/internal/adapter/cache"
	"resumematch/internal/adapter/chunker"
	"resumematch/internal/adapter/classifier"
	"resumematch/internal/adapter/embedding"
	"resumematch/internal/adapter/fs"
	"resumematch/internal/adapter/llm"
	"resumematch/internal/adapter/memstore"
	"resumematch/internal/adapter/ranker"
	"resumematch/internal/adapter/retry"
	"resumematch/internal/adapter/sqlstore"
	"resumematch/internal/adapter/store"
	"resumematch/internal/domain"
	"resumematch/internal/port"
	"resumematch/internal/usecase"
)

// maxBackoff caps the exponential retry delay for model calls.
const maxBackoff = 30 * time.Second

// app is the engine plus the resources that must be released when a
// command returns.
type app struct {
	engine  *usecase.Engine
	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn("close failed", zap.Error(err))
		}
	}
}

// appOptions says which optional collaborators a command needs. Commands
// that never call the oracle can run without its credentials.
type appOptions struct {
	oracle bool
}

func openApp(ctx context.Context, opts appOptions) (*app, error) {
	a := &app{}
	fail := func(err error) (*app, error) {
		a.Close()
		return nil, err
	}

	embedder, err := newEmbedder(ctx, cfg.Embedding)
	if err != nil {
		return fail(fmt.Errorf("failed to create embedder: %w", err))
	}

	ledger, index, err := openStorage(a, embedder)
	if err != nil {
		return fail(err)
	}

	ch, err := chunker.NewCharChunker(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		return fail(err)
	}
	cls, err := newClassifier(cfg.Classifier)
	if err != nil {
		return fail(fmt.Errorf("failed to create classifier: %w", err))
	}

	var oracle port.Oracle
	if opts.oracle || cfg.Summary.UseOracle {
		oracle, err = newOracle(ctx, cfg.Oracle)
		if err != nil {
			return fail(fmt.Errorf("failed to create oracle: %w", err))
		}
	}

	deps := usecase.Deps{
		Ledger:     ledger,
		Index:      index,
		Embedder:   embedder,
		Chunker:    ch,
		Classifier: cls,
		Extractor:  fs.NewTextExtractor(),
	}
	if oracle != nil {
		deps.Oracle = oracle
		deps.KeyTerms = ranker.NewKeyTermWeighter(oracle, log)
	}
	var summaryOracle port.Oracle
	if cfg.Summary.UseOracle {
		summaryOracle = oracle
	}
	deps.Summarizer = ranker.NewSummarizer(summaryOracle, cfg.Summary.Words, cfg.Summary.FallbackChars, log)
	if cfg.Matching.CacheSize > 0 {
		deps.Cache = cache.NewScoreCache(cfg.Matching.CacheSize, cfg.Matching.CacheTTL)
	}

	a.engine, err = usecase.NewEngine(deps, usecase.Options{
		RecallWidth:     cfg.Matching.RecallWidth,
		Concurrency:     cfg.Matching.Concurrency,
		SearchOverfetch: cfg.Matching.SearchOverfetch,
		KeyTerms:        cfg.Matching.KeyTerms,
		FallbackChars:   cfg.Summary.FallbackChars,
	}, log)
	if err != nil {
		return fail(err)
	}
	return a, nil
}

// openStorage opens the ledger and vector index selected by the config.
func openStorage(a *app, embedder port.Embedder) (port.Ledger, port.VectorIndex, error) {
	if ephemeral {
		log.Debug("using in-memory storage")
		return memstore.NewLedger(), memstore.NewVectorIndex(embedder.Dimension()), nil
	}

	if err := config.EnsureDataDir(rootDir); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := store.Open(config.IndexDBPath(rootDir))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open index: %w", err)
	}
	a.closers = append(a.closers, db.Close)

	result, err := db.CheckMigration(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check schema: %w", err)
	}
	if result.NeedsReembed {
		return nil, nil, fmt.Errorf("%w: %s; run 'resumematch reindex'", domain.ErrStorage, result.Reason)
	}
	if result.NeedsMigration {
		log.Info("migrating index", zap.String("reason", result.Reason))
		if err := db.Migrate(cfg); err != nil {
			return nil, nil, fmt.Errorf("failed to migrate index: %w", err)
		}
	}

	index, err := store.NewVectorIndex(db, embedder.Dimension(), log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load vectors: %w", err)
	}

	switch cfg.Storage.Ledger {
	case "sqlite":
		ledger, err := sqlstore.Open(config.LedgerPath(rootDir))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open ledger: %w", err)
		}
		a.closers = append(a.closers, ledger.Close)
		return ledger, index, nil
	default:
		return store.NewLedger(db), index, nil
	}
}

func retryPolicy(timeout time.Duration) retry.Policy {
	return retry.Policy{
		MaxRetries: cfg.Oracle.MaxRetries,
		Backoff:    cfg.Oracle.Backoff,
		MaxBackoff: maxBackoff,
		Timeout:    timeout,
	}
}

// newEmbedder builds the configured embedder. Remote providers are wrapped
// with the retry policy; the hash embedder is local and never fails.
func newEmbedder(ctx context.Context, ec config.EmbeddingConfig) (port.Embedder, error) {
	var (
		inner port.Embedder
		err   error
	)
	switch ec.Provider {
	case "hash", "":
		dim := ec.Dimension
		if dim <= 0 {
			dim = 256
		}
		return embedding.NewHashEmbedder(dim), nil
	case "openai":
		var e *embedding.OpenAIEmbedder
		if ec.BaseURL != "" {
			e, err = embedding.NewOpenAICompatibleEmbedder(keyEnv(ec.APIKeyEnv, ec.Provider), ec.Model, ec.BaseURL)
		} else {
			e, err = embedding.NewOpenAIEmbedder(keyEnv(ec.APIKeyEnv, ec.Provider), ec.Model)
		}
		inner = tuneOpenAI(e, ec)
	case "jina":
		var e *embedding.OpenAIEmbedder
		e, err = embedding.NewJinaEmbedder(keyEnv(ec.APIKeyEnv, ec.Provider), ec.Model)
		inner = tuneOpenAI(e, ec)
	case "ollama":
		inner = tuneOpenAI(embedding.NewOllamaEmbedder(ec.Model, ec.BaseURL), ec)
	case "gemini":
		env := keyEnv(ec.APIKeyEnv, ec.Provider)
		key := os.Getenv(env)
		if key == "" {
			return nil, fmt.Errorf("environment variable %s is not set", env)
		}
		inner, err = embedding.NewGeminiEmbedder(ctx, key, ec.Model, ec.Dimension)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", ec.Provider)
	}
	if err != nil {
		return nil, err
	}
	return embedding.NewGuarded(inner, retryPolicy(ec.Timeout), ec.Provider, log), nil
}

func tuneOpenAI(e *embedding.OpenAIEmbedder, ec config.EmbeddingConfig) port.Embedder {
	if e == nil {
		return nil
	}
	if ec.Dimension > 0 {
		e = e.WithDimension(ec.Dimension)
	}
	if ec.BatchSize > 0 {
		e = e.WithBatchSize(ec.BatchSize)
	}
	if ec.Timeout > 0 {
		e = e.WithTimeout(ec.Timeout)
	}
	return e
}

// newOracle builds the configured language model behind rate limiting and
// retries. Provider "none" yields a nil oracle.
func newOracle(ctx context.Context, oc config.OracleConfig) (port.Oracle, error) {
	var inner port.Oracle
	switch oc.Provider {
	case "none", "":
		return nil, nil
	case "openai", "deepseek", "ollama":
		c, err := llm.NewChatClient(oc.Provider, oc.Model, oc.BaseURL, keyEnv(oc.APIKeyEnv, oc.Provider))
		if err != nil {
			return nil, err
		}
		inner = c.WithTemperature(oc.Temperature)
	case "gemini":
		env := keyEnv(oc.APIKeyEnv, oc.Provider)
		key := os.Getenv(env)
		if key == "" {
			return nil, fmt.Errorf("environment variable %s is not set", env)
		}
		g, err := llm.NewGeminiOracle(ctx, key, oc.Model, oc.Temperature)
		if err != nil {
			return nil, err
		}
		inner = g
	default:
		return nil, fmt.Errorf("unknown oracle provider: %s", oc.Provider)
	}
	return llm.NewGuarded(inner, retryPolicy(oc.Timeout), oc.RequestsPerSecond, oc.Burst, oc.Provider, log), nil
}

var defaultKeyEnv = map[string]string{
	"openai":   "OPENAI_API_KEY",
	"deepseek": "DEEPSEEK_API_KEY",
	"jina":     "JINA_API_KEY",
	"gemini":   "GEMINI_API_KEY",
}

// keyEnv returns the configured API key variable, or the provider's usual
// one when none is set.
func keyEnv(configured, provider string) string {
	if configured != "" {
		return configured
	}
	return defaultKeyEnv[provider]
}

// admitAll is used when the classifier is disabled in config.
type admitAll struct{}

func (admitAll) Classify(string) domain.Verdict {
	return domain.Verdict{Admissible: true, Confidence: 1, Rationale: "classifier disabled"}
}

func newClassifier(cc config.ClassifierConfig) (port.Classifier, error) {
	if !cc.Enabled {
		return admitAll{}, nil
	}
	policy := classifier.DefaultPolicy()
	if cc.MinChars > 0 {
		policy.MinChars = cc.MinChars
	}
	if cc.Threshold > 0 {
		policy.Threshold = cc.Threshold
	}
	return classifier.New(policy)
}

// exitCode maps error kinds to process exit codes.
func exitCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return 2
	case errors.Is(err, domain.ErrNotFound):
		return 3
	case errors.Is(err, domain.ErrNotAdmissible):
		return 4
	case errors.Is(err, domain.ErrOracleUnavailable):
		return 5
	case errors.Is(err, domain.ErrStorage):
		return 6
	default:
		return 1
	}
}
