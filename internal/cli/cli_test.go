package cli

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"resumematch/config"
	"resumematch/internal/domain"
	"resumematch/internal/usecase"
)

func setupCLI(t *testing.T, memory bool) {
	t.Helper()
	prevCfg, prevDir, prevEph, prevLog := cfg, rootDir, ephemeral, log
	t.Cleanup(func() {
		cfg, rootDir, ephemeral, log = prevCfg, prevDir, prevEph, prevLog
	})

	cfg = config.DefaultConfig()
	cfg.Oracle.Provider = "none"
	cfg.Classifier.Enabled = false
	rootDir = t.TempDir()
	ephemeral = memory
	log = zap.NewNop()
}

const cliResume = "Backend engineer with eight years of Go, PostgreSQL and Kubernetes experience building payment APIs."

func TestOpenAppEphemeral(t *testing.T) {
	setupCLI(t, true)
	ctx := context.Background()

	a, err := openApp(ctx, appOptions{})
	require.NoError(t, err)
	defer a.Close()

	res, err := a.engine.AddResume(ctx, usecase.IngestRequest{ID: "alice", Text: cliResume})
	require.NoError(t, err)
	assert.Equal(t, "alice", res.ID)

	profiles, err := a.engine.Search(ctx, "Go PostgreSQL backend", 3)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "alice", profiles[0].ID)
}

func TestOpenAppPersistsAcrossRuns(t *testing.T) {
	for _, ledger := range []string{"bolt", "sqlite"} {
		t.Run(ledger, func(t *testing.T) {
			setupCLI(t, false)
			cfg.Storage.Ledger = ledger
			ctx := context.Background()

			a, err := openApp(ctx, appOptions{})
			require.NoError(t, err)
			_, err = a.engine.AddResume(ctx, usecase.IngestRequest{ID: "alice", Text: cliResume})
			require.NoError(t, err)
			require.NoError(t, a.engine.AddFeedback(ctx, "alice", true, "good"))
			a.Close()

			a, err = openApp(ctx, appOptions{})
			require.NoError(t, err)
			defer a.Close()

			p, err := a.engine.Profile(ctx, "alice")
			require.NoError(t, err)
			require.Len(t, p.Feedback, 1)

			stats, err := a.engine.Stats(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, stats.Profiles)
			assert.Positive(t, stats.Chunks)
		})
	}
}

func TestOpenAppRequiresReindexAfterEmbeddingChange(t *testing.T) {
	setupCLI(t, false)
	ctx := context.Background()

	a, err := openApp(ctx, appOptions{})
	require.NoError(t, err)
	a.Close()

	cfg.Embedding.Dimension = 64
	_, err = openApp(ctx, appOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.Contains(t, err.Error(), "reindex")
}

func TestMatchWithoutOracleProvider(t *testing.T) {
	setupCLI(t, true)
	ctx := context.Background()

	a, err := openApp(ctx, appOptions{oracle: true})
	require.NoError(t, err)
	defer a.Close()

	_, err = a.engine.Match(ctx, "Go engineer", 3)
	assert.ErrorIs(t, err, domain.ErrOracleUnavailable)
}

func TestNewOracleProviders(t *testing.T) {
	setupCLI(t, true)
	ctx := context.Background()

	o, err := newOracle(ctx, config.OracleConfig{Provider: "none"})
	require.NoError(t, err)
	assert.Nil(t, o)

	o, err = newOracle(ctx, config.OracleConfig{Provider: "ollama", Model: "llama3"})
	require.NoError(t, err)
	assert.Equal(t, "llama3", o.ModelName())

	t.Setenv("RESUMEMATCH_TEST_KEY", "")
	_, err = newOracle(ctx, config.OracleConfig{Provider: "gemini", APIKeyEnv: "RESUMEMATCH_TEST_KEY"})
	assert.Error(t, err)

	_, err = newOracle(ctx, config.OracleConfig{Provider: "bogus"})
	assert.Error(t, err)
}

func TestNewEmbedderProviders(t *testing.T) {
	setupCLI(t, true)
	ctx := context.Background()

	e, err := newEmbedder(ctx, config.EmbeddingConfig{Provider: "hash", Dimension: 32})
	require.NoError(t, err)
	assert.Equal(t, 32, e.Dimension())

	e, err = newEmbedder(ctx, config.EmbeddingConfig{Provider: "hash"})
	require.NoError(t, err)
	assert.Equal(t, 256, e.Dimension())

	_, err = newEmbedder(ctx, config.EmbeddingConfig{Provider: "bogus"})
	assert.Error(t, err)
}

func TestNewClassifier(t *testing.T) {
	off, err := newClassifier(config.ClassifierConfig{Enabled: false})
	require.NoError(t, err)
	assert.True(t, off.Classify("hello").Admissible)

	on, err := newClassifier(config.DefaultConfig().Classifier)
	require.NoError(t, err)
	assert.False(t, on.Classify("hello").Admissible)
}

func TestParseMeta(t *testing.T) {
	meta, err := parseMeta([]string{"team=platform", " level = senior "})
	require.NoError(t, err)
	assert.Equal(t, domain.Metadata{"team": "platform", "level": "senior"}, meta)

	_, err = parseMeta([]string{"novalue"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = parseMeta([]string{"profile_id=x"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", domain.ErrValidation), 2},
		{domain.ErrNotFound, 3},
		{domain.ErrNotAdmissible, 4},
		{fmt.Errorf("match: %w", domain.ErrOracleUnavailable), 5},
		{domain.ErrStorage, 6},
		{errors.New("boom"), 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exitCode(tt.err), tt.err.Error())
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "<1s", formatDuration(500*time.Millisecond))
	assert.Equal(t, "42s", formatDuration(42*time.Second))
	assert.Equal(t, "3m5s", formatDuration(3*time.Minute+5*time.Second))
	assert.Equal(t, "2h7m", formatDuration(2*time.Hour+7*time.Minute))
}

func TestOutputHelpers(t *testing.T) {
	assert.Equal(t, "a b c", oneLine("a\n  b\tc", 10))
	assert.Equal(t, "abc...", oneLine("abcdef", 3))
	assert.Equal(t, "+2/-1", feedbackTally([]domain.Feedback{{Positive: true}, {Positive: false}, {Positive: true}}))
	assert.Equal(t, "-", orDash(""))
}
