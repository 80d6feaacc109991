package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumematch/internal/adapter/retry"
	"resumematch/internal/domain"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestHashEmbedderDeterministicAndNormalized(t *testing.T) {
	e := NewHashEmbedder(256)
	require.Equal(t, 256, e.Dimension())

	vecs, err := e.Embed(context.Background(), []string{"Go developer with Kubernetes", "Go developer with Kubernetes"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, vecs[0], vecs[1])

	var norm float64
	for _, v := range vecs[0] {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
}

func TestHashEmbedderLexicalSimilarity(t *testing.T) {
	e := NewHashEmbedder(0)
	assert.Equal(t, 512, e.Dimension())

	vecs, err := e.Embed(context.Background(), []string{
		"senior golang engineer kubernetes postgres",
		"golang engineer with kubernetes experience",
		"pastry chef bakery croissant",
	})
	require.NoError(t, err)
	assert.Greater(t, cosine(vecs[0], vecs[1]), cosine(vecs[0], vecs[2]))
}

func TestHashEmbedderEmptyText(t *testing.T) {
	vecs, err := NewHashEmbedder(16).Embed(context.Background(), []string{""})
	require.NoError(t, err)
	assert.Len(t, vecs[0], 16)
	for _, v := range vecs[0] {
		assert.Zero(t, v)
	}
}

func TestHashEmbedderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHashEmbedder(8).Embed(ctx, []string{"x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenAIEmbedderBatchesAndOrders(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer ollama", r.Header.Get("Authorization"))

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 3, req.Dimensions)

		// Answer in reverse order to check index handling.
		resp := embeddingResponse{}
		for i := len(req.Input) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, embeddingData{Index: i, Embedding: []float32{float32(len(req.Input[i])), 0, 0}})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	e := NewOllamaEmbedder("tiny", srv.URL).WithDimension(3).WithBatchSize(2)
	vecs, err := e.Embed(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	assert.Equal(t, 2, requests)
	require.Len(t, vecs, 3)
	assert.Equal(t, float32(1), vecs[0][0])
	assert.Equal(t, float32(2), vecs[1][0])
	assert.Equal(t, float32(3), vecs[2][0])
}

func TestOpenAIEmbedderStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewOllamaEmbedder("tiny", srv.URL).WithDimension(3).Embed(context.Background(), []string{"a"})
	var status *retry.StatusError
	require.ErrorAs(t, err, &status)
	assert.Equal(t, http.StatusServiceUnavailable, status.Code)
}

func TestOpenAIEmbedderDimensionMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(embeddingResponse{Data: []embeddingData{{Index: 0, Embedding: []float32{1, 2}}}})
	}))
	defer srv.Close()

	_, err := NewOllamaEmbedder("tiny", srv.URL).WithDimension(3).Embed(context.Background(), []string{"a"})
	assert.ErrorContains(t, err, "dimension 2")
}

func TestOpenAICompatibleEmbedderRequiresKey(t *testing.T) {
	t.Setenv("RESUMEMATCH_TEST_EMPTY_KEY", "")
	_, err := NewOpenAICompatibleEmbedder("RESUMEMATCH_TEST_EMPTY_KEY", "m", "http://localhost")
	assert.Error(t, err)
}

type flakyEmbedder struct {
	failures int
	calls    int
	err      error
}

func (f *flakyEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1}
	}
	return out, nil
}

func (f *flakyEmbedder) Dimension() int   { return 1 }
func (f *flakyEmbedder) ModelName() string { return "flaky" }

func TestGuardedRetriesTransient(t *testing.T) {
	inner := &flakyEmbedder{failures: 2, err: &retry.StatusError{Code: http.StatusTooManyRequests}}
	g := NewGuarded(inner, retry.Policy{MaxRetries: 2}, "test", nil)

	vecs, err := g.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)
	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, "flaky", g.ModelName())
	assert.Equal(t, 1, g.Dimension())
}

func TestGuardedWrapsExhaustedBudget(t *testing.T) {
	inner := &flakyEmbedder{failures: 10, err: &retry.StatusError{Code: http.StatusBadGateway}}
	g := NewGuarded(inner, retry.Policy{MaxRetries: 1}, "test", nil)

	_, err := g.Embed(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, domain.ErrOracleUnavailable)
	assert.Equal(t, 2, inner.calls)
}

func TestGuardedDoesNotRetryPermanent(t *testing.T) {
	inner := &flakyEmbedder{failures: 10, err: errors.New("bad request")}
	g := NewGuarded(inner, retry.Policy{MaxRetries: 3}, "test", nil)

	_, err := g.Embed(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, domain.ErrOracleUnavailable)
	assert.Equal(t, 1, inner.calls)
}

func TestGuardedPassesCallerCancellation(t *testing.T) {
	inner := &flakyEmbedder{failures: 10, err: context.Canceled}
	g := NewGuarded(inner, retry.Policy{MaxRetries: 3}, "test", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Embed(ctx, []string{"a"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, domain.ErrOracleUnavailable)
	assert.Equal(t, 1, inner.calls)
}
