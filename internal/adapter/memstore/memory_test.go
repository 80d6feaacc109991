package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumematch/internal/domain"
)

func TestMemoryLedgerFeedback(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()

	require.NoError(t, l.Put(ctx, "A", "s", nil))
	require.NoError(t, l.AppendFeedback(ctx, "A", true, "great match"))
	require.NoError(t, l.AppendFeedback(ctx, "A", false, ""))
	require.NoError(t, l.Put(ctx, "A", "s2", nil))

	stats, err := l.AggregateFeedback(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.FeedbackStats{Positive: 1, Negative: 1, ProfilesWithFeedback: 1, TotalProfiles: 1}, stats)

	p, err := l.Get(ctx, "A")
	require.NoError(t, err)
	p.Feedback[0].Comment = "mutated"
	again, _ := l.Get(ctx, "A")
	assert.Equal(t, "great match", again.Feedback[0].Comment)

	assert.ErrorIs(t, l.AppendFeedback(ctx, "B", true, ""), domain.ErrNotFound)
}

func TestMemoryIndexIdempotentAndOrdered(t *testing.T) {
	ctx := context.Background()
	idx := NewVectorIndex(2)

	a := domain.Chunk{ID: "A_chunk_0", ProfileID: "A", Vector: []float32{1, 1}}
	b := domain.Chunk{ID: "B_chunk_0", ProfileID: "B", Vector: []float32{1, 1}}
	require.NoError(t, idx.Upsert(ctx, []domain.Chunk{a, b}))
	require.NoError(t, idx.Upsert(ctx, []domain.Chunk{a}))

	n, _ := idx.Count()
	assert.Equal(t, 2, n)

	hits, err := idx.Query(ctx, []float32{1, 1}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "A", hits[0].ProfileID)

	require.NoError(t, idx.DeleteProfile(ctx, "A"))
	hits, _ = idx.Query(ctx, []float32{1, 1}, 5)
	require.Len(t, hits, 1)
	assert.Equal(t, "B", hits[0].ProfileID)
}
