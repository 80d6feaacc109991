package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumematch/config"
	"resumematch/internal/domain"
)

func openTestDB(t *testing.T, path string) *DB {
	t.Helper()
	db, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func chunk(profile string, seq int, vec ...float32) domain.Chunk {
	return domain.Chunk{
		ID:        domain.ChunkID(profile, seq),
		ProfileID: profile,
		Seq:       seq,
		Text:      profile + " text",
		Vector:    vec,
		Metadata:  domain.Metadata{domain.MetaProfileID: profile},
	}
}

func TestVectorIndexQueryOrdering(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t, filepath.Join(t.TempDir(), "index.db"))
	idx, err := NewVectorIndex(db, 2, nil)
	require.NoError(t, err)

	require.NoError(t, idx.Upsert(ctx, []domain.Chunk{
		chunk("far", 0, 0, 1),
		chunk("near", 0, 1, 0),
		chunk("mid", 0, 1, 1),
	}))

	hits, err := idx.Query(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "near", hits[0].ProfileID)
	assert.Equal(t, "mid", hits[1].ProfileID)
	assert.Equal(t, "far", hits[2].ProfileID)
	assert.InDelta(t, 0, hits[0].Distance, 1e-9)
	assert.InDelta(t, 1, hits[2].Distance, 1e-9)

	hits, err = idx.Query(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestVectorIndexTiesFollowInsertionOrder(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t, filepath.Join(t.TempDir(), "index.db"))
	idx, err := NewVectorIndex(db, 2, nil)
	require.NoError(t, err)

	for _, p := range []string{"c", "a", "b"} {
		require.NoError(t, idx.Upsert(ctx, []domain.Chunk{chunk(p, 0, 1, 1)}))
	}
	// Rewriting "c" must not move it behind the others.
	require.NoError(t, idx.Upsert(ctx, []domain.Chunk{chunk("c", 0, 1, 1)}))

	for i := 0; i < 5; i++ {
		hits, err := idx.Query(ctx, []float32{1, 1}, 3)
		require.NoError(t, err)
		got := []string{hits[0].ProfileID, hits[1].ProfileID, hits[2].ProfileID}
		assert.Equal(t, []string{"c", "a", "b"}, got)
	}
}

func TestVectorIndexUpsertIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t, filepath.Join(t.TempDir(), "index.db"))
	idx, err := NewVectorIndex(db, 2, nil)
	require.NoError(t, err)

	chunks := []domain.Chunk{chunk("A", 0, 1, 0), chunk("A", 1, 0, 1), chunk("A", 2, 1, 1)}
	for i := 0; i < 4; i++ {
		require.NoError(t, idx.Upsert(ctx, chunks))
	}

	n, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	seqs := map[int]int{}
	for _, c := range idx.chunksOf("A") {
		seqs[c.Seq]++
	}
	assert.Equal(t, map[int]int{0: 1, 1: 1, 2: 1}, seqs)
}

func TestVectorIndexPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.db")

	db, err := Open(path)
	require.NoError(t, err)
	idx, err := NewVectorIndex(db, 3, nil)
	require.NoError(t, err)
	require.NoError(t, idx.Upsert(ctx, []domain.Chunk{chunk("A", 0, 1, 0, 0), chunk("B", 0, 0, 1, 0)}))
	require.NoError(t, db.Close())

	db = openTestDB(t, path)
	idx, err = NewVectorIndex(db, 3, nil)
	require.NoError(t, err)

	n, _ := idx.Count()
	assert.Equal(t, 2, n)

	hits, err := idx.Query(ctx, []float32{0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "B", hits[0].ProfileID)
	assert.Equal(t, "B", hits[0].Metadata[domain.MetaProfileID])
}

func TestVectorIndexEmptyAndInvalid(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t, filepath.Join(t.TempDir(), "index.db"))
	idx, err := NewVectorIndex(db, 2, nil)
	require.NoError(t, err)

	hits, err := idx.Query(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)

	_, err = idx.Query(ctx, []float32{1, 0, 0}, 5)
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = idx.Upsert(ctx, []domain.Chunk{chunk("A", 0, 1)})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = NewVectorIndex(db, 0, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestVectorIndexPruneAndDelete(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t, filepath.Join(t.TempDir(), "index.db"))
	idx, err := NewVectorIndex(db, 2, nil)
	require.NoError(t, err)

	require.NoError(t, idx.Upsert(ctx, []domain.Chunk{
		chunk("A", 0, 1, 0), chunk("A", 1, 1, 0), chunk("A", 2, 1, 0),
		chunk("B", 0, 0, 1),
	}))

	require.NoError(t, idx.Prune(ctx, "A", 1))
	assert.Len(t, idx.chunksOf("A"), 1)
	assert.Len(t, idx.chunksOf("B"), 1)

	require.NoError(t, idx.DeleteProfile(ctx, "A"))
	assert.Empty(t, idx.chunksOf("A"))
	assert.Equal(t, []string{"B"}, idx.profileIDs())

	// deleting an unknown profile is a no-op
	require.NoError(t, idx.DeleteProfile(ctx, "missing"))
}

type stubEmbedder struct{ dim int }

func (s stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, s.dim)
		v[0] = 1
		out[i] = v
	}
	return out, nil
}
func (s stubEmbedder) Dimension() int    { return s.dim }
func (s stubEmbedder) ModelName() string { return "stub" }

func TestReembedChangesDimension(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t, filepath.Join(t.TempDir(), "index.db"))
	idx, err := NewVectorIndex(db, 2, nil)
	require.NoError(t, err)
	require.NoError(t, idx.Upsert(ctx, []domain.Chunk{chunk("A", 0, 1, 0), chunk("B", 0, 0, 1)}))

	var calls int
	n, err := db.Reembed(ctx, stubEmbedder{dim: 4}, 1, func(done, total int) { calls++ })
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, calls)

	idx4, err := NewVectorIndex(db, 4, nil)
	require.NoError(t, err)
	count, _ := idx4.Count()
	assert.Equal(t, 2, count)
}

func TestLedgerPutGet(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(openTestDB(t, filepath.Join(t.TempDir(), "index.db")))

	_, err := l.Get(ctx, "A")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, l.Put(ctx, "A", "backend engineer", domain.Metadata{"city": "Berlin"}))
	p, err := l.Get(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "backend engineer", p.Summary)
	assert.Equal(t, "Berlin", p.Metadata["city"])
	assert.False(t, p.CreatedAt.IsZero())

	assert.ErrorIs(t, l.Put(ctx, "", "x", nil), domain.ErrValidation)
}

func TestLedgerPutPreservesFeedback(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(openTestDB(t, filepath.Join(t.TempDir(), "index.db")))

	require.NoError(t, l.Put(ctx, "A", "v1", nil))
	require.NoError(t, l.AppendFeedback(ctx, "A", true, "great match"))
	first, _ := l.Get(ctx, "A")

	require.NoError(t, l.Put(ctx, "A", "v2", domain.Metadata{"k": "v"}))
	p, err := l.Get(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "v2", p.Summary)
	require.Len(t, p.Feedback, 1)
	assert.Equal(t, "great match", p.Feedback[0].Comment)
	assert.Equal(t, first.CreatedAt, p.CreatedAt)
}

func TestLedgerFeedbackScenario(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(openTestDB(t, filepath.Join(t.TempDir(), "index.db")))

	require.NoError(t, l.Put(ctx, "A", "senior backend engineer", nil))
	require.NoError(t, l.AppendFeedback(ctx, "A", true, "great match"))
	require.NoError(t, l.AppendFeedback(ctx, "A", false, ""))

	stats, err := l.AggregateFeedback(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.FeedbackStats{Positive: 1, Negative: 1, ProfilesWithFeedback: 1, TotalProfiles: 1}, stats)

	assert.ErrorIs(t, l.AppendFeedback(ctx, "nobody", true, ""), domain.ErrNotFound)
}

func TestLedgerConcurrentAppendsOnSameProfile(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(openTestDB(t, filepath.Join(t.TempDir(), "index.db")))
	require.NoError(t, l.Put(ctx, "A", "s", nil))
	require.NoError(t, l.Put(ctx, "B", "s", nil))

	const n = 40
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := "A"
			if i%4 == 0 {
				id = "B"
			}
			assert.NoError(t, l.AppendFeedback(ctx, id, i%2 == 0, ""))
		}(i)
	}
	wg.Wait()

	stats, err := l.AggregateFeedback(ctx)
	require.NoError(t, err)
	assert.Equal(t, n, stats.Positive+stats.Negative)
	assert.Equal(t, n/2, stats.Positive)
	assert.Equal(t, 2, stats.ProfilesWithFeedback)

	a, _ := l.Get(ctx, "A")
	b, _ := l.Get(ctx, "B")
	assert.Len(t, a.Feedback, 30)
	assert.Len(t, b.Feedback, 10)
}

func TestLedgerFeedbackTimestampsNeverGoBack(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(openTestDB(t, filepath.Join(t.TempDir(), "index.db")))
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := []time.Time{base, base.Add(time.Minute), base.Add(-time.Hour)}
	l.now = func() time.Time {
		now := clock[0]
		if len(clock) > 1 {
			clock = clock[1:]
		}
		return now
	}

	require.NoError(t, l.Put(ctx, "A", "s", nil))
	require.NoError(t, l.AppendFeedback(ctx, "A", true, ""))
	require.NoError(t, l.AppendFeedback(ctx, "A", true, ""))

	p, _ := l.Get(ctx, "A")
	require.Len(t, p.Feedback, 2)
	assert.False(t, p.Feedback[1].Timestamp.Before(p.Feedback[0].Timestamp))
}

func TestLedgerListAndDelete(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(openTestDB(t, filepath.Join(t.TempDir(), "index.db")))
	for _, id := range []string{"b", "a", "c"} {
		require.NoError(t, l.Put(ctx, id, "s-"+id, nil))
	}

	list, err := l.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "a", list[0].ID)

	require.NoError(t, l.Delete(ctx, "a"))
	list, _ = l.List(ctx)
	assert.Len(t, list, 2)
}

func TestMigrations(t *testing.T) {
	db := openTestDB(t, filepath.Join(t.TempDir(), "index.db"))
	cfg := config.DefaultConfig()

	res, err := db.CheckMigration(cfg)
	require.NoError(t, err)
	assert.True(t, res.NeedsMigration)
	assert.False(t, res.NeedsReembed)

	require.NoError(t, db.Migrate(cfg))
	res, err = db.CheckMigration(cfg)
	require.NoError(t, err)
	assert.False(t, res.NeedsMigration)
	assert.False(t, res.NeedsReembed)

	cfg.Embedding.Model = "text-embedding-3-large"
	res, err = db.CheckMigration(cfg)
	require.NoError(t, err)
	assert.True(t, res.NeedsReembed)

	require.NoError(t, db.SetSchemaInfo(&SchemaInfo{Version: CurrentSchemaVersion + 1}))
	_, err = db.CheckMigration(cfg)
	assert.Error(t, err)
}
