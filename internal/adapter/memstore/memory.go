package memstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"resumematch/internal/domain"
)

// Ledger is an in-memory port.Ledger for tests and --ephemeral runs.
type Ledger struct {
	mu       sync.RWMutex
	profiles map[string]domain.Profile
	now      func() time.Time
}

func NewLedger() *Ledger {
	return &Ledger{
		profiles: make(map[string]domain.Profile),
		now:      time.Now,
	}
}

func (s *Ledger) Put(_ context.Context, id, summary string, metadata domain.Metadata) error {
	if id == "" {
		return fmt.Errorf("%w: empty profile id", domain.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	p, ok := s.profiles[id]
	if !ok {
		p = domain.Profile{ID: id, CreatedAt: now}
	}
	p.Summary = summary
	p.Metadata = metadata.Clone()
	p.UpdatedAt = now
	s.profiles[id] = p
	return nil
}

func (s *Ledger) Get(_ context.Context, id string) (domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return domain.Profile{}, fmt.Errorf("profile %s: %w", id, domain.ErrNotFound)
	}
	return copyProfile(p), nil
}

// List returns profiles ordered by id.
func (s *Ledger) List(_ context.Context) ([]domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, copyProfile(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Ledger) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.profiles, id)
	return nil
}

func (s *Ledger) AppendFeedback(_ context.Context, id string, positive bool, comment string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return fmt.Errorf("profile %s: %w", id, domain.ErrNotFound)
	}
	p.Feedback = append(p.Feedback, domain.Feedback{
		Timestamp: domain.FeedbackTime(p.Feedback, s.now().UTC()),
		Positive:  positive,
		Comment:   comment,
	})
	s.profiles[id] = p
	return nil
}

func (s *Ledger) AggregateFeedback(ctx context.Context) (domain.FeedbackStats, error) {
	profiles, _ := s.List(ctx)
	return domain.AggregateFeedback(profiles), nil
}

func (s *Ledger) Close() error {
	return nil
}

func copyProfile(p domain.Profile) domain.Profile {
	p.Metadata = p.Metadata.Clone()
	p.Feedback = append([]domain.Feedback(nil), p.Feedback...)
	return p
}

// VectorIndex is an in-memory port.VectorIndex with the same ordering rules
// as the bbolt index: ascending cosine distance, ties by insertion.
type VectorIndex struct {
	mu        sync.RWMutex
	dimension int
	next      uint64
	chunks    map[string]entry
}

type entry struct {
	chunk domain.Chunk
	order uint64
}

func NewVectorIndex(dimension int) *VectorIndex {
	return &VectorIndex{dimension: dimension, chunks: make(map[string]entry)}
}

func (s *VectorIndex) Upsert(_ context.Context, chunks []domain.Chunk) error {
	for _, c := range chunks {
		if len(c.Vector) != s.dimension {
			return fmt.Errorf("%w: vector dimension mismatch: expected %d, got %d", domain.ErrValidation, s.dimension, len(c.Vector))
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		order := s.next
		if existing, ok := s.chunks[c.ID]; ok {
			order = existing.order
		} else {
			s.next++
		}
		c.Metadata = c.Metadata.Clone()
		s.chunks[c.ID] = entry{chunk: c, order: order}
	}
	return nil
}

func (s *VectorIndex) Query(_ context.Context, vector []float32, k int) ([]domain.ChunkHit, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query dimension mismatch: expected %d, got %d", domain.ErrValidation, s.dimension, len(vector))
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		e        entry
		distance float64
	}
	all := make([]scored, 0, len(s.chunks))
	for _, e := range s.chunks {
		all = append(all, scored{e: e, distance: 1 - cosine(vector, e.chunk.Vector)})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].distance != all[j].distance {
			return all[i].distance < all[j].distance
		}
		return all[i].e.order < all[j].e.order
	})
	if k < 0 {
		k = 0
	}
	if k > len(all) {
		k = len(all)
	}
	hits := make([]domain.ChunkHit, k)
	for i := range hits {
		c := all[i].e.chunk
		hits[i] = domain.ChunkHit{
			ChunkID:   c.ID,
			ProfileID: c.ProfileID,
			Seq:       c.Seq,
			Metadata:  c.Metadata.Clone(),
			Distance:  all[i].distance,
		}
	}
	return hits, nil
}

func (s *VectorIndex) Prune(_ context.Context, profileID string, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.chunks {
		if e.chunk.ProfileID == profileID && e.chunk.Seq >= keep {
			delete(s.chunks, id)
		}
	}
	return nil
}

func (s *VectorIndex) DeleteProfile(ctx context.Context, profileID string) error {
	return s.Prune(ctx, profileID, 0)
}

func (s *VectorIndex) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

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
