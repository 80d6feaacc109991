package store

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"resumematch/internal/domain"
)

// VectorIndex implements port.VectorIndex on top of bbolt.
// Vectors are mirrored in memory and searched by brute force, which is
// adequate for the few thousand chunks a profile store holds.
type VectorIndex struct {
	db        *bbolt.DB
	dimension int
	logger    *zap.Logger

	mu        sync.RWMutex
	vectors   map[string]vectorEntry
	byProfile map[string]map[string]struct{}
}

type vectorEntry struct {
	profileID string
	seq       int
	order     uint64
	vector    []float32
	metadata  domain.Metadata
	text      string
}

type storedVector struct {
	Vector    []float32       `json:"v"`
	Metadata  domain.Metadata `json:"m,omitempty"`
	ProfileID string          `json:"p"`
	Seq       int             `json:"s"`
	Order     uint64          `json:"o"`
	Text      string          `json:"t,omitempty"`
}

// NewVectorIndex loads any vectors already stored in db.
func NewVectorIndex(db *DB, dimension int, logger *zap.Logger) (*VectorIndex, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: vector dimension must be positive", domain.ErrValidation)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	idx := &VectorIndex{
		db:        db.Bolt(),
		dimension: dimension,
		logger:    logger,
		vectors:   make(map[string]vectorEntry),
		byProfile: make(map[string]map[string]struct{}),
	}

	if err := idx.loadVectors(); err != nil {
		return nil, fmt.Errorf("%w: failed to load vectors: %v", domain.ErrStorage, err)
	}

	return idx, nil
}

func (s *VectorIndex) loadVectors() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketVectors).ForEach(func(k, v []byte) error {
			var stored storedVector
			if err := json.Unmarshal(v, &stored); err != nil {
				s.logger.Warn("skipping corrupted vector", zap.ByteString("chunk_id", k), zap.Error(err))
				return nil
			}
			if len(stored.Vector) != s.dimension {
				s.logger.Warn("skipping vector with foreign dimension",
					zap.ByteString("chunk_id", k),
					zap.Int("dimension", len(stored.Vector)),
					zap.Int("expected", s.dimension))
				return nil
			}
			s.remember(string(k), stored)
			return nil
		})
	})
}

func (s *VectorIndex) remember(id string, stored storedVector) {
	s.vectors[id] = vectorEntry{
		profileID: stored.ProfileID,
		seq:       stored.Seq,
		order:     stored.Order,
		vector:    stored.Vector,
		metadata:  stored.Metadata,
		text:      stored.Text,
	}
	ids, ok := s.byProfile[stored.ProfileID]
	if !ok {
		ids = make(map[string]struct{})
		s.byProfile[stored.ProfileID] = ids
	}
	ids[id] = struct{}{}
}

func (s *VectorIndex) forget(id string) {
	entry, ok := s.vectors[id]
	if !ok {
		return
	}
	delete(s.vectors, id)
	if ids := s.byProfile[entry.profileID]; ids != nil {
		delete(ids, id)
		if len(ids) == 0 {
			delete(s.byProfile, entry.profileID)
		}
	}
}

// Upsert writes chunks in one transaction. A chunk ID seen before keeps its
// original insertion order so re-ingesting never reshuffles ties.
func (s *VectorIndex) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}
	for _, c := range chunks {
		if c.ID == "" || c.ProfileID == "" {
			return fmt.Errorf("%w: chunk without id or profile", domain.ErrValidation)
		}
		if len(c.Vector) != s.dimension {
			return fmt.Errorf("%w: vector dimension mismatch: expected %d, got %d", domain.ErrValidation, s.dimension, len(c.Vector))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	written := make(map[string]storedVector, len(chunks))
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		for _, c := range chunks {
			var order uint64
			if prev, ok := written[c.ID]; ok {
				order = prev.Order
			} else if existing, ok := s.vectors[c.ID]; ok {
				order = existing.order
			} else {
				next, err := b.NextSequence()
				if err != nil {
					return err
				}
				order = next
			}

			stored := storedVector{
				Vector:    c.Vector,
				Metadata:  c.Metadata,
				ProfileID: c.ProfileID,
				Seq:       c.Seq,
				Order:     order,
				Text:      c.Text,
			}
			data, err := json.Marshal(stored)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(c.ID), data); err != nil {
				return err
			}
			written[c.ID] = stored
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: upsert vectors: %v", domain.ErrStorage, err)
	}

	for id, stored := range written {
		s.forget(id)
		s.remember(id, stored)
	}
	return nil
}

// Query returns the k chunks closest to vector by cosine distance.
// Equal distances are ordered by insertion.
func (s *VectorIndex) Query(ctx context.Context, vector []float32, k int) ([]domain.ChunkHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query dimension mismatch: expected %d, got %d", domain.ErrValidation, s.dimension, len(vector))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if k <= 0 || len(s.vectors) == 0 {
		return []domain.ChunkHit{}, nil
	}

	type scored struct {
		id       string
		distance float64
		entry    vectorEntry
	}

	candidates := make([]scored, 0, len(s.vectors))
	for id, entry := range s.vectors {
		candidates = append(candidates, scored{
			id:       id,
			distance: 1 - cosineSimilarity(vector, entry.vector),
			entry:    entry,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance < candidates[j].distance
		}
		return candidates[i].entry.order < candidates[j].entry.order
	})

	if k > len(candidates) {
		k = len(candidates)
	}

	hits := make([]domain.ChunkHit, k)
	for i := 0; i < k; i++ {
		c := candidates[i]
		hits[i] = domain.ChunkHit{
			ChunkID:   c.id,
			ProfileID: c.entry.profileID,
			Seq:       c.entry.seq,
			Metadata:  c.entry.metadata.Clone(),
			Distance:  c.distance,
		}
	}
	return hits, nil
}

// Prune drops chunks of profileID with seq >= keep, left over when a profile
// is re-ingested with shorter text.
func (s *VectorIndex) Prune(ctx context.Context, profileID string, keep int) error {
	return s.deleteWhere(ctx, profileID, func(e vectorEntry) bool { return e.seq >= keep })
}

func (s *VectorIndex) DeleteProfile(ctx context.Context, profileID string) error {
	return s.deleteWhere(ctx, profileID, func(vectorEntry) bool { return true })
}

func (s *VectorIndex) deleteWhere(ctx context.Context, profileID string, match func(vectorEntry) bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for id := range s.byProfile[profileID] {
		if match(s.vectors[id]) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		for _, id := range ids {
			if err := b.Delete([]byte(id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: delete vectors: %v", domain.ErrStorage, err)
	}

	for _, id := range ids {
		s.forget(id)
	}
	return nil
}

// Count returns the number of chunks in the index.
func (s *VectorIndex) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors), nil
}

func (s *VectorIndex) Dimension() int {
	return s.dimension
}

// chunksOf returns the stored chunks of a profile in sequence order.
func (s *VectorIndex) chunksOf(profileID string) []domain.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunks := make([]domain.Chunk, 0, len(s.byProfile[profileID]))
	for id := range s.byProfile[profileID] {
		e := s.vectors[id]
		chunks = append(chunks, domain.Chunk{
			ID:        id,
			ProfileID: e.profileID,
			Seq:       e.seq,
			Text:      e.text,
			Vector:    e.vector,
			Metadata:  e.metadata.Clone(),
		})
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Seq < chunks[j].Seq })
	return chunks
}

// profileIDs returns the ids of every profile with at least one chunk.
func (s *VectorIndex) profileIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.byProfile))
	for id := range s.byProfile {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
