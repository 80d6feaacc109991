package store

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"resumematch/internal/domain"
	"resumematch/internal/port"
)

// Reembed recomputes every stored vector from its chunk text with embedder.
// It runs before a VectorIndex is opened on db, since the index drops vectors
// whose dimension it does not expect. Progress is reported after each batch.
func (d *DB) Reembed(ctx context.Context, embedder port.Embedder, batchSize int, progress func(done, total int)) (int, error) {
	if batchSize <= 0 {
		batchSize = 100
	}

	type pending struct {
		id     string
		stored storedVector
	}
	var all []pending
	err := d.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketVectors).ForEach(func(k, v []byte) error {
			var stored storedVector
			if err := json.Unmarshal(v, &stored); err != nil || stored.Text == "" {
				return nil
			}
			all = append(all, pending{id: string(k), stored: stored})
			return nil
		})
	})
	if err != nil {
		return 0, fmt.Errorf("%w: scan vectors: %v", domain.ErrStorage, err)
	}

	done := 0
	for start := 0; start < len(all); start += batchSize {
		end := start + batchSize
		if end > len(all) {
			end = len(all)
		}
		batch := all[start:end]

		texts := make([]string, len(batch))
		for i, p := range batch {
			texts[i] = p.stored.Text
		}
		vectors, err := embedder.Embed(ctx, texts)
		if err != nil {
			return done, err
		}
		if len(vectors) != len(batch) {
			return done, fmt.Errorf("%w: embedder returned %d vectors for %d texts", domain.ErrOracleUnavailable, len(vectors), len(batch))
		}

		err = d.db.Update(func(tx *bbolt.Tx) error {
			b := tx.Bucket(bucketVectors)
			for i, p := range batch {
				p.stored.Vector = vectors[i]
				data, err := json.Marshal(p.stored)
				if err != nil {
					return err
				}
				if err := b.Put([]byte(p.id), data); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return done, fmt.Errorf("%w: rewrite vectors: %v", domain.ErrStorage, err)
		}

		done += len(batch)
		if progress != nil {
			progress(done, len(all))
		}
	}
	return done, nil
}
