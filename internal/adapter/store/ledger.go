package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"resumematch/internal/domain"
)

// Ledger implements port.Ledger in the profiles bucket. Each mutation is a
// single bbolt write transaction, so read-modify-write of one record is
// serialized and fsynced before the call returns.
type Ledger struct {
	db  *bbolt.DB
	now func() time.Time
}

func NewLedger(db *DB) *Ledger {
	return &Ledger{db: db.Bolt(), now: time.Now}
}

func (l *Ledger) Put(ctx context.Context, id, summary string, metadata domain.Metadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("%w: empty profile id", domain.ErrValidation)
	}

	err := l.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketProfiles)
		now := l.now().UTC()

		profile := domain.Profile{ID: id, CreatedAt: now}
		if data := b.Get([]byte(id)); data != nil {
			if err := json.Unmarshal(data, &profile); err != nil {
				return fmt.Errorf("decode profile %s: %w", id, err)
			}
		}
		profile.Summary = summary
		profile.Metadata = metadata.Clone()
		profile.UpdatedAt = now

		return putProfile(b, profile)
	})
	if err != nil {
		return fmt.Errorf("%w: put profile: %v", domain.ErrStorage, err)
	}
	return nil
}

func (l *Ledger) Get(ctx context.Context, id string) (domain.Profile, error) {
	if err := ctx.Err(); err != nil {
		return domain.Profile{}, err
	}

	var profile domain.Profile
	found := false
	err := l.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketProfiles).Get([]byte(id))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &profile)
	})
	if err != nil {
		return domain.Profile{}, fmt.Errorf("%w: get profile: %v", domain.ErrStorage, err)
	}
	if !found {
		return domain.Profile{}, fmt.Errorf("profile %s: %w", id, domain.ErrNotFound)
	}
	return profile, nil
}

// List returns profiles in key order.
func (l *Ledger) List(ctx context.Context) ([]domain.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var profiles []domain.Profile
	err := l.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketProfiles).ForEach(func(k, v []byte) error {
			var p domain.Profile
			if err := json.Unmarshal(v, &p); err != nil {
				return fmt.Errorf("decode profile %s: %w", k, err)
			}
			profiles = append(profiles, p)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list profiles: %v", domain.ErrStorage, err)
	}
	return profiles, nil
}

func (l *Ledger) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := l.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketProfiles).Delete([]byte(id))
	})
	if err != nil {
		return fmt.Errorf("%w: delete profile: %v", domain.ErrStorage, err)
	}
	return nil
}

func (l *Ledger) AppendFeedback(ctx context.Context, id string, positive bool, comment string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := l.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketProfiles)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("profile %s: %w", id, domain.ErrNotFound)
		}
		var profile domain.Profile
		if err := json.Unmarshal(data, &profile); err != nil {
			return fmt.Errorf("decode profile %s: %w", id, err)
		}

		profile.Feedback = append(profile.Feedback, domain.Feedback{
			Timestamp: domain.FeedbackTime(profile.Feedback, l.now().UTC()),
			Positive:  positive,
			Comment:   comment,
		})
		return putProfile(b, profile)
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: append feedback: %v", domain.ErrStorage, err)
	}
	return nil
}

func (l *Ledger) AggregateFeedback(ctx context.Context) (domain.FeedbackStats, error) {
	profiles, err := l.List(ctx)
	if err != nil {
		return domain.FeedbackStats{}, err
	}
	return domain.AggregateFeedback(profiles), nil
}

// Close is a no-op; the shared DB is closed by its owner.
func (l *Ledger) Close() error {
	return nil
}

func putProfile(b *bbolt.Bucket, p domain.Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return b.Put([]byte(p.ID), data)
}
