// Package sqlstore is a SQLite-backed profile ledger. Feedback lives in its
// own table, so appends are single inserts and replacing a profile never
// touches its history.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"resumematch/internal/adapter/sqlstore/migrations"
	"resumematch/internal/domain"
)

type Ledger struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open opens (creating if needed) the ledger database at path.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection serializes writers, which keeps feedback appends on the
	// same profile from racing each other.
	db.SetMaxOpenConns(1)

	l := &Ledger{db: db, path: path, now: time.Now}
	if err := l.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return l, nil
}

func (l *Ledger) Path() string {
	return l.path
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) migrate(fsys fs.FS) error {
	_, err := l.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var current int
	if err := l.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= current {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		tx, err := l.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}
	return nil
}

func (l *Ledger) Put(ctx context.Context, id, summary string, metadata domain.Metadata) error {
	if id == "" {
		return fmt.Errorf("%w: empty profile id", domain.ErrValidation)
	}
	metaJSON, err := json.Marshal(metadata.Clone())
	if err != nil {
		return fmt.Errorf("%w: marshalling metadata: %v", domain.ErrValidation, err)
	}

	now := l.now().UTC().UnixNano()
	_, err = l.db.ExecContext(ctx, `
		INSERT INTO profiles (id, summary, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			summary = excluded.summary,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`, id, summary, string(metaJSON), now, now)
	if err != nil {
		return fmt.Errorf("%w: saving profile: %v", domain.ErrStorage, err)
	}
	return nil
}

func (l *Ledger) Get(ctx context.Context, id string) (domain.Profile, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT id, summary, metadata, created_at, updated_at
		FROM profiles WHERE id = ?
	`, id)

	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Profile{}, fmt.Errorf("profile %s: %w", id, domain.ErrNotFound)
		}
		return domain.Profile{}, fmt.Errorf("%w: scanning profile: %v", domain.ErrStorage, err)
	}

	feedback, err := l.feedbackFor(ctx, []string{id})
	if err != nil {
		return domain.Profile{}, err
	}
	p.Feedback = feedback[id]
	return p, nil
}

// List returns profiles ordered by id.
func (l *Ledger) List(ctx context.Context) ([]domain.Profile, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, summary, metadata, created_at, updated_at
		FROM profiles ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: listing profiles: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	var profiles []domain.Profile
	var ids []string
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning profile: %v", domain.ErrStorage, err)
		}
		profiles = append(profiles, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: listing profiles: %v", domain.ErrStorage, err)
	}
	rows.Close()

	feedback, err := l.feedbackFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range profiles {
		profiles[i].Feedback = feedback[profiles[i].ID]
	}
	return profiles, nil
}

func (l *Ledger) Delete(ctx context.Context, id string) error {
	if _, err := l.db.ExecContext(ctx, "DELETE FROM profiles WHERE id = ?", id); err != nil {
		return fmt.Errorf("%w: deleting profile: %v", domain.ErrStorage, err)
	}
	return nil
}

func (l *Ledger) AppendFeedback(ctx context.Context, id string, positive bool, comment string) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", domain.ErrStorage, err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM profiles WHERE id = ?)", id).Scan(&exists); err != nil {
		return fmt.Errorf("%w: checking profile: %v", domain.ErrStorage, err)
	}
	if !exists {
		return fmt.Errorf("profile %s: %w", id, domain.ErrNotFound)
	}

	var last sql.NullInt64
	if err := tx.QueryRowContext(ctx, "SELECT MAX(created_at) FROM feedback WHERE profile_id = ?", id).Scan(&last); err != nil {
		return fmt.Errorf("%w: reading feedback: %v", domain.ErrStorage, err)
	}
	ts := l.now().UTC().UnixNano()
	if last.Valid && ts < last.Int64 {
		ts = last.Int64
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO feedback (profile_id, created_at, positive, comment) VALUES (?, ?, ?, ?)",
		id, ts, positive, comment)
	if err != nil {
		return fmt.Errorf("%w: inserting feedback: %v", domain.ErrStorage, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit feedback: %v", domain.ErrStorage, err)
	}
	return nil
}

func (l *Ledger) AggregateFeedback(ctx context.Context) (domain.FeedbackStats, error) {
	var stats domain.FeedbackStats
	row := l.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM profiles),
			(SELECT COUNT(DISTINCT profile_id) FROM feedback),
			COALESCE(SUM(CASE WHEN positive = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN positive = 0 THEN 1 ELSE 0 END), 0)
		FROM feedback
	`)
	if err := row.Scan(&stats.TotalProfiles, &stats.ProfilesWithFeedback, &stats.Positive, &stats.Negative); err != nil {
		return domain.FeedbackStats{}, fmt.Errorf("%w: aggregating feedback: %v", domain.ErrStorage, err)
	}
	return stats, nil
}

func (l *Ledger) feedbackFor(ctx context.Context, ids []string) (map[string][]domain.Feedback, error) {
	out := make(map[string][]domain.Feedback, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT profile_id, created_at, positive, comment
		FROM feedback WHERE profile_id IN (`+placeholders+`)
		ORDER BY seq
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: reading feedback: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			profileID string
			ts        int64
			positive  bool
			comment   string
		)
		if err := rows.Scan(&profileID, &ts, &positive, &comment); err != nil {
			return nil, fmt.Errorf("%w: scanning feedback: %v", domain.ErrStorage, err)
		}
		out[profileID] = append(out[profileID], domain.Feedback{
			Timestamp: time.Unix(0, ts).UTC(),
			Positive:  positive,
			Comment:   comment,
		})
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(s scanner) (domain.Profile, error) {
	var (
		p        domain.Profile
		metaJSON string
		created  int64
		updated  int64
	)
	if err := s.Scan(&p.ID, &p.Summary, &metaJSON, &created, &updated); err != nil {
		return domain.Profile{}, err
	}
	if err := json.Unmarshal([]byte(metaJSON), &p.Metadata); err != nil {
		return domain.Profile{}, fmt.Errorf("unmarshaling metadata: %w", err)
	}
	p.CreatedAt = time.Unix(0, created).UTC()
	p.UpdatedAt = time.Unix(0, updated).UTC()
	return p, nil
}
