package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Replace swaps the whole playlist for entries resolved from source. Entries are
// renumbered 1..n in the given order and start queued.
func (s *Store) Replace(ctx context.Context, source string, entries []Entry) error {
	ctx = ensureContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owner != "" {
		return ErrClaimed
	}
	for i, entry := range entries {
		if strings.TrimSpace(entry.URL) == "" {
			return fmt.Errorf("entry %d has no url", i+1)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM playlist_entries`); err != nil {
		return fmt.Errorf("clear playlist: %w", err)
	}
	now := nowText()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO playlist_meta (id, source_url, fetched_at) VALUES (1, ?, ?)
         ON CONFLICT(id) DO UPDATE SET source_url = excluded.source_url, fetched_at = excluded.fetched_at`,
		strings.TrimSpace(source), now,
	); err != nil {
		return fmt.Errorf("record playlist source: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO playlist_entries (position, video_id, title, url, status, updated_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	for i, entry := range entries {
		title := strings.TrimSpace(entry.Title)
		if title == "" {
			title = entry.ID
		}
		if _, err := stmt.ExecContext(ctx, i+1, entry.ID, title, strings.TrimSpace(entry.URL), StatusQueued, now); err != nil {
			return fmt.Errorf("insert entry %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

// Snapshot returns every entry ordered by position.
func (s *Store) Snapshot(ctx context.Context) ([]Entry, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT position, video_id, title, url, status FROM playlist_entries ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query playlist: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate playlist: %w", err)
	}
	return entries, nil
}

// Get returns the entry at a 1-based index.
func (s *Store) Get(ctx context.Context, index int) (Entry, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT position, video_id, title, url, status FROM playlist_entries WHERE position = ?`, index)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: index %d", ErrNotFound, index)
	}
	return entry, err
}

// Len reports the number of entries.
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ensureContext(ctx), `SELECT COUNT(1) FROM playlist_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count playlist: %w", err)
	}
	return n, nil
}

// Summary aggregates entry counts and reports the current claim holder.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	ctx = ensureContext(ctx)
	summary := Summary{Counts: make(map[Status]int, len(allStatuses)), Owner: s.Owner()}

	var source sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT source_url FROM playlist_meta WHERE id = 1`).Scan(&source)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Summary{}, fmt.Errorf("read playlist source: %w", err)
	}
	summary.Source = source.String

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM playlist_entries GROUP BY status`)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize playlist: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return Summary{}, fmt.Errorf("scan summary: %w", err)
		}
		summary.Counts[Status(status)] = count
		summary.Total += count
	}
	if err := rows.Err(); err != nil {
		return Summary{}, fmt.Errorf("iterate summary: %w", err)
	}
	return summary, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		entry  Entry
		status string
	)
	if err := row.Scan(&entry.Index, &entry.ID, &entry.Title, &entry.URL, &status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scan entry: %w", err)
	}
	parsed, err := ParseStatus(status)
	if err != nil {
		return Entry{}, fmt.Errorf("scan entry %d: %w", entry.Index, err)
	}
	entry.Status = parsed
	return entry, nil
}
