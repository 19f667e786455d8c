package queue

import (
	"context"
	"fmt"
	"strings"
)

// Claim gives jobID exclusive write access to entry statuses.
func (s *Store) Claim(jobID string) error {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return fmt.Errorf("claim: job id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owner != "" && s.owner != jobID {
		return fmt.Errorf("%w (held by %s)", ErrClaimed, s.owner)
	}
	s.owner = jobID
	return nil
}

// Release ends jobID's claim. Entries the run skipped fold back into done.
func (s *Store) Release(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owner != jobID {
		return ErrNotOwner
	}
	s.owner = ""
	if _, err := s.execWithRetry(ctx,
		`UPDATE playlist_entries SET status = ?, updated_at = ? WHERE status = ?`,
		StatusDone, nowText(), StatusSkipped,
	); err != nil {
		return fmt.Errorf("fold skipped entries: %w", err)
	}
	return nil
}

// Owner returns the job currently holding the claim, or "".
func (s *Store) Owner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner
}

// Transition moves the entry at index to status to on behalf of jobID.
func (s *Store) Transition(ctx context.Context, jobID string, index int, to Status) (Entry, error) {
	ctx = ensureContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owner == "" || s.owner != jobID {
		return Entry{}, ErrNotOwner
	}

	from := transitions[to]
	if len(from) == 0 {
		return Entry{}, fmt.Errorf("%w: %q is not a transition target", ErrInvalidTransition, to)
	}
	args := make([]any, 0, len(from)+3)
	args = append(args, to, nowText(), index)
	for _, status := range from {
		args = append(args, status)
	}
	query := `UPDATE playlist_entries SET status = ?, updated_at = ?
        WHERE position = ? AND status IN (` + makePlaceholders(len(from)) + `)`
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return Entry{}, fmt.Errorf("update entry %d: %w", index, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Entry{}, fmt.Errorf("update entry %d: %w", index, err)
	}

	current, err := s.Get(ctx, index)
	if err != nil {
		return Entry{}, err
	}
	if affected == 0 {
		return current, fmt.Errorf("%w: entry %d %s -> %s", ErrInvalidTransition, index, current.Status, to)
	}
	return current, nil
}

// Reset returns every entry to queued. Refused while a job holds the claim.
func (s *Store) Reset(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owner != "" {
		return 0, ErrClaimed
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE playlist_entries SET status = ?, updated_at = ? WHERE status != ?`,
		StatusQueued, nowText(), StatusQueued,
	)
	if err != nil {
		return 0, fmt.Errorf("reset playlist: %w", err)
	}
	return res.RowsAffected()
}

func makePlaceholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
