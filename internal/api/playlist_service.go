package api

import (
	"context"

	"tubefetch/internal/queue"
)

// PlaylistReader abstracts the store reads needed for playlist views.
type PlaylistReader interface {
	Snapshot(ctx context.Context) ([]queue.Entry, error)
	Summary(ctx context.Context) (queue.Summary, error)
}

// PlaylistService exposes read-only playlist operations returning API DTOs.
type PlaylistService struct {
	store PlaylistReader
}

// NewPlaylistService constructs a PlaylistService around the provided reader.
func NewPlaylistService(store PlaylistReader) *PlaylistService {
	if store == nil {
		return nil
	}
	return &PlaylistService{store: store}
}

// Describe returns the full playlist with counts.
func (s *PlaylistService) Describe(ctx context.Context) (PlaylistResponse, error) {
	if s == nil || s.store == nil {
		return PlaylistResponse{Counts: MergeCounts(nil), Entries: []PlaylistEntry{}}, nil
	}
	summary, err := s.store.Summary(ctx)
	if err != nil {
		return PlaylistResponse{}, err
	}
	entries, err := s.store.Snapshot(ctx)
	if err != nil {
		return PlaylistResponse{}, err
	}
	return FromPlaylist(summary, entries), nil
}

// Counts returns per-status counts keyed by status string.
func (s *PlaylistService) Counts(ctx context.Context) (map[string]int, error) {
	if s == nil || s.store == nil {
		return MergeCounts(nil), nil
	}
	summary, err := s.store.Summary(ctx)
	if err != nil {
		return nil, err
	}
	return MergeCounts(summary.Counts), nil
}
