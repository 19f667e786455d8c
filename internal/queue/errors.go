package queue

import "errors"

var (
	// ErrNotFound is returned when an index falls outside the playlist.
	ErrNotFound = errors.New("playlist entry not found")
	// ErrInvalidTransition is returned when a status change violates the lifecycle.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrClaimed is returned when a write requires an unclaimed store.
	ErrClaimed = errors.New("playlist is in use by another job")
	// ErrNotOwner is returned when a job mutates entries without holding the claim.
	ErrNotOwner = errors.New("job does not own the playlist")
	// ErrEmpty is returned when a job targets an empty playlist.
	ErrEmpty = errors.New("playlist is empty")
)
