package queue

import "fmt"

// Status represents the lifecycle of a playlist entry.
type Status string

const (
	StatusQueued      Status = "queued"
	StatusDownloading Status = "downloading"
	StatusDone        Status = "done"
	StatusFailed      Status = "failed"
	// StatusSkipped marks a done entry the current run chose not to re-download.
	// It folds back into StatusDone when the run releases the store.
	StatusSkipped Status = "skipped"
)

var allStatuses = []Status{
	StatusQueued,
	StatusDownloading,
	StatusDone,
	StatusFailed,
	StatusSkipped,
}

// AllStatuses returns every status in lifecycle order.
func AllStatuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// ParseStatus validates a textual status.
func ParseStatus(value string) (Status, error) {
	for _, status := range allStatuses {
		if string(status) == value {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown playlist status %q", value)
}

// transitions lists, for each target status, the statuses it may be entered from.
// Nothing transitions into queued; only Reset puts entries back there.
// terminal→downloading starts a new attempt when a later run revisits the entry.
var transitions = map[Status][]Status{
	StatusDownloading: {StatusQueued, StatusDone, StatusFailed, StatusSkipped},
	StatusDone:        {StatusDownloading},
	StatusFailed:      {StatusDownloading},
	StatusSkipped:     {StatusDone},
}

// CanTransition reports whether an entry may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[to] {
		if allowed == from {
			return true
		}
	}
	return false
}

// Entry is one playlist item tracked through its download lifecycle.
type Entry struct {
	Index  int    `json:"index"`
	ID     string `json:"id"`
	Title  string `json:"title"`
	URL    string `json:"url"`
	Status Status `json:"status"`
}

// Summary aggregates entry counts per status.
type Summary struct {
	Source string         `json:"source,omitempty"`
	Total  int            `json:"total"`
	Counts map[Status]int `json:"counts"`
	Owner  string         `json:"owner,omitempty"`
}
