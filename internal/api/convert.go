package api

import (
	"time"

	"github.com/alessio/shellescape"

	"tubefetch/internal/deps"
	"tubefetch/internal/jobs"
	"tubefetch/internal/procexec"
	"tubefetch/internal/queue"
)

// FromEntry converts a playlist entry into its transport representation.
func FromEntry(entry queue.Entry) PlaylistEntry {
	return PlaylistEntry{
		Index:  entry.Index,
		ID:     entry.ID,
		Title:  entry.Title,
		URL:    entry.URL,
		Status: string(entry.Status),
	}
}

// FromEntries converts a playlist snapshot, preserving order.
func FromEntries(entries []queue.Entry) []PlaylistEntry {
	out := make([]PlaylistEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, FromEntry(entry))
	}
	return out
}

// MergeCounts returns counts keyed by status string with every status present.
func MergeCounts(counts map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(queue.AllStatuses()))
	for _, status := range queue.AllStatuses() {
		out[string(status)] = counts[status]
	}
	return out
}

// FromPlaylist combines a summary and its snapshot into one response.
func FromPlaylist(summary queue.Summary, entries []queue.Entry) PlaylistResponse {
	return PlaylistResponse{
		Source:  summary.Source,
		Total:   summary.Total,
		Counts:  MergeCounts(summary.Counts),
		Owner:   summary.Owner,
		Entries: FromEntries(entries),
	}
}

// FromJob converts a scheduler record.
func FromJob(info jobs.Info) Job {
	return Job{
		ID:       info.ID,
		Kind:     string(info.Kind),
		ClientID: info.ClientID,
		Target:   info.Target,
		State:    string(info.State),
		Started:  formatTime(info.Started),
		Finished: formatTime(info.Finished),
	}
}

// FromJobs converts a slice of scheduler records.
func FromJobs(infos []jobs.Info) []Job {
	out := make([]Job, 0, len(infos))
	for _, info := range infos {
		out = append(out, FromJob(info))
	}
	return out
}

// FromExecutions converts live child processes, rendering argv as a
// shell-quoted command line.
func FromExecutions(execs []procexec.Execution) []Execution {
	out := make([]Execution, 0, len(execs))
	for _, e := range execs {
		out = append(out, Execution{
			JobID:   e.JobID,
			PID:     e.PID,
			Command: shellescape.QuoteCommand(e.Argv),
			Started: formatTime(e.Started),
		})
	}
	return out
}

// FromDependencies converts dependency checks.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, DependencyStatus{
			Name:        s.Name,
			Command:     s.Command,
			Description: s.Description,
			Optional:    s.Optional,
			Available:   s.Available,
			Detail:      s.Detail,
		})
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
