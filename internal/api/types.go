package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// PlaylistEntry describes one playlist position in a transport-friendly format.
type PlaylistEntry struct {
	Index  int    `json:"index"`
	ID     string `json:"id"`
	Title  string `json:"title"`
	URL    string `json:"url"`
	Status string `json:"status"`
}

// PlaylistResponse wraps the playlist snapshot and its counts.
type PlaylistResponse struct {
	Source  string          `json:"source,omitempty"`
	Total   int             `json:"total"`
	Counts  map[string]int  `json:"counts"`
	Owner   string          `json:"owner,omitempty"`
	Entries []PlaylistEntry `json:"entries"`
}

// Job describes a scheduled or recently finished job.
type Job struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	ClientID string `json:"clientId,omitempty"`
	Target   string `json:"target,omitempty"`
	State    string `json:"state"`
	Started  string `json:"started,omitempty"`
	Finished string `json:"finished,omitempty"`
}

// Execution describes a live yt-dlp or ffmpeg child process.
type Execution struct {
	JobID   string `json:"jobId"`
	PID     int    `json:"pid"`
	Command string `json:"command"`
	Started string `json:"started,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	Started      string             `json:"started,omitempty"`
	LockFilePath string             `json:"lockFilePath"`
	SocketPath   string             `json:"socketPath,omitempty"`
	APIAddress   string             `json:"apiAddress,omitempty"`
	Clients      int                `json:"clients"`
	ActiveJobs   []Job              `json:"activeJobs"`
	RecentJobs   []Job              `json:"recentJobs"`
	Executions   []Execution        `json:"executions"`
	Playlist     PlaylistResponse   `json:"playlist"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// SubmitResponse reports the id allocated to an accepted job.
type SubmitResponse struct {
	JobID string `json:"jobId"`
}

// StopRequest targets one job, or every running job when JobID is empty.
type StopRequest struct {
	JobID string `json:"jobId,omitempty"`
}

// StopResponse lists the jobs that were signalled.
type StopResponse struct {
	Stopped []string `json:"stopped"`
}

// FetchRequest asks the daemon to resolve a playlist URL into the store.
type FetchRequest struct {
	URL           string `json:"url"`
	CookieBrowser string `json:"cookieBrowser,omitempty"`
	CookieFile    string `json:"cookieFile,omitempty"`
	ClientID      string `json:"clientId,omitempty"`
}

// ResetRequest returns every playlist entry to queued.
type ResetRequest struct {
	ClientID string `json:"clientId,omitempty"`
}

// ResetResponse reports how many entries changed.
type ResetResponse struct {
	Reset int64 `json:"reset"`
}

// ErrorResponse is the body of every non-2xx HTTP reply.
type ErrorResponse struct {
	Error string `json:"error"`
}
