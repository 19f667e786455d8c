package procexec

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Execution describes one running child process.
type Execution struct {
	JobID   string    `json:"job_id"`
	PID     int       `json:"pid"`
	Argv    []string  `json:"argv"`
	Started time.Time `json:"started"`
}

type handle struct {
	key  string
	exec Execution

	stopOnce sync.Once
	stop     chan struct{}
}

func (h *handle) requestStop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

func (h *handle) stopped() bool {
	select {
	case <-h.stop:
		return true
	default:
		return false
	}
}

// Registry tracks running children keyed by the owning job id.
type Registry struct {
	mu     sync.Mutex
	active map[string]*handle
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{active: make(map[string]*handle)}
}

func (r *Registry) add(jobID string, pid int, argv []string) *handle {
	key := jobID
	if key == "" {
		key = fmt.Sprintf("pid-%d", pid)
	}
	h := &handle{
		key: key,
		exec: Execution{
			JobID:   jobID,
			PID:     pid,
			Argv:    append([]string(nil), argv...),
			Started: time.Now().UTC(),
		},
		stop: make(chan struct{}),
	}
	r.mu.Lock()
	r.active[key] = h
	r.mu.Unlock()
	return h
}

func (r *Registry) remove(h *handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.active[h.key]; ok && current == h {
		delete(r.active, h.key)
	}
}

// Terminate stops the child owned by jobID. It reports whether one was running.
func (r *Registry) Terminate(jobID string) bool {
	r.mu.Lock()
	h, ok := r.active[jobID]
	r.mu.Unlock()
	if !ok {
		return false
	}
	h.requestStop()
	return true
}

// TerminateAll stops every tracked child and returns how many were signalled.
func (r *Registry) TerminateAll() int {
	r.mu.Lock()
	handles := make([]*handle, 0, len(r.active))
	for _, h := range r.active {
		handles = append(handles, h)
	}
	r.mu.Unlock()
	for _, h := range handles {
		h.requestStop()
	}
	return len(handles)
}

// Active lists running children ordered by start time.
func (r *Registry) Active() []Execution {
	r.mu.Lock()
	out := make([]Execution, 0, len(r.active))
	for _, h := range r.active {
		out = append(out, h.exec)
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Started.Before(out[j].Started) })
	return out
}

// Lookup returns the running child for jobID.
func (r *Registry) Lookup(jobID string) (Execution, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.active[jobID]
	if !ok {
		return Execution{}, false
	}
	return h.exec, true
}
