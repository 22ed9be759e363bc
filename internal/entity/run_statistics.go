package entity

import (
	"sync"
	"time"
)

// RunStatistics holds process-local counters for one run.
// It is read concurrently by the status server, so all access goes through methods.
type RunStatistics struct {
	mu sync.Mutex
	s  RunSnapshot
}

// RunSnapshot is a point-in-time copy of RunStatistics.
type RunSnapshot struct {
	TotalQueries  int       `json:"total_queries"`
	Completed     int       `json:"completed"`
	Failed        int       `json:"failed"`
	Blocked       int       `json:"blocked"`
	TotalContacts int       `json:"total_contacts"`
	Duplicates    int       `json:"duplicates"`
	StartTime     time.Time `json:"start_time"`
}

func NewRunStatistics(start time.Time) *RunStatistics {
	return &RunStatistics{s: RunSnapshot{StartTime: start}}
}

func (r *RunStatistics) SetTotalQueries(n int) {
	r.mu.Lock()
	r.s.TotalQueries = n
	r.mu.Unlock()
}

func (r *RunStatistics) AddCompleted() {
	r.mu.Lock()
	r.s.Completed++
	r.mu.Unlock()
}

// AddFailed counts a failed query; blocked failures are counted in both totals.
func (r *RunStatistics) AddFailed(blocked bool) {
	r.mu.Lock()
	r.s.Failed++
	if blocked {
		r.s.Blocked++
	}
	r.mu.Unlock()
}

func (r *RunStatistics) AddContacts(inserted, duplicates int) {
	r.mu.Lock()
	r.s.TotalContacts += inserted
	r.s.Duplicates += duplicates
	r.mu.Unlock()
}

func (r *RunStatistics) Snapshot() RunSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.s
}
