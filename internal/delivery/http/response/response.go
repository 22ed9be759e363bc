package response

import (
	"time"

	"github.com/user/contact-scraper/internal/entity"
)

type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}

// RunResponse is a DTO for the counters of the current run.
type RunResponse struct {
	RunID         string    `json:"run_id,omitempty"`
	TotalQueries  int       `json:"total_queries"`
	Completed     int       `json:"completed"`
	Failed        int       `json:"failed"`
	Blocked       int       `json:"blocked"`
	TotalContacts int       `json:"total_contacts"`
	Duplicates    int       `json:"duplicates"`
	StartTime     time.Time `json:"start_time"`
	Elapsed       string    `json:"elapsed"`
}

// StatsResponse combines the live run counters with the stored totals of the dataset.
type StatsResponse struct {
	Dataset string            `json:"dataset"`
	Run     *RunResponse      `json:"run,omitempty"`
	Store   entity.StoreStats `json:"store"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
