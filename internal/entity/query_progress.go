package entity

import "time"

type QueryStatus string

const (
	QueryPending    QueryStatus = "pending"
	QueryInProgress QueryStatus = "in_progress"
	QueryCompleted  QueryStatus = "completed"
	QueryFailed     QueryStatus = "failed"
)

// QueryProgress mirrors the `query_progress` PostgreSQL table schema.
type QueryProgress struct {
	Query             string
	Status            QueryStatus
	RetryCount        int
	ResultsFound      int
	ContactsExtracted int
	Error             string
	StartedAt         *time.Time
	CompletedAt       *time.Time
	FailedAt          *time.Time
	UpdatedAt         time.Time
}

// QueryResult is written back when a query completes.
type QueryResult struct {
	ResultsFound      int `json:"results_found"`
	ContactsExtracted int `json:"contacts_extracted"`
}

type QueryCount struct {
	Query    string `json:"query"`
	Contacts int    `json:"contacts"`
}

// StoreStats is the persisted view of a dataset.
type StoreStats struct {
	TotalContacts int          `json:"total_contacts"`
	Completed     int          `json:"completed_queries"`
	Failed        int          `json:"failed_queries"`
	InProgress    int          `json:"in_progress_queries"`
	TopQueries    []QueryCount `json:"top_queries"`
}
