package repository

import (
	"context"
	"errors"

	"github.com/user/contact-scraper/internal/entity"
)

var ErrNotFound = errors.New("not found")

// ContactRepository defines the interface for storing and reading extracted contacts.
type ContactRepository interface {
	// InsertContact stores a contact unless another contact with the same phone exists.
	// Contacts without a phone are always inserted.
	InsertContact(ctx context.Context, c *entity.Contact) (entity.InsertResult, error)
	// BatchInsertContacts stores many contacts. A record that fails is counted in Failed
	// and does not stop the others.
	BatchInsertContacts(ctx context.Context, cs []*entity.Contact) (entity.BatchInsertResult, error)
	// EachContact calls fn for every stored contact in insertion order until fn returns an error.
	EachContact(ctx context.Context, fn func(*entity.Contact) error) error
}

// ProgressRepository defines the interface for per-query progress records.
type ProgressRepository interface {
	MarkQueryInProgress(ctx context.Context, query string) error
	MarkQueryCompleted(ctx context.Context, query string, result entity.QueryResult) error
	// MarkQueryFailed records the failure and increments the query's retry count.
	MarkQueryFailed(ctx context.Context, query string, reason string) error
	GetCompletedQueries(ctx context.Context) (map[string]struct{}, error)
	// GetFailedQueries returns failed queries with a retry count below maxRetries,
	// ordered by first failure.
	GetFailedQueries(ctx context.Context, maxRetries int) ([]string, error)
	// GetProgress returns the record for a query, or ErrNotFound.
	GetProgress(ctx context.Context, query string) (*entity.QueryProgress, error)
	GetStats(ctx context.Context, topN int) (entity.StoreStats, error)
}

// Store is the persistence capability used by the run loop. Every record is scoped to
// the dataset the store was opened with.
type Store interface {
	ContactRepository
	ProgressRepository
	Ping(ctx context.Context) error
	Close()
}
