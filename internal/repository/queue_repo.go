package repository

import "context"

// QueueRepository defines the interface for the ordered queue of pending queries.
type QueueRepository interface {
	// Reset empties the queue.
	Reset(ctx context.Context) error
	// PushBack appends queries to the end of the queue, preserving their order.
	PushBack(ctx context.Context, queries ...string) error
	// PushFront puts queries at the front of the queue, preserving their order.
	PushFront(ctx context.Context, queries ...string) error
	// PopFront removes and returns the first query. ok is false when the queue is empty.
	PopFront(ctx context.Context) (query string, ok bool, err error)
	// Size returns the current number of items in the queue.
	Size(ctx context.Context) (int64, error)
}
