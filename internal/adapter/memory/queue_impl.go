package memory

import (
	"context"
	"sync"

	"github.com/user/contact-scraper/internal/repository"
)

// Queue is a slice-backed repository.QueueRepository.
type Queue struct {
	mu    sync.Mutex
	items []string
}

var _ repository.QueueRepository = (*Queue)(nil)

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Reset(ctx context.Context) error {
	q.mu.Lock()
	q.items = nil
	q.mu.Unlock()
	return nil
}

func (q *Queue) PushBack(ctx context.Context, queries ...string) error {
	q.mu.Lock()
	q.items = append(q.items, queries...)
	q.mu.Unlock()
	return nil
}

func (q *Queue) PushFront(ctx context.Context, queries ...string) error {
	q.mu.Lock()
	q.items = append(append([]string(nil), queries...), q.items...)
	q.mu.Unlock()
	return nil
}

func (q *Queue) PopFront(ctx context.Context) (string, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return "", false, nil
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true, nil
}

func (q *Queue) Size(ctx context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.items)), nil
}
