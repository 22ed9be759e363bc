package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/user/contact-scraper/internal/repository"
)

const queueKeyPrefix = "scraper:queue:"

// QueueRepoImpl provides a concrete implementation for the QueueRepository interface using a Redis list.
// The head of the list is the front of the queue.
type QueueRepoImpl struct {
	client *redis.Client
	key    string
}

var _ repository.QueueRepository = (*QueueRepoImpl)(nil)

// NewQueueRepo creates a queue for dataset, so runs over different datasets do not share work.
func NewQueueRepo(client *redis.Client, dataset string) *QueueRepoImpl {
	return &QueueRepoImpl{client: client, key: queueKeyPrefix + dataset}
}

// NewClient creates a client and verifies the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (r *QueueRepoImpl) Reset(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}

// PushBack appends queries to the tail of the list.
func (r *QueueRepoImpl) PushBack(ctx context.Context, queries ...string) error {
	if len(queries) == 0 {
		return nil
	}
	return r.client.RPush(ctx, r.key, toArgs(queries, false)...).Err()
}

// PushFront pushes queries onto the head of the list. LPUSH inserts its arguments one
// at a time, so they are passed in reverse to keep their order.
func (r *QueueRepoImpl) PushFront(ctx context.Context, queries ...string) error {
	if len(queries) == 0 {
		return nil
	}
	return r.client.LPush(ctx, r.key, toArgs(queries, true)...).Err()
}

// PopFront removes and returns the head of the list.
func (r *QueueRepoImpl) PopFront(ctx context.Context) (string, bool, error) {
	item, err := r.client.LPop(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return item, true, nil
}

// Size returns the current number of items in the queue.
func (r *QueueRepoImpl) Size(ctx context.Context) (int64, error) {
	return r.client.LLen(ctx, r.key).Result()
}

func toArgs(queries []string, reverse bool) []any {
	args := make([]any, len(queries))
	for i, q := range queries {
		if reverse {
			args[len(queries)-1-i] = q
		} else {
			args[i] = q
		}
	}
	return args
}
