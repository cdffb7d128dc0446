package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrQueueEmpty is returned by Pop when the timeout elapsed with no job.
var ErrQueueEmpty = errors.New("queue empty")

// Queue is a set of named FIFO lists. Redis backs it in production; the
// in-process MemoryQueue is used when REDIS_URL is empty and in tests.
type Queue interface {
	Push(ctx context.Context, queue string, data []byte) error
	// Pop blocks up to timeout for a job on any of queues.
	Pop(ctx context.Context, timeout time.Duration, queues ...string) (string, []byte, error)
	// TryPop returns immediately; ok is false when the queue is empty.
	TryPop(ctx context.Context, queue string) ([]byte, bool, error)
	Len(ctx context.Context, queue string) (int64, error)
}

// ── Redis ─────────────────────────────────────────────────────────────────────

// RedisQueue uses LPUSH / BRPOP, so every list is consumed oldest first.
type RedisQueue struct{ rdb *redis.Client }

func NewRedisQueue(rdb *redis.Client) *RedisQueue { return &RedisQueue{rdb: rdb} }

func (q *RedisQueue) Push(ctx context.Context, queue string, data []byte) error {
	return q.rdb.LPush(ctx, queue, data).Err()
}

func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration, queues ...string) (string, []byte, error) {
	result, err := q.rdb.BRPop(ctx, timeout, queues...).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil, ErrQueueEmpty
	}
	if err != nil {
		return "", nil, err
	}
	if len(result) < 2 {
		return "", nil, ErrQueueEmpty
	}
	return result[0], []byte(result[1]), nil
}

func (q *RedisQueue) TryPop(ctx context.Context, queue string) ([]byte, bool, error) {
	b, err := q.rdb.RPop(ctx, queue).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (q *RedisQueue) Len(ctx context.Context, queue string) (int64, error) {
	return q.rdb.LLen(ctx, queue).Result()
}

// ── In-process ────────────────────────────────────────────────────────────────

const memoryQueueCapacity = 1024

type MemoryQueue struct {
	mu     sync.Mutex
	lists  map[string]chan []byte
	notify chan struct{}
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{lists: make(map[string]chan []byte), notify: make(chan struct{}, 1)}
}

func (q *MemoryQueue) list(name string) chan []byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	ch, ok := q.lists[name]
	if !ok {
		ch = make(chan []byte, memoryQueueCapacity)
		q.lists[name] = ch
	}
	return ch
}

func (q *MemoryQueue) Push(_ context.Context, queue string, data []byte) error {
	select {
	case q.list(queue) <- append([]byte(nil), data...):
	default:
		return fmt.Errorf("queue %s is full", queue)
	}
	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

func (q *MemoryQueue) Pop(ctx context.Context, timeout time.Duration, queues ...string) (string, []byte, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		for _, name := range queues {
			select {
			case b := <-q.list(name):
				return name, b, nil
			default:
			}
		}
		select {
		case <-ctx.Done():
			return "", nil, ctx.Err()
		case <-timer.C:
			return "", nil, ErrQueueEmpty
		case <-q.notify:
		}
	}
}

func (q *MemoryQueue) TryPop(_ context.Context, queue string) ([]byte, bool, error) {
	select {
	case b := <-q.list(queue):
		return b, true, nil
	default:
		return nil, false, nil
	}
}

func (q *MemoryQueue) Len(_ context.Context, queue string) (int64, error) {
	return int64(len(q.list(queue))), nil
}
