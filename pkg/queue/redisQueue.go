package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	defaultAttempts = 3
	defaultBackoff  = time.Second
)

// Options controls a single Add call.
type Options struct {
	// Delay defers execution; delayed jobs land in the sorted set.
	Delay time.Duration
	// JobID is a stable dedupe key. Adding a delayed job with an existing
	// JobID replaces the earlier one.
	JobID string
	// Attempts and Backoff are consumed by workers; defaults are 3
	// attempts with exponential backoff from a 1s base.
	Attempts int
	Backoff  time.Duration
}

// Task is the envelope stored on the queue.
type Task struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Payload   json.RawMessage `json:"payload"`
	ExecuteAt time.Time       `json:"execute_at,omitempty"`
	Attempts  int             `json:"attempts"`
	Backoff   time.Duration   `json:"backoff"`
	CreatedAt time.Time       `json:"created_at"`
}

// RedisQueue is a write-only job sink over a Redis list, with a sorted set
// for delayed jobs. Workers consuming the queues are external processes;
// the core never waits on them.
type RedisQueue struct {
	client       *redis.Client
	mainQueue    string
	delayedQueue string
	payloadHash  string
}

// NewRedisQueue creates a sink writing to "<name>" with delayed jobs in
// "<name>:delayed". Delayed payloads are kept in a hash keyed by job id so
// a job can be replaced or removed by its stable identity.
func NewRedisQueue(client *redis.Client, name string) *RedisQueue {
	return &RedisQueue{
		client:       client,
		mainQueue:    name,
		delayedQueue: name + ":delayed",
		payloadHash:  name + ":delayed:payloads",
	}
}

// Add enqueues a named job. Jobs without a delay go onto the list
// immediately; delayed jobs are scored by their execution instant.
func (q *RedisQueue) Add(ctx context.Context, name string, payload interface{}, opts *Options) error {
	if opts == nil {
		opts = &Options{}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal job payload: %w", err)
	}

	task := Task{
		ID:        opts.JobID,
		Name:      name,
		Payload:   body,
		Attempts:  opts.Attempts,
		Backoff:   opts.Backoff,
		CreatedAt: time.Now(),
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.Attempts <= 0 {
		task.Attempts = defaultAttempts
	}
	if task.Backoff <= 0 {
		task.Backoff = defaultBackoff
	}

	if opts.Delay > 0 {
		task.ExecuteAt = time.Now().Add(opts.Delay)
		return q.addDelayed(ctx, &task)
	}

	data, err := json.Marshal(&task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}
	if err := q.client.LPush(ctx, q.mainQueue, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue task %s: %w", task.ID, err)
	}

	logrus.Debugf("task %s (%s) enqueued to %s", task.ID, name, q.mainQueue)
	return nil
}

// addDelayed stores the job id in the sorted set and the full task in the
// payload hash. ZADD on an existing member updates its score and HSET
// overwrites the payload, which is exactly the replace semantics wanted
// for reminder rescheduling.
func (q *RedisQueue) addDelayed(ctx context.Context, task *Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.ZAdd(ctx, q.delayedQueue, &redis.Z{
		Score:  float64(task.ExecuteAt.UnixNano()) / 1e9,
		Member: task.ID,
	})
	pipe.HSet(ctx, q.payloadHash, task.ID, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to schedule task %s: %w", task.ID, err)
	}

	logrus.Debugf("task %s (%s) scheduled for %s", task.ID, task.Name, task.ExecuteAt.Format(time.RFC3339))
	return nil
}

// Remove drops a delayed job by its stable id. Removing a job that was
// never scheduled, or was already promoted, is not an error.
func (q *RedisQueue) Remove(ctx context.Context, jobID string) error {
	pipe := q.client.TxPipeline()
	pipe.ZRem(ctx, q.delayedQueue, jobID)
	pipe.HDel(ctx, q.payloadHash, jobID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to remove task %s: %w", jobID, err)
	}
	return nil
}

// PromoteDue moves delayed jobs whose execution instant has passed onto the
// main queue. External workers only read the main list, so something must
// tick this; see the queue promoter in internal/worker.
func (q *RedisQueue) PromoteDue(ctx context.Context, now time.Time) (int, error) {
	cutoff := fmt.Sprintf("%f", float64(now.UnixNano())/1e9)

	ids, err := q.client.ZRangeByScore(ctx, q.delayedQueue, &redis.ZRangeBy{
		Min: "0",
		Max: cutoff,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read due tasks: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	promoted := 0
	for _, id := range ids {
		data, err := q.client.HGet(ctx, q.payloadHash, id).Result()
		if err == redis.Nil {
			q.client.ZRem(ctx, q.delayedQueue, id)
			continue
		}
		if err != nil {
			return promoted, fmt.Errorf("failed to load payload for task %s: %w", id, err)
		}

		pipe := q.client.TxPipeline()
		pipe.LPush(ctx, q.mainQueue, data)
		pipe.ZRem(ctx, q.delayedQueue, id)
		pipe.HDel(ctx, q.payloadHash, id)
		if _, err := pipe.Exec(ctx); err != nil {
			return promoted, fmt.Errorf("failed to promote task %s: %w", id, err)
		}
		promoted++
	}

	if promoted > 0 {
		logrus.Infof("promoted %d due tasks to %s", promoted, q.mainQueue)
	}
	return promoted, nil
}
