// Package taskqueue implements the Redis-backed task queue shared by the
// gateway and worker services.
//
// Pending tasks live in a single FIFO list (<namespace>:tasks). Results are
// pushed onto a per-job list (<namespace>:results:<job_id>) that expires
// after the task's result TTL, whether or not anyone consumed it. Atomic
// BLPOP gives at-most-one-consumer delivery without any application-level
// locking; correlation always goes through the job id, never through
// completion order.
package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrResultTimeout is returned by WaitForResult when no result arrives
// within the window. It is distinct from connectivity errors so callers can
// log the two differently: a late result may still appear and harmlessly
// expire unread.
var ErrResultTimeout = errors.New("timed out waiting for job result")

// EnqueueOptions carries the optional parts of an enqueue call.
type EnqueueOptions struct {
	// RequestedBy is an opaque identifier of the user the work is for.
	RequestedBy string

	// ResultTTL is the lifetime in seconds of the published result.
	// Zero means DefaultResultTTL.
	ResultTTL int
}

// Queue provides the enqueue/pop/publish/wait protocol over Redis. It owns
// job id generation and the result key naming scheme. A Queue is safe for
// concurrent use.
type Queue struct {
	rdb          *redis.Client
	queueKey     string
	resultPrefix string
}

// New creates a Queue using the given namespace prefix for all keys.
func New(rdb *redis.Client, namespace string) *Queue {
	if namespace == "" {
		namespace = "guildest"
	}
	return &Queue{
		rdb:          rdb,
		queueKey:     namespace + ":tasks",
		resultPrefix: namespace + ":results:",
	}
}

func (q *Queue) resultKey(jobID string) string {
	return q.resultPrefix + jobID
}

// QueueKey returns the Redis key of the pending-task list.
func (q *Queue) QueueKey() string {
	return q.queueKey
}

// Ping verifies the backing store is reachable.
func (q *Queue) Ping(ctx context.Context) error {
	if err := q.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("queue store unreachable: %w", err)
	}
	return nil
}

// Enqueue appends a new task to the tail of the shared queue and returns it.
// The job id is a fresh UUID, so the caller can begin waiting for the result
// immediately. Job types are not validated here; unknown types are rejected
// by the worker as an error result.
func (q *Queue) Enqueue(ctx context.Context, jobType string, payload map[string]any, opts EnqueueOptions) (*Task, error) {
	if payload == nil {
		payload = map[string]any{}
	}

	ttl := opts.ResultTTL
	if ttl <= 0 {
		ttl = DefaultResultTTL
	}

	task := &Task{
		JobID:       uuid.NewString(),
		JobType:     jobType,
		Payload:     payload,
		RequestedBy: opts.RequestedBy,
		ResultTTL:   ttl,
	}

	data, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task: %w", err)
	}

	if err := q.rdb.RPush(ctx, q.queueKey, data).Err(); err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return task, nil
}

// Pop blocks up to timeout for the next pending task. A nil task with a nil
// error means the timeout elapsed with an empty queue; callers loop and
// check their shutdown conditions. This is deliberately asymmetric with
// WaitForResult, which treats an empty window as an error.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (*Task, error) {
	res, err := q.rdb.BLPop(ctx, timeout, q.queueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to pop task: %w", err)
	}

	// BLPOP returns [key, value]
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected BLPOP reply length %d", len(res))
	}

	var task Task
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}

	return &task, nil
}

// PublishResult appends the result to the job's result list and refreshes
// the key's expiry. Results stay list-typed so WaitForResult can block on
// them; a second publish for the same job id is legal but its entry expires
// unread (one consumer per job id).
func (q *Queue) PublishResult(ctx context.Context, jobID string, result Result, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultPublishTTL * time.Second
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	key := q.resultKey(jobID)
	if err := q.rdb.RPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("failed to publish result for job %s: %w", jobID, err)
	}
	if err := q.rdb.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set result expiry for job %s: %w", jobID, err)
	}

	return nil
}

// WaitForResult blocks up to timeout for the result correlated with jobID.
// An empty window fails with ErrResultTimeout rather than returning nil: a
// caller awaiting a specific result has no fallback branch to take, so the
// timeout must be a loggable condition.
func (q *Queue) WaitForResult(ctx context.Context, jobID string, timeout time.Duration) (*Result, error) {
	res, err := q.rdb.BLPop(ctx, timeout, q.resultKey(jobID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("job %s: %w", jobID, ErrResultTimeout)
		}
		return nil, fmt.Errorf("failed to wait for result of job %s: %w", jobID, err)
	}

	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected BLPOP reply length %d", len(res))
	}

	var result Result
	if err := json.Unmarshal([]byte(res[1]), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result of job %s: %w", jobID, err)
	}

	return &result, nil
}
