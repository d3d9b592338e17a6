// Package queue is a small Redis list job queue with at-least-once delivery.
// A dequeued job sits on a processing list until it is acked, retried or
// recovered after a worker crash.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueExports holds pending attendance export jobs.
	QueueExports = "worker:exports"
	// QueueProcessing holds jobs taken by a worker and not yet settled.
	QueueProcessing = "worker:exports:processing"
	// QueueDLQ receives jobs that failed MaxRetries times.
	QueueDLQ = "worker:dlq"
	// MaxRetries is the number of failed attempts before a job is dead-lettered.
	MaxRetries = 3
	// RetryBackoff is how long the worker waits after a queue error.
	RetryBackoff = 10 * time.Second

	pollTimeout = 5 * time.Second
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypeAttendanceExport JobType = "attendance_export"
)

// AttendanceExportPayload asks for one export row to be rendered.
type AttendanceExportPayload struct {
	ExportID   uuid.UUID `json:"export_id"`
	WorkshopID uuid.UUID `json:"workshop_id"`
}

// Job is the envelope stored in Redis.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`

	// raw is the exact list element, needed to remove it from the processing list.
	raw string
}

// Queue moves jobs between Redis lists.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
}

// NewQueue creates a Redis-backed job queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger}
}

// EnqueueAttendanceExport schedules an export render.
func (q *Queue) EnqueueAttendanceExport(ctx context.Context, payload AttendanceExportPayload) error {
	job, err := q.push(ctx, JobTypeAttendanceExport, payload)
	if err != nil {
		return err
	}
	q.logger.Debug("export job enqueued", zap.String("job_id", job.ID), zap.String("export_id", payload.ExportID.String()))
	return nil
}

func (q *Queue) push(ctx context.Context, typ JobType, payload any) (*Job, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", typ, err)
	}
	job := &Job{ID: uuid.NewString(), Type: typ, Payload: body, CreatedAt: time.Now().UTC()}
	raw, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, QueueExports, raw).Err(); err != nil {
		return nil, fmt.Errorf("push %s job: %w", typ, err)
	}
	return job, nil
}

// Dequeue waits up to a few seconds for a job and moves it to the processing
// list. It returns (nil, nil) when nothing arrived. Undecodable elements are
// dead-lettered as-is.
func (q *Queue) Dequeue(ctx context.Context) (*Job, error) {
	raw, err := q.client.BLMove(ctx, QueueExports, QueueProcessing, "LEFT", "RIGHT", pollTimeout).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue: %w", err)
	}
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		q.logger.Warn("undecodable job dead-lettered", zap.Error(err))
		pipe := q.client.TxPipeline()
		pipe.LRem(ctx, QueueProcessing, 1, raw)
		pipe.RPush(ctx, QueueDLQ, raw)
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, fmt.Errorf("dead-letter undecodable job: %w", err)
		}
		return nil, nil
	}
	job.raw = raw
	return &job, nil
}

// Ack settles a successfully processed job.
func (q *Queue) Ack(ctx context.Context, job *Job) error {
	if err := q.client.LRem(ctx, QueueProcessing, 1, job.raw).Err(); err != nil {
		return fmt.Errorf("ack job %s: %w", job.ID, err)
	}
	return nil
}

// Retry settles a failed attempt. The job goes back to the queue with its
// attempt counter bumped, or to the dead-letter list once it reaches
// MaxRetries, in which case dead is true.
func (q *Queue) Retry(ctx context.Context, job *Job) (dead bool, err error) {
	taken := job.raw
	job.Attempt++
	raw, err := json.Marshal(job)
	if err != nil {
		return false, fmt.Errorf("marshal job: %w", err)
	}
	dest := QueueExports
	if job.Attempt >= MaxRetries {
		dest, dead = QueueDLQ, true
	}

	pipe := q.client.TxPipeline()
	pipe.LRem(ctx, QueueProcessing, 1, taken)
	pipe.RPush(ctx, dest, raw)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("requeue job %s: %w", job.ID, err)
	}
	job.raw = string(raw)

	if dead {
		q.logger.Warn("job dead-lettered", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	} else {
		q.logger.Info("job requeued", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	}
	return dead, nil
}

// Recover puts jobs left on the processing list by a crashed worker back at
// the head of the queue and returns how many were moved. Call it before
// consuming, with a single worker running.
func (q *Queue) Recover(ctx context.Context) (int, error) {
	moved := 0
	for {
		err := q.client.LMove(ctx, QueueProcessing, QueueExports, "RIGHT", "LEFT").Err()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return moved, fmt.Errorf("recover jobs: %w", err)
		}
		moved++
	}
	if moved > 0 {
		q.logger.Info("recovered in-flight jobs", zap.Int("count", moved))
	}
	return moved, nil
}
