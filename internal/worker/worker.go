// Package worker runs background jobs pulled from the Redis queue.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventconnect/backend/internal/exports"
	"github.com/eventconnect/backend/internal/models"
	"github.com/eventconnect/backend/pkg/queue"
	"github.com/eventconnect/backend/pkg/storage"
)

// ExportStore reads and finalizes export rows.
type ExportStore interface {
	Get(ctx context.Context, id uuid.UUID) (*models.AttendanceExport, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, key string, rowCount int) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

// AttendanceSource lists a workshop's attendance records.
type AttendanceSource interface {
	ListByWorkshop(ctx context.Context, workshopID uuid.UUID) ([]models.AttendanceRow, error)
}

// ObjectStore uploads export files.
type ObjectStore interface {
	UploadExport(ctx context.Context, key string, body io.Reader) error
	DeleteExport(ctx context.Context, key string) error
}

// JobQueue is the subset of the queue the worker consumes.
type JobQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Ack(ctx context.Context, job *queue.Job) error
	Retry(ctx context.Context, job *queue.Job) (bool, error)
	Recover(ctx context.Context) (int, error)
}

// ExportProcessor renders attendance lists to CSV and stores them in S3.
type ExportProcessor struct {
	exports    ExportStore
	attendance AttendanceSource
	objects    ObjectStore
	queue      JobQueue
	backoff    time.Duration
	logger     *zap.Logger
}

// NewExportProcessor creates an attendance export processor.
func NewExportProcessor(store ExportStore, attendance AttendanceSource, objects ObjectStore, q JobQueue, logger *zap.Logger) *ExportProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportProcessor{
		exports:    store,
		attendance: attendance,
		objects:    objects,
		queue:      q,
		backoff:    queue.RetryBackoff,
		logger:     logger,
	}
}

// Process executes one export job.
func (p *ExportProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeAttendanceExport {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.AttendanceExportPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	export, err := p.exports.Get(ctx, payload.ExportID)
	if errors.Is(err, exports.ErrNotFound) {
		p.logger.Info("export gone, skipping", zap.String("export_id", payload.ExportID.String()))
		return nil
	}
	if err != nil {
		return err
	}
	if export.Status == models.ExportCompleted {
		p.logger.Info("export already completed", zap.String("export_id", export.ID.String()))
		return nil
	}

	rows, err := p.attendance.ListByWorkshop(ctx, payload.WorkshopID)
	if err != nil {
		return fmt.Errorf("load attendance: %w", err)
	}
	var buf bytes.Buffer
	if err := exports.WriteCSV(&buf, rows); err != nil {
		return fmt.Errorf("render csv: %w", err)
	}

	key := storage.ExportKey(payload.WorkshopID.String(), payload.ExportID.String())
	if err := p.objects.UploadExport(ctx, key, bytes.NewReader(buf.Bytes())); err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}

	if err := p.exports.MarkCompleted(ctx, export.ID, key, len(rows)); err != nil {
		p.logger.Error("mark export completed failed", zap.Error(err), zap.String("export_id", export.ID.String()))
		if delErr := p.objects.DeleteExport(ctx, key); delErr != nil {
			p.logger.Warn("orphaned export object", zap.String("s3_key", key), zap.Error(delErr))
		}
		return fmt.Errorf("update db: %w", err)
	}

	p.logger.Info("attendance export completed",
		zap.String("export_id", export.ID.String()),
		zap.String("s3_key", key),
		zap.Int("rows", len(rows)),
	)
	return nil
}

// Handle processes a job and schedules a retry on failure. Jobs that exhaust
// their retries mark the export failed.
func (p *ExportProcessor) Handle(ctx context.Context, job *queue.Job) {
	p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
	err := p.Process(ctx, job)
	if err == nil {
		if ackErr := p.queue.Ack(ctx, job); ackErr != nil {
			p.logger.Warn("ack failed, job may run again", zap.String("job_id", job.ID), zap.Error(ackErr))
		}
		return
	}
	p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))

	dead, reErr := p.queue.Retry(ctx, job)
	if reErr != nil {
		p.logger.Error("retry enqueue failed", zap.Error(reErr))
		return
	}
	if !dead {
		return
	}
	var payload queue.AttendanceExportPayload
	if json.Unmarshal(job.Payload, &payload) != nil || payload.ExportID == uuid.Nil {
		return
	}
	if mErr := p.exports.MarkFailed(ctx, payload.ExportID, err.Error()); mErr != nil {
		p.logger.Error("mark export failed", zap.Error(mErr), zap.String("export_id", payload.ExportID.String()))
	}
}

// Run requeues jobs orphaned by a previous run, then consumes until ctx is
// cancelled.
func (p *ExportProcessor) Run(ctx context.Context) {
	if _, err := p.queue.Recover(ctx); err != nil {
		p.logger.Warn("recover in-flight jobs", zap.Error(err))
	}
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("export worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}
		p.Handle(ctx, job)
	}
}

func (p *ExportProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
