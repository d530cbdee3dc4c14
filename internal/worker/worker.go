package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/crowdcue/backend/internal/events"
	"github.com/crowdcue/backend/internal/export"
	"github.com/crowdcue/backend/internal/livestate"
	"github.com/crowdcue/backend/internal/models"
	"github.com/crowdcue/backend/pkg/queue"
	"github.com/crowdcue/backend/pkg/storage"
)

// SnapshotArchiver processes live state archive jobs: read the event's live
// state, render it as CSV, and upload the file to S3. Each job produces a
// timestamped object so successive on-air changes accumulate a history.
type SnapshotArchiver struct {
	projector *livestate.Projector
	s3        *storage.S3
	queue     *queue.Queue
	events    *events.Repository
	logger    *zap.Logger
}

// NewSnapshotArchiver creates a snapshot archive processor.
func NewSnapshotArchiver(projector *livestate.Projector, s3 *storage.S3, q *queue.Queue, eventRepo *events.Repository, logger *zap.Logger) *SnapshotArchiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotArchiver{projector: projector, s3: s3, queue: q, events: eventRepo, logger: logger}
}

// Process executes one snapshot archive job.
func (p *SnapshotArchiver) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeSnapshotArchive {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.SnapshotArchivePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	ls, err := p.projector.Get(ctx, payload.EventID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("load live state: %w", err)
	}

	csv := export.Render(ls)
	key := storage.SnapshotKey(payload.EventID, time.Now())

	s3URL, err := p.s3.Upload(ctx, p.s3.SnapshotsBucket(), key, "text/csv; charset=utf-8", strings.NewReader(csv))
	if err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}

	// The download endpoint presigns whatever key was recorded last; a
	// failed record only means the previous snapshot stays downloadable.
	if err := p.events.RecordSnapshot(ctx, payload.EventID, key); err != nil {
		p.logger.Warn("record snapshot key failed", zap.String("event_id", payload.EventID), zap.Error(err))
	}

	p.logger.Info("snapshot archived", zap.String("event_id", payload.EventID), zap.String("s3_key", key), zap.String("url", s3URL))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *SnapshotArchiver) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("snapshot worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
