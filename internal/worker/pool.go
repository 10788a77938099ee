package worker

import (
	"context"
	"log/slog"

	"github.com/bull/pdfchat/internal/queue"
)

// Pool connects a Processor to the ingestion queue with a bounded number of
// concurrent job executions.
type Pool struct {
	queue       *queue.Queue
	processor   *Processor
	concurrency int
	logger      *slog.Logger
}

// NewPool creates a worker pool. Non-positive concurrency is clamped to 1.
func NewPool(q *queue.Queue, processor *Processor, concurrency int, logger *slog.Logger) *Pool {
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		queue:       q,
		processor:   processor,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Run consumes jobs until ctx is cancelled. Job failures are logged and
// classified for the queue; they never stop the pool.
func (p *Pool) Run(ctx context.Context) error {
	p.logger.Info("worker pool starting", "concurrency", p.concurrency)

	return p.queue.Consume(ctx, p.concurrency, func(ctx context.Context, job queue.UploadJob) queue.Outcome {
		count, err := p.processor.Process(ctx, job)
		if err != nil {
			outcome := Classify(err)
			p.logger.Error("job failed",
				"job", job.ID,
				"file", job.Filename,
				"retryable", outcome == queue.Retry,
				"error", err,
			)
			return outcome
		}

		p.logger.Info("job complete", "job", job.ID, "file", job.Filename, "chunks", count)
		return queue.Done
	})
}
