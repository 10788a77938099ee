// Package queue provides the durable ingestion queue backed by NATS JetStream.
//
// One stream with a work-queue retention policy holds upload jobs. Publishing
// waits for the JetStream ack, so a job is visible to workers only after
// Enqueue returns. Delivery is at-least-once: workers ack processed jobs,
// nak retryable failures (the broker redelivers) and terminate fatal ones.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	streamName   = "INGEST"
	subject      = "ingest.jobs"
	consumerName = "doc-processor"
)

// ErrBrokerUnavailable indicates the NATS broker could not be reached.
var ErrBrokerUnavailable = errors.New("ingestion broker unavailable")

// Outcome is the terminal disposition a worker reports for a delivered job.
type Outcome int

const (
	// Done acknowledges the job; it will not be redelivered.
	Done Outcome = iota
	// Retry returns the job to the queue for redelivery.
	Retry
	// Fail terminates the job without redelivery.
	Fail
)

// Queue wraps a JetStream stream holding upload jobs.
type Queue struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	stream jetstream.Stream
}

// Connect dials NATS, ensures the ingestion stream exists and returns the
// queue. Connection failures are reported as ErrBrokerUnavailable.
func Connect(ctx context.Context, url string) (*Queue, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(1*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: connect to %s: %v", ErrBrokerUnavailable, url, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      streamName,
		Subjects:  []string{subject},
		Retention: jetstream.WorkQueuePolicy,
		Storage:   jetstream.FileStorage,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("%w: ensure stream: %v", ErrBrokerUnavailable, err)
	}

	return &Queue{nc: nc, js: js, stream: stream}, nil
}

// Enqueue publishes a job and waits for the broker ack. The returned job ID
// identifies the job across redeliveries. The queue does not deduplicate
// identical uploads and gives no ordering guarantee across jobs.
func (q *Queue) Enqueue(ctx context.Context, job UploadJob) (string, error) {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("marshal job: %w", err)
	}

	if _, err := q.js.Publish(ctx, subject, data); err != nil {
		return "", fmt.Errorf("%w: publish: %v", ErrBrokerUnavailable, err)
	}
	return job.ID, nil
}

// Handler processes one delivered job and reports its disposition.
type Handler func(ctx context.Context, job UploadJob) Outcome

// Consume delivers jobs to the handler until ctx is cancelled. Up to
// concurrency jobs are handled in parallel; the bound is admission control
// for the embedding service's rate limits, not a throughput knob.
func (q *Queue) Consume(ctx context.Context, concurrency int, handle Handler) error {
	if concurrency <= 0 {
		concurrency = 1
	}

	cons, err := q.stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       consumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       5 * time.Minute,
		MaxAckPending: concurrency,
	})
	if err != nil {
		return fmt.Errorf("%w: ensure consumer: %v", ErrBrokerUnavailable, err)
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	cc, err := cons.Consume(func(msg jetstream.Msg) {
		var job UploadJob
		if err := json.Unmarshal(msg.Data(), &job); err != nil {
			// Malformed payloads can never succeed on redelivery.
			_ = msg.Term()
			return
		}

		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() {
				<-sem
				wg.Done()
			}()

			switch handle(ctx, job) {
			case Done:
				_ = msg.Ack()
			case Retry:
				_ = msg.Nak()
			case Fail:
				_ = msg.Term()
			}
		}()
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}

	<-ctx.Done()
	cc.Stop()
	wg.Wait()
	return nil
}

// Close drains the NATS connection.
func (q *Queue) Close() {
	if q.nc != nil {
		q.nc.Close()
	}
}
