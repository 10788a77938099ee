package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startTestNATSServer starts an embedded NATS server with JetStream enabled.
func startTestNATSServer(t *testing.T) *natsserver.Server {
	opts := &natsserver.Options{
		Host:      "127.0.0.1",
		Port:      -1, // Random port
		NoLog:     true,
		NoSigs:    true,
		JetStream: true,
		StoreDir:  t.TempDir(),
	}

	server, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	go server.Start()

	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})

	return server
}

func TestConnect_BrokerUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := Connect(ctx, "nats://127.0.0.1:1") // nothing listens here
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBrokerUnavailable)
}

func TestEnqueueConsume_RoundTrip(t *testing.T) {
	server := startTestNATSServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q, err := Connect(ctx, server.ClientURL())
	require.NoError(t, err)
	defer q.Close()

	job := UploadJob{Filename: "doc.pdf", StoragePath: "/tmp/doc.pdf"}
	jobID, err := q.Enqueue(ctx, job)
	require.NoError(t, err)
	assert.NotEmpty(t, jobID)

	received := make(chan UploadJob, 1)
	go func() {
		_ = q.Consume(ctx, 2, func(_ context.Context, j UploadJob) Outcome {
			received <- j
			return Done
		})
	}()

	select {
	case got := <-received:
		assert.Equal(t, jobID, got.ID)
		assert.Equal(t, "doc.pdf", got.Filename)
		assert.Equal(t, "/tmp/doc.pdf", got.StoragePath)
		assert.False(t, got.CreatedAt.IsZero())
	case <-time.After(5 * time.Second):
		t.Fatal("job was not delivered")
	}
}

// An acked job must be delivered exactly once when nothing fails.
func TestConsume_NoDuplicateDelivery(t *testing.T) {
	server := startTestNATSServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q, err := Connect(ctx, server.ClientURL())
	require.NoError(t, err)
	defer q.Close()

	var mu sync.Mutex
	deliveries := map[string]int{}

	go func() {
		_ = q.Consume(ctx, 2, func(_ context.Context, j UploadJob) Outcome {
			mu.Lock()
			deliveries[j.ID]++
			mu.Unlock()
			return Done
		})
	}()

	var ids []string
	for i := 0; i < 5; i++ {
		id, err := q.Enqueue(ctx, UploadJob{Filename: "f.pdf", StoragePath: "/tmp/f.pdf"})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(deliveries) == 5
	}, 5*time.Second, 50*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for _, id := range ids {
		assert.Equal(t, 1, deliveries[id], "job %s delivered more than once", id)
	}
}

// A nak'd job must come back; a terminated one must not.
func TestConsume_RetryAndFail(t *testing.T) {
	server := startTestNATSServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q, err := Connect(ctx, server.ClientURL())
	require.NoError(t, err)
	defer q.Close()

	var mu sync.Mutex
	attempts := map[string]int{}

	go func() {
		_ = q.Consume(ctx, 2, func(_ context.Context, j UploadJob) Outcome {
			mu.Lock()
			attempts[j.Filename]++
			n := attempts[j.Filename]
			mu.Unlock()

			switch j.Filename {
			case "flaky.pdf":
				if n == 1 {
					return Retry
				}
				return Done
			default: // broken.pdf
				return Fail
			}
		})
	}()

	_, err = q.Enqueue(ctx, UploadJob{Filename: "flaky.pdf", StoragePath: "/tmp/flaky.pdf"})
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, UploadJob{Filename: "broken.pdf", StoragePath: "/tmp/broken.pdf"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return attempts["flaky.pdf"] == 2
	}, 10*time.Second, 50*time.Millisecond, "nak'd job should be redelivered")

	// Give the terminated job a chance to (incorrectly) come back.
	time.Sleep(500 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, attempts["broken.pdf"], "terminated job must not be redelivered")
}
