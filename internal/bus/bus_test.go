package bus

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/codr/codr/internal/redisconn"
	"github.com/codr/codr/internal/types"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func testRedisURL() string {
	if v := os.Getenv("CODR_TEST_REDIS_URL"); v != "" {
		return v
	}
	return "redis://localhost:6379/0"
}

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	logger := logrus.NewEntry(logrus.New())
	client, err := redisconn.NewClient(testRedisURL(), logger)
	if err != nil {
		t.Skipf("no live redis at %s: %v", testRedisURL(), err)
	}
	t.Cleanup(func() { client.Close() })
	return New(client, "codr:test_queue:"+uuid.New().String())
}

func TestSubscribeReceivesOutputThenComplete(t *testing.T) {
	b := newTestBus(t)
	jobID := uuid.New().String()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ready := make(chan struct{})
	received := make(chan types.BusMessage, 4)
	errCh := make(chan error, 1)

	go func() {
		errCh <- b.subscribeWithReady(ctx, jobID, func(msg types.BusMessage) {
			received <- msg
		}, ready)
	}()

	<-ready
	// Give the subscriber loop a brief moment to actually attach before
	// publishing, since pubsub delivery is fire-and-forget.
	time.Sleep(100 * time.Millisecond)

	if err := b.PublishOutput(ctx, jobID, "stdout", "hello"); err != nil {
		t.Fatalf("unexpected publish error: %v", err)
	}
	if err := b.PublishComplete(ctx, jobID, 0, 0.5, ""); err != nil {
		t.Fatalf("unexpected publish error: %v", err)
	}

	if err := <-errCh; err != nil {
		t.Fatalf("unexpected subscribe error: %v", err)
	}

	close(received)
	var got []types.BusMessage
	for msg := range received {
		got = append(got, msg)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 messages, got %d: %+v", len(got), got)
	}
	if got[0].Type != types.BusMessageOutput || got[0].Data != "hello" {
		t.Errorf("unexpected first message: %+v", got[0])
	}
	if got[1].Type != types.BusMessageComplete || got[1].ExitCode != 0 {
		t.Errorf("unexpected second message: %+v", got[1])
	}
}

func TestEnqueueDequeueRoundTrip(t *testing.T) {
	b := newTestBus(t)
	ctx := context.Background()

	entry := types.JobQueueEntry{JobID: uuid.New().String()}
	if err := b.Enqueue(ctx, entry); err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}

	got, err := b.Dequeue(ctx, 2*time.Second)
	if err != nil {
		t.Fatalf("unexpected dequeue error: %v", err)
	}
	if got == nil {
		t.Fatal("expected a queue entry, got nil")
	}
	if got.JobID != entry.JobID {
		t.Errorf("expected job id %s, got %s", entry.JobID, got.JobID)
	}
}

func TestDequeueTimesOutWithNoEntry(t *testing.T) {
	b := newTestBus(t)
	got, err := b.Dequeue(context.Background(), 500*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected dequeue error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil entry on timeout, got %+v", got)
	}
}

func TestHealthyReflectsUnderlyingClient(t *testing.T) {
	b := newTestBus(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if !b.Healthy(ctx) {
		t.Fatal("expected bus backed by a live client to report healthy")
	}
}

// subscribeWithReady mirrors Subscribe but closes ready once the pubsub
// channel is attached, so the test can publish only after the subscriber is
// actually listening instead of racing it with a fixed sleep alone.
func (b *Bus) subscribeWithReady(ctx context.Context, jobID string, handler func(types.BusMessage), ready chan struct{}) error {
	pubsub := b.client.Raw().Subscribe(ctx, outputChannel(jobID), completeChannel(jobID))
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		close(ready)
		return err
	}
	close(ready)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var msg types.BusMessage
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				continue
			}
			handler(msg)
			if msg.Type == types.BusMessageComplete {
				return nil
			}
		}
	}
}
