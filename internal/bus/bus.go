// Package bus implements the message bus (spec section 4.5): per-job
// output/complete/input channels (error frames travel on the output
// channel) plus the FIFO work queue. Grounded in
// original_source's backend/lib/services/pubsub_service.py and the
// codr:job_queue list usage in backend/services/websocket/routes.py.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/codr/codr/internal/redisconn"
	"github.com/codr/codr/internal/types"
	"github.com/go-redis/redis/v8"
)

// Bus is the message bus, backed by Redis pub/sub and a list.
type Bus struct {
	client    *redisconn.Client
	queueName string
}

// New constructs a Bus. queueName is the FIFO work list name
// (JOB_QUEUE_NAME, default codr:job_queue).
func New(client *redisconn.Client, queueName string) *Bus {
	return &Bus{client: client, queueName: queueName}
}

func outputChannel(jobID string) string   { return fmt.Sprintf("job:%s:output", jobID) }
func completeChannel(jobID string) string { return fmt.Sprintf("job:%s:complete", jobID) }
func inputChannel(jobID string) string    { return fmt.Sprintf("job:%s:input", jobID) }

// PublishOutput publishes one output frame to a job's output channel.
func (b *Bus) PublishOutput(ctx context.Context, jobID, stream, text string) error {
	msg := types.BusMessage{Type: types.BusMessageOutput, Stream: stream, Data: text}
	return b.publish(ctx, outputChannel(jobID), msg)
}

// PublishComplete publishes the terminal frame to a job's complete
// channel. message is a short one-line disposition (see
// internal/sanitize.Summarize), empty for a successful run.
func (b *Bus) PublishComplete(ctx context.Context, jobID string, exitCode int, executionTime float64, message string) error {
	msg := types.BusMessage{Type: types.BusMessageComplete, ExitCode: exitCode, ExecutionTime: executionTime, Message: message}
	return b.publish(ctx, completeChannel(jobID), msg)
}

// PublishError publishes a fatal frame. Matching the original's
// pubsub_service.py, error frames are delivered on the output channel so a
// single subscription sees both output and error without a third
// subscribe call.
func (b *Bus) PublishError(ctx context.Context, jobID, message string) error {
	msg := types.BusMessage{Type: types.BusMessageError, Message: message}
	return b.publish(ctx, outputChannel(jobID), msg)
}

// PublishInput forwards one raw keystroke payload from the gateway to the
// worker.
func (b *Bus) PublishInput(ctx context.Context, jobID, data string) error {
	return b.client.Raw().Publish(ctx, inputChannel(jobID), data).Err()
}

func (b *Bus) publish(ctx context.Context, channel string, msg types.BusMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("bus: marshal: %w", err)
	}
	return b.client.Raw().Publish(ctx, channel, payload).Err()
}

// Subscribe fans output and complete messages for one job to handler,
// unsubscribing automatically when a complete message is delivered or ctx
// is cancelled. It blocks until the subscription ends.
func (b *Bus) Subscribe(ctx context.Context, jobID string, handler func(types.BusMessage)) error {
	pubsub := b.client.Raw().Subscribe(ctx, outputChannel(jobID), completeChannel(jobID))
	defer pubsub.Close()

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

// SubscribeInput subscribes to a job's input channel, invoking handler for
// each raw keystroke payload, until ctx is cancelled.
func (b *Bus) SubscribeInput(ctx context.Context, jobID string, handler func(string)) error {
	pubsub := b.client.Raw().Subscribe(ctx, inputChannel(jobID))
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			handler(m.Payload)
		}
	}
}

// Enqueue pushes a JobQueueEntry onto the FIFO work list.
func (b *Bus) Enqueue(ctx context.Context, entry types.JobQueueEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("bus: marshal queue entry: %w", err)
	}
	return b.client.Raw().LPush(ctx, b.queueName, payload).Err()
}

// Dequeue blocks (with pollTimeout) for the next queue entry. A nil,nil
// return means the poll timed out with no entry available.
func (b *Bus) Dequeue(ctx context.Context, pollTimeout time.Duration) (*types.JobQueueEntry, error) {
	result, err := b.client.Raw().BRPop(ctx, pollTimeout, b.queueName).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("bus: dequeue: %w", err)
	}
	if len(result) < 2 {
		return nil, fmt.Errorf("bus: dequeue: malformed result")
	}

	var entry types.JobQueueEntry
	if err := json.Unmarshal([]byte(result[1]), &entry); err != nil {
		return nil, fmt.Errorf("bus: dequeue: unmarshal: %w", err)
	}
	return &entry, nil
}

// Healthy reports whether the bus's underlying connection is reachable.
func (b *Bus) Healthy(ctx context.Context) bool {
	return b.client.Healthy(ctx)
}
