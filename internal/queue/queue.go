package queue

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
)

// TaskNotificationDeliver asks the external delivery worker to push a
// notification over its email/push channels.
const TaskNotificationDeliver = "notification:deliver"

type Task struct {
	Type    string
	Payload []byte
}

// Enqueuer hands work to the out-of-band delivery worker.
type Enqueuer interface {
	Enqueue(ctx context.Context, task Task) error
	Close() error
}

type asynqEnqueuer struct {
	client *asynq.Client
}

// NewAsynqEnqueuer connects an asynq client to the Redis instance the
// delivery worker consumes from.
func NewAsynqEnqueuer(redisURL string) (*asynqEnqueuer, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	return &asynqEnqueuer{client: asynq.NewClient(opt)}, nil
}

func (a *asynqEnqueuer) Enqueue(ctx context.Context, task Task) error {
	if task.Type == "" {
		return fmt.Errorf("task type is required")
	}
	_, err := a.client.EnqueueContext(ctx, asynq.NewTask(task.Type, task.Payload))
	if err != nil {
		return fmt.Errorf("enqueueing %s: %w", task.Type, err)
	}
	return nil
}

func (a *asynqEnqueuer) Close() error {
	return a.client.Close()
}
