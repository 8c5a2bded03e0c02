package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	config "github.com/kamaubrian/nyumba_stays/configs"
	"github.com/kamaubrian/nyumba_stays/realtime"
)

// TaskMessageCreated is the queue task name for the message-created fact
// consumed by the notification dispatcher.
const TaskMessageCreated = "messaging:message_created"

const notificationQueue = "notifications"

// maxNotificationRetries bounds transient-failure retries; after the final
// attempt the job fails permanently and is visible only in logs.
const maxNotificationRetries = 5

// MessageCreatedPayload is the JSON body of a TaskMessageCreated task. It
// references the message rather than embedding it: the queue has
// at-least-once semantics and the dispatcher re-reads current state.
type MessageCreatedPayload struct {
	MessageID uuid.UUID `json:"message_id"`
}

// Client enqueues notification facts onto the Redis-backed queue.
type Client struct {
	inner *asynq.Client
}

// NewClientFromEnv constructs a client from the REDIS_URL env var.
func NewClientFromEnv() (*Client, error) {
	redisURL := config.Config("REDIS_URL")
	if redisURL == "" {
		return nil, errors.New("queue: REDIS_URL is not set")
	}
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("queue: parse REDIS_URL: %w", err)
	}
	return &Client{inner: asynq.NewClient(opt)}, nil
}

var _ realtime.NotificationEnqueuer = (*Client)(nil)

func (c *Client) EnqueueMessageCreated(ctx context.Context, messageID uuid.UUID) error {
	payload, err := json.Marshal(MessageCreatedPayload{MessageID: messageID})
	if err != nil {
		return err
	}
	task := asynq.NewTask(TaskMessageCreated, payload)
	_, err = c.inner.EnqueueContext(ctx, task,
		asynq.Queue(notificationQueue),
		asynq.MaxRetry(maxNotificationRetries),
	)
	return err
}

func (c *Client) Close() error {
	return c.inner.Close()
}
