package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	config "github.com/kamaubrian/nyumba_stays/configs"
	"github.com/kamaubrian/nyumba_stays/messaging"
)

// MessageDispatcher is the dispatcher surface the worker invokes per task.
type MessageDispatcher interface {
	Dispatch(ctx context.Context, messageID uuid.UUID) error
}

// Worker runs the asynq server consuming notification tasks.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewWorkerFromEnv builds a worker from REDIS_URL with exponential backoff
// between retry attempts.
func NewWorkerFromEnv(dispatcher MessageDispatcher) (*Worker, error) {
	redisURL := config.Config("REDIS_URL")
	if redisURL == "" {
		return nil, errors.New("queue: REDIS_URL is not set")
	}
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("queue: parse REDIS_URL: %w", err)
	}

	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			notificationQueue: 5,
			"default":         1,
		},
		RetryDelayFunc: retryDelay,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Printf("🔥 Queue task failed: type=%s err=%v", task.Type(), err)
		}),
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskMessageCreated, HandleMessageCreated(dispatcher))
	return &Worker{server: srv, mux: mux}, nil
}

// retryDelay backs off exponentially: 2s, 4s, 8s, ...
func retryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	return time.Duration(1<<uint(n)) * time.Second
}

// HandleMessageCreated adapts the dispatcher to an asynq handler. A missing
// message is a permanent condition and is discarded without retry; any other
// dispatch error is treated as transient and retried by the server.
func HandleMessageCreated(dispatcher MessageDispatcher) func(ctx context.Context, t *asynq.Task) error {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload MessageCreatedPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("malformed message_created payload: %v: %w", err, asynq.SkipRetry)
		}

		if err := dispatcher.Dispatch(ctx, payload.MessageID); err != nil {
			if errors.Is(err, messaging.ErrMessageNotFound) {
				log.Printf("Message %s deleted before notification ran, discarding task", payload.MessageID)
				return fmt.Errorf("message gone: %w", asynq.SkipRetry)
			}
			return err
		}
		return nil
	}
}

// Run starts the worker and blocks until ctx is canceled, then shuts down
// gracefully.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return err
	}
	<-ctx.Done()
	w.server.Shutdown()
	return nil
}
