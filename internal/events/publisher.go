// Package events publishes task lifecycle events to a Redis stream.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	infraevents "github.com/jonesrussell/task-registry/infrastructure/events"
	infralogger "github.com/jonesrussell/task-registry/infrastructure/logger"
	"github.com/jonesrussell/task-registry/internal/models"
)

const (
	asyncPublishTimeout = 5 * time.Second
	// streamMaxLen caps the stream with approximate trimming.
	streamMaxLen = 10000
)

// Publisher appends task events to a Redis stream. A nil *Publisher is a
// valid no-op publisher.
type Publisher struct {
	client *redis.Client
	stream string
	log    infralogger.Logger
}

// NewPublisher returns nil if client is nil.
func NewPublisher(client *redis.Client, stream string, log infralogger.Logger) *Publisher {
	if client == nil {
		return nil
	}
	if stream == "" {
		stream = infraevents.DefaultStreamName
	}
	if log == nil {
		log = infralogger.NewNop()
	}
	return &Publisher{
		client: client,
		stream: stream,
		log:    log,
	}
}

// Publish sends an event to the stream, filling in EventID and Timestamp.
func (p *Publisher) Publish(ctx context.Context, event infraevents.TaskEvent) error {
	if p == nil {
		return nil
	}

	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	result := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]any{
			"event": string(payload),
		},
	})
	if publishErr := result.Err(); publishErr != nil {
		return fmt.Errorf("publish to stream %s: %w", p.stream, publishErr)
	}

	p.log.Debug("Published task event",
		infralogger.String("event_type", string(event.EventType)),
		infralogger.String("task_id", event.TaskID.String()),
		infralogger.String("stream_id", result.Val()),
	)
	return nil
}

// PublishAsync publishes in the background. Errors are logged.
func (p *Publisher) PublishAsync(event infraevents.TaskEvent) {
	if p == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), asyncPublishTimeout)
		defer cancel()

		if err := p.Publish(ctx, event); err != nil {
			p.log.Error("Async publish failed",
				infralogger.String("event_type", string(event.EventType)),
				infralogger.String("task_id", event.TaskID.String()),
				infralogger.Error(err),
			)
		}
	}()
}

// TaskCreated builds a TASK_CREATED event.
func TaskCreated(task *models.Task) infraevents.TaskEvent {
	return infraevents.TaskEvent{
		EventType: infraevents.TaskCreated,
		TaskID:    task.ID,
		Payload: infraevents.TaskCreatedPayload{
			Name:     task.Name,
			URL:      task.URL,
			SiteType: string(task.SiteType),
			Status:   string(task.Status),
			Criteria: task.Criteria,
		},
	}
}

// TaskUpdated builds a TASK_UPDATED event.
func TaskUpdated(task *models.Task, changed []string) infraevents.TaskEvent {
	return infraevents.TaskEvent{
		EventType: infraevents.TaskUpdated,
		TaskID:    task.ID,
		Payload: infraevents.TaskUpdatedPayload{
			ChangedFields: changed,
			Status:        string(task.Status),
		},
	}
}

// TaskDeleted builds a TASK_DELETED event.
func TaskDeleted(id uuid.UUID) infraevents.TaskEvent {
	return infraevents.TaskEvent{
		EventType: infraevents.TaskDeleted,
		TaskID:    id,
		Payload:   infraevents.TaskDeletedPayload{Reason: "deleted via api"},
	}
}
