package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infraevents "github.com/jonesrussell/task-registry/infrastructure/events"
	"github.com/jonesrussell/task-registry/internal/events"
	"github.com/jonesrussell/task-registry/internal/models"
	"github.com/jonesrussell/task-registry/internal/testhelpers"
)

func setupPublisher(t *testing.T) (*events.Publisher, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return events.NewPublisher(client, "task-events-test", testhelpers.NewTestLogger()), client
}

func readEvents(t *testing.T, client *redis.Client) []infraevents.TaskEvent {
	t.Helper()

	msgs, err := client.XRange(context.Background(), "task-events-test", "-", "+").Result()
	require.NoError(t, err)

	out := make([]infraevents.TaskEvent, 0, len(msgs))
	for _, msg := range msgs {
		raw, ok := msg.Values["event"].(string)
		require.True(t, ok)

		var event infraevents.TaskEvent
		require.NoError(t, json.Unmarshal([]byte(raw), &event))
		out = append(out, event)
	}
	return out
}

func TestNewPublisher_NilClient(t *testing.T) {
	t.Parallel()

	pub := events.NewPublisher(nil, "", nil)
	assert.Nil(t, pub)

	require.NoError(t, pub.Publish(context.Background(), events.TaskDeleted(uuid.New())))
	pub.PublishAsync(events.TaskDeleted(uuid.New()))
}

func TestPublisher_Publish(t *testing.T) {
	t.Parallel()

	pub, client := setupPublisher(t)
	task := &models.Task{
		ID:       uuid.New(),
		Name:     "shop-scan",
		URL:      "https://example.com",
		SiteType: models.SiteTypeEcommerce,
		Status:   models.StatusCreated,
		Criteria: models.Criteria{},
	}

	require.NoError(t, pub.Publish(context.Background(), events.TaskCreated(task)))
	require.NoError(t, pub.Publish(context.Background(), events.TaskUpdated(task, []string{"status"})))

	got := readEvents(t, client)
	require.Len(t, got, 2)

	assert.Equal(t, infraevents.TaskCreated, got[0].EventType)
	assert.Equal(t, task.ID, got[0].TaskID)
	assert.NotEqual(t, uuid.Nil, got[0].EventID)
	assert.False(t, got[0].Timestamp.IsZero())

	assert.Equal(t, infraevents.TaskUpdated, got[1].EventType)
	payload, ok := got[1].Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"status"}, payload["changed_fields"])
}

func TestPublisher_PublishAsync(t *testing.T) {
	t.Parallel()

	pub, client := setupPublisher(t)
	id := uuid.New()

	pub.PublishAsync(events.TaskDeleted(id))

	require.Eventually(t, func() bool {
		n, err := client.XLen(context.Background(), "task-events-test").Result()
		return err == nil && n == 1
	}, 2*time.Second, 10*time.Millisecond)

	got := readEvents(t, client)
	require.Len(t, got, 1)
	assert.Equal(t, infraevents.TaskDeleted, got[0].EventType)
	assert.Equal(t, id, got[0].TaskID)
}
