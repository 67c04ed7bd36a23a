package storage

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"food-admin/models"
	"food-admin/services"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryMarkers(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemoryMarkers(time.Hour)
	m.now = func() time.Time { return now }

	first, err := m.MarkNotified(ctx, 1)
	require.NoError(t, err)
	assert.True(t, first)

	again, _ := m.MarkNotified(ctx, 1)
	assert.False(t, again)

	other, _ := m.MarkNotified(ctx, 2)
	assert.True(t, other)

	now = now.Add(2 * time.Hour)
	expired, _ := m.MarkNotified(ctx, 1)
	assert.True(t, expired, "marker expires after ttl")

	require.NoError(t, m.ClearNotified(ctx, 2))
	cleared, _ := m.MarkNotified(ctx, 2)
	assert.True(t, cleared, "cleared marker can be set again")
}

func TestRedisMarkers(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })

	m := NewRedisMarkers(client, time.Minute)
	require.NoError(t, client.Del(ctx, m.NotifiedKey(900003)).Err())

	first, err := m.MarkNotified(ctx, 900003)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := m.MarkNotified(ctx, 900003)
	require.NoError(t, err)
	assert.False(t, again)

	require.NoError(t, m.ClearNotified(ctx, 900003))
	cleared, err := m.MarkNotified(ctx, 900003)
	require.NoError(t, err)
	assert.True(t, cleared)
	require.NoError(t, m.ClearNotified(ctx, 900003))
}

type recordingWriter struct {
	msgs []kafka.Message
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func TestKafkaPublisher_PublishStatusChanges(t *testing.T) {
	w := &recordingWriter{}
	p := NewKafkaPublisher(w)
	from := models.StatusPending
	at := time.Date(2024, 5, 1, 12, 0, 5, 0, time.UTC)

	err := p.PublishStatusChanges(context.Background(), []services.StatusChange{
		{OrderID: 12, From: &from, To: models.StatusOutForDelivery, ObservedAt: at},
		{OrderID: 13, To: models.StatusPending, ObservedAt: at},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 2)
	assert.Equal(t, "12", string(w.msgs[0].Key))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &body))
	assert.Equal(t, "pending", body["from"])
	assert.Equal(t, "out-for-delivery", body["to"])

	body = nil
	require.NoError(t, json.Unmarshal(w.msgs[1].Value, &body))
	assert.NotContains(t, body, "from")
}
