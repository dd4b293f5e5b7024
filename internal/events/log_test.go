package events

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogPublisher_Publish(t *testing.T) {
	logger, hook := test.NewNullLogger()
	publisher := NewLogPublisher(logger)

	err := publisher.Publish(context.Background(), Event{
		ID:         "evt-1",
		Type:       TripSettled,
		OccurredAt: time.Now(),
		Payload:    TripSettledPayload{TripID: "trip-1"},
	})
	require.NoError(t, err)

	require.Len(t, hook.AllEntries(), 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "event published", entry.Message)
	assert.Equal(t, TripSettled, entry.Data["event_type"])
	assert.Equal(t, "evt-1", entry.Data["event_id"])
}
