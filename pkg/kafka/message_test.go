package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObservation(t *testing.T) {
	t.Run("parses a full observation", func(t *testing.T) {
		msg := &IncomingMessage{
			Key:   "rec-1",
			Value: []byte(`{"id":"rec-1","name":"Jane Doe","email":"jane@example.edu","source":"wifi","observed_at":"2025-06-01T12:00:00Z"}`),
		}

		err := msg.ParseObservation()
		require.NoError(t, err)
		require.NotNil(t, msg.Observation)

		assert.Equal(t, "rec-1", msg.Observation.ID)
		assert.Equal(t, "Jane Doe", *msg.Observation.Name)
		assert.Equal(t, "wifi", msg.Observation.Source)
		assert.Equal(t, 2025, msg.Observation.ObservedAt.Year())
	})

	t.Run("id falls back to message key", func(t *testing.T) {
		msg := &IncomingMessage{
			Key:   "key-42",
			Value: []byte(`{"name":"Jane Doe"}`),
		}

		err := msg.ParseObservation()
		require.NoError(t, err)
		assert.Equal(t, "key-42", msg.Observation.ID)
	})

	t.Run("errors when id and key are both missing", func(t *testing.T) {
		msg := &IncomingMessage{
			Value: []byte(`{"name":"Jane Doe"}`),
		}

		err := msg.ParseObservation()
		assert.Error(t, err)
		assert.Nil(t, msg.Observation)
	})

	t.Run("errors on malformed json", func(t *testing.T) {
		msg := &IncomingMessage{
			Key:   "rec-1",
			Value: []byte(`{not json`),
		}

		err := msg.ParseObservation()
		assert.Error(t, err)
	})

	t.Run("source falls back to header", func(t *testing.T) {
		msg := &IncomingMessage{
			Key:     "rec-1",
			Value:   []byte(`{"id":"rec-1"}`),
			Headers: map[string]string{"source": "card_reader"},
		}

		err := msg.ParseObservation()
		require.NoError(t, err)
		assert.Equal(t, "card_reader", msg.Observation.Source)
		assert.Equal(t, "card_reader", msg.GetSource())
	})

	t.Run("observed_at falls back to message timestamp", func(t *testing.T) {
		ts := time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)
		msg := &IncomingMessage{
			Key:       "rec-1",
			Value:     []byte(`{"id":"rec-1"}`),
			Timestamp: ts,
		}

		err := msg.ParseObservation()
		require.NoError(t, err)
		assert.Equal(t, ts, msg.Observation.ObservedAt)
	})

	t.Run("observed_at defaults to now when no timestamp", func(t *testing.T) {
		msg := &IncomingMessage{
			Key:   "rec-1",
			Value: []byte(`{"id":"rec-1"}`),
		}

		err := msg.ParseObservation()
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().UTC(), msg.Observation.ObservedAt, time.Minute)
	})
}
