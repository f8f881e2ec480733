package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Ramsey-B/fern/pkg/models"
)

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	// Parsed content
	Observation *models.Record
}

// ParseObservation parses the message value as an observation record. A
// missing id falls back to the message key so replayed feeds without
// explicit ids still resolve deterministically.
func (m *IncomingMessage) ParseObservation() error {
	var record models.Record
	if err := json.Unmarshal(m.Value, &record); err != nil {
		return err
	}

	if record.ID == "" {
		record.ID = m.Key
	}
	if record.ID == "" {
		return fmt.Errorf("observation has no id and message has no key")
	}
	if record.Source == "" {
		record.Source = m.Headers["source"]
	}
	if record.ObservedAt.IsZero() {
		if !m.Timestamp.IsZero() {
			record.ObservedAt = m.Timestamp
		} else {
			record.ObservedAt = time.Now().UTC()
		}
	}

	m.Observation = &record
	return nil
}

// GetSource returns the observation source system (card reader, wifi,
// camera, ticketing).
func (m *IncomingMessage) GetSource() string {
	if m.Observation != nil && m.Observation.Source != "" {
		return m.Observation.Source
	}
	return m.Headers["source"]
}
