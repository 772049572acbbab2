package messaging

import (
	"context"
	"encoding/json"
	"time"
)

// Broker publishes raw payloads to named channels.
type Broker interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Message is the envelope relayed for every outbox event.
type Message struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	DoctorID   string          `json:"doctor_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// PublishMessage marshals msg and publishes it on channel.
func PublishMessage(ctx context.Context, b Broker, channel string, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.Publish(ctx, channel, data)
}
