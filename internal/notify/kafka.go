package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is satisfied by broker.Writer.
type MessageWriter interface {
	WriteMessage(ctx context.Context, msg kafka.Message) error
}

const EventTypeStockChanged = "InventoryStockChanged"

type envelope struct {
	EventType string      `json:"event_type"`
	Payload   ChangeEvent `json:"payload"`
}

// KafkaPublisher writes change events keyed by product so that every change
// to one product lands on the same partition in commit order.
type KafkaPublisher struct {
	writer MessageWriter
}

func NewKafkaPublisher(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, evt ChangeEvent) error {
	value, err := json.Marshal(envelope{EventType: EventTypeStockChanged, Payload: evt})
	if err != nil {
		return fmt.Errorf("encode change event: %w", err)
	}
	return p.writer.WriteMessage(ctx, kafka.Message{
		Key:   []byte(evt.ProductID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventTypeStockChanged)},
			{Key: "event_id", Value: []byte(evt.EventID)},
		},
	})
}
