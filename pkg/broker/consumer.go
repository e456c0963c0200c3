package broker

import (
	"context"
	"fmt"

	otelkafka "github.com/Trendyol/otel-kafka-konsumer"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Reader is the consuming half of a Kafka connection.
type Reader interface {
	ReadMessage(ctx context.Context) (*kafka.Message, error)
	Close() error
}

// NewConsumer builds a group reader that extracts the producer's trace
// context from each message it reads.
func NewConsumer(cfg *ConsumerConfig, tp trace.TracerProvider) (Reader, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers configured")
	}
	if cfg.GroupID == "" {
		return nil, fmt.Errorf("kafka: consumer group is required")
	}

	base := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topic,
		GroupID: cfg.GroupID,
	})

	r, err := otelkafka.NewReader(base,
		otelkafka.WithTracerProvider(tp),
		otelkafka.WithPropagator(propagation.TraceContext{}),
	)
	if err != nil {
		_ = base.Close()
		return nil, fmt.Errorf("kafka: wrap reader: %w", err)
	}
	return r, nil
}
