// Package feed publishes matched groups to a Kafka topic.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"aptintel/internal/aptcore"
)

// messageWriter is the subset of *kafka.Writer used by Publisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes search results to Kafka.
type Publisher struct {
	writer messageWriter
	topic  string
	logger *zap.Logger
}

// NewPublisher creates a Publisher for topic on broker.
func NewPublisher(broker, topic string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(broker),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return &Publisher{writer: writer, topic: topic, logger: logger}
}

// Messages encodes each row as a JSON message keyed by its sort key.
func Messages[T aptcore.Row](result *aptcore.SearchResult[T]) ([]kafka.Message, error) {
	if result.Empty() {
		return nil, nil
	}
	msgs := make([]kafka.Message, 0, len(result.Rows))
	for _, row := range result.Rows {
		data, err := json.Marshal(row)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s: %w", row.Key(), err)
		}
		msgs = append(msgs, kafka.Message{
			Key:     []byte(row.Key()),
			Value:   data,
			Headers: []kafka.Header{{Key: "source", Value: []byte(result.Source)}},
		})
	}
	return msgs, nil
}

// Publish sends every row of result to the topic.
func Publish[T aptcore.Row](ctx context.Context, p *Publisher, result *aptcore.SearchResult[T]) error {
	msgs, err := Messages(result)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to publish %d %s rows to %s: %w", len(msgs), result.Source, p.topic, err)
	}
	p.logger.Info("published search results",
		zap.String("source", result.Source), zap.String("topic", p.topic), zap.Int("rows", len(msgs)))
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
