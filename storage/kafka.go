package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"food-admin/services"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type KafkaPublisher struct {
	Writer MessageWriter
}

func NewKafkaPublisher(writer MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{Writer: writer}
}

// NewKafkaWriter builds a writer for the status events topic.
func NewKafkaWriter(broker, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(broker),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}

// PublishStatusChanges writes one message per change, keyed by order id so
// a consumer sees each order's changes in order.
func (p *KafkaPublisher) PublishStatusChanges(ctx context.Context, changes []services.StatusChange) error {
	msgs := make([]kafka.Message, 0, len(changes))
	for _, c := range changes {
		payload, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("encode status change for order %d: %w", c.OrderID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(strconv.FormatInt(c.OrderID, 10)),
			Value: payload,
		})
	}
	return p.Writer.WriteMessages(ctx, msgs...)
}
