package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaSender hands notifications to a delivery worker through a topic,
// keyed by token so one device's messages stay ordered. Kafka acknowledges
// the hand-off only, so per-token failures surface as transient.
type KafkaSender struct {
	writer *kafka.Writer
}

func NewKafkaSender(brokers, topic string) *KafkaSender {
	addrs := strings.Split(brokers, ",")
	for i := range addrs {
		addrs[i] = strings.TrimSpace(addrs[i])
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(addrs...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return &KafkaSender{writer: w}
}

func (s *KafkaSender) SendBatch(ctx context.Context, msgs []Message) ([]Result, error) {
	if len(msgs) == 0 {
		return nil, nil
	}
	records := make([]kafka.Message, len(msgs))
	for i, m := range msgs {
		value, err := json.Marshal(m)
		if err != nil {
			return nil, err
		}
		records[i] = kafka.Message{Key: []byte(m.Token), Value: value}
	}
	out := make([]Result, len(msgs))
	for i, m := range msgs {
		out[i] = Result{Token: m.Token, Success: true}
	}
	err := s.writer.WriteMessages(ctx, records...)
	if err == nil {
		return out, nil
	}
	var perMessage kafka.WriteErrors
	if errors.As(err, &perMessage) && len(perMessage) == len(msgs) {
		for i, werr := range perMessage {
			if werr != nil {
				out[i].Success = false
				out[i].ErrorCode = CodeUnavailable
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("publish notifications: %w", err)
}

func (s *KafkaSender) Close() error {
	return s.writer.Close()
}
