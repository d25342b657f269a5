// Package kafka publishes drained audit events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"polledger/internal/audit"
)

const defaultTopic = "ledger.audit"

// Sink produces audit events to Kafka. Records are keyed by policy id so all
// events for one policy stay in partition order.
type Sink struct {
	client *kgo.Client
	topic  string
}

// Option configures a Sink.
type Option func(*Sink)

// WithTopic overrides the default audit topic.
func WithTopic(topic string) Option {
	return func(s *Sink) {
		if topic != "" {
			s.topic = topic
		}
	}
}

// New connects to the given brokers.
func New(brokers []string, opts ...Option) (*Sink, error) {
	client, err := kgo.NewClient(kgo.SeedBrokers(brokers...))
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	s := &Sink{client: client, topic: defaultTopic}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// EnsureTopic creates the audit topic when it does not exist yet. Safe to
// call on every startup.
func (s *Sink) EnsureTopic(ctx context.Context, partitions int32, replicationFactor int16) error {
	adm := kadm.NewClient(s.client)
	resp, err := adm.CreateTopics(ctx, partitions, replicationFactor, nil, s.topic)
	if err != nil {
		return fmt.Errorf("create audit topic: %w", err)
	}
	for _, res := range resp {
		if res.Err != nil && !errors.Is(res.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create audit topic %s: %w", res.Topic, res.Err)
		}
	}
	return nil
}

// Publish sends one event synchronously; the outbox worker retries on the
// next drain if the produce fails.
func (s *Sink) Publish(ctx context.Context, event audit.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	key := event.PolicyID
	if key == "" {
		key = event.ID.String()
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(key),
		Value: body,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// Close flushes and releases the client.
func (s *Sink) Close() {
	s.client.Close()
}
