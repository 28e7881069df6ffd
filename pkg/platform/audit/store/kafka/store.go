// Package kafka publishes audit events straight to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "complyledger/pkg/platform/audit"
)

// Producer is the subset of *kgo.Client the store needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Store implements audit.Store by producing one record per event, keyed by
// subject so events for one aggregate stay ordered within a partition.
type Store struct {
	producer Producer
	topic    string
}

func New(producer Producer, topic string) *Store {
	return &Store{producer: producer, topic: topic}
}

type message struct {
	Category       string            `json:"category"`
	Timestamp      time.Time         `json:"timestamp"`
	Subject        string            `json:"subject"`
	Action         string            `json:"action"`
	OrganizationID string            `json:"organization_id,omitempty"`
	Decision       string            `json:"decision,omitempty"`
	Reason         string            `json:"reason,omitempty"`
	RequestID      string            `json:"request_id,omitempty"`
	ActorID        string            `json:"actor_id,omitempty"`
	Attributes     map[string]string `json:"attributes,omitempty"`
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	value, err := json.Marshal(message{
		Category:       string(audit.AuditEvent(event.Action).Category()),
		Timestamp:      event.Timestamp.UTC(),
		Subject:        event.Subject,
		Action:         event.Action,
		OrganizationID: event.OrganizationID,
		Decision:       event.Decision,
		Reason:         event.Reason,
		RequestID:      event.RequestID,
		ActorID:        event.ActorID,
		Attributes:     event.Attributes,
	})
	if err != nil {
		return fmt.Errorf("marshal audit message: %w", err)
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.Subject),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(event.Action)},
		},
	}
	if err := s.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}
