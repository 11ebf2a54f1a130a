// Package events publishes domain events produced by state transitions.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/example/ridelink/internal/state"
)

type Publisher interface {
	Publish(ctx context.Context, ev state.Event) error
	Close() error
}

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer  messageWriter
	timeout time.Duration
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w, timeout: 2 * time.Second}
}

// Publish writes the event as JSON keyed so that all events for one driver
// or ride land on the same partition.
func (k *KafkaPublisher) Publish(ctx context.Context, ev state.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s: %w", ev.Type, err)
	}
	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(ev.Key()),
		Value:   b,
		Headers: []kafka.Header{{Key: "type", Value: []byte(ev.Type)}},
		Time:    ev.At,
	})
}

func (k *KafkaPublisher) Close() error {
	if k.writer == nil {
		return nil
	}
	return k.writer.Close()
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, state.Event) error { return nil }
func (Nop) Close() error                               { return nil }

// Recorder keeps published events in memory. Used by tests and by the
// single-process demo mode.
type Recorder struct {
	mu     sync.Mutex
	events []state.Event
}

func (r *Recorder) Publish(_ context.Context, ev state.Event) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Events() []state.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]state.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Decode parses an event published by KafkaPublisher.
func Decode(m kafka.Message) (state.Event, error) {
	var ev state.Event
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		return state.Event{}, err
	}
	if ev.Type == "" {
		return state.Event{}, fmt.Errorf("event without type at offset %d", m.Offset)
	}
	return ev, nil
}
