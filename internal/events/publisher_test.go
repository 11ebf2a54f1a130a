package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/ridelink/internal/models"
	"github.com/example/ridelink/internal/state"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestKafkaPublisherKeysReviewByDriver(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, timeout: time.Second}
	ev := state.Event{
		Type:       state.EventReviewSubmitted,
		At:         time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		DriverID:   "user_1",
		Rating:     &models.Rating{ID: "rv1", Rating: 5},
		Reviews:    []models.Rating{{ID: "rv1", Rating: 5}},
		TrustScore: 5,
	}
	require.NoError(t, p.Publish(context.Background(), ev))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "user_1", string(w.msgs[0].Key))
	assert.Equal(t, "review.submitted", string(w.msgs[0].Headers[0].Value))

	got, err := Decode(w.msgs[0])
	require.NoError(t, err)
	assert.Equal(t, ev.DriverID, got.DriverID)
	assert.Len(t, got.Reviews, 1)
}

func TestKafkaPublisherPropagatesWriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := &KafkaPublisher{writer: w, timeout: time.Second}
	err := p.Publish(context.Background(), state.Event{Type: state.EventRidePublished, Ride: &models.Ride{ID: "r"}})
	assert.Error(t, err)
}

func TestDecodeRejectsUntyped(t *testing.T) {
	_, err := Decode(kafka.Message{Value: []byte(`{"driverId":"x"}`)})
	assert.Error(t, err)
	_, err = Decode(kafka.Message{Value: []byte(`not json`)})
	assert.Error(t, err)
}
