package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/ridelink/internal/models"
	"github.com/example/ridelink/internal/scores"
	"github.com/example/ridelink/internal/state"
)

// fakeWriter fails the first failPut calls.
type fakeWriter struct {
	failPut int
	calls   int
	last    scores.Entry
}

func (f *fakeWriter) Put(ctx context.Context, e scores.Entry) error {
	f.calls++
	if f.calls <= f.failPut {
		return errors.New("put fail")
	}
	f.last = e
	return nil
}

func reviewMessage(t *testing.T, ev state.Event) kafka.Message {
	t.Helper()
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	return kafka.Message{Key: []byte(ev.Key()), Value: b}
}

func TestUpdateWithRetrySucceedsAfterRetries(t *testing.T) {
	f := &fakeWriter{failPut: 2}
	start := time.Now()
	require.NoError(t, updateWithRetry(context.Background(), f, scores.Entry{DriverID: "d1", Score: 4.5}, 3, 10*time.Millisecond))
	assert.Equal(t, 3, f.calls)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestUpdateWithRetryFailsWhenExhausted(t *testing.T) {
	f := &fakeWriter{failPut: 5}
	err := updateWithRetry(context.Background(), f, scores.Entry{DriverID: "d1"}, 3, 5*time.Millisecond)
	assert.Error(t, err)
	assert.Equal(t, 3, f.calls)
}

func TestUpdateWithRetryStopsOnCancel(t *testing.T) {
	f := &fakeWriter{failPut: 5}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, updateWithRetry(ctx, f, scores.Entry{DriverID: "d1"}, 3, time.Hour))
	assert.Equal(t, 1, f.calls)
}

func TestHandleMessageRecomputesScore(t *testing.T) {
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	reviews := []models.Rating{
		{ID: "r1", Rating: 5, Comment: "Very safe and punctual"},
		{ID: "r2", Rating: 4, Comment: "Decent trip"},
	}
	f := &fakeWriter{}
	ev := state.Event{Type: state.EventReviewSubmitted, At: at, DriverID: "d1", Reviews: reviews, TrustScore: 1.0}

	require.NoError(t, handleMessage(context.Background(), f, reviewMessage(t, ev), zap.NewNop()))
	assert.Equal(t, "d1", f.last.DriverID)
	assert.Equal(t, 4.6, f.last.Score)
	assert.Equal(t, 2, f.last.ReviewCount)
	assert.True(t, at.Equal(f.last.Updated))
}

func TestHandleMessageIgnoresOtherEvents(t *testing.T) {
	f := &fakeWriter{}
	ev := state.Event{Type: state.EventMessagePosted, Message: &models.Message{ID: "m1", RideID: "ride_1", Text: "hi"}}
	require.NoError(t, handleMessage(context.Background(), f, reviewMessage(t, ev), zap.NewNop()))
	assert.Zero(t, f.calls)
}

func TestHandleMessageRejectsInvalidEvents(t *testing.T) {
	f := &fakeWriter{}
	err := handleMessage(context.Background(), f, kafka.Message{Value: []byte("{not json")}, zap.NewNop())
	assert.ErrorIs(t, err, errInvalidEvent)

	err = handleMessage(context.Background(), f, reviewMessage(t, state.Event{Type: state.EventReviewSubmitted}), zap.NewNop())
	assert.ErrorIs(t, err, errInvalidEvent)
	assert.Zero(t, f.calls)
}
