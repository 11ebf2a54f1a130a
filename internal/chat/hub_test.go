package chat

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/ridelink/internal/models"
)

type fakeConn struct {
	mu     sync.Mutex
	got    []models.Message
	fail   bool
	closed int
}

func (f *fakeConn) WriteJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broken pipe")
	}
	f.got = append(f.got, v.(models.Message))
	return nil
}

func (f *fakeConn) Close() error {
	f.closed++
	return nil
}

func TestBroadcastReachesOnlyRoom(t *testing.T) {
	h := NewHub(nil)
	a, b, other := &fakeConn{}, &fakeConn{}, &fakeConn{}
	h.Join("ride_1", "user_1", a)
	h.Join("ride_1", "user_passenger_1", b)
	h.Join("ride_2", "user_2", other)

	require.NoError(t, h.Broadcast(models.Message{ID: "m1", RideID: "ride_1", Text: "hi"}))
	assert.Len(t, a.got, 1)
	assert.Len(t, b.got, 1)
	assert.Empty(t, other.got)
}

func TestBroadcastDropsBrokenSessions(t *testing.T) {
	h := NewHub(nil)
	ok, broken := &fakeConn{}, &fakeConn{fail: true}
	h.Join("ride_1", "a", ok)
	h.Join("ride_1", "b", broken)

	require.NoError(t, h.Broadcast(models.Message{RideID: "ride_1", Text: "x"}))
	assert.Equal(t, 1, h.Online("ride_1"))
	assert.Equal(t, 1, broken.closed)
}

func TestLeaveIsIdempotent(t *testing.T) {
	h := NewHub(nil)
	c := &fakeConn{}
	s := h.Join("ride_1", "a", c)
	h.Leave(s)
	h.Leave(s)
	assert.Equal(t, 1, c.closed)
	assert.Zero(t, h.Online("ride_1"))
	assert.ErrorIs(t, h.Broadcast(models.Message{RideID: "ride_1"}), ErrNoSession)
}
