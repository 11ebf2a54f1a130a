package eta

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/ridelink/internal/geo"
)

type countingClient struct {
	calls int
	v     float64
	err   error
}

func (c *countingClient) EstimateSeconds(ctx context.Context, from, to geo.Coord) (float64, error) {
	c.calls++
	return c.v, c.err
}

func TestJourneyUsesClientAndCache(t *testing.T) {
	c := &countingClient{v: 6 * 3600}
	e := &Estimator{Cities: geo.DefaultDirectory(), Client: c, Cache: NewCache(time.Minute)}

	d, err := e.Journey(context.Background(), "Chennai", "Bangalore")
	require.NoError(t, err)
	assert.Equal(t, 6*time.Hour, d)

	_, err = e.Journey(context.Background(), "chennai", "bangalore")
	require.NoError(t, err)
	assert.Equal(t, 1, c.calls)
}

func TestJourneyFallsBackToStraightLine(t *testing.T) {
	e := &Estimator{Cities: geo.DefaultDirectory(), Client: &countingClient{err: errors.New("down")}}
	d, err := e.Journey(context.Background(), "Chennai", "Bangalore")
	require.NoError(t, err)
	assert.Greater(t, d, 5*time.Hour)
	assert.Less(t, d, 9*time.Hour)
}

func TestJourneyUnknownCity(t *testing.T) {
	e := &Estimator{Cities: geo.DefaultDirectory()}
	_, err := e.Journey(context.Background(), "Chennai", "Atlantis")
	assert.ErrorIs(t, err, ErrUnknownCity)
}

func TestOSRMClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"Ok","routes":[{"duration":21000.5}]}`)
	}))
	defer srv.Close()

	v, err := NewOSRMClient(srv.URL).EstimateSeconds(context.Background(), geo.Coord{Lat: 13, Lon: 80}, geo.Coord{Lat: 12, Lon: 77})
	require.NoError(t, err)
	assert.Equal(t, 21000.5, v)
}

func TestOSRMClientNoRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"NoRoute","routes":[]}`)
	}))
	defer srv.Close()

	_, err := NewOSRMClient(srv.URL).EstimateSeconds(context.Background(), geo.Coord{}, geo.Coord{})
	assert.Error(t, err)
}
