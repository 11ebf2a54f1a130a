// Package eta estimates intercity journey durations.
package eta

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/example/ridelink/internal/geo"
)

var ErrUnknownCity = errors.New("unknown city")

// Client returns a driving duration in seconds between two points.
type Client interface {
	EstimateSeconds(ctx context.Context, from, to geo.Coord) (float64, error)
}

// Cache is a tiny in-memory cache for ETA lookups keyed by coords.
type Cache struct {
	mu    sync.RWMutex
	store map[string]cacheEntry
	ttl   time.Duration
}

type cacheEntry struct {
	v  float64
	ts time.Time
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{store: make(map[string]cacheEntry), ttl: ttl}
}

func keyFor(a, b geo.Coord) string {
	return fmt.Sprintf("%.4f,%.4f->%.4f,%.4f", a.Lat, a.Lon, b.Lat, b.Lon)
}

// Get returns cached value and true if present and not expired.
func (c *Cache) Get(a, b geo.Coord) (float64, bool) {
	k := keyFor(a, b)
	c.mu.RLock()
	e, ok := c.store[k]
	c.mu.RUnlock()
	if !ok {
		return 0, false
	}
	if time.Since(e.ts) > c.ttl {
		c.mu.Lock()
		delete(c.store, k)
		c.mu.Unlock()
		return 0, false
	}
	return e.v, true
}

func (c *Cache) Set(a, b geo.Coord, v float64) {
	k := keyFor(a, b)
	c.mu.Lock()
	c.store[k] = cacheEntry{v: v, ts: time.Now()}
	c.mu.Unlock()
}

// HighwaySpeedMps is the average speed assumed when no routing engine answers.
const HighwaySpeedMps = 15.0

// EstimateSeconds is distance / speed with a 1.3 road-winding factor.
func EstimateSeconds(from, to geo.Coord, speedMps float64) float64 {
	if speedMps <= 0 {
		speedMps = HighwaySpeedMps
	}
	d := geo.Haversine(from.Lat, from.Lon, to.Lat, to.Lon) * 1.3
	return d / speedMps
}

// Estimator resolves city names and asks the routing client, falling back
// to the straight-line estimate.
type Estimator struct {
	Cities *geo.Directory
	Client Client // optional
	Cache  *Cache // optional
}

func (e *Estimator) Journey(ctx context.Context, from, to string) (time.Duration, error) {
	a, ok := e.Cities.Lookup(from)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCity, from)
	}
	b, ok := e.Cities.Lookup(to)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCity, to)
	}
	if e.Cache != nil {
		if v, ok := e.Cache.Get(a, b); ok {
			return seconds(v), nil
		}
	}
	v := EstimateSeconds(a, b, 0)
	if e.Client != nil {
		if routed, err := e.Client.EstimateSeconds(ctx, a, b); err == nil {
			v = routed
		}
	}
	if e.Cache != nil {
		e.Cache.Set(a, b, v)
	}
	return seconds(v), nil
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second)).Round(time.Minute)
}
