// Package scores keeps a read-optimised copy of driver trust scores.
package scores

import (
	"context"
	"sort"
	"sync"
	"time"
)

type Entry struct {
	DriverID    string    `json:"driverId"`
	Score       float64   `json:"trustScore"`
	ReviewCount int       `json:"reviewCount"`
	Updated     time.Time `json:"updated"`
}

// Index is implemented by the in-memory and Redis backends.
type Index interface {
	Put(ctx context.Context, e Entry) error
	Get(ctx context.Context, driverID string) (Entry, bool, error)
	Top(ctx context.Context, limit int) ([]Entry, error)
}

type MemoryIndex struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{entries: make(map[string]Entry)}
}

func (m *MemoryIndex) Put(ctx context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.DriverID] = e
	return nil
}

func (m *MemoryIndex) Get(ctx context.Context, driverID string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[driverID]
	return e, ok, nil
}

// Top returns the highest scores first, ties by driver id.
func (m *MemoryIndex) Top(ctx context.Context, limit int) ([]Entry, error) {
	m.mu.RLock()
	all := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		all = append(all, e)
	}
	m.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].Score != all[j].Score {
			return all[i].Score > all[j].Score
		}
		return all[i].DriverID < all[j].DriverID
	})
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}
