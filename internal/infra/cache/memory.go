package cache

import (
	"context"
	"sync"

	"github.com/harborpoint/leadsync/internal/entity"
)

// MemoryCache keeps the snapshot in process memory. Used in tests and in
// deployments that explicitly opt out of a durable cache.
type MemoryCache struct {
	mu    sync.Mutex
	leads []*entity.Lead
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

func (c *MemoryCache) Read() ([]*entity.Lead, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*entity.Lead, 0, len(c.leads))
	for _, l := range c.leads {
		out = append(out, l.Clone())
	}
	return out, nil
}

func (c *MemoryCache) Write(leads []*entity.Lead) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.leads = make([]*entity.Lead, 0, len(leads))
	for _, l := range leads {
		c.leads = append(c.leads, l.Clone())
	}
	return nil
}

// MemoryLedger is the in-memory deletion ledger counterpart.
type MemoryLedger struct {
	mu    sync.Mutex
	ids   []string
	index map[string]struct{}
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{index: make(map[string]struct{})}
}

func (l *MemoryLedger) Append(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, seen := l.index[id]; seen {
		return nil
	}
	l.ids = append(l.ids, id)
	l.index[id] = struct{}{}
	return nil
}

func (l *MemoryLedger) List(_ context.Context) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]string, len(l.ids))
	copy(out, l.ids)
	return out, nil
}
