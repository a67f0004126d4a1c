package usecase_test

import (
	"context"
	"sort"
	"sync"

	"github.com/harborpoint/leadsync/internal/entity"
	"github.com/harborpoint/leadsync/internal/usecase"
)

// In-memory fakes for the gateway/reconciler ports. Error injection is per
// operation so tests can fail exactly one step.

type fakeRemote struct {
	mu    sync.Mutex
	leads map[string]*entity.Lead

	failList   error
	failCreate error
	failPut    error
	failDelete error
	// hang makes every call block until the context deadline.
	hang bool
	// ghostDelete makes Delete report success without removing the row.
	ghostDelete bool
}

func newFakeRemote(seed ...*entity.Lead) *fakeRemote {
	r := &fakeRemote{leads: make(map[string]*entity.Lead)}
	for _, l := range seed {
		r.leads[l.ID] = l.Clone()
	}
	return r
}

func (r *fakeRemote) wait(ctx context.Context) error {
	if !r.hang {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (r *fakeRemote) notFound(id string) error {
	return &usecase.DomainError{Code: usecase.CodeNotFound, Message: "lead not found: " + id}
}

func (r *fakeRemote) List(ctx context.Context) ([]*entity.Lead, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	if r.failList != nil {
		return nil, r.failList
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.leads))
	for id := range r.leads {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]*entity.Lead, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.leads[id].Clone())
	}
	return out, nil
}

func (r *fakeRemote) Get(ctx context.Context, id string) (*entity.Lead, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.leads[id]
	if !ok {
		return nil, r.notFound(id)
	}
	return l.Clone(), nil
}

func (r *fakeRemote) Create(ctx context.Context, lead *entity.Lead) (*entity.Lead, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	if r.failCreate != nil {
		return nil, r.failCreate
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.leads[lead.ID] = lead.Clone()
	return lead.Clone(), nil
}

func (r *fakeRemote) Put(ctx context.Context, id string, lead *entity.Lead) (*entity.Lead, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	if r.failPut != nil {
		return nil, r.failPut
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.leads[id]; !ok {
		return nil, r.notFound(id)
	}
	r.leads[id] = lead.Clone()
	return lead.Clone(), nil
}

func (r *fakeRemote) Delete(ctx context.Context, id string) error {
	if err := r.wait(ctx); err != nil {
		return err
	}
	if r.failDelete != nil {
		return r.failDelete
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.leads[id]; !ok {
		return r.notFound(id)
	}
	if !r.ghostDelete {
		delete(r.leads, id)
	}
	return nil
}

// seed injects a record behind the engine's back, simulating backend
// inconsistency.
func (r *fakeRemote) seed(lead *entity.Lead) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leads[lead.ID] = lead.Clone()
}

func (r *fakeRemote) has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.leads[id]
	return ok
}

type memCache struct {
	mu    sync.Mutex
	leads []*entity.Lead
}

func (c *memCache) Read() ([]*entity.Lead, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*entity.Lead, 0, len(c.leads))
	for _, l := range c.leads {
		out = append(out, l.Clone())
	}
	return out, nil
}

func (c *memCache) Write(leads []*entity.Lead) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.leads = make([]*entity.Lead, 0, len(leads))
	for _, l := range leads {
		c.leads = append(c.leads, l.Clone())
	}
	return nil
}

func (c *memCache) find(id string) *entity.Lead {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, l := range c.leads {
		if l.ID == id {
			return l.Clone()
		}
	}
	return nil
}

type memLedger struct {
	mu    sync.Mutex
	ids   []string
	index map[string]struct{}
}

func newMemLedger(ids ...string) *memLedger {
	l := &memLedger{index: make(map[string]struct{})}
	for _, id := range ids {
		l.ids = append(l.ids, id)
		l.index[id] = struct{}{}
	}
	return l
}

func (l *memLedger) Append(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.index[id]; ok {
		return nil
	}
	l.ids = append(l.ids, id)
	l.index[id] = struct{}{}
	return nil
}

func (l *memLedger) List(_ context.Context) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.ids))
	copy(out, l.ids)
	return out, nil
}

type capturedEvents struct {
	mu     sync.Mutex
	events []usecase.LeadEvent
}

func (p *capturedEvents) PublishLeadEvent(_ context.Context, e usecase.LeadEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *capturedEvents) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}
