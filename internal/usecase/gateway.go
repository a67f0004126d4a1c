package usecase

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harborpoint/leadsync/internal/entity"
)

const DefaultRemoteTimeout = 10 * time.Second

// MutationGateway is the single entry point for writes. It serializes
// mutations per lead id, mirrors successful writes into the local cache and
// the active view, and is the only component allowed to surface hard errors:
// it performs the externally visible actions.
type MutationGateway struct {
	remote     RemoteStore
	cache      LocalCache
	ledger     DeletionLedger
	reconciler *Reconciler
	producer   EventProducer   // optional
	recorder   ArchiveRecorder // optional
	clock      StageClock

	timeout time.Duration
	now     func() time.Time

	mu      sync.Mutex
	locks   map[string]*idLock
	pending map[string]map[string]any // superseding update patches per id

	onMutation func(op, outcome string) // metrics hook, may be nil
}

type idLock struct {
	mu   sync.Mutex
	refs int
}

func NewMutationGateway(remote RemoteStore, cache LocalCache, ledger DeletionLedger, reconciler *Reconciler, producer EventProducer) *MutationGateway {
	return &MutationGateway{
		remote:     remote,
		cache:      cache,
		ledger:     ledger,
		reconciler: reconciler,
		producer:   producer,
		timeout:    DefaultRemoteTimeout,
		now:        func() time.Time { return time.Now().UTC() },
		locks:      make(map[string]*idLock),
		pending:    make(map[string]map[string]any),
	}
}

// SetRemoteTimeout overrides the per-call remote deadline.
func (g *MutationGateway) SetRemoteTimeout(d time.Duration) {
	if d > 0 {
		g.timeout = d
	}
}

// SetNow injects the clock, used by tests to exercise skew handling.
func (g *MutationGateway) SetNow(now func() time.Time) {
	g.now = now
}

// OnMutation installs a hook invoked with (operation, outcome) per call.
func (g *MutationGateway) OnMutation(fn func(op, outcome string)) {
	g.onMutation = fn
}

// SetArchiveRecorder wires the durable archive mirror.
func (g *MutationGateway) SetArchiveRecorder(rec ArchiveRecorder) {
	g.recorder = rec
}

// Create validates the lead, assigns an id when absent and writes it to the
// remote store. On remote failure the record stays in the cache flagged
// pending_sync so a later reconciliation can confirm whether it round-tripped.
func (g *MutationGateway) Create(ctx context.Context, lead *entity.Lead) (*entity.Lead, error) {
	if lead == nil {
		return nil, g.fail("create", &DomainError{Code: CodeInvalidRecord, Message: "lead is nil"})
	}

	out := lead.Clone()
	if out.ID == "" {
		out.ID = uuid.New().String()
	}
	now := g.now()
	if out.Stage == "" {
		out.Stage = entity.StageNew
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now
	}
	out.UpdatedAt = now
	out = g.clock.RecordTransition(out, out.Stage, now)

	if err := out.Validate(); err != nil {
		return nil, g.fail("create", &DomainError{Code: CodeInvalidRecord, Message: err.Error()})
	}

	unlock := g.lock(out.ID)
	defer unlock()

	created, err := g.callCreate(ctx, out)
	if err != nil {
		if IsTimeout(err) {
			// Timeout leaves the cache untouched; retry is the caller's call.
			return nil, g.fail("create", err)
		}
		out.PendingSync = true
		g.mirror(out)
		log.Printf("gateway: remote create failed for %s, retained as pending_sync: %v", out.ID, err)
		return nil, g.fail("create", err)
	}

	created.PendingSync = false
	g.mirror(created)
	g.publish("lead.created", created)
	g.reconciler.Refresh(ctx)
	g.ok("create")
	return created.Clone(), nil
}

// Update applies a whitelisted field patch on top of the remote record.
// A phantom id, present only in the local cache, is purged, a reconciliation
// pass is run, and only if the id is still absent is NOT_FOUND reported.
func (g *MutationGateway) Update(ctx context.Context, id string, patch map[string]any) (*entity.Lead, error) {
	if id == "" {
		return nil, g.fail("update", &DomainError{Code: CodeInvalidRecord, Message: "id is required"})
	}
	if errs := ValidatePatch(patch); len(errs) > 0 {
		return nil, g.fail("update", &DomainError{Code: CodeValidation, Message: errs[0].Error()})
	}

	// Queued updates for the same id supersede each other: the last patch
	// submitted is the one that reaches the remote store.
	g.mu.Lock()
	g.pending[id] = patch
	g.mu.Unlock()

	unlock := g.lock(id)
	defer unlock()

	g.mu.Lock()
	patch, live := g.pending[id]
	delete(g.pending, id)
	g.mu.Unlock()
	if !live {
		// A later call already flushed a newer patch. Report current state.
		return g.currentState(ctx, id)
	}

	current, err := g.resolve(ctx, id)
	if err != nil {
		return nil, g.fail("update", err)
	}

	updated := ApplyPatch(current, patch)
	if stage, ok := patch["stage"]; ok {
		updated = g.clock.RecordTransition(current, entity.Stage(asString(stage)), g.now())
		// Non-stage fields of the same patch still apply.
		rest := make(map[string]any, len(patch))
		for k, v := range patch {
			if k != "stage" {
				rest[k] = v
			}
		}
		if len(rest) > 0 {
			updated = ApplyPatch(updated, rest)
		}
	}
	updated.UpdatedAt = g.now()

	stored, err := g.callPut(ctx, id, updated)
	if err != nil {
		return nil, g.fail("update", err)
	}

	g.mirror(stored)
	g.publish("lead.updated", stored)
	g.reconciler.Refresh(ctx)
	g.ok("update")
	return stored.Clone(), nil
}

// UpdateStage moves a lead to a new stage, stamping the transition through
// the stage clock. The legacy "qualified" value is rejected here, not mapped.
func (g *MutationGateway) UpdateStage(ctx context.Context, id string, stage entity.Stage) (*entity.Lead, error) {
	if !entity.ValidStage(stage) {
		return nil, g.fail("update_stage", &DomainError{
			Code:    CodeValidation,
			Message: "is not a valid stage: " + string(stage),
		})
	}
	return g.Update(ctx, id, map[string]any{"stage": string(stage)})
}

// Archive soft-removes a lead: archived=true in the remote store, identity
// added to the exclusion index, gone from the active view immediately.
func (g *MutationGateway) Archive(ctx context.Context, id string) error {
	if id == "" {
		return g.fail("archive", &DomainError{Code: CodeInvalidRecord, Message: "id is required"})
	}

	unlock := g.lock(id)
	defer unlock()

	current, err := g.resolve(ctx, id)
	if err != nil {
		return g.fail("archive", err)
	}

	archived := current.Clone()
	archived.Archived = true
	archived.UpdatedAt = g.now()

	stored, err := g.callPut(ctx, id, archived)
	if err != nil {
		return g.fail("archive", err)
	}

	identity, err := entity.Normalize(stored)
	if err == nil {
		g.reconciler.Exclude(identity)
	}
	g.cacheUpsert(stored) // stays in cache so index rebuilds still see it
	if g.recorder != nil {
		if err := g.recorder.RecordArchive(ctx, stored); err != nil {
			log.Printf("gateway: archive mirror failed for %s: %v", id, err)
		}
	}
	g.publish("lead.archived", stored)
	g.reconciler.Refresh(ctx)
	g.ok("archive")
	return nil
}

// Delete hard-removes a lead. Success is only reported after a
// read-after-delete confirms the remote store no longer returns the id;
// unverified deletes are exactly what produced ghost records before.
func (g *MutationGateway) Delete(ctx context.Context, id string) error {
	if id == "" {
		return g.fail("delete", &DomainError{Code: CodeInvalidRecord, Message: "id is required"})
	}

	unlock := g.lock(id)
	defer unlock()

	if err := g.callDelete(ctx, id); err != nil {
		if IsNotFound(err) {
			g.purgePhantom(id)
		}
		return g.fail("delete", err)
	}

	// Verification read. The remote store must answer NotFound now.
	_, err := g.callGet(ctx, id)
	switch {
	case err == nil:
		return g.fail("delete", &TechnicalError{
			Code:    CodeRemoteError,
			Message: "delete of " + id + " not confirmed: remote store still returns the record",
		})
	case !IsNotFound(err):
		return g.fail("delete", err)
	}

	if err := g.ledger.Append(ctx, id); err != nil {
		// The remote row is gone but the terminal marker failed to persist.
		return g.fail("delete", &TechnicalError{
			Code:    CodeDatabaseError,
			Message: "deletion ledger append failed for " + id + ": " + err.Error(),
		})
	}

	g.purgePhantom(id)
	g.publish("lead.deleted", &entity.Lead{ID: id})
	g.reconciler.Refresh(ctx)
	g.ok("delete")
	return nil
}

// resolve fetches the authoritative record, running the phantom-purge
// protocol when the remote store does not know the id.
func (g *MutationGateway) resolve(ctx context.Context, id string) (*entity.Lead, error) {
	current, err := g.callGet(ctx, id)
	if err == nil {
		return current, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}

	// Phantom: the id exists at most in the local cache. Purge it, refresh,
	// and give the remote store one more chance before reporting NOT_FOUND.
	g.purgePhantom(id)
	g.reconciler.Refresh(ctx)

	current, err = g.callGet(ctx, id)
	if err != nil {
		return nil, err
	}
	return current, nil
}

func (g *MutationGateway) currentState(ctx context.Context, id string) (*entity.Lead, error) {
	for _, l := range g.reconciler.View().Leads {
		if l.ID == id {
			return l, nil
		}
	}
	return g.callGet(ctx, id)
}

// lock acquires the per-id mutex. Entries are reference counted so the table
// does not grow with every id ever touched.
func (g *MutationGateway) lock(id string) func() {
	g.mu.Lock()
	l, ok := g.locks[id]
	if !ok {
		l = &idLock{}
		g.locks[id] = l
	}
	l.refs++
	g.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		g.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(g.locks, id)
		}
		g.mu.Unlock()
	}
}

// Remote calls, each bounded by the gateway timeout. A deadline hit maps to
// a TIMEOUT error and the cache is left untouched.

func (g *MutationGateway) callGet(ctx context.Context, id string) (*entity.Lead, error) {
	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	lead, err := g.remote.Get(cctx, id)
	return lead, g.mapRemoteErr(err)
}

func (g *MutationGateway) callCreate(ctx context.Context, lead *entity.Lead) (*entity.Lead, error) {
	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	out, err := g.remote.Create(cctx, lead)
	return out, g.mapRemoteErr(err)
}

func (g *MutationGateway) callPut(ctx context.Context, id string, lead *entity.Lead) (*entity.Lead, error) {
	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	out, err := g.remote.Put(cctx, id, lead)
	return out, g.mapRemoteErr(err)
}

func (g *MutationGateway) callDelete(ctx context.Context, id string) error {
	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.mapRemoteErr(g.remote.Delete(cctx, id))
}

func (g *MutationGateway) mapRemoteErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TechnicalError{Code: CodeTimeout, Message: "remote store did not answer within " + g.timeout.String()}
	}
	return err
}

// mirror writes a lead into the cache snapshot and the active view.
func (g *MutationGateway) mirror(lead *entity.Lead) {
	g.cacheUpsert(lead)
	if !lead.Archived {
		g.reconciler.UpsertInView(lead)
	}
}

func (g *MutationGateway) cacheUpsert(lead *entity.Lead) {
	leads, err := g.cache.Read()
	if err != nil {
		log.Printf("gateway: cache read failed during mirror: %v", err)
		leads = nil
	}
	replaced := false
	for i, l := range leads {
		if l.ID == lead.ID {
			leads[i] = lead.Clone()
			replaced = true
			break
		}
	}
	if !replaced {
		leads = append(leads, lead.Clone())
	}
	if err := g.cache.Write(leads); err != nil {
		log.Printf("gateway: cache write failed during mirror: %v", err)
	}
}

// purgePhantom drops an id from the cache and the active view.
func (g *MutationGateway) purgePhantom(id string) {
	leads, err := g.cache.Read()
	if err == nil {
		kept := leads[:0]
		for _, l := range leads {
			if l.ID != id {
				kept = append(kept, l)
			}
		}
		if err := g.cache.Write(kept); err != nil {
			log.Printf("gateway: cache write failed during purge of %s: %v", id, err)
		}
	}
	g.reconciler.RemoveFromView(id)
}

func (g *MutationGateway) publish(eventType string, lead *entity.Lead) {
	if g.producer == nil {
		return
	}
	event := LeadEvent{
		Type:       eventType,
		LeadID:     lead.ID,
		Stage:      string(lead.Stage),
		OccurredAt: g.now(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.producer.PublishLeadEvent(ctx, event); err != nil {
		// Best effort. Downstream consumers catch up on the next refresh.
		log.Printf("gateway: event publish failed (%s %s): %v", eventType, lead.ID, err)
	}
}

func (g *MutationGateway) ok(op string) {
	if g.onMutation != nil {
		g.onMutation(op, "ok")
	}
}

func (g *MutationGateway) fail(op string, err error) error {
	if g.onMutation != nil {
		g.onMutation(op, "error")
	}
	return err
}
