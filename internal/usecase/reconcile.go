package usecase

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/harborpoint/leadsync/internal/entity"
)

// Reconciler produces the authoritative "active leads" view from the local
// cache and the remote store, and owns the two pieces of shared mutable
// state in the system: the view itself and the exclusion index. Nothing else
// writes to either; the mutation gateway goes through the methods below.
type Reconciler struct {
	remote  RemoteStore
	cache   LocalCache
	ledger  DeletionLedger
	archive ArchiveRepository

	mu        sync.RWMutex
	view      *ActiveLeadsView
	exclusion *ExclusionIndex

	onRun func(activeCount int, d Diagnostics) // metrics hook, may be nil
}

func NewReconciler(remote RemoteStore, cache LocalCache, ledger DeletionLedger, archive ArchiveRepository) *Reconciler {
	return &Reconciler{
		remote:    remote,
		cache:     cache,
		ledger:    ledger,
		archive:   archive,
		view:      &ActiveLeadsView{},
		exclusion: NewExclusionIndex(),
	}
}

// OnRun installs a hook invoked with the result size and diagnostics of
// every refresh.
func (r *Reconciler) OnRun(fn func(activeCount int, d Diagnostics)) {
	r.onRun = fn
}

// Refresh re-derives the active view from scratch: remote list, cache
// snapshot, deletion ledger and archive set. Partial input failures degrade
// to empty slices — the reconciler's contract is to always produce a
// best-effort consistent view, never to raise.
func (r *Reconciler) Refresh(ctx context.Context) *ActiveLeadsView {
	remote, err := r.remote.List(ctx)
	if err != nil {
		log.Printf("reconciler: remote list failed, proceeding with cache only: %v", err)
		remote = nil
	}

	local, err := r.cache.Read()
	if err != nil {
		log.Printf("reconciler: cache read failed, proceeding with remote only: %v", err)
		local = nil
	}

	deletedIDs, err := r.ledger.List(ctx)
	if err != nil {
		log.Printf("reconciler: deletion ledger unavailable: %v", err)
		deletedIDs = nil
	}

	var archived []*entity.Lead
	if r.archive != nil {
		archived, err = r.archive.ListArchived(ctx)
		if err != nil {
			log.Printf("reconciler: archive list unavailable: %v", err)
		}
	}
	// Archived rows living only in the cache snapshot count too.
	for _, l := range local {
		if l.Archived {
			archived = append(archived, l)
		}
	}
	for _, l := range remote {
		if l.Archived {
			archived = append(archived, l)
		}
	}

	exclusion := BuildExclusionIndex(archived, deletedIDs)
	view := BuildActiveView(local, remote, exclusion, deletedIDs)

	r.mu.Lock()
	r.view = view
	r.exclusion = exclusion
	r.mu.Unlock()

	// Converge the cache on the merged set so the next cold start agrees.
	// Archived rows ride along: the exclusion index must be rebuildable from
	// the cache alone when the remote store stops listing them.
	deleted := make(map[string]struct{}, len(deletedIDs))
	for _, id := range deletedIDs {
		deleted[id] = struct{}{}
	}
	seen := make(map[string]struct{}, len(view.Leads))
	snapshot := make([]*entity.Lead, 0, len(view.Leads)+len(archived))
	for _, l := range view.Leads {
		snapshot = append(snapshot, l)
		seen[l.ID] = struct{}{}
	}
	for _, l := range archived {
		if l.ID == "" {
			continue
		}
		if _, ok := seen[l.ID]; ok {
			continue
		}
		if _, gone := deleted[l.ID]; gone {
			continue
		}
		seen[l.ID] = struct{}{}
		snapshot = append(snapshot, l.Clone())
	}
	if err := r.cache.Write(snapshot); err != nil {
		log.Printf("reconciler: cache write-back failed: %v", err)
	}

	if r.onRun != nil {
		r.onRun(len(view.Leads), view.Diagnostics)
	}
	return r.viewCopy()
}

// BuildActiveView is the pure merge: local first, remote overlays (remote is
// authoritative on field conflicts), then exclusion and deletion-ledger
// filters. Identical inputs always yield identical output sets and counts.
func BuildActiveView(local, remote []*entity.Lead, exclusion *ExclusionIndex, deletedIDs []string) *ActiveLeadsView {
	deleted := make(map[string]struct{}, len(deletedIDs))
	for _, id := range deletedIDs {
		deleted[id] = struct{}{}
	}

	var diag Diagnostics
	diag.InvalidRecords += exclusion.Skipped()

	merged := make(map[string]*entity.Lead)
	for _, l := range local {
		if _, err := entity.Normalize(l); err != nil {
			diag.InvalidRecords++
			continue
		}
		merged[l.ID] = normalizeStage(l, &diag)
	}
	for _, l := range remote {
		if _, err := entity.Normalize(l); err != nil {
			diag.InvalidRecords++
			continue
		}
		if _, seen := merged[l.ID]; seen {
			diag.Updated++
		} else {
			diag.Added++
		}
		merged[l.ID] = normalizeStage(l, &diag)
	}

	remoteDeleted := make(map[string]struct{})
	for _, l := range remote {
		if _, gone := deleted[l.ID]; gone {
			remoteDeleted[l.ID] = struct{}{}
		}
	}

	ids := make([]string, 0, len(merged))
	for id := range merged {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	leads := make([]*entity.Lead, 0, len(merged))
	for _, id := range ids {
		l := merged[id]

		if _, gone := deleted[id]; gone {
			diag.RemovedByLedger++
			if _, fromRemote := remoteDeleted[id]; fromRemote {
				// The remote store resurrected a deleted id. Deletion is
				// terminal: drop it and flag the anomaly, do not accept it.
				diag.StaleRemoteRecords++
				log.Printf("reconciler: stale remote record for deleted id %q dropped", id)
			}
			continue
		}

		identity, _ := entity.Normalize(l)
		if exclusion.Contains(identity) {
			diag.RemovedByExclusion++
			continue
		}
		if l.Archived {
			// Defensive double-check; archived leads are already indexed.
			diag.RemovedByExclusion++
			continue
		}

		leads = append(leads, l.Clone())
	}

	return &ActiveLeadsView{
		Leads:       leads,
		Diagnostics: diag,
		RefreshedAt: time.Now().UTC(),
	}
}

// normalizeStage maps the legacy "qualified" stage to quoted at ingestion.
// The gateway rejects it on writes; data already carrying it is repaired
// here rather than dropped.
func normalizeStage(l *entity.Lead, diag *Diagnostics) *entity.Lead {
	if l.Stage != entity.Stage("qualified") {
		return l
	}
	out := l.Clone()
	out.Stage = entity.StageQuoted
	diag.NormalizedStages++
	return out
}

// View returns the current snapshot without touching any store.
func (r *Reconciler) View() *ActiveLeadsView {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.viewCopyLocked()
}

func (r *Reconciler) viewCopy() *ActiveLeadsView {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.viewCopyLocked()
}

func (r *Reconciler) viewCopyLocked() *ActiveLeadsView {
	leads := make([]*entity.Lead, 0, len(r.view.Leads))
	for _, l := range r.view.Leads {
		leads = append(leads, l.Clone())
	}
	return &ActiveLeadsView{
		Leads:       leads,
		Diagnostics: r.view.Diagnostics,
		RefreshedAt: r.view.RefreshedAt,
	}
}

// Excluded reports whether an identity is currently excluded.
func (r *Reconciler) Excluded(identity entity.Identity) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.exclusion.Contains(identity)
}

// Exclude adds an identity to the live index and drops it from the view.
// Gateway-only entry point, used on archive so the exclusion is visible
// before the next full refresh.
func (r *Reconciler) Exclude(identity entity.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exclusion.Add(identity)
	r.removeLocked(identity.ID)
}

// RemoveFromView drops an id from the view immediately. Gateway-only.
func (r *Reconciler) RemoveFromView(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(id)
}

// UpsertInView mirrors a freshly written lead into the view so readers see
// the mutation without waiting for the next refresh. Gateway-only.
func (r *Reconciler) UpsertInView(lead *entity.Lead) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, l := range r.view.Leads {
		if l.ID == lead.ID {
			r.view.Leads[i] = lead.Clone()
			return
		}
	}
	leads := append(r.view.Leads, lead.Clone())
	sort.Slice(leads, func(i, j int) bool { return leads[i].ID < leads[j].ID })
	r.view.Leads = leads
}

func (r *Reconciler) removeLocked(id string) {
	for i, l := range r.view.Leads {
		if l.ID == id {
			r.view.Leads = append(r.view.Leads[:i], r.view.Leads[i+1:]...)
			return
		}
	}
}
