package usecase

import (
	"context"
	"time"

	"github.com/harborpoint/leadsync/internal/entity"
)

// RemoteStore is the authoritative lead store. The engine treats it as the
// sole source of truth for existence; implementations map missing ids to a
// CodeNotFound DomainError.
type RemoteStore interface {
	List(ctx context.Context) ([]*entity.Lead, error)
	Get(ctx context.Context, id string) (*entity.Lead, error)
	Create(ctx context.Context, lead *entity.Lead) (*entity.Lead, error)
	Put(ctx context.Context, id string, lead *entity.Lead) (*entity.Lead, error)
	Delete(ctx context.Context, id string) error
}

// LocalCache is a non-authoritative snapshot store. It may be stale or lost
// at any time; the engine never trusts it for existence.
type LocalCache interface {
	Read() ([]*entity.Lead, error)
	Write(leads []*entity.Lead) error
}

// DeletionLedger is the append-only record of hard-deleted ids. Entries are
// never removed.
type DeletionLedger interface {
	Append(ctx context.Context, id string) error
	List(ctx context.Context) ([]string, error)
}

// ArchiveRepository lists soft-removed leads so the exclusion index can be
// rebuilt from scratch.
type ArchiveRepository interface {
	ListArchived(ctx context.Context) ([]*entity.Lead, error)
}

// ArchiveRecorder durably mirrors archive mutations; optional.
type ArchiveRecorder interface {
	RecordArchive(ctx context.Context, lead *entity.Lead) error
}

// LeadEvent is published after every successful mutation.
type LeadEvent struct {
	Type       string    `json:"type"` // lead.created, lead.updated, lead.archived, lead.deleted
	LeadID     string    `json:"lead_id"`
	Stage      string    `json:"stage,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type EventProducer interface {
	PublishLeadEvent(ctx context.Context, event LeadEvent) error
}

// Diagnostics annotates a reconciliation result. The reconciler never fails;
// anomalies are counted here instead.
type Diagnostics struct {
	Added              int `json:"added"`
	Updated            int `json:"updated"`
	RemovedByExclusion int `json:"removed_by_exclusion"`
	RemovedByLedger    int `json:"removed_by_ledger"`
	StaleRemoteRecords int `json:"stale_remote_records"`
	InvalidRecords     int `json:"invalid_records"`
	NormalizedStages   int `json:"normalized_stages"`
}

// ActiveLeadsView is what the UI layer consumes: the merged, filtered lead
// set plus the diagnostics of the pass that produced it.
type ActiveLeadsView struct {
	Leads       []*entity.Lead `json:"leads"`
	Diagnostics Diagnostics    `json:"diagnostics"`
	RefreshedAt time.Time      `json:"refreshed_at"`
}
