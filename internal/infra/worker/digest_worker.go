package worker

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/harborpoint/leadsync/internal/entity"
	"github.com/harborpoint/leadsync/internal/infra/mail"
	"github.com/harborpoint/leadsync/internal/usecase"
)

// DigestSender is implemented by the SMTP sender; mocked in tests.
type DigestSender interface {
	SendStaleDigest(to string, digest mail.StaleDigest) error
}

// DigestWorker periodically collects tier-3 leads (7+ days in the current
// stage) per owner and mails each owner a digest. Unassigned leads and leads
// with no stamp for their current stage are skipped: unknown age is not the
// same as old age.
type DigestWorker struct {
	reconciler   *usecase.Reconciler
	sender       DigestSender
	clock        usecase.StageClock
	tickInterval time.Duration
	now          func() time.Time
}

func NewDigestWorker(reconciler *usecase.Reconciler, sender DigestSender, interval time.Duration) *DigestWorker {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &DigestWorker{
		reconciler:   reconciler,
		sender:       sender,
		tickInterval: interval,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// SetNow injects the clock for tests.
func (w *DigestWorker) SetNow(now func() time.Time) {
	w.now = now
}

func (w *DigestWorker) Start(ctx context.Context) {
	log.Printf("stale digest worker started (interval %s)", w.tickInterval)

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("stale digest worker stopped")
			return
		case <-ticker.C:
			w.RunOnce()
		}
	}
}

// RunOnce builds and sends the digests for the current view.
func (w *DigestWorker) RunOnce() {
	digests := w.collect(w.reconciler.View().Leads)

	owners := make([]string, 0, len(digests))
	for owner := range digests {
		owners = append(owners, owner)
	}
	sort.Strings(owners)

	for _, owner := range owners {
		d := digests[owner]
		if err := w.sender.SendStaleDigest(owner, d); err != nil {
			log.Printf("digest worker: send to %s failed: %v", owner, err)
			continue
		}
		log.Printf("digest worker: sent %d stale lead(s) to %s", len(d.Entries), owner)
	}
}

func (w *DigestWorker) collect(leads []*entity.Lead) map[string]mail.StaleDigest {
	now := w.now()
	digests := make(map[string]mail.StaleDigest)

	for _, lead := range leads {
		if lead.Unassigned() {
			continue
		}
		age, err := w.clock.AgeInCurrentStage(lead, now)
		if err != nil {
			continue // age unknown, never treated as zero
		}
		if w.clock.Tier(age) != usecase.Tier3 {
			continue
		}

		d := digests[lead.AssignedTo]
		d.Owner = lead.AssignedTo
		d.Entries = append(d.Entries, mail.StaleDigestEntry{
			LeadID:      lead.ID,
			Name:        lead.Name,
			Stage:       string(lead.Stage),
			DaysInStage: int(age / (24 * time.Hour)),
		})
		digests[lead.AssignedTo] = d
	}

	return digests
}
