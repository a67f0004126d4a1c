package worker

import (
	"context"
	"log"
	"time"

	"github.com/harborpoint/leadsync/internal/usecase"
)

// ReconcileWorker re-runs the reconciler on a fixed interval. This is drift
// correction only: the gateway already refreshes synchronously after every
// write, so the interval can be long.
type ReconcileWorker struct {
	reconciler   *usecase.Reconciler
	tickInterval time.Duration
}

func NewReconcileWorker(reconciler *usecase.Reconciler, interval time.Duration) *ReconcileWorker {
	if interval <= 0 {
		interval = 2 * time.Minute
	}
	return &ReconcileWorker{
		reconciler:   reconciler,
		tickInterval: interval,
	}
}

func (w *ReconcileWorker) Start(ctx context.Context) {
	log.Printf("reconcile worker started (interval %s)", w.tickInterval)

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	w.run(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("reconcile worker stopped")
			return
		case <-ticker.C:
			w.run(ctx)
		}
	}
}

func (w *ReconcileWorker) run(ctx context.Context) {
	view := w.reconciler.Refresh(ctx)
	d := view.Diagnostics
	if d.StaleRemoteRecords > 0 || d.InvalidRecords > 0 || d.NormalizedStages > 0 {
		log.Printf("reconcile pass: %d active, %d stale remote, %d invalid, %d legacy stages normalized",
			len(view.Leads), d.StaleRemoteRecords, d.InvalidRecords, d.NormalizedStages)
	}
}
