package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/harborpoint/leadsync/internal/entity"
	"github.com/harborpoint/leadsync/internal/infra/cache"
	"github.com/harborpoint/leadsync/internal/infra/mail"
	"github.com/harborpoint/leadsync/internal/usecase"
)

type senderMock struct {
	mock.Mock
}

func (m *senderMock) SendStaleDigest(to string, digest mail.StaleDigest) error {
	args := m.Called(to, digest)
	return args.Error(0)
}

// staticRemote serves a fixed set of leads, enough to drive a reconciler.
type staticRemote struct {
	leads []*entity.Lead
}

func (r *staticRemote) List(_ context.Context) ([]*entity.Lead, error) { return r.leads, nil }

func (r *staticRemote) Get(_ context.Context, id string) (*entity.Lead, error) {
	for _, l := range r.leads {
		if l.ID == id {
			return l.Clone(), nil
		}
	}
	return nil, &usecase.DomainError{Code: usecase.CodeNotFound, Message: "lead not found: " + id}
}

func (r *staticRemote) Create(_ context.Context, lead *entity.Lead) (*entity.Lead, error) {
	return lead.Clone(), nil
}

func (r *staticRemote) Put(_ context.Context, _ string, lead *entity.Lead) (*entity.Lead, error) {
	return lead.Clone(), nil
}

func (r *staticRemote) Delete(_ context.Context, _ string) error { return nil }

func digestReconciler(t *testing.T, leads ...*entity.Lead) *usecase.Reconciler {
	t.Helper()
	rec := usecase.NewReconciler(&staticRemote{leads: leads}, cache.NewMemoryCache(), cache.NewMemoryLedger(), nil)
	rec.Refresh(context.Background())
	return rec
}

func staleLead(id, owner string, stage entity.Stage, since time.Time) *entity.Lead {
	return &entity.Lead{
		ID:              id,
		Name:            "Lead " + id,
		AssignedTo:      owner,
		Stage:           stage,
		StageTimestamps: map[entity.Stage]time.Time{stage: since},
	}
}

func TestDigestWorkerSendsPerOwner(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	rec := digestReconciler(t,
		staleLead("1", "alex@agency.com", entity.StageQuoted, now.Add(-8*24*time.Hour)),
		staleLead("2", "alex@agency.com", entity.StageInterested, now.Add(-10*24*time.Hour)),
		staleLead("3", "sam@agency.com", entity.StageQuoted, now.Add(-7*24*time.Hour)),
	)

	sender := new(senderMock)
	sender.On("SendStaleDigest", "alex@agency.com", mock.MatchedBy(func(d mail.StaleDigest) bool {
		return len(d.Entries) == 2
	})).Return(nil)
	sender.On("SendStaleDigest", "sam@agency.com", mock.MatchedBy(func(d mail.StaleDigest) bool {
		return len(d.Entries) == 1 && d.Entries[0].DaysInStage == 7
	})).Return(nil)

	w := NewDigestWorker(rec, sender, time.Hour)
	w.SetNow(func() time.Time { return now })
	w.RunOnce()

	sender.AssertExpectations(t)
}

func TestDigestWorkerSkipsFreshLeads(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	rec := digestReconciler(t,
		// six days in stage is tier 2, below the digest threshold
		staleLead("1", "alex@agency.com", entity.StageQuoted, now.Add(-6*24*time.Hour)),
	)

	sender := new(senderMock)
	w := NewDigestWorker(rec, sender, time.Hour)
	w.SetNow(func() time.Time { return now })
	w.RunOnce()

	sender.AssertNotCalled(t, "SendStaleDigest", mock.Anything, mock.Anything)
}

func TestDigestWorkerSkipsUnassigned(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	rec := digestReconciler(t,
		staleLead("1", "", entity.StageQuoted, now.Add(-30*24*time.Hour)),
		staleLead("2", "null", entity.StageQuoted, now.Add(-30*24*time.Hour)),
		staleLead("3", "unassigned", entity.StageQuoted, now.Add(-30*24*time.Hour)),
	)

	sender := new(senderMock)
	w := NewDigestWorker(rec, sender, time.Hour)
	w.SetNow(func() time.Time { return now })
	w.RunOnce()

	sender.AssertNotCalled(t, "SendStaleDigest", mock.Anything, mock.Anything)
}

func TestDigestWorkerSkipsMissingStamp(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	// current stage has no timestamp, so the age is unknown
	lead := &entity.Lead{
		ID:              "1",
		Name:            "No Stamp",
		AssignedTo:      "alex@agency.com",
		Stage:           entity.StageQuoted,
		StageTimestamps: map[entity.Stage]time.Time{entity.StageNew: now.Add(-30 * 24 * time.Hour)},
	}
	rec := digestReconciler(t, lead)

	sender := new(senderMock)
	w := NewDigestWorker(rec, sender, time.Hour)
	w.SetNow(func() time.Time { return now })
	w.RunOnce()

	sender.AssertNotCalled(t, "SendStaleDigest", mock.Anything, mock.Anything)
}

func TestDigestWorkerContinuesAfterSendFailure(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	rec := digestReconciler(t,
		staleLead("1", "alex@agency.com", entity.StageQuoted, now.Add(-8*24*time.Hour)),
		staleLead("2", "sam@agency.com", entity.StageQuoted, now.Add(-8*24*time.Hour)),
	)

	sender := new(senderMock)
	sender.On("SendStaleDigest", "alex@agency.com", mock.Anything).Return(assert.AnError)
	sender.On("SendStaleDigest", "sam@agency.com", mock.Anything).Return(nil)

	w := NewDigestWorker(rec, sender, time.Hour)
	w.SetNow(func() time.Time { return now })
	w.RunOnce()

	sender.AssertExpectations(t)
}
