package usecase

import (
	"time"

	"github.com/harborpoint/leadsync/internal/entity"
)

// HighlightTier buckets "age in current stage" for prioritization.
type HighlightTier int

const (
	TierNone HighlightTier = iota
	Tier1
	Tier2
	Tier3
)

// StageClock stamps stage transitions and derives the age signal. Stamps are
// monotonic per lead+stage: a transition carrying an older wall-clock time
// (multi-tab clock skew) never rewinds a stored timestamp.
type StageClock struct{}

// RecordTransition returns a copy of the lead moved to newStage. The stamp
// for newStage is written when the stage actually changes, when no stamp
// exists yet, or when now is strictly later than the stored one.
func (StageClock) RecordTransition(lead *entity.Lead, newStage entity.Stage, now time.Time) *entity.Lead {
	out := lead.Clone()
	if out.StageTimestamps == nil {
		out.StageTimestamps = make(map[entity.Stage]time.Time)
	}

	prev, stamped := out.StageTimestamps[newStage]
	switch {
	case out.Stage != newStage || !stamped:
		if stamped && !now.After(prev) {
			// Re-entering a stage with a skewed clock keeps the newer stamp.
			break
		}
		out.StageTimestamps[newStage] = now
	case now.After(prev):
		out.StageTimestamps[newStage] = now
	}

	out.Stage = newStage
	out.UpdatedAt = now
	return out
}

// AgeInCurrentStage is now minus the stamp of the lead's current stage.
// A missing stamp is an error, never zero: defaulting to zero is exactly how
// rows that should have been flagged went unhighlighted before.
func (StageClock) AgeInCurrentStage(lead *entity.Lead, now time.Time) (time.Duration, error) {
	stamp, ok := lead.StageTimestamps[lead.Stage]
	if !ok {
		return 0, &DomainError{
			Code:    CodeMissingStamp,
			Message: "no timestamp recorded for stage " + string(lead.Stage),
		}
	}
	return now.Sub(stamp), nil
}

// Tier buckets an age into highlight tiers by whole days.
func (StageClock) Tier(age time.Duration) HighlightTier {
	days := int(age / (24 * time.Hour))
	switch {
	case days < 1:
		return TierNone
	case days == 1:
		return Tier1
	case days < 7:
		return Tier2
	default:
		return Tier3
	}
}
