package entity

import (
	"errors"
	"time"
)

// Stage is the pipeline position of a lead. Exactly one is active at a time.
type Stage string

const (
	StageNew           Stage = "new"
	StageInfoRequested Stage = "info_requested"
	StageInfoReceived  Stage = "info_received"
	StageQuoted        Stage = "quoted"
	StageInterested    Stage = "interested"
	StageNotInterested Stage = "not_interested"
	StageClosed        Stage = "closed"
)

// Stages in pipeline order. "qualified" is deliberately absent: legacy data
// carrying it is normalized to StageQuoted at ingestion.
var Stages = []Stage{
	StageNew,
	StageInfoRequested,
	StageInfoReceived,
	StageQuoted,
	StageInterested,
	StageNotInterested,
	StageClosed,
}

func ValidStage(s Stage) bool {
	for _, v := range Stages {
		if v == s {
			return true
		}
	}
	return false
}

var ErrMissingID = errors.New("lead has no id")

// Lead is the central entity. The reconciliation core only interprets the
// identity fields, stage, timestamps and the archived flag; everything else
// (company, DOT/MC, premium, notes) passes through opaquely.
type Lead struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`

	Company   string `json:"company,omitempty"`
	DOTNumber string `json:"dot_number,omitempty"`
	MCNumber  string `json:"mc_number,omitempty"`
	Premium   int64  `json:"premium_cents,omitempty"`
	Notes     string `json:"notes,omitempty"`

	// "", "null" and "unassigned" all mean nobody owns this lead.
	AssignedTo string `json:"assigned_to,omitempty"`

	Stage           Stage                `json:"stage"`
	StageTimestamps map[Stage]time.Time `json:"stage_timestamps,omitempty"`

	Archived    bool `json:"archived"`
	PendingSync bool `json:"pending_sync,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewLead builds a lead entering the pipeline at StageNew with its first
// stage timestamp already stamped.
func NewLead(id, name, phone, email string, now time.Time) *Lead {
	return &Lead{
		ID:              id,
		Name:            name,
		Phone:           phone,
		Email:           email,
		Stage:           StageNew,
		StageTimestamps: map[Stage]time.Time{StageNew: now},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Clone returns a deep copy. The reconciler and gateway hand copies to
// callers so nobody mutates the shared view behind their back.
func (l *Lead) Clone() *Lead {
	c := *l
	if l.StageTimestamps != nil {
		c.StageTimestamps = make(map[Stage]time.Time, len(l.StageTimestamps))
		for k, v := range l.StageTimestamps {
			c.StageTimestamps[k] = v
		}
	}
	return &c
}

// Unassigned reports whether the lead has no meaningful owner. The legacy
// data uses "", "null" and "unassigned" interchangeably.
func (l *Lead) Unassigned() bool {
	switch l.AssignedTo {
	case "", "null", "unassigned":
		return true
	}
	return false
}

func (l *Lead) Validate() error {
	if l.ID == "" {
		return ErrMissingID
	}
	if l.Stage != "" && !ValidStage(l.Stage) {
		return errors.New("invalid stage: " + string(l.Stage))
	}
	return nil
}
