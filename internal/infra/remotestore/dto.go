package remotestore

import (
	"time"

	"github.com/harborpoint/leadsync/internal/entity"
)

// The wire shape of the lead API. Ids come back numeric from some deployments
// of the backend, so the DTO accepts either and canonicalizes to string.

type leadDTO struct {
	ID    flexibleID `json:"id"`
	Name  string     `json:"name,omitempty"`
	Phone string     `json:"phone,omitempty"`
	Email string     `json:"email,omitempty"`

	Company   string `json:"company,omitempty"`
	DOTNumber string `json:"dot_number,omitempty"`
	MCNumber  string `json:"mc_number,omitempty"`
	Premium   int64  `json:"premium_cents,omitempty"`
	Notes     string `json:"notes,omitempty"`

	AssignedTo string `json:"assigned_to,omitempty"`

	Stage           string               `json:"stage"`
	StageTimestamps map[string]time.Time `json:"stage_timestamps,omitempty"`

	Archived bool `json:"archived"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type listResponse struct {
	Leads []leadDTO `json:"leads"`
}

func (d leadDTO) toEntity() *entity.Lead {
	lead := &entity.Lead{
		ID:         string(d.ID),
		Name:       d.Name,
		Phone:      d.Phone,
		Email:      d.Email,
		Company:    d.Company,
		DOTNumber:  d.DOTNumber,
		MCNumber:   d.MCNumber,
		Premium:    d.Premium,
		Notes:      d.Notes,
		AssignedTo: d.AssignedTo,
		Stage:      entity.Stage(d.Stage),
		Archived:   d.Archived,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
	if len(d.StageTimestamps) > 0 {
		lead.StageTimestamps = make(map[entity.Stage]time.Time, len(d.StageTimestamps))
		for stage, ts := range d.StageTimestamps {
			lead.StageTimestamps[entity.Stage(stage)] = ts
		}
	}
	return lead
}

func fromEntity(l *entity.Lead) leadDTO {
	dto := leadDTO{
		ID:         flexibleID(l.ID),
		Name:       l.Name,
		Phone:      l.Phone,
		Email:      l.Email,
		Company:    l.Company,
		DOTNumber:  l.DOTNumber,
		MCNumber:   l.MCNumber,
		Premium:    l.Premium,
		Notes:      l.Notes,
		AssignedTo: l.AssignedTo,
		Stage:      string(l.Stage),
		Archived:   l.Archived,
		CreatedAt:  l.CreatedAt,
		UpdatedAt:  l.UpdatedAt,
	}
	if len(l.StageTimestamps) > 0 {
		dto.StageTimestamps = make(map[string]time.Time, len(l.StageTimestamps))
		for stage, ts := range l.StageTimestamps {
			dto.StageTimestamps[string(stage)] = ts
		}
	}
	return dto
}
