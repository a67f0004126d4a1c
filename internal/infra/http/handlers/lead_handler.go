package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/harborpoint/leadsync/internal/entity"
	"github.com/harborpoint/leadsync/internal/usecase"
)

// LeadHandler exposes the active view and the mutation gateway. It is the
// only surface the UI layer talks to; nothing here touches the cache or the
// view directly.
type LeadHandler struct {
	reconciler *usecase.Reconciler
	gateway    *usecase.MutationGateway
	clock      usecase.StageClock
}

func NewLeadHandler(reconciler *usecase.Reconciler, gateway *usecase.MutationGateway) *LeadHandler {
	return &LeadHandler{
		reconciler: reconciler,
		gateway:    gateway,
	}
}

type leadRow struct {
	*entity.Lead
	DaysInStage   *int `json:"days_in_stage,omitempty"`
	HighlightTier int  `json:"highlight_tier"`
}

type listLeadsResponse struct {
	Leads       []leadRow           `json:"leads"`
	Diagnostics usecase.Diagnostics `json:"diagnostics"`
	RefreshedAt time.Time           `json:"refreshed_at"`
}

// HandleList returns the current active view. Rows carry the highlight tier;
// days_in_stage is omitted, not zeroed, when the age is unknown.
func (h *LeadHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	view := h.reconciler.View()
	now := time.Now().UTC()

	rows := make([]leadRow, 0, len(view.Leads))
	for _, lead := range view.Leads {
		row := leadRow{Lead: lead}
		if age, err := h.clock.AgeInCurrentStage(lead, now); err == nil {
			days := int(age / (24 * time.Hour))
			row.DaysInStage = &days
			row.HighlightTier = int(h.clock.Tier(age))
		}
		rows = append(rows, row)
	}

	writeJSON(w, http.StatusOK, listLeadsResponse{
		Leads:       rows,
		Diagnostics: view.Diagnostics,
		RefreshedAt: view.RefreshedAt,
	})
}

type createLeadRequest struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	Company    string `json:"company"`
	DOTNumber  string `json:"dot_number"`
	MCNumber   string `json:"mc_number"`
	Premium    int64  `json:"premium_cents"`
	Notes      string `json:"notes"`
	AssignedTo string `json:"assigned_to"`
}

func (h *LeadHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Name == "" && req.Phone == "" && req.Email == "" {
		writeError(w, http.StatusBadRequest, "at least one of name, phone or email is required")
		return
	}

	lead := &entity.Lead{
		Name:       req.Name,
		Phone:      req.Phone,
		Email:      req.Email,
		Company:    req.Company,
		DOTNumber:  req.DOTNumber,
		MCNumber:   req.MCNumber,
		Premium:    req.Premium,
		Notes:      req.Notes,
		AssignedTo: req.AssignedTo,
	}

	created, err := h.gateway.Create(r.Context(), lead)
	if err != nil {
		writeGatewayError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *LeadHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	updated, err := h.gateway.Update(r.Context(), id, patch)
	if err != nil {
		writeGatewayError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type updateStageRequest struct {
	Stage string `json:"stage"`
}

func (h *LeadHandler) HandleUpdateStage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateStageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	updated, err := h.gateway.UpdateStage(r.Context(), id, entity.Stage(req.Stage))
	if err != nil {
		writeGatewayError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *LeadHandler) HandleArchive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.gateway.Archive(r.Context(), id); err != nil {
		writeGatewayError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"archived": true})
}

func (h *LeadHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.gateway.Delete(r.Context(), id); err != nil {
		writeGatewayError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// HandleReconcile is the explicit trigger API: the replacement for the
// legacy scripts' competing poll loops.
func (h *LeadHandler) HandleReconcile(w http.ResponseWriter, r *http.Request) {
	view := h.reconciler.Refresh(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"active":      len(view.Leads),
		"diagnostics": view.Diagnostics,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeGatewayError(w http.ResponseWriter, err error) {
	switch usecase.ErrorCode(err) {
	case usecase.CodeNotFound:
		writeError(w, http.StatusNotFound, err.Error())
	case usecase.CodeValidation, usecase.CodeInvalidRecord:
		writeError(w, http.StatusBadRequest, err.Error())
	case usecase.CodeTimeout:
		writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}
