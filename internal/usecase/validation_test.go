package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/harborpoint/leadsync/internal/entity"
	"github.com/harborpoint/leadsync/internal/usecase"
)

func TestValidatePatchRejectsUnknownField(t *testing.T) {
	errs := usecase.ValidatePatch(map[string]any{"favourite_color": "blue"})

	assert.Len(t, errs, 1)
	assert.Equal(t, "favourite_color", errs[0].Field)
}

func TestValidatePatchRejectsEmptyPatch(t *testing.T) {
	errs := usecase.ValidatePatch(map[string]any{})

	assert.Len(t, errs, 1)
}

func TestValidatePatchRejectsLegacyQualifiedStage(t *testing.T) {
	errs := usecase.ValidatePatch(map[string]any{"stage": "qualified"})

	assert.Len(t, errs, 1)
	assert.Equal(t, "stage", errs[0].Field)
}

func TestValidatePatchAcceptsKnownFields(t *testing.T) {
	errs := usecase.ValidatePatch(map[string]any{
		"name":          "Acme",
		"phone":         "555-0001",
		"premium_cents": float64(1500), // decoded JSON numbers arrive as float64
		"stage":         "quoted",
	})

	assert.Empty(t, errs)
}

func TestValidatePatchPremiumMustBeNumeric(t *testing.T) {
	errs := usecase.ValidatePatch(map[string]any{"premium_cents": "a lot"})

	assert.Len(t, errs, 1)
	assert.Equal(t, "premium_cents", errs[0].Field)
}

func TestValidatePatchCollectsAllErrors(t *testing.T) {
	errs := usecase.ValidatePatch(map[string]any{
		"bogus":         1,
		"premium_cents": "nope",
		"stage":         "qualified",
	})

	assert.Len(t, errs, 3)
}

func TestApplyPatchDoesNotMutateInput(t *testing.T) {
	lead := &entity.Lead{ID: "7", Name: "Acme", Premium: 100}

	out := usecase.ApplyPatch(lead, map[string]any{
		"name":          "Acme Trucking",
		"premium_cents": 250,
	})

	assert.Equal(t, "Acme Trucking", out.Name)
	assert.Equal(t, int64(250), out.Premium)
	assert.Equal(t, "Acme", lead.Name)
	assert.Equal(t, int64(100), lead.Premium)
}

func TestApplyPatchLeavesUnpatchedFieldsAlone(t *testing.T) {
	lead := &entity.Lead{ID: "7", Name: "Acme", Company: "Acme Inc", Notes: "call back"}

	out := usecase.ApplyPatch(lead, map[string]any{"notes": "quoted"})

	assert.Equal(t, "quoted", out.Notes)
	assert.Equal(t, "Acme", out.Name)
	assert.Equal(t, "Acme Inc", out.Company)
}
