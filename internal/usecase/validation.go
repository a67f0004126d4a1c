package usecase

import (
	"fmt"

	"github.com/harborpoint/leadsync/internal/entity"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// patchFields is the fixed schema of patchable lead fields. Anything else is
// rejected outright: the legacy system guessed field names from placeholder
// text and we are not doing that again.
var patchFields = map[string]struct{}{
	"name":          {},
	"phone":         {},
	"email":         {},
	"company":       {},
	"dot_number":    {},
	"mc_number":     {},
	"premium_cents": {},
	"notes":         {},
	"assigned_to":   {},
	"stage":         {},
}

// ValidatePatch checks a field patch against the schema. Stage values are
// validated against the pipeline; "qualified" is not a stage and is rejected
// at this boundary rather than silently rewritten.
func ValidatePatch(patch map[string]any) []ValidationError {
	var errs []ValidationError

	if len(patch) == 0 {
		errs = append(errs, ValidationError{"patch", "is empty"})
		return errs
	}

	for field, value := range patch {
		if _, ok := patchFields[field]; !ok {
			errs = append(errs, ValidationError{field, "is not a known lead field"})
			continue
		}
		switch field {
		case "stage":
			s, ok := value.(string)
			if !ok {
				errs = append(errs, ValidationError{"stage", "must be a string"})
				continue
			}
			if !entity.ValidStage(entity.Stage(s)) {
				errs = append(errs, ValidationError{"stage", "is not a valid stage: " + s})
			}
		case "premium_cents":
			switch value.(type) {
			case int, int64, float64:
			default:
				errs = append(errs, ValidationError{"premium_cents", "must be a number"})
			}
		default:
			if _, ok := value.(string); !ok && value != nil {
				errs = append(errs, ValidationError{field, "must be a string"})
			}
		}
	}

	return errs
}

// ApplyPatch writes a validated patch onto a copy of the lead. Stage changes
// do not go through here; the gateway routes them via the stage clock.
func ApplyPatch(lead *entity.Lead, patch map[string]any) *entity.Lead {
	out := lead.Clone()
	for field, value := range patch {
		switch field {
		case "name":
			out.Name = asString(value)
		case "phone":
			out.Phone = asString(value)
		case "email":
			out.Email = asString(value)
		case "company":
			out.Company = asString(value)
		case "dot_number":
			out.DOTNumber = asString(value)
		case "mc_number":
			out.MCNumber = asString(value)
		case "premium_cents":
			out.Premium = asInt64(value)
		case "notes":
			out.Notes = asString(value)
		case "assigned_to":
			out.AssignedTo = asString(value)
		case "stage":
			out.Stage = entity.Stage(asString(value))
		}
	}
	return out
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	}
	return 0
}
