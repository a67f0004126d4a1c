package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/harborpoint/leadsync/internal/entity"
	"github.com/harborpoint/leadsync/internal/usecase"
)

func TestExclusionIndexMatchesByAnyDimension(t *testing.T) {
	archived := []*entity.Lead{
		{ID: "9", Name: "Shady LLC", Phone: "(555) 000-1111", Email: "OPS@shady.com"},
	}
	idx := usecase.BuildExclusionIndex(archived, []string{"42"})

	// by id (archived and ledgered)
	assert.True(t, idx.Contains(entity.Identity{ID: "9"}))
	assert.True(t, idx.Contains(entity.Identity{ID: "42"}))

	// by normalized name, phone, email with a different id
	assert.True(t, idx.Contains(entity.Identity{ID: "55", Name: "shady llc"}))
	assert.True(t, idx.Contains(entity.Identity{ID: "55", Phone: "5550001111"}))
	assert.True(t, idx.Contains(entity.Identity{ID: "55", Email: "ops@shady.com"}))

	assert.False(t, idx.Contains(entity.Identity{ID: "55", Name: "honest inc"}))
}

func TestExclusionIndexEmptyFieldsNeverMatch(t *testing.T) {
	idx := usecase.BuildExclusionIndex([]*entity.Lead{{ID: "9"}}, nil)

	// a lead with no secondary fields must not match another empty lead
	assert.False(t, idx.Contains(entity.Identity{ID: "10"}))
}

func TestExclusionIndexSkipsMalformedArchived(t *testing.T) {
	archived := []*entity.Lead{
		{Name: "no id here"},
		{ID: "1", Name: "kept"},
	}
	idx := usecase.BuildExclusionIndex(archived, nil)

	assert.Equal(t, 1, idx.Skipped())
	assert.Equal(t, 1, idx.Len())
	// the malformed record's name is not absorbed
	assert.False(t, idx.Contains(entity.Identity{ID: "2", Name: "no id here"}))
}

func TestExclusionIndexMerge(t *testing.T) {
	a := usecase.BuildExclusionIndex([]*entity.Lead{{ID: "1", Name: "Alpha"}}, nil)
	b := usecase.BuildExclusionIndex([]*entity.Lead{{ID: "2", Email: "b@b.com"}}, []string{"3"})

	merged := a.Merge(b)

	assert.True(t, merged.Contains(entity.Identity{ID: "1"}))
	assert.True(t, merged.Contains(entity.Identity{ID: "2"}))
	assert.True(t, merged.Contains(entity.Identity{ID: "3"}))
	assert.True(t, merged.Contains(entity.Identity{ID: "x", Name: "alpha"}))
	assert.True(t, merged.Contains(entity.Identity{ID: "x", Email: "b@b.com"}))

	// merge does not mutate its inputs
	assert.False(t, a.Contains(entity.Identity{ID: "2"}))
}
