package usecase

import "github.com/harborpoint/leadsync/internal/entity"

// ExclusionIndex answers "is this identity archived or deleted?" in O(1).
// It is a cache, not a source of truth: it is rebuilt from scratch whenever
// the archived/deleted sets change and must never be mutated incrementally
// from anywhere but the reconciler and the mutation gateway.
type ExclusionIndex struct {
	ids    map[string]struct{}
	names  map[string]struct{}
	phones map[string]struct{}
	emails map[string]struct{}

	skipped int // archived inputs that failed normalization
}

func NewExclusionIndex() *ExclusionIndex {
	return &ExclusionIndex{
		ids:    make(map[string]struct{}),
		names:  make(map[string]struct{}),
		phones: make(map[string]struct{}),
		emails: make(map[string]struct{}),
	}
}

// BuildExclusionIndex populates the four sets from every archived lead and
// every ledgered id. Archived records without a usable id are skipped and
// counted, never silently absorbed.
func BuildExclusionIndex(archived []*entity.Lead, deletedIDs []string) *ExclusionIndex {
	idx := NewExclusionIndex()
	for _, lead := range archived {
		identity, err := entity.Normalize(lead)
		if err != nil {
			idx.skipped++
			continue
		}
		idx.add(identity)
	}
	for _, id := range deletedIDs {
		if id != "" {
			idx.ids[id] = struct{}{}
		}
	}
	return idx
}

func (x *ExclusionIndex) add(identity entity.Identity) {
	x.ids[identity.ID] = struct{}{}
	if identity.Name != "" {
		x.names[identity.Name] = struct{}{}
	}
	if identity.Phone != "" {
		x.phones[identity.Phone] = struct{}{}
	}
	if identity.Email != "" {
		x.emails[identity.Email] = struct{}{}
	}
}

// Add records one more excluded identity. Used by the gateway on archive so
// the exclusion takes effect before the next full rebuild.
func (x *ExclusionIndex) Add(identity entity.Identity) {
	x.add(identity)
}

// Contains is true when the id matches, or any non-empty secondary field
// matches its set.
func (x *ExclusionIndex) Contains(identity entity.Identity) bool {
	if _, ok := x.ids[identity.ID]; ok {
		return true
	}
	if identity.Name != "" {
		if _, ok := x.names[identity.Name]; ok {
			return true
		}
	}
	if identity.Phone != "" {
		if _, ok := x.phones[identity.Phone]; ok {
			return true
		}
	}
	if identity.Email != "" {
		if _, ok := x.emails[identity.Email]; ok {
			return true
		}
	}
	return false
}

// Merge unions another index into a new one. Used when archived data arrives
// from more than one source (local cache plus remote archive table).
func (x *ExclusionIndex) Merge(other *ExclusionIndex) *ExclusionIndex {
	merged := NewExclusionIndex()
	for _, src := range []*ExclusionIndex{x, other} {
		if src == nil {
			continue
		}
		for k := range src.ids {
			merged.ids[k] = struct{}{}
		}
		for k := range src.names {
			merged.names[k] = struct{}{}
		}
		for k := range src.phones {
			merged.phones[k] = struct{}{}
		}
		for k := range src.emails {
			merged.emails[k] = struct{}{}
		}
		merged.skipped += src.skipped
	}
	return merged
}

// Skipped reports how many archived inputs failed normalization during build.
func (x *ExclusionIndex) Skipped() int {
	return x.skipped
}

// Len reports the number of excluded ids, mostly for logging.
func (x *ExclusionIndex) Len() int {
	return len(x.ids)
}
