package dashboard

import (
	"sync"
	"time"

	"github.com/couchcryptid/crime-watch/internal/domain"
)

// FilterState is the shared filter criteria container. Filter controls edit a
// draft; Apply publishes the draft as the criteria the dashboard filters by.
type FilterState struct {
	mu      sync.RWMutex
	draft   domain.Criteria
	applied domain.Criteria
	apply   bool
}

// NewFilterState returns an empty, unapplied filter state.
func NewFilterState() *FilterState {
	return &FilterState{}
}

// SetDateRange sets the draft date range. Either end may be nil.
func (f *FilterState) SetDateRange(start, end *time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := domain.Criteria{Start: start, End: end}.Clone()
	f.draft.Start, f.draft.End = c.Start, c.End
}

// SetIncidentTypes replaces the draft incident type selection.
func (f *FilterState) SetIncidentTypes(types []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.IncidentTypes = dedupe(types)
}

// SetStatuses replaces the draft status selection.
func (f *FilterState) SetStatuses(statuses []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.Statuses = dedupe(statuses)
}

// SetDraft replaces the whole draft.
func (f *FilterState) SetDraft(c domain.Criteria) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c = c.Clone()
	c.IncidentTypes = dedupe(c.IncidentTypes)
	c.Statuses = dedupe(c.Statuses)
	f.draft = c
}

// Apply raises the apply flag and publishes the draft.
func (f *FilterState) Apply() domain.Criteria {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apply = true
	f.applied = f.draft.Clone()
	return f.applied.Clone()
}

// Reset clears the draft and the applied criteria and applies the result.
func (f *FilterState) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft = domain.Criteria{}
	f.applied = domain.Criteria{}
	f.apply = true
}

// Draft returns a copy of the draft criteria.
func (f *FilterState) Draft() domain.Criteria {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.draft.Clone()
}

// Applied returns a copy of the criteria currently in force. Before the first
// Apply it imposes no restriction.
func (f *FilterState) Applied() domain.Criteria {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.applied.Clone()
}

// IsApplied reports whether Apply or Reset has been called.
func (f *FilterState) IsApplied() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.apply
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
