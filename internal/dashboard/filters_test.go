package dashboard

import (
	"testing"
	"time"

	"github.com/couchcryptid/crime-watch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterState_DraftIsolatedUntilApply(t *testing.T) {
	f := NewFilterState()
	assert.False(t, f.IsApplied())
	assert.True(t, f.Applied().IsZero())

	start := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)
	f.SetDateRange(&start, &end)
	f.SetIncidentTypes([]string{"Theft", "Theft", "Assault"})
	f.SetStatuses([]string{domain.StatusNew})

	assert.True(t, f.Applied().IsZero())
	assert.Equal(t, []string{"Theft", "Assault"}, f.Draft().IncidentTypes)

	applied := f.Apply()
	assert.True(t, f.IsApplied())
	require.True(t, applied.HasDateRange())
	assert.Equal(t, start, *applied.Start)
	assert.Equal(t, []string{domain.StatusNew}, f.Applied().Statuses)
}

func TestFilterState_CopiesDoNotAlias(t *testing.T) {
	f := NewFilterState()
	types := []string{"Theft"}
	f.SetIncidentTypes(types)
	types[0] = "Arson"
	assert.Equal(t, []string{"Theft"}, f.Draft().IncidentTypes)

	start := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	f.SetDateRange(&start, &start)
	start = start.AddDate(1, 0, 0)
	assert.Equal(t, 2024, f.Draft().Start.Year())

	f.Apply()
	got := f.Applied()
	got.IncidentTypes[0] = "Burglary"
	assert.Equal(t, []string{"Theft"}, f.Applied().IncidentTypes)
}

func TestFilterState_Reset(t *testing.T) {
	f := NewFilterState()
	f.SetStatuses([]string{domain.StatusResolved})
	f.Apply()

	f.Reset()
	assert.True(t, f.IsApplied())
	assert.True(t, f.Draft().IsZero())
	assert.True(t, f.Applied().IsZero())
}

func TestFilterState_SetDraft(t *testing.T) {
	f := NewFilterState()
	f.SetDraft(domain.Criteria{Statuses: []string{domain.StatusNew, domain.StatusNew}})
	assert.Equal(t, []string{domain.StatusNew}, f.Draft().Statuses)
	assert.Nil(t, f.Draft().IncidentTypes)
}
