package main

import (
	"math/rand/v2"
	"os"
	"testing"

	"github.com/couchcryptid/crime-watch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Deterministic(t *testing.T) {
	a := generate(rand.New(rand.NewPCG(1, 2)), 7, 30, 22.3, 70.8)
	b := generate(rand.New(rand.NewPCG(1, 2)), 7, 30, 22.3, 70.8)
	assert.Equal(t, a, b)
	assert.Equal(t, "CR-00007", a.ID)
}

func TestGenerate_ProducesValidReports(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 21))
	for i := range 200 {
		r := generate(rng, i+1, 60, 22.3039, 70.8022)
		require.NoError(t, r.Validate())
		assert.True(t, domain.IsKnownStatus(r.Status), r.Status)

		occurred, err := r.OccurredAt(referenceNow.Location())
		require.NoError(t, err)
		assert.False(t, occurred.After(referenceNow), "report %s occurs after the reference time", r.ID)

		created, err := r.Created()
		require.NoError(t, err)
		assert.False(t, created.Before(occurred))
	}
}

func TestWeighted(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	for range 50 {
		assert.Equal(t, 1, weighted(rng, []int{0, 5, 0}))
	}
}

func TestGenerateAll_ReproducesCommittedFixture(t *testing.T) {
	reports, err := generateAll(defaultSeed, defaultCount, defaultDays, defaultLat, defaultLon)
	require.NoError(t, err)
	require.Len(t, reports, defaultCount)

	got, err := encode(reports)
	require.NoError(t, err)
	want, err := os.ReadFile("../../data/mock/crime_reports.json")
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got), "fixture is stale: go run ./cmd/genmock")
}
