package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flat(v float64, n int) []float64 {
	series := make([]float64, n)
	for i := range series {
		series[i] = v
	}
	return series
}

// TestSafetyStockFlatDemand verifies the peak-over-buffered-lead-time spread
// with a constant forecast.
func TestSafetyStockFlatDemand(t *testing.T) {
	e := DefaultEngine{}
	in := Inputs{Forecast: flat(10, 30), LeadTimeDays: 5, SafetyBufferDays: 2}

	// peak 10 over 7 buffered days minus mean 10 over 5 lead days.
	safety, err := e.SafetyStock(in)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, safety, 1e-9)
}

// TestSafetyStockPeakSensitive verifies spiky demand widens the buffer.
func TestSafetyStockPeakSensitive(t *testing.T) {
	e := DefaultEngine{}
	in := Inputs{Forecast: []float64{10, 20}, LeadTimeDays: 3, SafetyBufferDays: 1}

	// mean 15, peak 20: 20*4 - 15*3 = 35.
	safety, err := e.SafetyStock(in)
	require.NoError(t, err)
	assert.InDelta(t, 35.0, safety, 1e-9)
}

// TestSafetyStockNeverNegative verifies the floor when lead-time demand
// dominates the buffered peak.
func TestSafetyStockNeverNegative(t *testing.T) {
	e := DefaultEngine{}
	in := Inputs{Forecast: flat(10, 30), LeadTimeDays: 5, SafetyBufferDays: 0}

	safety, err := e.SafetyStock(in)
	require.NoError(t, err)
	assert.Equal(t, 0.0, safety)
}

// TestReorderPointAddsLeadTimeDemand verifies the reorder point is lead-time
// demand plus safety stock.
func TestReorderPointAddsLeadTimeDemand(t *testing.T) {
	e := DefaultEngine{}
	in := Inputs{Forecast: flat(10, 30), LeadTimeDays: 5, SafetyBufferDays: 2}

	rp, err := e.ReorderPoint(in)
	require.NoError(t, err)
	assert.InDelta(t, 70.0, rp, 1e-9)
}

// TestRecommendedQuantityTargetsCoverDays verifies sizing toward the
// configured days of cover, rounded up to whole units.
func TestRecommendedQuantityTargetsCoverDays(t *testing.T) {
	e := DefaultEngine{}

	qty, err := e.RecommendedQuantity(Inputs{Forecast: flat(10, 30), TargetCoverDays: 14})
	require.NoError(t, err)
	assert.Equal(t, 140.0, qty)

	qty, err = e.RecommendedQuantity(Inputs{Forecast: []float64{1, 2}, TargetCoverDays: 3})
	require.NoError(t, err)
	assert.Equal(t, 5.0, qty, "mean 1.5 over 3 days rounds up to 5")
}

// TestRecommendedQuantityDefaultCover verifies the 30-day default when no
// cover target is configured.
func TestRecommendedQuantityDefaultCover(t *testing.T) {
	e := DefaultEngine{}
	qty, err := e.RecommendedQuantity(Inputs{Forecast: flat(2, 10)})
	require.NoError(t, err)
	assert.Equal(t, 60.0, qty)
}

// TestEmptyForecastYieldsZeroes verifies all formulas degrade to zero when
// there is no forecast signal at all.
func TestEmptyForecastYieldsZeroes(t *testing.T) {
	e := DefaultEngine{}
	in := Inputs{LeadTimeDays: 7, SafetyBufferDays: 3, TargetCoverDays: 30}

	safety, err := e.SafetyStock(in)
	require.NoError(t, err)
	assert.Equal(t, 0.0, safety)

	rp, err := e.ReorderPoint(in)
	require.NoError(t, err)
	assert.Equal(t, 0.0, rp)

	qty, err := e.RecommendedQuantity(in)
	require.NoError(t, err)
	assert.Equal(t, 0.0, qty)
}
