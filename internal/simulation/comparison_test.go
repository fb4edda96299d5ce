package simulation

import (
	"testing"
	"time"

	"github.com/restocklab/replaysim/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestObserveCountsStockDays verifies the per-item counters split cleanly
// into stockout and in-stock days.
func TestObserveCountsStockDays(t *testing.T) {
	agg := NewAggregator()
	cost := decimal.NewFromInt(2)

	recs := []domain.DailyComparisonRecord{
		{ItemID: "sku-a", SimulatedStock: 10, RealStock: floatPtr(4)},
		{ItemID: "sku-a", SimulatedStock: 0, SimulatedStockout: true, RealStock: floatPtr(0), RealStockout: true},
		{ItemID: "sku-a", SimulatedStock: 30, RealStock: floatPtr(1), OrderPlaced: true, OrderQuantity: 100},
	}
	for _, r := range recs {
		agg.Observe(r, cost)
	}

	items := agg.Items()
	require.Len(t, items, 1)
	m := items[0]
	assert.Equal(t, 3, m.TotalDays)
	assert.Equal(t, 1, m.SimulatedStockouts)
	assert.Equal(t, 2, m.SimulatedDaysInStock)
	assert.Equal(t, 1, m.RealStockouts)
	assert.Equal(t, 2, m.RealDaysInStock)
	assert.Equal(t, 1, m.TotalOrders)
	assert.True(t, m.SimulatedInventoryValue.Equal(decimal.NewFromInt(80)), "got %s", m.SimulatedInventoryValue)
	assert.True(t, m.RealInventoryValue.Equal(decimal.NewFromInt(10)), "got %s", m.RealInventoryValue)
}

// TestObserveSkipsRealCountersWhenRealUnknown verifies days without a real
// balance still count toward totals but never toward real-side metrics.
func TestObserveSkipsRealCountersWhenRealUnknown(t *testing.T) {
	agg := NewAggregator()

	agg.Observe(domain.DailyComparisonRecord{ItemID: "sku-a", SimulatedStock: 5}, decimal.NewFromInt(1))
	agg.Observe(domain.DailyComparisonRecord{ItemID: "sku-a", SimulatedStock: 0, SimulatedStockout: true}, decimal.NewFromInt(1))

	m := agg.Items()[0]
	assert.Equal(t, 2, m.TotalDays)
	assert.Equal(t, 0, m.RealStockouts)
	assert.Equal(t, 0, m.RealDaysInStock)
	assert.True(t, m.RealInventoryValue.IsZero())
}

// TestSummaryMatchesRawRecords recomputes the summary rates independently
// from the record stream and compares.
func TestSummaryMatchesRawRecords(t *testing.T) {
	agg := NewAggregator()
	cost := decimal.NewFromInt(3)

	var recs []domain.DailyComparisonRecord
	for d := 0; d < 10; d++ {
		simStock := float64(9 - d)
		realStock := float64(5 - d)
		if realStock < 0 {
			realStock = 0
		}
		recs = append(recs, domain.DailyComparisonRecord{
			Date:              day(2024, time.January, 1+d),
			ItemID:            "sku-a",
			SimulatedStock:    simStock,
			SimulatedStockout: simStock <= 0,
			RealStock:         floatPtr(realStock),
			RealStockout:      realStock <= 0,
		})
	}
	for _, r := range recs {
		agg.Observe(r, cost)
	}

	summary := agg.Summary()

	simStockouts, realStockouts := 0, 0
	for _, r := range recs {
		if r.SimulatedStockout {
			simStockouts++
		}
		if r.RealStockout {
			realStockouts++
		}
	}

	assert.Equal(t, 10, summary.TotalDays)
	assert.InDelta(t, float64(simStockouts)/10, summary.SimulatedStockoutRate, 1e-9)
	assert.InDelta(t, float64(realStockouts)/10, summary.RealStockoutRate, 1e-9)
	assert.InDelta(t, 1-summary.SimulatedStockoutRate, summary.SimulatedServiceLevel, 1e-9)
	assert.InDelta(t, summary.RealStockoutRate-summary.SimulatedStockoutRate, summary.StockoutReduction, 1e-9)
}

// TestSummaryDeltasArePlainDifferences verifies the improvement figures are
// straight subtraction, with savings spread over the run's days.
func TestSummaryDeltasArePlainDifferences(t *testing.T) {
	agg := NewAggregator()
	cost := decimal.NewFromInt(1)

	// 5 days, simulated holds 10/day, real holds 30/day.
	for d := 0; d < 5; d++ {
		agg.Observe(domain.DailyComparisonRecord{
			ItemID:         "sku-a",
			SimulatedStock: 10,
			RealStock:      floatPtr(30),
		}, cost)
	}

	summary := agg.Summary()
	assert.True(t, summary.InventoryReduction.Equal(decimal.NewFromInt(100)),
		"got %s", summary.InventoryReduction)
	assert.True(t, summary.EstimatedSavings.Equal(decimal.NewFromInt(20)),
		"got %s", summary.EstimatedSavings)
}

// TestSummaryAcrossItems verifies rates pool over item-days, not per item.
func TestSummaryAcrossItems(t *testing.T) {
	agg := NewAggregator()
	cost := decimal.NewFromInt(1)

	// sku-a: 2 days, 1 stockout. sku-b: 2 days, 0 stockouts.
	agg.Observe(domain.DailyComparisonRecord{ItemID: "sku-a", SimulatedStock: 0, SimulatedStockout: true}, cost)
	agg.Observe(domain.DailyComparisonRecord{ItemID: "sku-a", SimulatedStock: 4}, cost)
	agg.Observe(domain.DailyComparisonRecord{ItemID: "sku-b", SimulatedStock: 4}, cost)
	agg.Observe(domain.DailyComparisonRecord{ItemID: "sku-b", SimulatedStock: 4}, cost)

	summary := agg.Summary()
	assert.Equal(t, 2, summary.ItemCount)
	assert.Equal(t, 4, summary.TotalDays)
	assert.InDelta(t, 0.25, summary.SimulatedStockoutRate, 1e-9)
}
