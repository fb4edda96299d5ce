package simulation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/restocklab/replaysim/internal/domain"
	"github.com/restocklab/replaysim/internal/forecast"
	"github.com/restocklab/replaysim/internal/history"
	"github.com/restocklab/replaysim/internal/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEngine returns fixed policy answers so scenarios are deterministic.
type stubEngine struct {
	rp     float64
	qty    float64
	rpErr  error
	qtyErr error
}

func (stubEngine) SafetyStock(policy.Inputs) (float64, error) { return 0, nil }

func (s stubEngine) ReorderPoint(policy.Inputs) (float64, error) { return s.rp, s.rpErr }

func (s stubEngine) RecommendedQuantity(policy.Inputs) (float64, error) { return s.qty, s.qtyErr }

// seriesForecaster returns a fixed series and records every cutoff it was
// asked to respect. Safe for concurrent item workers.
type seriesForecaster struct {
	mu      sync.Mutex
	series  []float64
	cutoffs []time.Time
}

func (f *seriesForecaster) Generate(ctx context.Context, itemID string, cutoff time.Time, horizonDays int) ([]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.series, nil
}

func flatSales(itemID string, start time.Time, days int, units float64) []history.SalesRecord {
	var sales []history.SalesRecord
	for i := 0; i < days; i++ {
		sales = append(sales, history.SalesRecord{ItemID: itemID, Date: start.AddDate(0, 0, i), Units: units})
	}
	return sales
}

func flatSeries(v float64, n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func newTestOrchestrator(t *testing.T, cfg Config) *Orchestrator {
	t.Helper()
	if cfg.Forecasts == nil {
		cfg.Forecasts = forecast.NewCache(&seriesForecaster{series: flatSeries(10, 30)}, cfg.History, time.Second)
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = 1
	}
	if cfg.HorizonDays == 0 {
		cfg.HorizonDays = 30
	}
	if cfg.DefaultLeadTimeDays == 0 {
		cfg.DefaultLeadTimeDays = 7
	}
	orch, err := NewOrchestrator(cfg)
	require.NoError(t, err)
	return orch
}

// TestNewOrchestratorRejectsInvalidDateRange verifies the configuration-error
// fast path runs before any simulated day.
func TestNewOrchestratorRejectsInvalidDateRange(t *testing.T) {
	_, err := NewOrchestrator(Config{
		Run: domain.SimulationRun{
			TenantID:  "t1",
			ItemIDs:   []string{"sku-1"},
			StartDate: day(2024, time.January, 10),
			EndDate:   day(2024, time.January, 1),
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange)
}

// TestNewOrchestratorRejectsEmptyItemScope verifies a run with nothing to
// simulate is rejected up front.
func TestNewOrchestratorRejectsEmptyItemScope(t *testing.T) {
	_, err := NewOrchestrator(Config{
		Run: domain.SimulationRun{
			TenantID:  "ghost",
			StartDate: day(2024, time.January, 1),
			EndDate:   day(2024, time.January, 10),
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownTenant)
}

// TestFlatSalesDepletion replays an item that never reorders: initial stock
// 50, sales 10 per day. Stock drains to zero and stays there.
func TestFlatSalesDepletion(t *testing.T) {
	start := day(2024, time.January, 1)
	window := history.NewWindow(
		flatSales("sku-1", start, 8, 10),
		[]history.StockSnapshot{{ItemID: "sku-1", Date: day(2023, time.December, 31), Units: 50}},
	)

	orch := newTestOrchestrator(t, Config{
		Run: domain.SimulationRun{
			TenantID:  "t1",
			ItemIDs:   []string{"sku-1"},
			StartDate: start,
			EndDate:   day(2024, time.January, 8),
		},
		Products: map[string]domain.Product{"sku-1": {ItemID: "sku-1"}},
		History:  window,
		Engine:   stubEngine{},
	})

	report, err := orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, report.Status)
	require.Len(t, report.Records, 8)

	wantStocks := []float64{40, 30, 20, 10, 0, 0, 0, 0}
	for i, rec := range report.Records {
		assert.Equal(t, wantStocks[i], rec.SimulatedStock, "day %d", i+1)
		assert.Equal(t, wantStocks[i] <= 0, rec.SimulatedStockout, "day %d", i+1)
		require.NotNil(t, rec.RealStock, "day %d", i+1)
		assert.Equal(t, wantStocks[i], *rec.RealStock, "real side follows the same drain")
		assert.Equal(t, 10.0, rec.ActualSales)
		assert.False(t, rec.OrderPlaced)
	}
	assert.Empty(t, report.Orders)
	assert.Equal(t, 4, report.Summary.TotalDays-report.Items[0].SimulatedDaysInStock,
		"four stockout days in the run")
}

// TestReorderLifecycle replays the reorder scenario: reorder point 20, lead
// time 3, quantity 100. The order triggers the day pre-sales stock first
// reads 20, arrives three days later, and credits before that day's sales.
func TestReorderLifecycle(t *testing.T) {
	start := day(2024, time.January, 1)
	leadTime := 3
	window := history.NewWindow(
		flatSales("sku-1", start, 10, 10),
		[]history.StockSnapshot{{ItemID: "sku-1", Date: day(2023, time.December, 31), Units: 50}},
	)

	orch := newTestOrchestrator(t, Config{
		Run: domain.SimulationRun{
			TenantID:        "t1",
			ItemIDs:         []string{"sku-1"},
			StartDate:       start,
			EndDate:         day(2024, time.January, 10),
			AutoPlaceOrders: true,
		},
		Products: map[string]domain.Product{
			"sku-1": {ItemID: "sku-1", LeadTimeDays: &leadTime},
		},
		History: window,
		Engine:  stubEngine{rp: 20, qty: 100},
	})

	report, err := orch.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Orders, 1)
	order := report.Orders[0]
	assert.Equal(t, day(2024, time.January, 4), order.OrderDate)
	assert.Equal(t, day(2024, time.January, 7), order.ArrivalDate)
	assert.Equal(t, 100.0, order.Quantity)
	assert.True(t, order.Received)

	wantStocks := []float64{40, 30, 20, 10, 0, 0, 90, 80, 70, 60}
	require.Len(t, report.Records, 10)
	for i, rec := range report.Records {
		assert.Equal(t, wantStocks[i], rec.SimulatedStock, "day %d", i+1)
		assert.Equal(t, i == 3, rec.OrderPlaced, "only day 4 places an order")
	}
	assert.Equal(t, 1, report.Summary.TotalOrders)
}

// TestMOQFloorsOrderQuantity verifies a configured minimum order quantity
// overrides a smaller recommendation.
func TestMOQFloorsOrderQuantity(t *testing.T) {
	start := day(2024, time.January, 1)
	moq := 50.0
	window := history.NewWindow(
		flatSales("sku-1", start, 2, 10),
		[]history.StockSnapshot{{ItemID: "sku-1", Date: day(2023, time.December, 31), Units: 50}},
	)

	orch := newTestOrchestrator(t, Config{
		Run: domain.SimulationRun{
			TenantID:        "t1",
			ItemIDs:         []string{"sku-1"},
			StartDate:       start,
			EndDate:         day(2024, time.January, 2),
			AutoPlaceOrders: true,
		},
		Products: map[string]domain.Product{
			"sku-1": {ItemID: "sku-1", MinOrderQty: &moq},
		},
		History: window,
		Engine:  stubEngine{rp: 1000, qty: 5},
	})

	report, err := orch.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Orders, 1)
	assert.Equal(t, 50.0, report.Orders[0].Quantity)
}

// TestMissingOpeningSnapshotWarns verifies an item with no snapshot history
// starts empty with a data-gap warning instead of failing the run.
func TestMissingOpeningSnapshotWarns(t *testing.T) {
	start := day(2024, time.January, 1)
	window := history.NewWindow(flatSales("sku-1", start, 3, 10), nil)

	orch := newTestOrchestrator(t, Config{
		Run: domain.SimulationRun{
			TenantID:  "t1",
			ItemIDs:   []string{"sku-1"},
			StartDate: start,
			EndDate:   day(2024, time.January, 3),
		},
		Products: map[string]domain.Product{"sku-1": {ItemID: "sku-1"}},
		History:  window,
		Engine:   stubEngine{},
	})

	report, err := orch.Run(context.Background())
	require.NoError(t, err)

	for _, rec := range report.Records {
		assert.Equal(t, 0.0, rec.SimulatedStock)
		assert.Nil(t, rec.RealStock, "no baseline means the real side stays unknown")
	}

	found := false
	for _, w := range report.Warnings {
		if w.Class == domain.WarningDataGap && w.ItemID == "sku-1" {
			found = true
		}
	}
	assert.True(t, found, "expected a data_gap warning for the missing snapshot")
}

// TestNoLookahead mutates history dated after the run window and asserts the
// replay output is unchanged.
func TestNoLookahead(t *testing.T) {
	start := day(2024, time.January, 1)
	end := day(2024, time.January, 10)
	sales := flatSales("sku-1", start, 10, 10)
	snaps := []history.StockSnapshot{{ItemID: "sku-1", Date: day(2023, time.December, 31), Units: 50}}

	runOnce := func(window *history.Window) *domain.SimulationReport {
		orch := newTestOrchestrator(t, Config{
			Run: domain.SimulationRun{
				TenantID:        "t1",
				ItemIDs:         []string{"sku-1"},
				StartDate:       start,
				EndDate:         end,
				AutoPlaceOrders: true,
			},
			Products: map[string]domain.Product{"sku-1": {ItemID: "sku-1"}},
			History:  window,
			Engine:   stubEngine{rp: 20, qty: 100},
		})
		report, err := orch.Run(context.Background())
		require.NoError(t, err)
		return report
	}

	baseline := runOnce(history.NewWindow(sales, snaps))

	futureSales := append(append([]history.SalesRecord{}, sales...),
		flatSales("sku-1", end.AddDate(0, 0, 1), 5, 999)...)
	futureSnaps := append(append([]history.StockSnapshot{}, snaps...),
		history.StockSnapshot{ItemID: "sku-1", Date: end.AddDate(0, 0, 2), Units: 7})
	mutated := runOnce(history.NewWindow(futureSales, futureSnaps))

	assert.Equal(t, baseline.Records, mutated.Records)
	assert.Equal(t, baseline.Orders, mutated.Orders)
	assert.Equal(t, baseline.Summary, mutated.Summary)
}

// TestForecastCutoffNeverExceedsSimulatedDay verifies every forecast call is
// bounded by the day being replayed.
func TestForecastCutoffNeverExceedsSimulatedDay(t *testing.T) {
	start := day(2024, time.January, 1)
	end := day(2024, time.January, 20)
	window := history.NewWindow(
		flatSales("sku-1", start, 20, 10),
		[]history.StockSnapshot{{ItemID: "sku-1", Date: day(2023, time.December, 31), Units: 500}},
	)

	fc := &seriesForecaster{series: flatSeries(10, 30)}
	orch := newTestOrchestrator(t, Config{
		Run: domain.SimulationRun{
			TenantID:  "t1",
			ItemIDs:   []string{"sku-1"},
			StartDate: start,
			EndDate:   end,
		},
		Products:  map[string]domain.Product{"sku-1": {ItemID: "sku-1"}},
		History:   window,
		Forecasts: forecast.NewCache(fc, window, time.Second),
		Engine:    stubEngine{},
	})

	_, err := orch.Run(context.Background())
	require.NoError(t, err)

	// 20 days on a 7-day cadence: generated on days 1, 8 and 15.
	require.Len(t, fc.cutoffs, 3)
	assert.Equal(t, []time.Time{start, start.AddDate(0, 0, 7), start.AddDate(0, 0, 14)}, fc.cutoffs)
	for _, cutoff := range fc.cutoffs {
		assert.False(t, cutoff.After(end))
	}
}

// TestIdempotentReplay verifies two runs of the same configuration produce
// identical record streams.
func TestIdempotentReplay(t *testing.T) {
	start := day(2024, time.January, 1)
	build := func() *Orchestrator {
		window := history.NewWindow(
			flatSales("sku-1", start, 10, 10),
			[]history.StockSnapshot{{ItemID: "sku-1", Date: day(2023, time.December, 31), Units: 50}},
		)
		leadTime := 3
		return newTestOrchestrator(t, Config{
			Run: domain.SimulationRun{
				TenantID:        "t1",
				ItemIDs:         []string{"sku-1"},
				StartDate:       start,
				EndDate:         day(2024, time.January, 10),
				AutoPlaceOrders: true,
			},
			Products: map[string]domain.Product{"sku-1": {ItemID: "sku-1", LeadTimeDays: &leadTime}},
			History:  window,
			Engine:   stubEngine{rp: 20, qty: 100},
		})
	}

	first, err := build().Run(context.Background())
	require.NoError(t, err)
	second, err := build().Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Records, second.Records)
	assert.Equal(t, first.Orders, second.Orders)
	assert.Equal(t, first.Summary, second.Summary)
}

// TestParallelItemsDeterministicOrder verifies a multi-item run with several
// workers still emits records day-major in sorted item order.
func TestParallelItemsDeterministicOrder(t *testing.T) {
	start := day(2024, time.January, 1)
	items := []string{"sku-c", "sku-a", "sku-b"}

	var sales []history.SalesRecord
	var snaps []history.StockSnapshot
	for _, id := range items {
		sales = append(sales, flatSales(id, start, 5, 10)...)
		snaps = append(snaps, history.StockSnapshot{ItemID: id, Date: day(2023, time.December, 31), Units: 100})
	}
	products := map[string]domain.Product{}
	for _, id := range items {
		products[id] = domain.Product{ItemID: id}
	}

	build := func() *Orchestrator {
		window := history.NewWindow(sales, snaps)
		return newTestOrchestrator(t, Config{
			Run: domain.SimulationRun{
				TenantID:  "t1",
				ItemIDs:   items,
				StartDate: start,
				EndDate:   day(2024, time.January, 5),
			},
			Products:    products,
			History:     window,
			Engine:      stubEngine{},
			WorkerCount: 4,
		})
	}

	report, err := build().Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Records, 15)

	for d := 0; d < 5; d++ {
		assert.Equal(t, "sku-a", report.Records[d*3+0].ItemID)
		assert.Equal(t, "sku-b", report.Records[d*3+1].ItemID)
		assert.Equal(t, "sku-c", report.Records[d*3+2].ItemID)
		for i := 0; i < 3; i++ {
			assert.Equal(t, start.AddDate(0, 0, d), report.Records[d*3+i].Date)
		}
	}

	again, err := build().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, report.Records, again.Records)
}

// TestCancellationAtDayBoundary verifies a cancelled context fails the run
// cleanly before the next day begins.
func TestCancellationAtDayBoundary(t *testing.T) {
	start := day(2024, time.January, 1)
	window := history.NewWindow(
		flatSales("sku-1", start, 5, 10),
		[]history.StockSnapshot{{ItemID: "sku-1", Date: day(2023, time.December, 31), Units: 50}},
	)

	orch := newTestOrchestrator(t, Config{
		Run: domain.SimulationRun{
			TenantID:  "t1",
			ItemIDs:   []string{"sku-1"},
			StartDate: start,
			EndDate:   day(2024, time.January, 5),
		},
		Products: map[string]domain.Product{"sku-1": {ItemID: "sku-1"}},
		History:  window,
		Engine:   stubEngine{},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := orch.Run(ctx)
	require.Error(t, err)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, context.Canceled)
}

// TestMetricConsistency recomputes the summary stockout rate from the raw
// record stream and compares it with the reported figure.
func TestMetricConsistency(t *testing.T) {
	start := day(2024, time.January, 1)
	leadTime := 3
	window := history.NewWindow(
		flatSales("sku-1", start, 10, 10),
		[]history.StockSnapshot{{ItemID: "sku-1", Date: day(2023, time.December, 31), Units: 50}},
	)

	orch := newTestOrchestrator(t, Config{
		Run: domain.SimulationRun{
			TenantID:        "t1",
			ItemIDs:         []string{"sku-1"},
			StartDate:       start,
			EndDate:         day(2024, time.January, 10),
			AutoPlaceOrders: true,
		},
		Products: map[string]domain.Product{"sku-1": {ItemID: "sku-1", LeadTimeDays: &leadTime}},
		History:  window,
		Engine:   stubEngine{rp: 20, qty: 100},
	})

	report, err := orch.Run(context.Background())
	require.NoError(t, err)

	stockouts := 0
	for _, rec := range report.Records {
		if rec.SimulatedStockout {
			stockouts++
		}
		assert.GreaterOrEqual(t, rec.SimulatedStock, 0.0)
		if rec.RealStock != nil {
			assert.GreaterOrEqual(t, *rec.RealStock, 0.0)
		}
	}

	assert.InDelta(t, float64(stockouts)/float64(len(report.Records)),
		report.Summary.SimulatedStockoutRate, 1e-9)
}
