package simulation

import (
	"github.com/restocklab/replaysim/internal/domain"
	"github.com/shopspring/decimal"
)

// Aggregator folds the append-only comparison record stream into per-item
// metrics and the run-level summary. Observation is incremental so large
// runs never need a second pass over the records.
type Aggregator struct {
	metrics map[string]*domain.ItemMetrics
	order   []string
}

func NewAggregator() *Aggregator {
	return &Aggregator{metrics: make(map[string]*domain.ItemMetrics)}
}

// Observe folds one record into the item's metrics. Days where the real
// balance is unknown still count toward total days but are skipped by the
// real-side stockout and in-stock counters.
func (a *Aggregator) Observe(rec domain.DailyComparisonRecord, unitCost decimal.Decimal) {
	m, ok := a.metrics[rec.ItemID]
	if !ok {
		m = &domain.ItemMetrics{ItemID: rec.ItemID}
		a.metrics[rec.ItemID] = m
		a.order = append(a.order, rec.ItemID)
	}

	m.TotalDays++
	if rec.SimulatedStockout {
		m.SimulatedStockouts++
	} else {
		m.SimulatedDaysInStock++
	}
	m.SimulatedInventoryValue = m.SimulatedInventoryValue.Add(
		decimal.NewFromFloat(rec.SimulatedStock).Mul(unitCost))

	if rec.RealStock != nil {
		if rec.RealStockout {
			m.RealStockouts++
		} else {
			m.RealDaysInStock++
		}
		m.RealInventoryValue = m.RealInventoryValue.Add(
			decimal.NewFromFloat(*rec.RealStock).Mul(unitCost))
	}

	if rec.OrderPlaced {
		m.TotalOrders++
	}
}

// Items returns the per-item metrics in first-observed order.
func (a *Aggregator) Items() []domain.ItemMetrics {
	out := make([]domain.ItemMetrics, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, *a.metrics[id])
	}
	return out
}

// Summary derives the run-level aggregate. Stockout rates divide stockout
// days by total item-days; inventory values are the summed day-by-day
// holdings; the deltas are plain real-minus-simulated differences, with the
// estimated savings expressed as freed-up holdings per simulated day.
func (a *Aggregator) Summary() domain.RunSummary {
	s := domain.RunSummary{ItemCount: len(a.order)}
	for _, id := range a.order {
		m := a.metrics[id]
		s.TotalDays += m.TotalDays
		s.TotalOrders += m.TotalOrders
		s.SimulatedInventoryValue = s.SimulatedInventoryValue.Add(m.SimulatedInventoryValue)
		s.RealInventoryValue = s.RealInventoryValue.Add(m.RealInventoryValue)
		s.SimulatedStockoutRate += float64(m.SimulatedStockouts)
		s.RealStockoutRate += float64(m.RealStockouts)
	}

	if s.TotalDays > 0 {
		s.SimulatedStockoutRate /= float64(s.TotalDays)
		s.RealStockoutRate /= float64(s.TotalDays)
	}
	s.SimulatedServiceLevel = 1 - s.SimulatedStockoutRate
	s.RealServiceLevel = 1 - s.RealStockoutRate

	s.StockoutReduction = s.RealStockoutRate - s.SimulatedStockoutRate
	s.InventoryReduction = s.RealInventoryValue.Sub(s.SimulatedInventoryValue)
	if s.ItemCount > 0 && s.TotalDays > 0 {
		runDays := int64(s.TotalDays / s.ItemCount)
		if runDays > 0 {
			s.EstimatedSavings = s.InventoryReduction.Div(decimal.NewFromInt(runDays))
		}
	}
	return s
}
