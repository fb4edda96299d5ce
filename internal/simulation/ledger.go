package simulation

import (
	"math"
	"time"

	"github.com/restocklab/replaysim/internal/domain"
	"github.com/restocklab/replaysim/internal/history"
)

// StockLedger maintains the two per-item balances: the simulated stock
// driven purely by replay decisions, and the real stock read from history
// for comparison. The real side never feeds back into the simulated side.
type StockLedger struct {
	itemID    string
	simulated float64
	real      *float64
}

// NewStockLedger starts both balances from the same opening position.
// realBaseline is nil when history has no snapshot to anchor the real side.
func NewStockLedger(itemID string, initial float64, realBaseline *float64) *StockLedger {
	l := &StockLedger{itemID: itemID, simulated: math.Max(0, initial)}
	if realBaseline != nil {
		v := math.Max(0, *realBaseline)
		l.real = &v
	}
	return l
}

// ApplyDay runs one day's transition in fixed order: arrivals credit first,
// sales subtract second, and the result is floored at zero. Goods received
// are treated as sellable the same day; negative stock is not represented
// and reads as a full-day stockout instead.
//
// The returned beforeSales value is the post-arrival, pre-sales balance the
// reorder policy evaluates against.
//
// The real balance is resolved independently: today's snapshot when one
// exists, otherwise yesterday's real balance minus today's sales, clamped
// at zero. With no baseline at all it stays nil.
func (l *StockLedger) ApplyDay(date time.Time, arrivals, sales float64, snapshot *float64) (entry domain.StockLedgerEntry, beforeSales float64) {
	beforeSales = l.simulated + arrivals
	l.simulated = math.Max(0, beforeSales-sales)

	switch {
	case snapshot != nil:
		v := math.Max(0, *snapshot)
		l.real = &v
	case l.real != nil:
		v := math.Max(0, *l.real-sales)
		l.real = &v
	}

	entry = domain.StockLedgerEntry{
		ItemID:         l.itemID,
		Date:           history.Day(date),
		SimulatedStock: l.simulated,
	}
	if l.real != nil {
		v := *l.real
		entry.RealStock = &v
	}
	return entry, beforeSales
}
