// Package history provides a read-only, date-bounded view over demand
// history. Every accessor takes the caller's cutoff date explicitly; there
// is no way to query the window without one, which is what keeps simulated
// decisions from seeing facts dated after the simulated "today".
package history

import "time"

// SalesRecord is one day of units sold for an item.
type SalesRecord struct {
	ItemID string    `json:"item_id" db:"item_id"`
	Date   time.Time `json:"date" db:"date"`
	Units  float64   `json:"units" db:"units"`
}

// StockSnapshot is one day's observed stock-on-hand for an item.
type StockSnapshot struct {
	ItemID string    `json:"item_id" db:"item_id"`
	Date   time.Time `json:"date" db:"date"`
	Units  float64   `json:"units" db:"units"`
}

// Day normalizes a timestamp to a UTC calendar day.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Window holds per-item daily facts and answers only cutoff-bounded queries.
type Window struct {
	sales     map[string]map[time.Time]float64
	snapshots map[string]map[time.Time]float64
}

func NewWindow(sales []SalesRecord, snapshots []StockSnapshot) *Window {
	w := &Window{
		sales:     make(map[string]map[time.Time]float64),
		snapshots: make(map[string]map[time.Time]float64),
	}
	for _, s := range sales {
		day := Day(s.Date)
		if w.sales[s.ItemID] == nil {
			w.sales[s.ItemID] = make(map[time.Time]float64)
		}
		w.sales[s.ItemID][day] += s.Units
	}
	for _, s := range snapshots {
		day := Day(s.Date)
		if w.snapshots[s.ItemID] == nil {
			w.snapshots[s.ItemID] = make(map[time.Time]float64)
		}
		w.snapshots[s.ItemID][day] = s.Units
	}
	return w
}

// SalesOn returns the units sold for the item on exactly that day.
func (w *Window) SalesOn(itemID string, date time.Time) float64 {
	return w.sales[itemID][Day(date)]
}

// RealStockOn returns the stock snapshot for the item on exactly that day,
// if one exists.
func (w *Window) RealStockOn(itemID string, date time.Time) (float64, bool) {
	v, ok := w.snapshots[itemID][Day(date)]
	return v, ok
}

// HistoryUpTo returns the daily sales series for the trailing `days` days
// ending at the cutoff, oldest first. Days without a sales fact are zero.
func (w *Window) HistoryUpTo(itemID string, cutoff time.Time, days int) []float64 {
	if days <= 0 {
		return nil
	}
	end := Day(cutoff)
	series := make([]float64, days)
	for i := 0; i < days; i++ {
		day := end.AddDate(0, 0, -(days - 1 - i))
		series[i] = w.sales[itemID][day]
	}
	return series
}

// LatestSnapshotAt returns the most recent stock snapshot dated on or before
// the cutoff, scanning back at most maxLookbackDays.
func (w *Window) LatestSnapshotAt(itemID string, cutoff time.Time, maxLookbackDays int) (float64, bool) {
	day := Day(cutoff)
	for i := 0; i <= maxLookbackDays; i++ {
		if v, ok := w.snapshots[itemID][day.AddDate(0, 0, -i)]; ok {
			return v, true
		}
	}
	return 0, false
}
