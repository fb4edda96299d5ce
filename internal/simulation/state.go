package simulation

import (
	"sort"
	"time"

	"github.com/restocklab/replaysim/internal/domain"
	"github.com/restocklab/replaysim/internal/forecast"
)

// ItemState is the complete per-item sub-state of a run. Workers only ever
// touch their own item's state, so nothing here needs locking.
type ItemState struct {
	ItemID   string
	Product  domain.Product
	Ledger   *StockLedger
	Book     *OrderBook
	Forecast *forecast.CacheEntry
	Records  []domain.DailyComparisonRecord
	Warnings []domain.Warning

	leadTimeWarned bool
	costWarned     bool
}

func (s *ItemState) warn(class domain.WarningClass, date time.Time, message string) {
	d := date
	s.Warnings = append(s.Warnings, domain.Warning{
		ItemID:  s.ItemID,
		Date:    &d,
		Class:   class,
		Message: message,
	})
}

// State is the explicit value holding a run's mutable simulation state,
// keyed by item so per-item work can proceed in parallel.
type State struct {
	Status      domain.RunStatus
	CurrentDate time.Time
	Items       map[string]*ItemState
	ItemOrder   []string
}

func newState(itemIDs []string) *State {
	st := &State{
		Status: domain.RunStatusNotStarted,
		Items:  make(map[string]*ItemState, len(itemIDs)),
	}
	st.ItemOrder = append(st.ItemOrder, itemIDs...)
	sort.Strings(st.ItemOrder)
	return st
}
