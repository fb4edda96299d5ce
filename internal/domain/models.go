package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RunStatus tracks the lifecycle of a simulation run.
type RunStatus string

const (
	RunStatusNotStarted RunStatus = "not_started"
	RunStatusRunning    RunStatus = "running"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFailed     RunStatus = "failed"
)

// SimulationRun is the immutable configuration of a replay run.
// An empty ItemIDs slice means every item known for the tenant.
type SimulationRun struct {
	TenantID           string    `json:"tenant_id" db:"tenant_id"`
	ItemIDs            []string  `json:"item_ids,omitempty" db:"-"`
	StartDate          time.Time `json:"start_date" db:"start_date"`
	EndDate            time.Time `json:"end_date" db:"end_date"`
	AutoPlaceOrders    bool      `json:"auto_place_orders" db:"auto_place_orders"`
	LeadTimeBufferDays int       `json:"lead_time_buffer_days" db:"lead_time_buffer_days"`
	MinOrderQuantity   float64   `json:"min_order_quantity" db:"min_order_quantity"`
}

// SimulatedOrder is a synthetic purchase order placed during replay. It is
// immutable after creation except for the Received flip on arrival.
type SimulatedOrder struct {
	ItemID       string    `json:"item_id"`
	OrderDate    time.Time `json:"order_date"`
	Quantity     float64   `json:"quantity"`
	LeadTimeDays int       `json:"lead_time_days"`
	ArrivalDate  time.Time `json:"arrival_date"`
	Received     bool      `json:"received"`
}

// StockLedgerEntry is the per-item, per-day balance pair. SimulatedStock is
// driven purely by replay decisions; RealStock is read from history for
// comparison only and is nil when no snapshot exists and no baseline could
// be derived.
type StockLedgerEntry struct {
	ItemID         string    `json:"item_id"`
	Date           time.Time `json:"date"`
	SimulatedStock float64   `json:"simulated_stock"`
	RealStock      *float64  `json:"real_stock,omitempty"`
}

// DailyComparisonRecord is one immutable observation per item per day.
// Stocks are end-of-day balances.
type DailyComparisonRecord struct {
	Date              time.Time `json:"date"`
	ItemID            string    `json:"item_id"`
	SimulatedStock    float64   `json:"simulated_stock"`
	RealStock         *float64  `json:"real_stock,omitempty"`
	ActualSales       float64   `json:"actual_sales"`
	SimulatedStockout bool      `json:"simulated_stockout"`
	RealStockout      bool      `json:"real_stockout"`
	OrderPlaced       bool      `json:"order_placed"`
	OrderQuantity     float64   `json:"order_quantity,omitempty"`
}

// ItemMetrics aggregates an item's comparison records over the full run.
// Inventory values are sums of end-of-day stock times unit cost.
type ItemMetrics struct {
	ItemID                  string          `json:"item_id"`
	TotalDays               int             `json:"total_days"`
	SimulatedStockouts      int             `json:"simulated_stockouts"`
	RealStockouts           int             `json:"real_stockouts"`
	SimulatedDaysInStock    int             `json:"simulated_days_in_stock"`
	RealDaysInStock         int             `json:"real_days_in_stock"`
	SimulatedInventoryValue decimal.Decimal `json:"simulated_inventory_value"`
	RealInventoryValue      decimal.Decimal `json:"real_inventory_value"`
	TotalOrders             int             `json:"total_orders"`
}

// WarningClass categorizes non-fatal degradations attached to a report.
type WarningClass string

const (
	WarningDataGap            WarningClass = "data_gap"
	WarningForecastFallback   WarningClass = "forecast_fallback"
	WarningPolicyFallback     WarningClass = "policy_fallback"
	WarningInvariantViolation WarningClass = "invariant_violation"
)

// Warning records a recovered, non-fatal degradation during a run.
type Warning struct {
	ItemID  string       `json:"item_id,omitempty"`
	Date    *time.Time   `json:"date,omitempty"`
	Class   WarningClass `json:"class"`
	Message string       `json:"message"`
}

// RunSummary is the run-level aggregate. Rates are stockout days over total
// item-days; inventory values are averages of the per-day sums; the deltas
// are plain differences between the real and simulated aggregates.
type RunSummary struct {
	ItemCount               int             `json:"item_count"`
	TotalDays               int             `json:"total_days"`
	TotalOrders             int             `json:"total_orders"`
	SimulatedStockoutRate   float64         `json:"simulated_stockout_rate"`
	RealStockoutRate        float64         `json:"real_stockout_rate"`
	SimulatedServiceLevel   float64         `json:"simulated_service_level"`
	RealServiceLevel        float64         `json:"real_service_level"`
	SimulatedInventoryValue decimal.Decimal `json:"simulated_inventory_value"`
	RealInventoryValue      decimal.Decimal `json:"real_inventory_value"`
	StockoutReduction       float64         `json:"stockout_reduction"`
	InventoryReduction      decimal.Decimal `json:"inventory_reduction"`
	EstimatedSavings        decimal.Decimal `json:"estimated_savings"`
}

// SimulationReport is the full outcome of a run.
type SimulationReport struct {
	RunID       string                  `json:"run_id"`
	Run         SimulationRun           `json:"run"`
	Status      RunStatus               `json:"status"`
	Summary     RunSummary              `json:"summary"`
	Items       []ItemMetrics           `json:"items"`
	Orders      []SimulatedOrder        `json:"orders,omitempty"`
	Records     []DailyComparisonRecord `json:"records,omitempty"`
	Warnings    []Warning               `json:"warnings,omitempty"`
	StartedAt   time.Time               `json:"started_at"`
	CompletedAt time.Time               `json:"completed_at"`
}

// Product is supplier/reference data for one item. Optional fields are nil
// when the reference data has no value; consumers apply documented defaults.
type Product struct {
	TenantID         string           `json:"tenant_id" db:"tenant_id"`
	ItemID           string           `json:"item_id" db:"item_id"`
	Name             string           `json:"name" db:"name"`
	UnitCost         *decimal.Decimal `json:"unit_cost,omitempty" db:"unit_cost"`
	LeadTimeDays     *int             `json:"lead_time_days,omitempty" db:"lead_time_days"`
	SafetyBufferDays int              `json:"safety_buffer_days" db:"safety_buffer_days"`
	MinOrderQty      *float64         `json:"min_order_qty,omitempty" db:"min_order_qty"`
}
