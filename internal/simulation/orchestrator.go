package simulation

import (
	"context"
	"fmt"
	"time"

	"github.com/restocklab/replaysim/internal/domain"
	"github.com/restocklab/replaysim/internal/forecast"
	"github.com/restocklab/replaysim/internal/history"
	"github.com/restocklab/replaysim/internal/policy"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// snapshotLookbackDays bounds the search for an opening stock position
// before the run's start date.
const snapshotLookbackDays = 90

// Config wires an orchestrator with its collaborators and tuning.
type Config struct {
	Run                 domain.SimulationRun
	Products            map[string]domain.Product
	History             *history.Window
	Forecasts           *forecast.Cache
	Engine              policy.Engine
	WorkerCount         int
	HorizonDays         int
	DefaultLeadTimeDays int
	TargetCoverDays     int
	ServiceLevel        float64
}

// Orchestrator drives the day loop over every item in scope. The clock
// advances strictly one day at a time; items within a day run in parallel on
// a bounded group, each worker touching only its own item's state.
type Orchestrator struct {
	cfg     Config
	state   *State
	adapter *PolicyAdapter
}

// NewOrchestrator validates the run configuration up front; an invalid date
// range is rejected before any simulated day executes.
func NewOrchestrator(cfg Config) (*Orchestrator, error) {
	if cfg.Run.EndDate.Before(cfg.Run.StartDate) {
		return nil, fmt.Errorf("%w: start %s, end %s", domain.ErrInvalidDateRange,
			cfg.Run.StartDate.Format("2006-01-02"), cfg.Run.EndDate.Format("2006-01-02"))
	}
	if len(cfg.Run.ItemIDs) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownTenant, cfg.Run.TenantID)
	}
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = 30
	}

	return &Orchestrator{
		cfg:     cfg,
		state:   newState(cfg.Run.ItemIDs),
		adapter: NewPolicyAdapter(cfg.Engine, cfg.Run, cfg.DefaultLeadTimeDays, cfg.TargetCoverDays, cfg.ServiceLevel),
	}, nil
}

// Run replays the configured window day by day and returns the assembled
// report. Cancellation is honored at day boundaries only, so a day's
// arrivals and sales are always applied as an atomic unit per item.
func (o *Orchestrator) Run(ctx context.Context) (*domain.SimulationReport, error) {
	startedAt := time.Now().UTC()
	start := history.Day(o.cfg.Run.StartDate)
	end := history.Day(o.cfg.Run.EndDate)

	o.initItems(start)
	o.state.Status = domain.RunStatusRunning

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			o.state.Status = domain.RunStatusFailed
			return nil, fmt.Errorf("run cancelled at %s: %w", day.Format("2006-01-02"), err)
		}
		o.state.CurrentDate = day

		eg, egCtx := errgroup.WithContext(ctx)
		eg.SetLimit(o.cfg.WorkerCount)
		for _, id := range o.state.ItemOrder {
			item := o.state.Items[id]
			eg.Go(func() error {
				o.processItemDay(egCtx, item, day)
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			o.state.Status = domain.RunStatusFailed
			return nil, err
		}
	}

	o.state.Status = domain.RunStatusCompleted
	report := o.assembleReport(start, end)
	report.StartedAt = startedAt
	report.CompletedAt = time.Now().UTC()

	log.Info().
		Str("tenant_id", o.cfg.Run.TenantID).
		Int("items", len(o.state.ItemOrder)).
		Int("total_days", report.Summary.TotalDays).
		Int("orders", report.Summary.TotalOrders).
		Msg("simulation completed")

	return report, nil
}

// initItems builds the per-item arena. Both balances open from the latest
// real snapshot dated on or before the start; items with no snapshot at all
// start empty with a data-gap warning.
func (o *Orchestrator) initItems(start time.Time) {
	for _, id := range o.state.ItemOrder {
		item := &ItemState{
			ItemID:  id,
			Product: o.cfg.Products[id],
			Book:    NewOrderBook(id),
		}

		initial := 0.0
		var baseline *float64
		if v, ok := o.cfg.History.LatestSnapshotAt(id, start, snapshotLookbackDays); ok {
			initial = v
			baseline = &v
		} else {
			item.warn(domain.WarningDataGap, start, "no stock snapshot on or before start date, starting empty")
			log.Warn().Str("item_id", id).Msg("no opening stock snapshot, starting from zero")
		}
		item.Ledger = NewStockLedger(id, initial, baseline)

		if item.Product.UnitCost == nil {
			item.costWarned = true
			item.warn(domain.WarningDataGap, start, "no unit cost configured, inventory value reported as zero")
		}

		o.state.Items[id] = item
	}
}

// processItemDay runs the fixed per-day sequence for one item: arrivals,
// actual sales, ledger transition, forecast, reorder evaluation, optional
// placement, and the comparison record.
func (o *Orchestrator) processItemDay(ctx context.Context, item *ItemState, day time.Time) {
	arrivals := 0.0
	for _, order := range item.Book.ArrivalsOn(day) {
		arrivals += order.Quantity
	}

	sales := o.cfg.History.SalesOn(item.ItemID, day)

	var snapshot *float64
	if v, ok := o.cfg.History.RealStockOn(item.ItemID, day); ok {
		snapshot = &v
	}

	entry, beforeSales := item.Ledger.ApplyDay(day, arrivals, sales, snapshot)

	prev := item.Forecast
	fc := o.cfg.Forecasts.Get(ctx, item.ItemID, day, o.cfg.HorizonDays, prev)
	if fc != prev && fc.Fallback {
		item.warn(domain.WarningForecastFallback, day, "forecast unavailable, substituted trailing 30-day average")
	}
	item.Forecast = fc

	decision := o.adapter.Evaluate(item, day, beforeSales, fc.Series)

	placed := false
	quantity := 0.0
	if o.cfg.Run.AutoPlaceOrders && decision.Triggered && !item.Book.HasOpenOrder() {
		if order, ok := item.Book.Place(day, decision.Quantity, decision.LeadTimeDays); ok {
			placed = true
			quantity = order.Quantity
		} else {
			item.warn(domain.WarningInvariantViolation, day, "order placement rejected: open order already in flight")
		}
	}

	item.Records = append(item.Records, domain.DailyComparisonRecord{
		Date:              history.Day(day),
		ItemID:            item.ItemID,
		SimulatedStock:    entry.SimulatedStock,
		RealStock:         entry.RealStock,
		ActualSales:       sales,
		SimulatedStockout: entry.SimulatedStock <= 0,
		RealStockout:      entry.RealStock != nil && *entry.RealStock <= 0,
		OrderPlaced:       placed,
		OrderQuantity:     quantity,
	})
}

// assembleReport merges the per-item streams into one record sequence
// ordered by day then item, and folds them through the aggregator. The
// merge order is fixed, so repeat runs of the same configuration produce
// identical record sequences.
func (o *Orchestrator) assembleReport(start, end time.Time) *domain.SimulationReport {
	days := int(end.Sub(start).Hours()/24) + 1

	agg := NewAggregator()
	records := make([]domain.DailyComparisonRecord, 0, days*len(o.state.ItemOrder))
	var orders []domain.SimulatedOrder
	var warnings []domain.Warning

	for d := 0; d < days; d++ {
		for _, id := range o.state.ItemOrder {
			item := o.state.Items[id]
			if d >= len(item.Records) {
				continue
			}
			rec := item.Records[d]
			records = append(records, rec)
			agg.Observe(rec, unitCost(item.Product))
		}
	}

	for _, id := range o.state.ItemOrder {
		item := o.state.Items[id]
		orders = append(orders, item.Book.Orders()...)
		warnings = append(warnings, item.Warnings...)
	}

	return &domain.SimulationReport{
		Run:      o.cfg.Run,
		Status:   o.state.Status,
		Summary:  agg.Summary(),
		Items:    agg.Items(),
		Orders:   orders,
		Records:  records,
		Warnings: warnings,
	}
}

func unitCost(p domain.Product) decimal.Decimal {
	if p.UnitCost == nil {
		return decimal.Zero
	}
	return *p.UnitCost
}
