package simulation

import (
	"fmt"
	"math"
	"time"

	"github.com/restocklab/replaysim/internal/domain"
	"github.com/restocklab/replaysim/internal/policy"
	"github.com/rs/zerolog/log"
)

// ReorderDecision is the outcome of one day's policy evaluation.
type ReorderDecision struct {
	Triggered    bool
	ReorderPoint float64
	Quantity     float64
	LeadTimeDays int
}

// PolicyAdapter translates product facts and the day's forecast into calls
// to the external policy engine. Missing product config never aborts the
// run: absent lead time falls back to a default, absent MOQ means no
// constraint, and engine errors disable ordering for the day with a warning.
type PolicyAdapter struct {
	engine              policy.Engine
	run                 domain.SimulationRun
	defaultLeadTimeDays int
	targetCoverDays     int
	serviceLevel        float64
}

func NewPolicyAdapter(engine policy.Engine, run domain.SimulationRun, defaultLeadTimeDays, targetCoverDays int, serviceLevel float64) *PolicyAdapter {
	if defaultLeadTimeDays <= 0 {
		defaultLeadTimeDays = 7
	}
	return &PolicyAdapter{
		engine:              engine,
		run:                 run,
		defaultLeadTimeDays: defaultLeadTimeDays,
		targetCoverDays:     targetCoverDays,
		serviceLevel:        serviceLevel,
	}
}

// Evaluate decides whether the item should reorder today, given the
// post-arrival pre-sales stock. The open-order guard belongs to the caller;
// this only answers the threshold and sizing questions.
func (a *PolicyAdapter) Evaluate(item *ItemState, date time.Time, stockBeforeSales float64, forecastSeries []float64) ReorderDecision {
	leadTime := a.defaultLeadTimeDays
	if item.Product.LeadTimeDays != nil && *item.Product.LeadTimeDays > 0 {
		leadTime = *item.Product.LeadTimeDays
	} else if !item.leadTimeWarned {
		item.leadTimeWarned = true
		item.warn(domain.WarningPolicyFallback, date,
			fmt.Sprintf("no lead time configured, using default of %d days", a.defaultLeadTimeDays))
	}

	in := policy.Inputs{
		Forecast:           forecastSeries,
		LeadTimeDays:       leadTime,
		SafetyBufferDays:   item.Product.SafetyBufferDays + a.run.LeadTimeBufferDays,
		TargetServiceLevel: a.serviceLevel,
		TargetCoverDays:    a.targetCoverDays,
	}

	reorderPoint, err := a.engine.ReorderPoint(in)
	if err != nil {
		log.Warn().Err(err).Str("item_id", item.ItemID).Msg("reorder point calculation failed")
		item.warn(domain.WarningPolicyFallback, date, "reorder point calculation failed: "+err.Error())
		return ReorderDecision{LeadTimeDays: leadTime}
	}

	decision := ReorderDecision{ReorderPoint: reorderPoint, LeadTimeDays: leadTime}
	if stockBeforeSales > reorderPoint {
		return decision
	}

	recommended, err := a.engine.RecommendedQuantity(in)
	if err != nil {
		log.Warn().Err(err).Str("item_id", item.ItemID).Msg("order quantity calculation failed")
		item.warn(domain.WarningPolicyFallback, date, "order quantity calculation failed: "+err.Error())
		return decision
	}

	quantity := recommended
	if moq := a.minOrderQuantity(item.Product); moq > 0 {
		quantity = math.Max(quantity, moq)
	}
	if quantity <= 0 {
		return decision
	}

	decision.Triggered = true
	decision.Quantity = quantity
	return decision
}

// minOrderQuantity resolves the effective MOQ: the product's own when set,
// floored by the run-level configuration.
func (a *PolicyAdapter) minOrderQuantity(p domain.Product) float64 {
	moq := 0.0
	if p.MinOrderQty != nil {
		moq = *p.MinOrderQty
	}
	return math.Max(moq, a.run.MinOrderQuantity)
}
