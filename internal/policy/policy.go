// Package policy is the boundary to the inventory-policy math. The engine
// methods are pure functions of the forecast and supplier facts so the
// simulator can swap in deterministic stubs.
package policy

import "math"

// Inputs carries everything the policy formulas are allowed to see.
type Inputs struct {
	Forecast           []float64
	LeadTimeDays       int
	SafetyBufferDays   int
	TargetServiceLevel float64
	TargetCoverDays    int
}

// Engine computes safety stock, reorder point and recommended order
// quantity. Implementations must be pure; errors indicate the inputs were
// unusable, not transient failures.
type Engine interface {
	SafetyStock(in Inputs) (float64, error)
	ReorderPoint(in Inputs) (float64, error)
	RecommendedQuantity(in Inputs) (float64, error)
}

// DefaultEngine is the deterministic built-in policy. Safety stock covers
// the spread between peak demand over the buffered lead time and mean
// demand over the plain lead time; the reorder point adds lead-time demand
// on top; the recommended quantity targets a fixed days-of-cover.
type DefaultEngine struct{}

func (DefaultEngine) SafetyStock(in Inputs) (float64, error) {
	mean, peak := demandStats(in.Forecast)
	maxLead := float64(in.LeadTimeDays + in.SafetyBufferDays)
	safety := peak*maxLead - mean*float64(in.LeadTimeDays)
	return math.Max(0, safety), nil
}

func (e DefaultEngine) ReorderPoint(in Inputs) (float64, error) {
	safety, err := e.SafetyStock(in)
	if err != nil {
		return 0, err
	}
	mean, _ := demandStats(in.Forecast)
	return math.Max(0, mean*float64(in.LeadTimeDays)+safety), nil
}

func (DefaultEngine) RecommendedQuantity(in Inputs) (float64, error) {
	mean, _ := demandStats(in.Forecast)
	cover := in.TargetCoverDays
	if cover <= 0 {
		cover = 30
	}
	return math.Ceil(math.Max(0, mean*float64(cover))), nil
}

func demandStats(forecast []float64) (mean, peak float64) {
	if len(forecast) == 0 {
		return 0, 0
	}
	total := 0.0
	for _, v := range forecast {
		total += v
		if v > peak {
			peak = v
		}
	}
	return total / float64(len(forecast)), peak
}
