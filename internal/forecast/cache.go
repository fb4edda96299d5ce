package forecast

import (
	"context"
	"time"

	"github.com/restocklab/replaysim/internal/history"
	"github.com/rs/zerolog/log"
)

// refreshCadenceDays is how long a generated forecast stays valid. Forecast
// generation is the most expensive call in the day loop and demand patterns
// rarely shift inside a week.
const refreshCadenceDays = 7

// fallbackLookbackDays is the trailing-sales span used when the external
// model produces nothing usable.
const fallbackLookbackDays = 30

// CacheEntry is an explicit tagged forecast record. ValidUntil is checked
// against the simulated date, never against wall-clock time.
type CacheEntry struct {
	ItemID      string    `json:"item_id"`
	GeneratedAt time.Time `json:"generated_at"`
	HorizonDays int       `json:"horizon_days"`
	Series      []float64 `json:"series"`
	ValidUntil  time.Time `json:"valid_until"`
	Fallback    bool      `json:"fallback"`
}

// Cache wraps the external forecaster with time-windowed reuse and a
// trailing-average fallback. Entries live in the caller's per-item state;
// the cache itself holds no mutable per-item data, so concurrent use across
// items needs no locking.
type Cache struct {
	forecaster Forecaster
	hist       *history.Window
	timeout    time.Duration
}

func NewCache(forecaster Forecaster, hist *history.Window, timeout time.Duration) *Cache {
	return &Cache{
		forecaster: forecaster,
		hist:       hist,
		timeout:    timeout,
	}
}

// Get returns the forecast to use on the simulated day. A previous entry is
// reused unchanged while the simulated day is before its ValidUntil;
// otherwise a fresh forecast is generated with the cutoff set to the
// simulated day itself, never later. Generation failures and all-zero
// series substitute the trailing-average fallback.
func (c *Cache) Get(ctx context.Context, itemID string, today time.Time, horizonDays int, prev *CacheEntry) *CacheEntry {
	day := history.Day(today)
	if prev != nil && day.Before(prev.ValidUntil) {
		return prev
	}

	entry := &CacheEntry{
		ItemID:      itemID,
		GeneratedAt: day,
		HorizonDays: horizonDays,
		ValidUntil:  day.AddDate(0, 0, refreshCadenceDays),
	}

	genCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	series, err := c.forecaster.Generate(genCtx, itemID, day, horizonDays)
	if err != nil {
		log.Warn().Err(err).
			Str("item_id", itemID).
			Time("simulated_day", day).
			Msg("forecast generation failed, using trailing average")
		entry.Series = c.fallbackSeries(itemID, day, horizonDays)
		entry.Fallback = true
		return entry
	}

	if sum(series) == 0 {
		log.Warn().
			Str("item_id", itemID).
			Time("simulated_day", day).
			Msg("forecast produced no signal, using trailing average")
		entry.Series = c.fallbackSeries(itemID, day, horizonDays)
		entry.Fallback = true
		return entry
	}

	entry.Series = series
	return entry
}

// fallbackSeries replicates the mean of the trailing 30 days of sales
// across the horizon.
func (c *Cache) fallbackSeries(itemID string, day time.Time, horizonDays int) []float64 {
	trailing := c.hist.HistoryUpTo(itemID, day, fallbackLookbackDays)
	mean := 0.0
	if len(trailing) > 0 {
		mean = sum(trailing) / float64(len(trailing))
	}
	series := make([]float64, horizonDays)
	for i := range series {
		series[i] = mean
	}
	return series
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}
