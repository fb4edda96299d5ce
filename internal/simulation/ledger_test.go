package simulation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

// TestApplyDayCreditsArrivalsBeforeSales verifies the fixed transition order:
// goods received today are sellable today.
func TestApplyDayCreditsArrivalsBeforeSales(t *testing.T) {
	l := NewStockLedger("sku-1", 0, nil)

	entry, beforeSales := l.ApplyDay(day(2024, time.January, 5), 100, 30, nil)

	assert.Equal(t, 100.0, beforeSales)
	assert.Equal(t, 70.0, entry.SimulatedStock)
}

// TestApplyDayClampsAtZero verifies negative stock is never represented.
func TestApplyDayClampsAtZero(t *testing.T) {
	l := NewStockLedger("sku-1", 5, nil)

	entry, _ := l.ApplyDay(day(2024, time.January, 5), 0, 30, nil)
	assert.Equal(t, 0.0, entry.SimulatedStock)

	// The next day starts from the clamped zero, not a hidden deficit.
	entry, beforeSales := l.ApplyDay(day(2024, time.January, 6), 10, 4, nil)
	assert.Equal(t, 10.0, beforeSales)
	assert.Equal(t, 6.0, entry.SimulatedStock)
}

// TestTransitionLaw replays a mixed sequence and checks each day against
// stock[d] = max(0, stock[d-1] + arrivals[d] - sales[d]).
func TestTransitionLaw(t *testing.T) {
	l := NewStockLedger("sku-1", 20, nil)
	days := []struct{ arrivals, sales float64 }{
		{0, 7}, {0, 9}, {50, 12}, {0, 100}, {30, 5},
	}

	expected := 20.0
	current := day(2024, time.January, 1)
	for i, d := range days {
		entry, _ := l.ApplyDay(current, d.arrivals, d.sales, nil)
		expected = expected + d.arrivals - d.sales
		if expected < 0 {
			expected = 0
		}
		assert.Equal(t, expected, entry.SimulatedStock, "day %d", i)
		assert.GreaterOrEqual(t, entry.SimulatedStock, 0.0)
		current = current.AddDate(0, 0, 1)
	}
}

// TestRealStockSnapshotOverrides verifies a day's snapshot replaces the
// derived balance outright.
func TestRealStockSnapshotOverrides(t *testing.T) {
	l := NewStockLedger("sku-1", 50, floatPtr(50))

	entry, _ := l.ApplyDay(day(2024, time.January, 5), 0, 10, floatPtr(33))
	require.NotNil(t, entry.RealStock)
	assert.Equal(t, 33.0, *entry.RealStock)
}

// TestRealStockFallsBackToPreviousMinusSales verifies the derived real
// balance on days without a snapshot, clamped at zero.
func TestRealStockFallsBackToPreviousMinusSales(t *testing.T) {
	l := NewStockLedger("sku-1", 50, floatPtr(15))

	entry, _ := l.ApplyDay(day(2024, time.January, 5), 0, 10, nil)
	require.NotNil(t, entry.RealStock)
	assert.Equal(t, 5.0, *entry.RealStock)

	entry, _ = l.ApplyDay(day(2024, time.January, 6), 0, 10, nil)
	require.NotNil(t, entry.RealStock)
	assert.Equal(t, 0.0, *entry.RealStock, "derived real stock clamps at zero")
}

// TestRealStockStaysNilWithoutBaseline verifies the real side remains unknown
// until a snapshot appears, then anchors on it.
func TestRealStockStaysNilWithoutBaseline(t *testing.T) {
	l := NewStockLedger("sku-1", 50, nil)

	entry, _ := l.ApplyDay(day(2024, time.January, 5), 0, 10, nil)
	assert.Nil(t, entry.RealStock)

	entry, _ = l.ApplyDay(day(2024, time.January, 6), 0, 10, floatPtr(25))
	require.NotNil(t, entry.RealStock)
	assert.Equal(t, 25.0, *entry.RealStock)

	entry, _ = l.ApplyDay(day(2024, time.January, 7), 0, 10, nil)
	require.NotNil(t, entry.RealStock)
	assert.Equal(t, 15.0, *entry.RealStock)
}

// TestRealStockIndependentOfSimulated verifies arrivals only ever credit the
// simulated side.
func TestRealStockIndependentOfSimulated(t *testing.T) {
	l := NewStockLedger("sku-1", 10, floatPtr(10))

	entry, _ := l.ApplyDay(day(2024, time.January, 5), 100, 5, nil)
	assert.Equal(t, 105.0, entry.SimulatedStock)
	require.NotNil(t, entry.RealStock)
	assert.Equal(t, 5.0, *entry.RealStock)
}
