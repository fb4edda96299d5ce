package simulation

import (
	"time"

	"github.com/restocklab/replaysim/internal/domain"
	"github.com/restocklab/replaysim/internal/history"
	"github.com/rs/zerolog/log"
)

// OrderBook tracks the synthetic orders of a single item. Each item gets its
// own book, so a book is only ever touched by one worker at a time.
type OrderBook struct {
	itemID string
	orders []*domain.SimulatedOrder
}

func NewOrderBook(itemID string) *OrderBook {
	return &OrderBook{itemID: itemID}
}

// ArrivalsOn returns all unreceived orders arriving on the given day and
// marks them received. Received orders are excluded from future calls, so
// invoking this twice for the same day cannot double-credit stock.
func (b *OrderBook) ArrivalsOn(date time.Time) []*domain.SimulatedOrder {
	day := history.Day(date)
	var arrived []*domain.SimulatedOrder
	for _, o := range b.orders {
		if !o.Received && o.ArrivalDate.Equal(day) {
			o.Received = true
			arrived = append(arrived, o)
		}
	}
	return arrived
}

// HasOpenOrder reports whether any unreceived order exists for the item.
func (b *OrderBook) HasOpenOrder() bool {
	for _, o := range b.orders {
		if !o.Received {
			return true
		}
	}
	return false
}

// Place creates a new order arriving leadTimeDays after orderDate. The
// placement is rejected when an unreceived order already exists; at most one
// order may be in flight per item.
func (b *OrderBook) Place(orderDate time.Time, quantity float64, leadTimeDays int) (*domain.SimulatedOrder, bool) {
	if b.HasOpenOrder() {
		log.Warn().
			Str("item_id", b.itemID).
			Time("order_date", orderDate).
			Msg("order rejected: item already has an open order")
		return nil, false
	}

	day := history.Day(orderDate)
	order := &domain.SimulatedOrder{
		ItemID:       b.itemID,
		OrderDate:    day,
		Quantity:     quantity,
		LeadTimeDays: leadTimeDays,
		ArrivalDate:  day.AddDate(0, 0, leadTimeDays),
	}
	b.orders = append(b.orders, order)
	return order, true
}

// Orders returns a copy of every order placed for the item, in placement order.
func (b *OrderBook) Orders() []domain.SimulatedOrder {
	out := make([]domain.SimulatedOrder, 0, len(b.orders))
	for _, o := range b.orders {
		out = append(out, *o)
	}
	return out
}
