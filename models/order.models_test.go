package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatusValid(t *testing.T) {
	for _, s := range OrderStatuses {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, OrderStatus("refunded").Valid())
	assert.False(t, OrderStatus("").Valid())
}

func TestOrderStatusTerminal(t *testing.T) {
	assert.True(t, OrderStatusDelivered.Terminal())
	assert.True(t, OrderStatusCancelled.Terminal())
	assert.False(t, OrderStatusPending.Terminal())
	assert.False(t, OrderStatusShipped.Terminal())
}

func TestOrderStatsAdd(t *testing.T) {
	var stats OrderStats
	stats.Add(OrderStatusPending, 2, 30)
	stats.Add(OrderStatusCancelled, 1, 10)
	stats.Add(OrderStatusDelivered, 3, 60.5)

	assert.Equal(t, int64(6), stats.TotalOrders)
	assert.InDelta(t, 100.5, stats.TotalRevenue, 0.0001)
	assert.Equal(t, int64(2), stats.PendingOrders)
	assert.Equal(t, int64(1), stats.CancelledOrders)
	assert.Equal(t, int64(3), stats.DeliveredOrders)
	assert.Zero(t, stats.ShippedOrders)
}
