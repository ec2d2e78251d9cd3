package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCart_TotalAmount(t *testing.T) {
	cart := Cart{
		Items: []CartItem{
			{Price: 1999, Quantity: 2},
			{Price: 500, Quantity: 3},
		},
	}
	assert.Equal(t, int64(2*1999+3*500), cart.TotalAmount())
}

func TestCart_TotalAmount_Empty(t *testing.T) {
	cart := Cart{}
	assert.Equal(t, int64(0), cart.TotalAmount())
}

func TestCart_ItemCount(t *testing.T) {
	cart := Cart{
		Items: []CartItem{
			{Quantity: 2},
			{Quantity: 5},
		},
	}
	assert.Equal(t, 7, cart.ItemCount())
}

func TestCart_FindItemIndex(t *testing.T) {
	cart := Cart{
		Items: []CartItem{
			{ProductID: "p1", VariantID: "v1"},
			{ProductID: "p1", VariantID: "v2"},
		},
	}
	assert.Equal(t, 0, cart.FindItemIndex("p1", "v1"))
	assert.Equal(t, 1, cart.FindItemIndex("p1", "v2"))
	assert.Equal(t, -1, cart.FindItemIndex("p2", "v1"))
}

func TestCart_Clone(t *testing.T) {
	original := Cart{
		ID:      "cart-1",
		Version: 2,
		Items: []CartItem{
			{ProductID: "p1", VariantID: "v1", Quantity: 1},
		},
	}

	clone := original.Clone()
	clone.Version = 3
	clone.Items[0].Quantity = 5
	clone.Items = append(clone.Items, CartItem{ProductID: "p2", VariantID: "v2"})

	assert.Equal(t, 2, original.Version)
	assert.Len(t, original.Items, 1)
	assert.Equal(t, 1, original.Items[0].Quantity)
}

func TestProductVariant_EffectivePrice(t *testing.T) {
	product := Product{Price: 2999}

	variant := ProductVariant{}
	assert.Equal(t, int64(2999), variant.EffectivePrice(&product))

	override := int64(3499)
	variant.Price = &override
	assert.Equal(t, int64(3499), variant.EffectivePrice(&product))
}

func TestIsValidStatus(t *testing.T) {
	assert.True(t, IsValidStatus(ProductStatusDraft))
	assert.True(t, IsValidStatus(ProductStatusPublished))
	assert.True(t, IsValidStatus(ProductStatusArchived))
	assert.False(t, IsValidStatus("deleted"))
	assert.False(t, IsValidStatus(""))
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{OrderStatusPending, OrderStatusProcessing, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusFailed, true},
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusProcessing, OrderStatusCancelled, true},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusPending, OrderStatusDelivered, false},
		{OrderStatusShipped, OrderStatusCancelled, false},
		{OrderStatusDelivered, OrderStatusPending, false},
		{OrderStatusCancelled, OrderStatusProcessing, false},
		{OrderStatusFailed, OrderStatusPending, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestIsValidOrderStatus(t *testing.T) {
	assert.True(t, IsValidOrderStatus(OrderStatusPending))
	assert.True(t, IsValidOrderStatus(OrderStatusFailed))
	assert.False(t, IsValidOrderStatus("unknown"))
}
