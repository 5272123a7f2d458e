package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// OrderStatuses lists every status in lifecycle order.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is expected.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// ProductType is the provenance tag of an order line.
type ProductType string

const (
	ProductTypeProduct  ProductType = "product"
	ProductTypeFeatured ProductType = "featuredProduct"
	ProductTypeNew      ProductType = "newArrival"
)

// ShippingDetails is where the order goes.
type ShippingDetails struct {
	FullName   string `bson:"fullName" json:"fullName"`
	Email      string `bson:"email,omitempty" json:"email,omitempty"`
	Phone      string `bson:"phone,omitempty" json:"phone,omitempty"`
	Address    string `bson:"address" json:"address"`
	City       string `bson:"city" json:"city"`
	PostalCode string `bson:"postalCode,omitempty" json:"postalCode,omitempty"`
	Country    string `bson:"country,omitempty" json:"country,omitempty"`
}

// OrderItem is a line of an order. Product refers to the collection implied
// by ProductType; ProductID is only set for featured products that were
// resolved through their backing Product.
type OrderItem struct {
	Product     primitive.ObjectID  `bson:"product" json:"product"`
	ProductID   *primitive.ObjectID `bson:"productId,omitempty" json:"productId,omitempty"`
	ProductType ProductType         `bson:"productType" json:"productType"`
	Quantity    int                 `bson:"quantity" json:"quantity"`
	Price       float64             `bson:"price" json:"price"`
	Name        string              `bson:"name" json:"name"`
	Image       string              `bson:"image,omitempty" json:"image,omitempty"`
}

// Order represents a user's order
type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	UserID          primitive.ObjectID `bson:"user" json:"user"`
	Items           []OrderItem        `bson:"items" json:"items"`
	TotalAmount     float64            `bson:"totalAmount" json:"totalAmount"`
	ShippingDetails ShippingDetails    `bson:"shippingDetails" json:"shippingDetails"`
	PaymentMethod   string             `bson:"paymentMethod" json:"paymentMethod"`
	Status          OrderStatus        `bson:"status" json:"status"`
	IdempotencyKey  string             `bson:"idempotencyKey,omitempty" json:"-"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// OrderStats aggregates orders created inside a time window.
type OrderStats struct {
	TotalOrders      int64   `json:"totalOrders"`
	TotalRevenue     float64 `json:"totalRevenue"`
	PendingOrders    int64   `json:"pendingOrders"`
	ProcessingOrders int64   `json:"processingOrders"`
	ShippedOrders    int64   `json:"shippedOrders"`
	DeliveredOrders  int64   `json:"deliveredOrders"`
	CancelledOrders  int64   `json:"cancelledOrders"`
}

// Add counts count orders of the given status with revenue total.
func (s *OrderStats) Add(status OrderStatus, count int64, revenue float64) {
	s.TotalOrders += count
	s.TotalRevenue += revenue
	switch status {
	case OrderStatusPending:
		s.PendingOrders += count
	case OrderStatusProcessing:
		s.ProcessingOrders += count
	case OrderStatusShipped:
		s.ShippedOrders += count
	case OrderStatusDelivered:
		s.DeliveredOrders += count
	case OrderStatusCancelled:
		s.CancelledOrders += count
	}
}
