package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CreateOrderItem is an order line as submitted at checkout. Product and
// ProductID keep whatever id shape the client sent.
type CreateOrderItem struct {
	Product     any     `json:"product"`
	ProductID   any     `json:"productId,omitempty"`
	ProductType string  `json:"productType,omitempty"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price,omitempty"`
	Name        string  `json:"name,omitempty"`
}

// CreateOrderRequest is the body of POST /api/orders.
type CreateOrderRequest struct {
	Items           []CreateOrderItem `json:"items"`
	ShippingDetails *ShippingDetails  `json:"shippingDetails"`
	TotalAmount     *Amount           `json:"totalAmount"`
	PaymentMethod   string            `json:"paymentMethod"`
}

// UpdateStatusRequest is the body of PUT /api/orders/{id}/status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// Amount is a money amount that accepts both JSON numbers and numeric
// strings.
type Amount float64

func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return fmt.Errorf("amount is null")
	}
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("invalid amount %s", string(data))
	}
	*a = Amount(f)
	return nil
}
