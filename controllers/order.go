package controllers

import (
	"context"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-storefront/models"
	"go-storefront/services"
	"go-storefront/utils"
)

// IdempotencyKeyHeader lets a client retry order creation safely.
const IdempotencyKeyHeader = "Idempotency-Key"

// OrderService is the order domain as seen by the HTTP layer.
type OrderService interface {
	CreateOrder(ctx context.Context, caller services.Caller, req models.CreateOrderRequest, idempotencyKey string) (*models.Order, bool, error)
	ListUserOrders(ctx context.Context, caller services.Caller) ([]models.Order, error)
	ListOrders(ctx context.Context, status string) ([]models.Order, error)
	GetOrder(ctx context.Context, caller services.Caller, id primitive.ObjectID) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id primitive.ObjectID, status string) (*models.Order, error)
	CancelOrder(ctx context.Context, caller services.Caller, id primitive.ObjectID) (*models.Order, error)
	DeleteOrder(ctx context.Context, caller services.Caller, id primitive.ObjectID) error
	Stats(ctx context.Context, timeRange string) (*models.OrderStats, error)
}

// OrderController handles order-related requests
type OrderController struct {
	Service OrderService
}

// NewOrderController creates a new OrderController
func NewOrderController(service OrderService) *OrderController {
	return &OrderController{Service: service}
}

// CreateOrder validates the submitted cart and places an order
func (oc *OrderController) CreateOrder(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	var req models.CreateOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()
	order, created, err := oc.Service.CreateOrder(ctx, caller, req, r.Header.Get(IdempotencyKeyHeader))
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	utils.WriteJSON(w, status, order)
}

// GetUserOrders lists the caller's orders
func (oc *OrderController) GetUserOrders(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()
	orders, err := oc.Service.ListUserOrders(ctx, caller)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, orders)
}

// GetOrders lists all orders (Admin only)
func (oc *OrderController) GetOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()
	orders, err := oc.Service.ListOrders(ctx, r.URL.Query().Get("status"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, orders)
}

// GetOrder returns a single order to its owner or an admin
func (oc *OrderController) GetOrder(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	id, err := pathID(r, "id", "order")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()
	order, err := oc.Service.GetOrder(ctx, caller, id)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order)
}

// UpdateOrderStatus sets the status of an order (Admin only)
func (oc *OrderController) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "order")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req models.UpdateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()
	order, err := oc.Service.UpdateOrderStatus(ctx, id, req.Status)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order)
}

// CancelOrder cancels a pending order
func (oc *OrderController) CancelOrder(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	id, err := pathID(r, "id", "order")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()
	order, err := oc.Service.CancelOrder(ctx, caller, id)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order)
}

// DeleteOrder removes an order and gives its stock back
func (oc *OrderController) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	id, err := pathID(r, "id", "order")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()
	if err := oc.Service.DeleteOrder(ctx, caller, id); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, messageResponse{Message: "Order deleted successfully"})
}

// GetOrderStats aggregates orders over ?timeRange=week|month|year (Admin only)
func (oc *OrderController) GetOrderStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()
	stats, err := oc.Service.Stats(ctx, r.URL.Query().Get("timeRange"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, stats)
}
