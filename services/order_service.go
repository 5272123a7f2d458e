package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-storefront/models"
	"go-storefront/repository"
	"go-storefront/utils"
)

// totalTolerance is how far the submitted total may drift from the
// recomputed one.
var totalTolerance = decimal.RequireFromString("0.01")

// OrderStore persists orders.
type OrderStore interface {
	Insert(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	FindByIdempotencyKey(ctx context.Context, userID primitive.ObjectID, key string) (*models.Order, error)
	FindByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error)
	FindAll(ctx context.Context, status models.OrderStatus) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.OrderStatus) error
	CompareAndSetStatus(ctx context.Context, id primitive.ObjectID, from, to models.OrderStatus) (bool, error)
	DeleteWithStatus(ctx context.Context, id primitive.ObjectID, status models.OrderStatus) (bool, error)
	Stats(ctx context.Context, since time.Time) (*models.OrderStats, error)
}

// TxRunner runs fn as one unit of work.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Caller is the authenticated user behind a request.
type Caller struct {
	UserID primitive.ObjectID
	Admin  bool
}

// CallerFromClaims converts verified token claims.
func CallerFromClaims(claims *utils.Claims) (Caller, error) {
	if claims == nil {
		return Caller{}, utils.NewAuthError("Authentication required")
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return Caller{}, utils.NewAuthError("Invalid token subject")
	}
	return Caller{UserID: id, Admin: claims.IsAdmin()}, nil
}

func (c Caller) owns(order *models.Order) bool {
	return c.Admin || order.UserID == c.UserID
}

// OrderService validates, creates and manages orders.
type OrderService struct {
	Catalog Catalog
	Orders  OrderStore
	Tx      TxRunner
	Mailer  utils.Mailer
	Now     func() time.Time

	resolver Resolver
}

func NewOrderService(catalog Catalog, orders OrderStore, tx TxRunner, mailer utils.Mailer) *OrderService {
	return &OrderService{
		Catalog:  catalog,
		Orders:   orders,
		Tx:       tx,
		Mailer:   mailer,
		Now:      time.Now,
		resolver: Resolver{Catalog: catalog},
	}
}

type stockChange struct {
	id   primitive.ObjectID
	name string
	qty  int
}

// CreateOrder resolves every line against its catalog, checks stock and the
// submitted total, then decrements stock and stores the order as pending.
// Nothing is written unless every line validates. A non-empty
// idempotencyKey that was already used by the caller returns the stored
// order and false.
func (s *OrderService) CreateOrder(ctx context.Context, caller Caller, req models.CreateOrderRequest, idempotencyKey string) (*models.Order, bool, error) {
	if err := validateCreateRequest(req); err != nil {
		return nil, false, err
	}

	if idempotencyKey != "" {
		existing, err := s.Orders.FindByIdempotencyKey(ctx, caller.UserID, idempotencyKey)
		if err == nil {
			log.Ctx(ctx).Info().Str("order_id", existing.ID.Hex()).Msg("idempotent replay of order")
			return existing, false, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, false, err
		}
	}

	resolved := make([]ResolvedItem, 0, len(req.Items))
	for _, item := range req.Items {
		ref, err := ParseCatalogRef(item.Product, item.ProductID, item.ProductType)
		if err != nil {
			return nil, false, err
		}
		r, err := s.resolver.Resolve(ctx, ref)
		if err != nil {
			return nil, false, err
		}
		resolved = append(resolved, r)
	}

	changes, err := stockChanges(req.Items, resolved)
	if err != nil {
		return nil, false, err
	}

	total := decimal.Zero
	for i, r := range resolved {
		total = total.Add(decimal.NewFromFloat(r.Price).Mul(decimal.NewFromInt(int64(req.Items[i].Quantity))))
	}
	submitted := decimal.NewFromFloat(float64(*req.TotalAmount))
	if total.Sub(submitted).Abs().GreaterThan(totalTolerance) {
		log.Ctx(ctx).Warn().
			Str("calculated", total.StringFixed(2)).
			Str("received", submitted.StringFixed(2)).
			Msg("order total mismatch")
		return nil, false, utils.NewTotalMismatchError("Total amount mismatch: expected %s, got %s", total.StringFixed(2), submitted.StringFixed(2))
	}

	now := s.Now().UTC()
	order := &models.Order{
		ID:              primitive.NewObjectID(),
		UserID:          caller.UserID,
		Items:           buildOrderItems(req.Items, resolved),
		TotalAmount:     total.InexactFloat64(),
		ShippingDetails: *req.ShippingDetails,
		PaymentMethod:   req.PaymentMethod,
		Status:          models.OrderStatusPending,
		IdempotencyKey:  idempotencyKey,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		applied := make([]stockChange, 0, len(changes))
		for _, c := range changes {
			if err := s.Catalog.DecrementStock(ctx, c.id, c.qty); err != nil {
				s.restoreStock(ctx, applied)
				switch {
				case errors.Is(err, repository.ErrInsufficientStock):
					return utils.NewStockError("Insufficient stock for %s", c.name)
				case errors.Is(err, repository.ErrNotFound):
					return utils.NewNotFoundError("Product %s not found", c.id.Hex())
				}
				return err
			}
			applied = append(applied, c)
		}
		if err := s.Orders.Insert(ctx, order); err != nil {
			s.restoreStock(ctx, applied)
			return err
		}
		return nil
	})
	if err != nil {
		if idempotencyKey != "" && errors.Is(err, repository.ErrDuplicateKey) {
			// a concurrent request with the same key won the insert
			existing, findErr := s.Orders.FindByIdempotencyKey(ctx, caller.UserID, idempotencyKey)
			if findErr == nil {
				log.Ctx(ctx).Info().Str("order_id", existing.ID.Hex()).Msg("idempotent replay of order")
				return existing, false, nil
			}
			log.Ctx(ctx).Error().Err(findErr).Msg("idempotency key collided but no order was found")
		}
		return nil, false, err
	}

	log.Ctx(ctx).Info().
		Str("order_id", order.ID.Hex()).
		Str("user_id", caller.UserID.Hex()).
		Int("items", len(order.Items)).
		Float64("total", order.TotalAmount).
		Msg("order created")
	s.sendConfirmation(order)
	return order, true, nil
}

func validateCreateRequest(req models.CreateOrderRequest) error {
	if len(req.Items) == 0 {
		return utils.NewValidationError("Order items are required and must be an array")
	}
	if req.ShippingDetails == nil {
		return utils.NewValidationError("Shipping details are required")
	}
	if req.TotalAmount == nil {
		return utils.NewValidationError("Valid total amount is required")
	}
	if req.PaymentMethod == "" {
		return utils.NewValidationError("Payment method is required")
	}
	for i, item := range req.Items {
		if item.Quantity < 1 {
			return utils.NewValidationError("Item %d: quantity must be at least 1", i+1)
		}
	}
	return nil
}

// stockChanges sums quantities per stock tracked product, in order of first
// appearance, and checks them against the stock read during resolution.
func stockChanges(items []models.CreateOrderItem, resolved []ResolvedItem) ([]stockChange, error) {
	var changes []stockChange
	index := map[primitive.ObjectID]int{}
	for i, r := range resolved {
		if !r.TracksStock() {
			continue
		}
		id := r.Product.ID
		if j, ok := index[id]; ok {
			changes[j].qty += items[i].Quantity
		} else {
			index[id] = len(changes)
			changes = append(changes, stockChange{id: id, name: r.Name, qty: items[i].Quantity})
		}
		if changes[index[id]].qty > r.Product.Stock {
			return nil, utils.NewStockError("Insufficient stock for %s", r.Name)
		}
	}
	return changes, nil
}

func buildOrderItems(items []models.CreateOrderItem, resolved []ResolvedItem) []models.OrderItem {
	out := make([]models.OrderItem, 0, len(items))
	for i, r := range resolved {
		line := models.OrderItem{
			ProductType: r.Ref.Type(),
			Quantity:    items[i].Quantity,
			Price:       r.Price,
			Name:        r.Name,
			Image:       r.Image,
		}
		switch ref := r.Ref.(type) {
		case ProductRef:
			line.Product = ref.ID
		case FeaturedRef:
			line.Product = ref.ID
			if r.Product != nil {
				id := r.Product.ID
				line.ProductID = &id
			}
		case NewArrivalRef:
			line.Product = ref.ID
		}
		out = append(out, line)
	}
	return out
}

// restoreStock gives back stock taken for plain product lines. Failures are
// logged: the order outcome has already been decided.
func (s *OrderService) restoreStock(ctx context.Context, changes []stockChange) {
	for _, c := range changes {
		if err := s.Catalog.IncrementStock(ctx, c.id, c.qty); err != nil {
			log.Ctx(ctx).Error().Err(err).Str("product_id", c.id.Hex()).Int("qty", c.qty).Msg("failed to restore stock")
		}
	}
}

func orderStockChanges(order *models.Order) []stockChange {
	var changes []stockChange
	for _, item := range order.Items {
		if item.ProductType == models.ProductTypeProduct {
			changes = append(changes, stockChange{id: item.Product, name: item.Name, qty: item.Quantity})
		}
	}
	return changes
}

func (s *OrderService) sendConfirmation(order *models.Order) {
	if s.Mailer == nil || order.ShippingDetails.Email == "" {
		return
	}
	subject, body := utils.OrderConfirmationEmail(order)
	go func(email string) {
		if err := s.Mailer.SendEmail(email, subject, body); err != nil {
			log.Error().Err(err).Str("order_id", order.ID.Hex()).Msg("failed to send order confirmation")
		}
	}(order.ShippingDetails.Email)
}

// ListUserOrders returns the caller's orders with items refreshed from the
// catalog.
func (s *OrderService) ListUserOrders(ctx context.Context, caller Caller) ([]models.Order, error) {
	orders, err := s.Orders.FindByUser(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	s.rehydrate(ctx, orders)
	return orders, nil
}

// ListOrders returns every order, optionally only those with status.
func (s *OrderService) ListOrders(ctx context.Context, status string) ([]models.Order, error) {
	st := models.OrderStatus(status)
	if status != "" && !st.Valid() {
		return nil, utils.NewValidationError("Invalid order status: %s", status)
	}
	orders, err := s.Orders.FindAll(ctx, st)
	if err != nil {
		return nil, err
	}
	s.rehydrate(ctx, orders)
	return orders, nil
}

// rehydrate replaces item name, image and price with current catalog
// values. Lines whose catalog entry is gone get a placeholder.
func (s *OrderService) rehydrate(ctx context.Context, orders []models.Order) {
	for i := range orders {
		for j := range orders[i].Items {
			item := &orders[i].Items[j]
			name, image, price, err := s.currentCatalogEntry(ctx, item)
			if err != nil {
				if !errors.Is(err, repository.ErrNotFound) {
					log.Ctx(ctx).Warn().Err(err).Str("product", item.Product.Hex()).Msg("failed to load order item")
				}
				item.Name, item.Image, item.Price = "Product not found", "", 0
				continue
			}
			item.Name, item.Image, item.Price = name, image, price
		}
	}
}

func (s *OrderService) currentCatalogEntry(ctx context.Context, item *models.OrderItem) (string, string, float64, error) {
	switch item.ProductType {
	case models.ProductTypeNew:
		a, err := s.Catalog.FindNewArrival(ctx, item.Product)
		if err != nil {
			return "", "", 0, err
		}
		return a.Name, a.Image, a.Price, nil
	case models.ProductTypeFeatured:
		if item.ProductID == nil {
			f, err := s.Catalog.FindFeaturedProduct(ctx, item.Product)
			if err != nil {
				return "", "", 0, err
			}
			return f.Name, f.Image, f.Price, nil
		}
		p, err := s.Catalog.FindProduct(ctx, *item.ProductID)
		if err != nil {
			return "", "", 0, err
		}
		return p.Name, p.Image, p.Price, nil
	default:
		p, err := s.Catalog.FindProduct(ctx, item.Product)
		if err != nil {
			return "", "", 0, err
		}
		return p.Name, p.Image, p.Price, nil
	}
}

// GetOrder returns one order to its owner or an admin.
func (s *OrderService) GetOrder(ctx context.Context, caller Caller, id primitive.ObjectID) (*models.Order, error) {
	order, err := s.findOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.owns(order) {
		return nil, utils.NewForbiddenError("Not authorized to view this order")
	}
	return order, nil
}

// UpdateOrderStatus overwrites the status. Any known status is accepted
// from any other status.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id primitive.ObjectID, status string) (*models.Order, error) {
	st := models.OrderStatus(status)
	if !st.Valid() {
		return nil, utils.NewValidationError("Invalid order status: %s", status)
	}
	order, err := s.findOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.Orders.UpdateStatus(ctx, id, st); err != nil {
		return nil, notFoundAsOrder(err)
	}
	if order.Status.Terminal() && order.Status != st {
		log.Ctx(ctx).Warn().
			Str("order_id", id.Hex()).
			Str("from", string(order.Status)).
			Str("to", string(st)).
			Msg("status changed after terminal state")
	}
	order.Status = st
	order.UpdatedAt = s.Now().UTC()
	return order, nil
}

// CancelOrder cancels a pending order and gives its product stock back.
func (s *OrderService) CancelOrder(ctx context.Context, caller Caller, id primitive.ObjectID) (*models.Order, error) {
	order, err := s.findOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.owns(order) {
		return nil, utils.NewForbiddenError("Not authorized to cancel this order")
	}
	if order.Status != models.OrderStatusPending {
		return nil, utils.NewValidationError("Order cannot be cancelled")
	}

	err = s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		ok, err := s.Orders.CompareAndSetStatus(ctx, id, models.OrderStatusPending, models.OrderStatusCancelled)
		if err != nil {
			return err
		}
		if !ok {
			return utils.NewValidationError("Order cannot be cancelled")
		}
		return s.incrementAll(ctx, orderStockChanges(order))
	})
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().Str("order_id", id.Hex()).Msg("order cancelled")
	order.Status = models.OrderStatusCancelled
	order.UpdatedAt = s.Now().UTC()
	return order, nil
}

// deleteAttempts bounds how often DeleteOrder re-reads an order whose
// status changed between the read and the delete.
const deleteAttempts = 3

// DeleteOrder removes an order and gives its product stock back, unless it
// was already given back by a cancellation. The delete only matches the
// status that was read, so a concurrent cancel cannot restore stock twice.
func (s *OrderService) DeleteOrder(ctx context.Context, caller Caller, id primitive.ObjectID) error {
	order, err := s.findOrder(ctx, id)
	if err != nil {
		return err
	}
	if !caller.owns(order) {
		return utils.NewForbiddenError("Not authorized to delete this order")
	}

	for attempt := 0; attempt < deleteAttempts; attempt++ {
		status := order.Status
		deleted := false
		err = s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
			var err error
			deleted, err = s.Orders.DeleteWithStatus(ctx, id, status)
			if err != nil || !deleted {
				return err
			}
			if status == models.OrderStatusCancelled {
				return nil
			}
			return s.incrementAll(ctx, orderStockChanges(order))
		})
		if err != nil {
			return err
		}
		if deleted {
			log.Ctx(ctx).Info().Str("order_id", id.Hex()).Str("status", string(status)).Msg("order deleted")
			return nil
		}

		log.Ctx(ctx).Debug().Str("order_id", id.Hex()).Str("status", string(status)).Msg("order changed before delete, re-reading")
		if order, err = s.findOrder(ctx, id); err != nil {
			return err
		}
	}
	return utils.NewValidationError("Order was modified, please retry")
}

func (s *OrderService) incrementAll(ctx context.Context, changes []stockChange) error {
	for _, c := range changes {
		if err := s.Catalog.IncrementStock(ctx, c.id, c.qty); err != nil {
			return err
		}
	}
	return nil
}

// Stats aggregates orders created in the window named by timeRange:
// week, month or year. Anything else means week.
func (s *OrderService) Stats(ctx context.Context, timeRange string) (*models.OrderStats, error) {
	return s.Orders.Stats(ctx, WindowStart(s.Now(), timeRange))
}

// WindowStart returns the start of the rolling window ending at now.
func WindowStart(now time.Time, timeRange string) time.Time {
	switch timeRange {
	case "month":
		return now.AddDate(0, -1, 0)
	case "year":
		return now.AddDate(-1, 0, 0)
	default:
		return now.AddDate(0, 0, -7)
	}
}

func (s *OrderService) findOrder(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	order, err := s.Orders.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundAsOrder(err)
	}
	return order, nil
}

func notFoundAsOrder(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return utils.NewNotFoundError("Order not found")
	}
	return err
}
