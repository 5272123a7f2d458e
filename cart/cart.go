// Package cart is the shopper-side cart: lines tagged with their catalog
// provenance, persisted per user or guest, validated against the catalog
// and turned into an order at checkout.
package cart

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"go-storefront/models"
	"go-storefront/utils"
)

// Catalog looks up the entries cart lines point at.
type Catalog interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	GetFeaturedProduct(ctx context.Context, id string) (*models.FeaturedProduct, error)
	GetNewArrival(ctx context.Context, id string) (*models.NewArrival, error)
}

// OrderPlacer submits a checkout.
type OrderPlacer interface {
	CreateOrder(ctx context.Context, req models.CreateOrderRequest, idempotencyKey string) (*models.Order, error)
}

// API is everything the cart needs from the server. *APIClient satisfies it.
type API interface {
	Catalog
	OrderPlacer
}

// Cart is safe for concurrent use. Every mutation is written through to
// the storage before it returns.
type Cart struct {
	mu      sync.Mutex
	key     string
	items   []Item
	storage Storage
	api     API
}

// Load opens the cart stored under key.
func Load(ctx context.Context, key string, storage Storage, api API) (*Cart, error) {
	items, err := storage.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	return &Cart{key: key, items: items, storage: storage, api: api}, nil
}

func (c *Cart) Key() string { return c.key }

// Items returns a copy of the cart lines.
func (c *Cart) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Item(nil), c.items...)
}

// Add validates entry against the catalog and adds it. Adding an id
// already in the cart increases its quantity.
func (c *Cart) Add(ctx context.Context, entry CatalogEntry, quantity int) (Item, error) {
	item, err := NewItem(entry, quantity)
	if err != nil {
		return Item{}, err
	}

	ok, err := c.check(ctx, &item)
	if err != nil {
		return Item{}, err
	}
	if !ok {
		name := item.Name
		if name == "" {
			name = "this product"
		}
		return Item{}, utils.NewNotFoundError("Sorry, %s is no longer available.", name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == item.ID {
			c.items[i].Quantity += item.Quantity
			return c.items[i], c.save(ctx)
		}
	}
	c.items = append(c.items, item)
	return item, c.save(ctx)
}

// Remove drops the line with the given id. Unknown ids are ignored.
func (c *Cart) Remove(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = removeIDs(c.items, map[string]bool{id: true})
	return c.save(ctx)
}

// UpdateQuantity sets the quantity of a line, never below 1.
func (c *Cart) UpdateQuantity(ctx context.Context, id string, quantity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == id {
			c.items[i].Quantity = max(1, quantity)
			return c.save(ctx)
		}
	}
	return utils.NewNotFoundError("Item %s is not in the cart", id)
}

// Clear empties the cart and deletes it from storage.
func (c *Cart) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	return c.storage.Delete(ctx, c.key)
}

// Total is the sum of price times quantity over all lines.
func (c *Cart) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := decimal.Zero
	for _, item := range c.items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Count is the number of units in the cart.
func (c *Cart) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, item := range c.items {
		n += item.Quantity
	}
	return n
}

// Validate checks every line against the catalog, drops the lines that no
// longer exist and returns them. Transport failures abort without touching
// the cart.
func (c *Cart) Validate(ctx context.Context) ([]Item, error) {
	items := c.Items()

	var invalid []Item
	for i := range items {
		ok, err := c.check(ctx, &items[i])
		if err != nil {
			return nil, err
		}
		if !ok {
			invalid = append(invalid, items[i])
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	checked := make(map[string]Item, len(items))
	for _, item := range items {
		checked[item.ID] = item
	}
	gone := make(map[string]bool, len(invalid))
	for _, item := range invalid {
		gone[item.ID] = true
		log.Ctx(ctx).Warn().Str("cart", c.key).Str("item", item.ID).Msg("removing unavailable cart item")
	}
	// carry over provenance learned during the check
	for i := range c.items {
		if v, ok := checked[c.items[i].ID]; ok {
			c.items[i].IsFeatured = v.IsFeatured
			c.items[i].ActualProductID = v.ActualProductID
		}
	}
	c.items = removeIDs(c.items, gone)
	return invalid, c.save(ctx)
}

// OrderItems is the cart in its checkout shape.
func (c *Cart) OrderItems() []models.CreateOrderItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	lines := make([]models.CreateOrderItem, 0, len(c.items))
	for _, item := range c.items {
		lines = append(lines, item.OrderItem())
	}
	return lines
}

// Checkout validates the cart, submits it as an order and clears it once
// the order exists. Nothing is submitted if some lines were unavailable.
func (c *Cart) Checkout(ctx context.Context, shipping models.ShippingDetails, paymentMethod, idempotencyKey string) (*models.Order, error) {
	if c.Count() == 0 {
		return nil, utils.NewValidationError("Your cart is empty")
	}

	invalid, err := c.Validate(ctx)
	if err != nil {
		return nil, err
	}
	if len(invalid) > 0 {
		return nil, utils.NewNotFoundError("%d item(s) in your cart are no longer available", len(invalid))
	}

	total := models.Amount(c.Total().Round(2).InexactFloat64())
	order, err := c.api.CreateOrder(ctx, models.CreateOrderRequest{
		Items:           c.OrderItems(),
		ShippingDetails: &shipping,
		TotalAmount:     &total,
		PaymentMethod:   paymentMethod,
	}, idempotencyKey)
	if err != nil {
		return nil, err
	}

	if err := c.Clear(ctx); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("cart", c.key).Msg("order placed but cart was not cleared")
	}
	return order, nil
}

// check reports whether the line still exists in the catalog. Every line is
// first looked up as a featured entry, since lines stored before they were
// tagged carry no provenance. A featured line is good as long as its
// featured entry exists, even when the backing product is gone. Only
// NOT_FOUND and VALIDATION answers count as missing.
func (c *Cart) check(ctx context.Context, item *Item) (bool, error) {
	if c.api == nil {
		return true, nil
	}

	featured, err := c.api.GetFeaturedProduct(ctx, item.ID)
	if err == nil {
		item.IsFeatured = true
		if featured.ProductID != nil {
			item.ActualProductID = featured.ProductID.Hex()
			if _, err := c.api.GetProduct(ctx, item.ActualProductID); err != nil {
				log.Ctx(ctx).Debug().Err(err).Str("item", item.ID).Msg("featured item has no backing product")
			}
		}
		return true, nil
	}
	if !missing(err) {
		return false, err
	}

	if item.IsNewArrival {
		_, err := c.api.GetNewArrival(ctx, item.ID)
		if err == nil {
			return true, nil
		}
		if !missing(err) {
			return false, err
		}
	}

	_, err = c.api.GetProduct(ctx, item.ID)
	if err == nil {
		return true, nil
	}
	if missing(err) {
		return false, nil
	}
	return false, err
}

func missing(err error) bool {
	return errors.Is(err, utils.ErrNotFound) || errors.Is(err, utils.ErrValidation)
}

func removeIDs(items []Item, ids map[string]bool) []Item {
	kept := items[:0]
	for _, item := range items {
		if !ids[item.ID] {
			kept = append(kept, item)
		}
	}
	return kept
}

func (c *Cart) save(ctx context.Context) error {
	if len(c.items) == 0 {
		return c.storage.Delete(ctx, c.key)
	}
	return c.storage.Save(ctx, c.key, c.items)
}
