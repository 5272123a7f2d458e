package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-storefront/models"
	"go-storefront/repository"
)

type fakeCatalog struct {
	mu          sync.Mutex
	products    map[primitive.ObjectID]*models.Product
	featured    map[primitive.ObjectID]*models.FeaturedProduct
	arrivals    map[primitive.ObjectID]*models.NewArrival
	featuredHit int
	failOn      map[primitive.ObjectID]error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		products: map[primitive.ObjectID]*models.Product{},
		featured: map[primitive.ObjectID]*models.FeaturedProduct{},
		arrivals: map[primitive.ObjectID]*models.NewArrival{},
		failOn:   map[primitive.ObjectID]error{},
	}
}

func (c *fakeCatalog) addProduct(name string, price float64, stock int) *models.Product {
	p := &models.Product{ID: primitive.NewObjectID(), Name: name, Price: price, Stock: stock}
	c.products[p.ID] = p
	return p
}

func (c *fakeCatalog) addFeatured(name string, price float64, backing *models.Product) *models.FeaturedProduct {
	f := &models.FeaturedProduct{ID: primitive.NewObjectID(), Name: name, Price: price, Active: true}
	if backing != nil {
		id := backing.ID
		f.ProductID = &id
	}
	c.featured[f.ID] = f
	return f
}

func (c *fakeCatalog) addArrival(name string, price float64) *models.NewArrival {
	a := &models.NewArrival{ID: primitive.NewObjectID(), Name: name, Price: price}
	c.arrivals[a.ID] = a
	return a
}

func (c *fakeCatalog) stock(id primitive.ObjectID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.products[id].Stock
}

func (c *fakeCatalog) FindProduct(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (c *fakeCatalog) FindFeaturedProduct(_ context.Context, id primitive.ObjectID) (*models.FeaturedProduct, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.featuredHit++
	f, ok := c.featured[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (c *fakeCatalog) FindNewArrival(_ context.Context, id primitive.ObjectID) (*models.NewArrival, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.arrivals[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (c *fakeCatalog) DecrementStock(_ context.Context, id primitive.ObjectID, qty int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err, ok := c.failOn[id]; ok {
		return err
	}
	p, ok := c.products[id]
	if !ok {
		return repository.ErrNotFound
	}
	if p.Stock < qty {
		return repository.ErrInsufficientStock
	}
	p.Stock -= qty
	return nil
}

func (c *fakeCatalog) IncrementStock(_ context.Context, id primitive.ObjectID, qty int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.products[id]; ok {
		p.Stock += qty
	}
	return nil
}

type fakeOrders struct {
	mu        sync.Mutex
	orders    map[primitive.ObjectID]*models.Order
	insertErr error
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{orders: map[primitive.ObjectID]*models.Order{}}
}

func (s *fakeOrders) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *fakeOrders) get(id primitive.ObjectID) *models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[id]
}

func (s *fakeOrders) Insert(_ context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	cp := *order
	cp.Items = append([]models.OrderItem(nil), order.Items...)
	s.orders[order.ID] = &cp
	return nil
}

func (s *fakeOrders) FindByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *o
	cp.Items = append([]models.OrderItem(nil), o.Items...)
	return &cp, nil
}

func (s *fakeOrders) FindByIdempotencyKey(_ context.Context, userID primitive.ObjectID, key string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.UserID == userID && o.IdempotencyKey == key {
			cp := *o
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeOrders) list(match func(*models.Order) bool) []models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Order{}
	for _, o := range s.orders {
		if match(o) {
			cp := *o
			cp.Items = append([]models.OrderItem(nil), o.Items...)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *fakeOrders) FindByUser(_ context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	return s.list(func(o *models.Order) bool { return o.UserID == userID }), nil
}

func (s *fakeOrders) FindAll(_ context.Context, status models.OrderStatus) ([]models.Order, error) {
	return s.list(func(o *models.Order) bool { return status == "" || o.Status == status }), nil
}

func (s *fakeOrders) UpdateStatus(_ context.Context, id primitive.ObjectID, status models.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	o.Status = status
	return nil
}

func (s *fakeOrders) CompareAndSetStatus(_ context.Context, id primitive.ObjectID, from, to models.OrderStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	return true, nil
}

func (s *fakeOrders) DeleteWithStatus(_ context.Context, id primitive.ObjectID, status models.OrderStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok || o.Status != status {
		return false, nil
	}
	delete(s.orders, id)
	return true, nil
}

func (s *fakeOrders) Stats(_ context.Context, since time.Time) (*models.OrderStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := &models.OrderStats{}
	for _, o := range s.orders {
		if !o.CreatedAt.Before(since) {
			stats.Add(o.Status, 1, o.TotalAmount)
		}
	}
	return stats, nil
}

type directTx struct{}

func (directTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var errBoom = errors.New("boom")
