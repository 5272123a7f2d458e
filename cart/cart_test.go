package cart

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-storefront/models"
	"go-storefront/utils"
)

type fakeAPI struct {
	products map[string]*models.Product
	featured map[string]*models.FeaturedProduct
	arrivals map[string]*models.NewArrival
	down     bool

	placed []models.CreateOrderRequest
	keys   []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		products: map[string]*models.Product{},
		featured: map[string]*models.FeaturedProduct{},
		arrivals: map[string]*models.NewArrival{},
	}
}

func (f *fakeAPI) unavailable() error {
	return utils.NewNetworkError(nil, "service temporarily unavailable")
}

func (f *fakeAPI) GetProduct(_ context.Context, id string) (*models.Product, error) {
	if f.down {
		return nil, f.unavailable()
	}
	if p, ok := f.products[id]; ok {
		return p, nil
	}
	return nil, utils.NewNotFoundError("Product not found")
}

func (f *fakeAPI) GetFeaturedProduct(_ context.Context, id string) (*models.FeaturedProduct, error) {
	if f.down {
		return nil, f.unavailable()
	}
	if p, ok := f.featured[id]; ok {
		return p, nil
	}
	return nil, utils.NewNotFoundError("Featured product not found")
}

func (f *fakeAPI) GetNewArrival(_ context.Context, id string) (*models.NewArrival, error) {
	if f.down {
		return nil, f.unavailable()
	}
	if p, ok := f.arrivals[id]; ok {
		return p, nil
	}
	return nil, utils.NewNotFoundError("New arrival not found")
}

func (f *fakeAPI) CreateOrder(_ context.Context, req models.CreateOrderRequest, key string) (*models.Order, error) {
	f.placed = append(f.placed, req)
	f.keys = append(f.keys, key)
	return &models.Order{ID: primitive.NewObjectID(), TotalAmount: float64(*req.TotalAmount), Status: models.OrderStatusPending}, nil
}

func (f *fakeAPI) product(price float64) *models.Product {
	p := &models.Product{ID: primitive.NewObjectID(), Name: "Lamp", Price: price, Stock: 5}
	f.products[p.ID.Hex()] = p
	return p
}

func (f *fakeAPI) featuredOf(backing *models.Product) *models.FeaturedProduct {
	fp := &models.FeaturedProduct{ID: primitive.NewObjectID(), Name: "Promo", Price: 9, Active: true}
	if backing != nil {
		fp.ProductID = &backing.ID
	}
	f.featured[fp.ID.Hex()] = fp
	return fp
}

func (f *fakeAPI) arrival(price float64) *models.NewArrival {
	a := &models.NewArrival{ID: primitive.NewObjectID(), Name: "Speaker", Price: price}
	f.arrivals[a.ID.Hex()] = a
	return a
}

func openCart(t *testing.T, api *fakeAPI) (*Cart, *MemoryStorage) {
	t.Helper()
	storage := NewMemoryStorage()
	c, err := Load(context.Background(), UserKey("u1"), storage, api)
	require.NoError(t, err)
	return c, storage
}

func TestNewItemTagsProvenance(t *testing.T) {
	backing := primitive.NewObjectID()
	id := primitive.NewObjectID()

	item, err := NewItem(CatalogEntry{ID: map[string]any{"_id": id.Hex()}, ProductID: backing, Name: "Promo", Price: 5}, 2)
	require.NoError(t, err)
	assert.Equal(t, id.Hex(), item.ID)
	assert.True(t, item.IsFeatured)
	assert.Equal(t, backing.Hex(), item.ActualProductID)

	item, err = NewItem(CatalogEntry{ID: id.Hex(), Source: SourceNewArrival}, 1)
	require.NoError(t, err)
	assert.True(t, item.IsNewArrival)
	assert.False(t, item.IsFeatured)

	_, err = NewItem(CatalogEntry{ID: "[object Object]"}, 1)
	assert.ErrorIs(t, err, utils.ErrValidation)
	_, err = NewItem(CatalogEntry{ID: id.Hex(), ProductID: "[object Object]"}, 1)
	assert.ErrorIs(t, err, utils.ErrValidation)
	_, err = NewItem(CatalogEntry{ID: id.Hex(), ProductID: map[string]any{"name": "no id"}}, 1)
	assert.ErrorIs(t, err, utils.ErrValidation)
	_, err = NewItem(CatalogEntry{ID: id.Hex()}, 0)
	assert.ErrorIs(t, err, utils.ErrValidation)
}

func TestOrderItemShapes(t *testing.T) {
	featured := Item{ID: "f1", IsFeatured: true, ActualProductID: "p1", Quantity: 1}
	line := featured.OrderItem()
	assert.Equal(t, "featuredProduct", line.ProductType)
	assert.Equal(t, "f1", line.Product)
	assert.Equal(t, "p1", line.ProductID)

	arrival := Item{ID: "n1", IsNewArrival: true, Quantity: 1}.OrderItem()
	assert.Equal(t, "newArrival", arrival.ProductType)
	assert.Nil(t, arrival.ProductID)

	plain := Item{ID: "p2", Quantity: 3, Price: 2}.OrderItem()
	assert.Equal(t, "product", plain.ProductType)
	assert.Equal(t, 3, plain.Quantity)
}

func TestAddMergesAndPersists(t *testing.T) {
	api := newFakeAPI()
	p := api.product(10)
	c, storage := openCart(t, api)
	ctx := context.Background()

	_, err := c.Add(ctx, CatalogEntry{ID: p.ID, Name: p.Name, Price: p.Price}, 1)
	require.NoError(t, err)
	item, err := c.Add(ctx, CatalogEntry{ID: p.ID.Hex(), Name: p.Name, Price: p.Price}, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, item.Quantity)

	stored, err := storage.Load(ctx, UserKey("u1"))
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, 3, stored[0].Quantity)

	reopened, err := Load(ctx, UserKey("u1"), storage, api)
	require.NoError(t, err)
	assert.Equal(t, 3, reopened.Count())
}

func TestAddRejectsUnavailable(t *testing.T) {
	api := newFakeAPI()
	c, _ := openCart(t, api)

	_, err := c.Add(context.Background(), CatalogEntry{ID: primitive.NewObjectID().Hex(), Name: "Ghost"}, 1)
	assert.ErrorIs(t, err, utils.ErrNotFound)
	assert.Contains(t, err.Error(), "Ghost")
	assert.Zero(t, c.Count())
}

func TestAddFeaturedWithoutBackingProduct(t *testing.T) {
	api := newFakeAPI()
	gone := &models.Product{ID: primitive.NewObjectID()}
	fp := api.featuredOf(gone)
	c, _ := openCart(t, api)

	item, err := c.Add(context.Background(), CatalogEntry{ID: fp.ID, Source: SourceFeatured, Name: fp.Name, Price: fp.Price}, 1)
	require.NoError(t, err)
	assert.True(t, item.IsFeatured)
	assert.Equal(t, gone.ID.Hex(), item.ActualProductID)
}

func TestQuantityTotalAndCount(t *testing.T) {
	api := newFakeAPI()
	a, b := api.product(0.1), api.product(0.2)
	c, _ := openCart(t, api)
	ctx := context.Background()

	_, err := c.Add(ctx, CatalogEntry{ID: a.ID, Price: a.Price}, 1)
	require.NoError(t, err)
	_, err = c.Add(ctx, CatalogEntry{ID: b.ID, Price: b.Price}, 1)
	require.NoError(t, err)
	assert.Equal(t, "0.3", c.Total().String())

	require.NoError(t, c.UpdateQuantity(ctx, a.ID.Hex(), -4))
	assert.Equal(t, 2, c.Count())
	require.NoError(t, c.UpdateQuantity(ctx, a.ID.Hex(), 5))
	assert.Equal(t, 6, c.Count())
	assert.ErrorIs(t, c.UpdateQuantity(ctx, "missing", 2), utils.ErrNotFound)

	require.NoError(t, c.Remove(ctx, a.ID.Hex()))
	assert.Equal(t, 1, c.Count())
	require.NoError(t, c.Clear(ctx))
	assert.Zero(t, c.Count())
	assert.True(t, c.Total().IsZero())
}

func TestValidateRemovesUnavailable(t *testing.T) {
	api := newFakeAPI()
	keep, drop := api.product(10), api.product(20)
	arrival := api.arrival(30)
	c, storage := openCart(t, api)
	ctx := context.Background()

	for _, e := range []CatalogEntry{
		{ID: keep.ID, Price: keep.Price},
		{ID: drop.ID, Price: drop.Price},
		{ID: arrival.ID, Price: arrival.Price, Source: SourceNewArrival},
	} {
		_, err := c.Add(ctx, e, 1)
		require.NoError(t, err)
	}
	delete(api.products, drop.ID.Hex())

	invalid, err := c.Validate(ctx)
	require.NoError(t, err)
	require.Len(t, invalid, 1)
	assert.Equal(t, drop.ID.Hex(), invalid[0].ID)
	assert.Len(t, c.Items(), 2)

	stored, err := storage.Load(ctx, c.Key())
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestValidateRecognisesUntaggedFeaturedLine(t *testing.T) {
	api := newFakeAPI()
	backing := api.product(25)
	fp := api.featuredOf(backing)
	storage := NewMemoryStorage()
	ctx := context.Background()
	require.NoError(t, storage.Save(ctx, UserKey("u1"), []Item{{ID: fp.ID.Hex(), Name: fp.Name, Price: fp.Price, Quantity: 1}}))

	c, err := Load(ctx, UserKey("u1"), storage, api)
	require.NoError(t, err)
	invalid, err := c.Validate(ctx)
	require.NoError(t, err)

	assert.Empty(t, invalid)
	items := c.Items()
	require.Len(t, items, 1)
	assert.True(t, items[0].IsFeatured)
	assert.Equal(t, backing.ID.Hex(), items[0].ActualProductID)
	assert.Equal(t, "featuredProduct", c.OrderItems()[0].ProductType)
}

func TestValidateKeepsCartWhenServiceDown(t *testing.T) {
	api := newFakeAPI()
	p := api.product(10)
	c, _ := openCart(t, api)
	_, err := c.Add(context.Background(), CatalogEntry{ID: p.ID, Price: p.Price}, 1)
	require.NoError(t, err)

	api.down = true
	_, err = c.Validate(context.Background())
	assert.ErrorIs(t, err, utils.ErrNetwork)
	assert.Len(t, c.Items(), 1)
}

func TestCheckout(t *testing.T) {
	api := newFakeAPI()
	p := api.product(10)
	backing := api.product(25)
	fp := api.featuredOf(backing)
	c, storage := openCart(t, api)
	ctx := context.Background()

	_, err := c.Add(ctx, CatalogEntry{ID: p.ID, Price: p.Price}, 2)
	require.NoError(t, err)
	_, err = c.Add(ctx, CatalogEntry{ID: fp.ID, ProductID: backing.ID, Price: backing.Price}, 1)
	require.NoError(t, err)

	order, err := c.Checkout(ctx, models.ShippingDetails{FullName: "Ada", Address: "1 Main", City: "Paris"}, "card", "key-1")
	require.NoError(t, err)
	assert.Equal(t, 45.0, order.TotalAmount)

	require.Len(t, api.placed, 1)
	req := api.placed[0]
	assert.Equal(t, models.Amount(45), *req.TotalAmount)
	require.Len(t, req.Items, 2)
	assert.Equal(t, "featuredProduct", req.Items[1].ProductType)
	assert.Equal(t, backing.ID.Hex(), req.Items[1].ProductID)
	assert.Equal(t, "key-1", api.keys[0])

	assert.Zero(t, c.Count())
	stored, err := storage.Load(ctx, c.Key())
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestCheckoutRefusesUnavailableItems(t *testing.T) {
	api := newFakeAPI()
	p := api.product(10)
	c, _ := openCart(t, api)
	ctx := context.Background()
	_, err := c.Add(ctx, CatalogEntry{ID: p.ID, Price: p.Price}, 1)
	require.NoError(t, err)
	delete(api.products, p.ID.Hex())

	_, err = c.Checkout(ctx, models.ShippingDetails{FullName: "Ada"}, "card", "")
	assert.ErrorIs(t, err, utils.ErrNotFound)
	assert.Empty(t, api.placed)

	_, err = c.Checkout(ctx, models.ShippingDetails{FullName: "Ada"}, "card", "")
	assert.ErrorIs(t, err, utils.ErrValidation)
}
