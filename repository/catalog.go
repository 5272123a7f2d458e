package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"go-storefront/models"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientStock is returned when a guarded decrement would make
	// stock negative.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrDuplicateKey is returned when an insert collides with a unique index.
	ErrDuplicateKey = errors.New("duplicate key")
)

// Collection names, matching the documents written by the admin console.
const (
	ProductsCollection    = "products"
	FeaturedCollection    = "featuredproducts"
	NewArrivalsCollection = "newarrivals"
	OrdersCollection      = "orders"
	UsersCollection       = "users"
)

// Catalog reads the three catalog collections and mutates product stock.
type Catalog struct {
	Products    *mongo.Collection
	Featured    *mongo.Collection
	NewArrivals *mongo.Collection
}

// NewCatalog creates a Catalog on db.
func NewCatalog(db *mongo.Database) *Catalog {
	return &Catalog{
		Products:    db.Collection(ProductsCollection),
		Featured:    db.Collection(FeaturedCollection),
		NewArrivals: db.Collection(NewArrivalsCollection),
	}
}

func (c *Catalog) FindProduct(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var product models.Product
	if err := findByID(ctx, c.Products, id, &product); err != nil {
		return nil, fmt.Errorf("product %s: %w", id.Hex(), err)
	}
	return &product, nil
}

func (c *Catalog) FindFeaturedProduct(ctx context.Context, id primitive.ObjectID) (*models.FeaturedProduct, error) {
	var featured models.FeaturedProduct
	if err := findByID(ctx, c.Featured, id, &featured); err != nil {
		return nil, fmt.Errorf("featured product %s: %w", id.Hex(), err)
	}
	return &featured, nil
}

func (c *Catalog) FindNewArrival(ctx context.Context, id primitive.ObjectID) (*models.NewArrival, error) {
	var arrival models.NewArrival
	if err := findByID(ctx, c.NewArrivals, id, &arrival); err != nil {
		return nil, fmt.Errorf("new arrival %s: %w", id.Hex(), err)
	}
	return &arrival, nil
}

// DecrementStock removes qty from the product's stock only if enough is
// left, so concurrent orders cannot drive stock negative.
func (c *Catalog) DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	result, err := c.Products.UpdateOne(ctx,
		bson.M{"_id": id, "stock": bson.M{"$gte": qty}},
		bson.M{"$inc": bson.M{"stock": -qty}, "$currentDate": bson.M{"updatedAt": true}},
	)
	if err != nil {
		return fmt.Errorf("decrement stock of %s: %w", id.Hex(), err)
	}
	if result.MatchedCount == 0 {
		count, err := c.Products.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return fmt.Errorf("decrement stock of %s: %w", id.Hex(), err)
		}
		if count == 0 {
			return fmt.Errorf("product %s: %w", id.Hex(), ErrNotFound)
		}
		return fmt.Errorf("product %s: %w", id.Hex(), ErrInsufficientStock)
	}
	return nil
}

// IncrementStock returns qty to the product's stock. A missing product is
// not an error: there is nothing to restore.
func (c *Catalog) IncrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	_, err := c.Products.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"stock": qty}, "$currentDate": bson.M{"updatedAt": true}},
	)
	if err != nil {
		return fmt.Errorf("increment stock of %s: %w", id.Hex(), err)
	}
	return nil
}

func findByID(ctx context.Context, coll *mongo.Collection, id primitive.ObjectID, out any) error {
	err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}
