package services

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-storefront/models"
	"go-storefront/repository"
	"go-storefront/utils"
)

// Catalog is the read side of the three catalog collections plus the stock
// counter kept on products.
type Catalog interface {
	FindProduct(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	FindFeaturedProduct(ctx context.Context, id primitive.ObjectID) (*models.FeaturedProduct, error)
	FindNewArrival(ctx context.Context, id primitive.ObjectID) (*models.NewArrival, error)
	DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error
	IncrementStock(ctx context.Context, id primitive.ObjectID, qty int) error
}

// CatalogRef points at one entry of one catalog collection. The concrete
// types are ProductRef, FeaturedRef and NewArrivalRef.
type CatalogRef interface {
	Type() models.ProductType
	catalogRef()
}

// ProductRef refers to a regular product.
type ProductRef struct{ ID primitive.ObjectID }

// FeaturedRef refers to a featured product. ProductID, when known, is the
// backing product and is resolved directly.
type FeaturedRef struct {
	ID        primitive.ObjectID
	ProductID *primitive.ObjectID
}

// NewArrivalRef refers to a new arrival.
type NewArrivalRef struct{ ID primitive.ObjectID }

func (ProductRef) Type() models.ProductType    { return models.ProductTypeProduct }
func (FeaturedRef) Type() models.ProductType   { return models.ProductTypeFeatured }
func (NewArrivalRef) Type() models.ProductType { return models.ProductTypeNew }

func (ProductRef) catalogRef()    {}
func (FeaturedRef) catalogRef()   {}
func (NewArrivalRef) catalogRef() {}

// ParseCatalogRef builds a reference from the loosely typed wire form of an
// order line. An empty or unknown product type means a regular product.
func ParseCatalogRef(product any, productID any, productType string) (CatalogRef, error) {
	id, err := utils.ParseObjectID(product)
	if err != nil {
		return nil, utils.NewValidationError("Invalid product ID format: %v", product)
	}

	switch models.ProductType(productType) {
	case models.ProductTypeFeatured:
		ref := FeaturedRef{ID: id}
		if productID != nil && productID != "" {
			backing, err := utils.ParseObjectID(productID)
			if err != nil {
				return nil, utils.NewValidationError("Invalid product ID format in featured product reference: %v", productID)
			}
			ref.ProductID = &backing
		}
		return ref, nil
	case models.ProductTypeNew:
		return NewArrivalRef{ID: id}, nil
	default:
		return ProductRef{ID: id}, nil
	}
}

// ResolvedItem is a catalog reference resolved to authoritative data.
type ResolvedItem struct {
	Ref   CatalogRef
	Name  string
	Image string
	Price float64
	// Product is the regular product the price came from, if any.
	Product *models.Product
}

// TracksStock reports whether the line is subject to the stock counter.
// Only plain product lines are; featured and new arrival lines are not,
// even when a backing product exists.
func (r ResolvedItem) TracksStock() bool {
	_, ok := r.Ref.(ProductRef)
	return ok
}

// Resolver looks catalog references up in the right collection.
type Resolver struct {
	Catalog Catalog
}

// Resolve returns the authoritative item for ref. A miss is a NOT_FOUND
// error naming the id that could not be found.
func (r *Resolver) Resolve(ctx context.Context, ref CatalogRef) (ResolvedItem, error) {
	switch ref := ref.(type) {
	case ProductRef:
		product, err := r.Catalog.FindProduct(ctx, ref.ID)
		if err != nil {
			return ResolvedItem{}, lookupError(err, "Product %s not found", ref.ID.Hex())
		}
		return fromProduct(ref, product), nil

	case FeaturedRef:
		if ref.ProductID != nil {
			product, err := r.Catalog.FindProduct(ctx, *ref.ProductID)
			if err != nil {
				return ResolvedItem{}, lookupError(err, "Referenced product %s for featured product not found", ref.ProductID.Hex())
			}
			return fromProduct(ref, product), nil
		}

		featured, err := r.Catalog.FindFeaturedProduct(ctx, ref.ID)
		if err != nil {
			return ResolvedItem{}, lookupError(err, "Featured product %s not found", ref.ID.Hex())
		}
		if featured.ProductID == nil {
			return ResolvedItem{Ref: ref, Name: featured.Name, Image: featured.Image, Price: featured.Price}, nil
		}
		product, err := r.Catalog.FindProduct(ctx, *featured.ProductID)
		if err != nil {
			return ResolvedItem{}, lookupError(err, "Product %s for featured product %s not found", featured.ProductID.Hex(), ref.ID.Hex())
		}
		item := fromProduct(ref, product)
		if featured.Image != "" {
			item.Image = featured.Image
		}
		return item, nil

	case NewArrivalRef:
		arrival, err := r.Catalog.FindNewArrival(ctx, ref.ID)
		if err != nil {
			return ResolvedItem{}, lookupError(err, "New arrival %s not found", ref.ID.Hex())
		}
		return ResolvedItem{Ref: ref, Name: arrival.Name, Image: arrival.Image, Price: arrival.Price}, nil
	}
	return ResolvedItem{}, fmt.Errorf("unhandled catalog reference %T", ref)
}

func fromProduct(ref CatalogRef, p *models.Product) ResolvedItem {
	return ResolvedItem{Ref: ref, Name: p.Name, Image: p.Image, Price: p.Price, Product: p}
}

func lookupError(err error, format string, args ...any) error {
	if errors.Is(err, repository.ErrNotFound) {
		return utils.NewNotFoundError(format, args...)
	}
	return err
}
