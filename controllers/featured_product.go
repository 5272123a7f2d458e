package controllers

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"go-storefront/models"
	"go-storefront/repository"
	"go-storefront/utils"
)

// FeaturedProductController handles featured-product requests. Featured
// products may point at a regular product through productId.
type FeaturedProductController struct {
	Collection *mongo.Collection
	Products   *mongo.Collection
}

func NewFeaturedProductController(db *mongo.Database) *FeaturedProductController {
	return &FeaturedProductController{
		Collection: db.Collection(repository.FeaturedCollection),
		Products:   db.Collection(repository.ProductsCollection),
	}
}

type featuredInput struct {
	ProductID   any      `json:"productId" bson:"-"`
	Name        *string  `json:"name" bson:"name,omitempty"`
	Description *string  `json:"description" bson:"description,omitempty"`
	Price       *float64 `json:"price" bson:"price,omitempty"`
	Image       *string  `json:"image" bson:"image,omitempty"`
	Category    *string  `json:"category" bson:"category,omitempty"`
	Order       *int     `json:"order" bson:"order,omitempty"`
	Active      *bool    `json:"active" bson:"active,omitempty"`
}

// backingProduct loads the product named by in.ProductID, if any.
func (fc *FeaturedProductController) backingProduct(r *http.Request, in featuredInput) (*models.Product, error) {
	if in.ProductID == nil || in.ProductID == "" {
		return nil, nil
	}
	id, err := utils.ParseObjectID(in.ProductID)
	if err != nil {
		return nil, utils.NewValidationError("Invalid product ID format: %v", in.ProductID)
	}
	ctx, cancel := requestContext(r)
	defer cancel()
	var product models.Product
	if err := fc.Products.FindOne(ctx, bson.M{"_id": id}).Decode(&product); err != nil {
		return nil, notFound(err, "Referenced product not found")
	}
	return &product, nil
}

// GetFeaturedProducts lists active featured products by display order,
// merged with their backing product. ?includeInactive=true lists all.
func (fc *FeaturedProductController) GetFeaturedProducts(w http.ResponseWriter, r *http.Request) {
	filter := bson.M{"active": true}
	if r.URL.Query().Get("includeInactive") == "true" {
		filter = bson.M{}
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	cursor, err := fc.Collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "order", Value: 1}}))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	defer cursor.Close(ctx)

	var featured []models.FeaturedProduct
	if err := cursor.All(ctx, &featured); err != nil {
		utils.WriteError(w, err)
		return
	}

	var productIDs []primitive.ObjectID
	for _, f := range featured {
		if f.ProductID != nil {
			productIDs = append(productIDs, *f.ProductID)
		}
	}
	products := map[primitive.ObjectID]models.Product{}
	if len(productIDs) > 0 {
		pc, err := fc.Products.Find(ctx, bson.M{"_id": bson.M{"$in": productIDs}})
		if err != nil {
			utils.WriteError(w, err)
			return
		}
		defer pc.Close(ctx)
		var found []models.Product
		if err := pc.All(ctx, &found); err != nil {
			utils.WriteError(w, err)
			return
		}
		for _, p := range found {
			products[p.ID] = p
		}
	}

	views := make([]models.FeaturedProductView, 0, len(featured))
	for _, f := range featured {
		if f.ProductID == nil {
			views = append(views, models.FeaturedProductView{FeaturedProduct: f})
			continue
		}
		p, ok := products[*f.ProductID]
		if !ok {
			log.Ctx(ctx).Warn().Str("featured_id", f.ID.Hex()).Msg("featured product points at a missing product")
			continue
		}
		views = append(views, mergeFeatured(f, p))
	}
	utils.WriteJSON(w, http.StatusOK, views)
}

func mergeFeatured(f models.FeaturedProduct, p models.Product) models.FeaturedProductView {
	view := models.FeaturedProductView{FeaturedProduct: f}
	view.Name = p.Name
	view.Price = p.Price
	if view.Description == "" {
		view.Description = p.Description
	}
	if view.Image == "" {
		view.Image = p.Image
	}
	if view.Category == "" {
		view.Category = p.Category
	}
	stock := p.Stock
	view.Stock = &stock
	return view
}

// GetFeaturedProduct retrieves a featured product by its own ID
func (fc *FeaturedProductController) GetFeaturedProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "featured product")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	var featured models.FeaturedProduct
	if err := fc.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&featured); err != nil {
		utils.WriteError(w, notFound(err, "Featured product not found"))
		return
	}
	utils.WriteJSON(w, http.StatusOK, featured)
}

// GetFeaturedProductByProductID finds the active featured variant of a
// regular product. A 404 means the product has none.
func (fc *FeaturedProductController) GetFeaturedProductByProductID(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "productId", "product")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	var featured models.FeaturedProduct
	err = fc.Collection.FindOne(ctx, bson.M{"productId": productID, "active": true}).Decode(&featured)
	if err != nil {
		utils.WriteError(w, notFound(err, "Featured product not found"))
		return
	}
	utils.WriteJSON(w, http.StatusOK, featured)
}

// CreateFeaturedProduct adds a featured product (Admin only). Name and
// price default to the backing product's.
func (fc *FeaturedProductController) CreateFeaturedProduct(w http.ResponseWriter, r *http.Request) {
	var in featuredInput
	if err := decodeJSON(r, &in); err != nil {
		utils.WriteError(w, err)
		return
	}
	product, err := fc.backingProduct(r, in)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	now := time.Now().UTC()
	featured := models.FeaturedProduct{ID: primitive.NewObjectID(), Active: true, CreatedAt: now, UpdatedAt: now}
	if product != nil {
		featured.ProductID = &product.ID
		featured.Name, featured.Price, featured.Category = product.Name, product.Price, product.Category
	}
	if in.Name != nil {
		featured.Name = *in.Name
	}
	if in.Price != nil {
		featured.Price = *in.Price
	}
	if in.Description != nil {
		featured.Description = *in.Description
	}
	if in.Image != nil {
		featured.Image = *in.Image
	}
	if in.Category != nil {
		featured.Category = *in.Category
	}
	if in.Order != nil {
		featured.Order = *in.Order
	}
	if in.Active != nil {
		featured.Active = *in.Active
	}
	if featured.Name == "" {
		utils.WriteError(w, utils.NewValidationError("Featured product name is required"))
		return
	}
	if featured.Price < 0 {
		utils.WriteError(w, utils.NewValidationError("Price must be a non-negative number"))
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()
	if _, err := fc.Collection.InsertOne(ctx, featured); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, featured)
}

// UpdateFeaturedProduct handles updating a featured product (Admin only)
func (fc *FeaturedProductController) UpdateFeaturedProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "featured product")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var in featuredInput
	if err := decodeJSON(r, &in); err != nil {
		utils.WriteError(w, err)
		return
	}
	if in.Price != nil && *in.Price < 0 {
		utils.WriteError(w, utils.NewValidationError("Price must be a non-negative number"))
		return
	}
	product, err := fc.backingProduct(r, in)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	set, err := toSetDocument(in)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if product != nil {
		set["productId"] = product.ID
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	var featured models.FeaturedProduct
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = fc.Collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&featured)
	if err != nil {
		utils.WriteError(w, notFound(err, "Featured product not found"))
		return
	}
	utils.WriteJSON(w, http.StatusOK, featured)
}

// DeleteFeaturedProduct handles deleting a featured product (Admin only)
func (fc *FeaturedProductController) DeleteFeaturedProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "featured product")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	result, err := fc.Collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if result.DeletedCount == 0 {
		utils.WriteError(w, utils.NewNotFoundError("Featured product not found"))
		return
	}
	utils.WriteJSON(w, http.StatusOK, messageResponse{Message: "Featured product removed"})
}
