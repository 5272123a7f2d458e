package controllers

import (
	"errors"
	"math"
	"net/http"
	"regexp"
	"strconv"
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

const (
	defaultPageSize = 12
	maxPageSize     = 100
)

// ProductController handles product-related requests
type ProductController struct {
	Collection *mongo.Collection
}

// NewProductController creates a new ProductController
func NewProductController(db *mongo.Database) *ProductController {
	return &ProductController{Collection: db.Collection(repository.ProductsCollection)}
}

// productInput is the writable part of a product. Nil fields are left
// unchanged on update.
type productInput struct {
	Name        *string  `json:"name" bson:"name,omitempty"`
	Description *string  `json:"description" bson:"description,omitempty"`
	Price       *float64 `json:"price" bson:"price,omitempty"`
	Image       *string  `json:"image" bson:"image,omitempty"`
	Category    *string  `json:"category" bson:"category,omitempty"`
	Brand       *string  `json:"brand" bson:"brand,omitempty"`
	Stock       *int     `json:"stock" bson:"stock,omitempty"`
}

func (in productInput) validate(create bool) error {
	if create && (in.Name == nil || *in.Name == "") {
		return utils.NewValidationError("Product name is required")
	}
	if create && in.Price == nil {
		return utils.NewValidationError("Product price is required")
	}
	if in.Price != nil && (*in.Price < 0 || math.IsNaN(*in.Price) || math.IsInf(*in.Price, 0)) {
		return utils.NewValidationError("Price must be a non-negative number")
	}
	if in.Stock != nil && *in.Stock < 0 {
		return utils.NewValidationError("Stock must not be negative")
	}
	return nil
}

type productPage struct {
	Products []models.Product `json:"products"`
	Page     int64            `json:"page"`
	Pages    int64            `json:"pages"`
	Total    int64            `json:"total"`
}

// GetProducts lists products, newest first. Supports ?category, ?search,
// ?page and ?limit.
func (pc *ProductController) GetProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := bson.M{}
	if category := q.Get("category"); category != "" {
		filter["category"] = category
	}
	if search := q.Get("search"); search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
		filter["$or"] = bson.A{bson.M{"name": pattern}, bson.M{"description": pattern}}
	}
	page := positiveInt(q.Get("page"), 1)
	limit := positiveInt(q.Get("limit"), defaultPageSize)
	if limit > maxPageSize {
		limit = maxPageSize
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)
	cursor, err := pc.Collection.Find(ctx, filter, opts)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	defer cursor.Close(ctx)

	products := []models.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		utils.WriteError(w, err)
		return
	}
	total, err := pc.Collection.CountDocuments(ctx, filter)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, productPage{
		Products: products,
		Page:     page,
		Pages:    (total + limit - 1) / limit,
		Total:    total,
	})
}

// GetProductByID retrieves a single product by ID
func (pc *ProductController) GetProductByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "product")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	var product models.Product
	err = pc.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if err != nil {
		utils.WriteError(w, notFound(err, "Product not found"))
		return
	}
	utils.WriteJSON(w, http.StatusOK, product)
}

// CreateProduct handles adding a new product (Admin only)
func (pc *ProductController) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var in productInput
	if err := decodeJSON(r, &in); err != nil {
		utils.WriteError(w, err)
		return
	}
	if err := in.validate(true); err != nil {
		utils.WriteError(w, err)
		return
	}

	now := time.Now().UTC()
	product := models.Product{
		ID:        primitive.NewObjectID(),
		Name:      *in.Name,
		Price:     *in.Price,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Description != nil {
		product.Description = *in.Description
	}
	if in.Image != nil {
		product.Image = *in.Image
	}
	if in.Category != nil {
		product.Category = *in.Category
	}
	if in.Brand != nil {
		product.Brand = *in.Brand
	}
	if in.Stock != nil {
		product.Stock = *in.Stock
	}

	ctx, cancel := requestContext(r)
	defer cancel()
	if _, err := pc.Collection.InsertOne(ctx, product); err != nil {
		utils.WriteError(w, err)
		return
	}
	log.Ctx(ctx).Info().Str("product_id", product.ID.Hex()).Msg("product created")
	utils.WriteJSON(w, http.StatusCreated, product)
}

// UpdateProduct handles updating a product (Admin only)
func (pc *ProductController) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "product")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var in productInput
	if err := decodeJSON(r, &in); err != nil {
		utils.WriteError(w, err)
		return
	}
	if err := in.validate(false); err != nil {
		utils.WriteError(w, err)
		return
	}

	set, err := toSetDocument(in)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	var product models.Product
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = pc.Collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&product)
	if err != nil {
		utils.WriteError(w, notFound(err, "Product not found"))
		return
	}
	utils.WriteJSON(w, http.StatusOK, product)
}

// DeleteProduct handles deleting a product (Admin only)
func (pc *ProductController) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "product")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	result, err := pc.Collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if result.DeletedCount == 0 {
		utils.WriteError(w, utils.NewNotFoundError("Product not found"))
		return
	}
	utils.WriteJSON(w, http.StatusOK, messageResponse{Message: "Product removed"})
}

// toSetDocument marshals a partial input into a $set document stamped with
// updatedAt.
func toSetDocument(in any) (bson.M, error) {
	raw, err := bson.Marshal(in)
	if err != nil {
		return nil, err
	}
	set := bson.M{}
	if err := bson.Unmarshal(raw, &set); err != nil {
		return nil, err
	}
	set["updatedAt"] = time.Now().UTC()
	return set, nil
}

func notFound(err error, message string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return utils.NewNotFoundError("%s", message)
	}
	return err
}

func positiveInt(s string, fallback int64) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
