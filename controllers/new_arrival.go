package controllers

import (
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"go-storefront/models"
	"go-storefront/repository"
	"go-storefront/utils"
)

// NewArrivalController handles new-arrival requests
type NewArrivalController struct {
	Collection *mongo.Collection
}

func NewNewArrivalController(db *mongo.Database) *NewArrivalController {
	return &NewArrivalController{Collection: db.Collection(repository.NewArrivalsCollection)}
}

type newArrivalInput struct {
	Name        *string  `json:"name" bson:"name,omitempty"`
	Description *string  `json:"description" bson:"description,omitempty"`
	Price       *float64 `json:"price" bson:"price,omitempty"`
	Image       *string  `json:"image" bson:"image,omitempty"`
	Category    *string  `json:"category" bson:"category,omitempty"`
}

// GetNewArrivals lists new arrivals, newest first
func (nc *NewArrivalController) GetNewArrivals(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	cursor, err := nc.Collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	defer cursor.Close(ctx)

	arrivals := []models.NewArrival{}
	if err := cursor.All(ctx, &arrivals); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, arrivals)
}

// GetNewArrival retrieves a single new arrival by ID
func (nc *NewArrivalController) GetNewArrival(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "new arrival")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	var arrival models.NewArrival
	if err := nc.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&arrival); err != nil {
		utils.WriteError(w, notFound(err, "New arrival not found"))
		return
	}
	utils.WriteJSON(w, http.StatusOK, arrival)
}

// CreateNewArrival adds a new arrival (Admin only)
func (nc *NewArrivalController) CreateNewArrival(w http.ResponseWriter, r *http.Request) {
	var in newArrivalInput
	if err := decodeJSON(r, &in); err != nil {
		utils.WriteError(w, err)
		return
	}
	if in.Name == nil || *in.Name == "" {
		utils.WriteError(w, utils.NewValidationError("New arrival name is required"))
		return
	}
	if in.Price == nil || *in.Price < 0 {
		utils.WriteError(w, utils.NewValidationError("Price must be a non-negative number"))
		return
	}

	now := time.Now().UTC()
	arrival := models.NewArrival{ID: primitive.NewObjectID(), Name: *in.Name, Price: *in.Price, CreatedAt: now, UpdatedAt: now}
	if in.Description != nil {
		arrival.Description = *in.Description
	}
	if in.Image != nil {
		arrival.Image = *in.Image
	}
	if in.Category != nil {
		arrival.Category = *in.Category
	}

	ctx, cancel := requestContext(r)
	defer cancel()
	if _, err := nc.Collection.InsertOne(ctx, arrival); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, arrival)
}

// UpdateNewArrival handles updating a new arrival (Admin only)
func (nc *NewArrivalController) UpdateNewArrival(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "new arrival")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var in newArrivalInput
	if err := decodeJSON(r, &in); err != nil {
		utils.WriteError(w, err)
		return
	}
	if in.Price != nil && *in.Price < 0 {
		utils.WriteError(w, utils.NewValidationError("Price must be a non-negative number"))
		return
	}
	set, err := toSetDocument(in)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	var arrival models.NewArrival
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = nc.Collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&arrival)
	if err != nil {
		utils.WriteError(w, notFound(err, "New arrival not found"))
		return
	}
	utils.WriteJSON(w, http.StatusOK, arrival)
}

// DeleteNewArrival handles deleting a new arrival (Admin only)
func (nc *NewArrivalController) DeleteNewArrival(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "new arrival")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	result, err := nc.Collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if result.DeletedCount == 0 {
		utils.WriteError(w, utils.NewNotFoundError("New arrival not found"))
		return
	}
	utils.WriteJSON(w, http.StatusOK, messageResponse{Message: "New arrival removed"})
}
