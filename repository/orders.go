package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"go-storefront/models"
)

// OrderStore persists orders in MongoDB.
type OrderStore struct {
	Collection *mongo.Collection
}

// NewOrderStore creates an OrderStore on db.
func NewOrderStore(db *mongo.Database) *OrderStore {
	return &OrderStore{Collection: db.Collection(OrdersCollection)}
}

// EnsureIndexes creates the indexes the order queries rely on.
func (s *OrderStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.Collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
		{
			Keys: bson.D{{Key: "user", Value: 1}, {Key: "idempotencyKey", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"idempotencyKey": bson.M{"$type": "string"}}),
		},
	})
	return err
}

func (s *OrderStore) Insert(ctx context.Context, order *models.Order) error {
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	_, err := s.Collection.InsertOne(ctx, order)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("insert order: %w", ErrDuplicateKey)
	}
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (s *OrderStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var order models.Order
	err := s.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("order %s: %w", id.Hex(), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find order %s: %w", id.Hex(), err)
	}
	return &order, nil
}

func (s *OrderStore) FindByIdempotencyKey(ctx context.Context, userID primitive.ObjectID, key string) (*models.Order, error) {
	var order models.Order
	err := s.Collection.FindOne(ctx, bson.M{"user": userID, "idempotencyKey": key}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find order by idempotency key: %w", err)
	}
	return &order, nil
}

// FindByUser lists a user's orders, newest first.
func (s *OrderStore) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	return s.find(ctx, bson.M{"user": userID})
}

// FindAll lists every order, optionally filtered by status, newest first.
func (s *OrderStore) FindAll(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	return s.find(ctx, filter)
}

func (s *OrderStore) find(ctx context.Context, filter bson.M) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	defer cursor.Close(ctx)

	orders := []models.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return orders, nil
}

func (s *OrderStore) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.OrderStatus) error {
	result, err := s.Collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"status": status, "updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("update order %s: %w", id.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("order %s: %w", id.Hex(), ErrNotFound)
	}
	return nil
}

// CompareAndSetStatus moves the order from one status to another and
// reports whether it was in the from status.
func (s *OrderStore) CompareAndSetStatus(ctx context.Context, id primitive.ObjectID, from, to models.OrderStatus) (bool, error) {
	result, err := s.Collection.UpdateOne(ctx, bson.M{"_id": id, "status": from}, bson.M{
		"$set": bson.M{"status": to, "updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return false, fmt.Errorf("update order %s: %w", id.Hex(), err)
	}
	return result.MatchedCount == 1, nil
}

// DeleteWithStatus removes the order only while it is still in status and
// reports whether it did.
func (s *OrderStore) DeleteWithStatus(ctx context.Context, id primitive.ObjectID, status models.OrderStatus) (bool, error) {
	result, err := s.Collection.DeleteOne(ctx, bson.M{"_id": id, "status": status})
	if err != nil {
		return false, fmt.Errorf("delete order %s: %w", id.Hex(), err)
	}
	return result.DeletedCount == 1, nil
}

// Stats counts orders and revenue per status for orders created since.
func (s *OrderStore) Stats(ctx context.Context, since time.Time) (*models.OrderStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"createdAt": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.M{
			"_id":     "$status",
			"count":   bson.M{"$sum": 1},
			"revenue": bson.M{"$sum": "$totalAmount"},
		}}},
	}
	cursor, err := s.Collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate order stats: %w", err)
	}
	defer cursor.Close(ctx)

	var groups []struct {
		Status  models.OrderStatus `bson:"_id"`
		Count   int64              `bson:"count"`
		Revenue float64            `bson:"revenue"`
	}
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, fmt.Errorf("decode order stats: %w", err)
	}

	stats := &models.OrderStats{}
	for _, g := range groups {
		stats.Add(g.Status, g.Count, g.Revenue)
	}
	return stats, nil
}
