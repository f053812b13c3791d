package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/storedeskapp/storedesk/internal/models"
)

const ordersCollection = "orders"

type OrderStore struct {
	orders *mongo.Collection
	now    func() time.Time
}

func NewOrderStore(database *mongo.Database) *OrderStore {
	return &OrderStore{
		orders: database.Collection(ordersCollection),
		now:    time.Now,
	}
}

func (s *OrderStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var order models.Order
	err := s.orders.FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find order: %w", err)
	}
	return &order, nil
}

// UpdateStatus applies a validated status transition as a targeted
// field-level update. The delivered timestamp is set when the new status
// is delivered and removed from the document otherwise, so a later
// existence check reflects the current state. Returns the number of
// documents actually modified; zero means not found or no change.
func (s *OrderStore) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.OrderStatus, trackingID string) (int64, error) {
	set := bson.M{
		"status":      status,
		"isDelivered": status == models.StatusDelivered,
	}
	if trackingID != "" {
		set["trackingId"] = trackingID
	}

	update := bson.M{"$set": set}
	if status == models.StatusDelivered {
		set["deliveredAt"] = s.now().UTC()
	} else {
		update["$unset"] = bson.M{"deliveredAt": ""}
	}

	result, err := s.orders.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return 0, fmt.Errorf("failed to update order status: %w", err)
	}
	return result.ModifiedCount, nil
}

// AddNotifiedStatus records a confirmed successful notification for the
// given status. The update is a set-add, so repeated calls never produce
// duplicate ledger entries.
func (s *OrderStore) AddNotifiedStatus(ctx context.Context, id primitive.ObjectID, status models.OrderStatus) error {
	_, err := s.orders.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$addToSet": bson.M{"notifiedStatuses": status},
	})
	if err != nil {
		return fmt.Errorf("failed to record notified status: %w", err)
	}
	return nil
}

// MarkPaid sets the paid flag and timestamp. Returns the modified count.
func (s *OrderStore) MarkPaid(ctx context.Context, id primitive.ObjectID) (int64, error) {
	result, err := s.orders.UpdateOne(ctx, bson.M{"_id": id, "isPaid": false}, bson.M{
		"$set": bson.M{"isPaid": true, "paidAt": s.now().UTC()},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to mark order paid: %w", err)
	}
	return result.ModifiedCount, nil
}

// FindPlacedUnnotified returns orders still in placed status whose
// placement confirmation has not been sent yet.
func (s *OrderStore) FindPlacedUnnotified(ctx context.Context) ([]*models.Order, error) {
	filter := bson.M{
		"status":           models.StatusPlaced,
		"notifiedStatuses": bson.M{"$ne": models.StatusPlaced},
	}

	cursor, err := s.orders.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query unnotified orders: %w", err)
	}
	defer cursor.Close(ctx)

	var orders []*models.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode unnotified orders: %w", err)
	}
	return orders, nil
}

// List returns orders newest first.
func (s *OrderStore) List(ctx context.Context, limit, offset int64) ([]*models.Order, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(offset).
		SetLimit(limit)

	cursor, err := s.orders.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer cursor.Close(ctx)

	var orders []*models.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}
	return orders, nil
}

// Delete removes an order document. Returns the deleted count.
func (s *OrderStore) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	result, err := s.orders.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, fmt.Errorf("failed to delete order: %w", err)
	}
	return result.DeletedCount, nil
}
