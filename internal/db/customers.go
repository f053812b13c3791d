package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/storedeskapp/storedesk/internal/models"
)

const customersCollection = "users"

// credentialProjection excludes credential fields from reads that leave
// the auth path.
var credentialProjection = bson.M{
	"passwordHash":   0,
	"resetTokenHash": 0,
}

type CustomerStore struct {
	customers *mongo.Collection
}

func NewCustomerStore(database *mongo.Database) *CustomerStore {
	return &CustomerStore{
		customers: database.Collection(customersCollection),
	}
}

// FindContactByID fetches a credential-stripped customer record.
func (s *CustomerStore) FindContactByID(ctx context.Context, id primitive.ObjectID) (*models.Customer, error) {
	opts := options.FindOne().SetProjection(credentialProjection)

	var customer models.Customer
	err := s.customers.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&customer)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find customer: %w", err)
	}
	return &customer, nil
}

// FindByEmail fetches a full customer record including credential fields.
// Only the auth service may call this.
func (s *CustomerStore) FindByEmail(ctx context.Context, email string) (*models.Customer, error) {
	var customer models.Customer
	err := s.customers.FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}).Decode(&customer)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find customer by email: %w", err)
	}
	return &customer, nil
}

// List returns credential-stripped customer records, newest first.
func (s *CustomerStore) List(ctx context.Context, limit, offset int64) ([]*models.Customer, error) {
	opts := options.Find().
		SetProjection(credentialProjection).
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(offset).
		SetLimit(limit)

	cursor, err := s.customers.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer cursor.Close(ctx)

	var customers []*models.Customer
	if err := cursor.All(ctx, &customers); err != nil {
		return nil, fmt.Errorf("failed to decode customers: %w", err)
	}
	return customers, nil
}

// SetResetTokenHash stores the hash of an outstanding password reset token.
func (s *CustomerStore) SetResetTokenHash(ctx context.Context, id primitive.ObjectID, tokenHash string) error {
	result, err := s.customers.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"resetTokenHash": tokenHash},
	})
	if err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePassword replaces the password hash and invalidates any
// outstanding reset token in the same write.
func (s *CustomerStore) UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error {
	result, err := s.customers.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set":   bson.M{"passwordHash": passwordHash},
		"$unset": bson.M{"resetTokenHash": ""},
	})
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// FindByID fetches a full customer record including credential fields.
// Only the auth service may call this.
func (s *CustomerStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Customer, error) {
	var customer models.Customer
	err := s.customers.FindOne(ctx, bson.M{"_id": id}).Decode(&customer)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find customer: %w", err)
	}
	return &customer, nil
}
