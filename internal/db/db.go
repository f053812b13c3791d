// Package db provides document database connection and stores.
package db

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ErrNotFound is returned by stores when a lookup matches no document.
var ErrNotFound = errors.New("record not found")

func Connect(ctx context.Context, uri, database string) (*mongo.Client, *mongo.Database, error) {
	if ctx == nil {
		return nil, nil, fmt.Errorf("context is required")
	}
	if database == "" {
		return nil, nil, fmt.Errorf("database name is required")
	}

	opts := options.Client().
		ApplyURI(uri).
		SetMonitor(newCommandTracer().monitor())

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return client, client.Database(database), nil
}
