package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names used by the listing core.
const (
	ColCategories        = "categories"
	ColSubcategories     = "subcategories"
	ColMiniSubcategories = "mini_subcategories"
	ColProperties        = "properties"
	ColUsers             = "users"
	ColAdminSettings     = "adminSettings"
	ColFCMTokens         = "fcm_tokens"
	ColUserNotifications = "user_notifications"
	ColDeleteLogs        = "delete_logs"
)

// DB wraps the MongoDB client and the application database handle.
type DB struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect opens a MongoDB connection and verifies it with a ping.
func Connect(uri, database string, logger *logrus.Logger) (*DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	logger.WithField("database", database).Info("Connected to MongoDB")
	return &DB{client: client, db: client.Database(database)}, nil
}

// Database returns the application database handle.
func (d *DB) Database() *mongo.Database {
	return d.db
}

// Collection returns a collection handle by name.
func (d *DB) Collection(name string) *mongo.Collection {
	return d.db.Collection(name)
}

// Close disconnects the underlying client.
func (d *DB) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}
