package slotstest

import (
	"context"
	"fmt"
	"os"
	migrations "slotbook/internal/migrations/mongo"
	"slotbook/pkg/client"
	"slotbook/pkg/config"
	"slotbook/pkg/logger"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig connects to MONGO_TEST_URI, which must be a replica set so
// transactions work, and migrates a throwaway database that is dropped when
// the test ends. The test is skipped when the variable is unset.
func MongoConfig(t *testing.T, loc *time.Location) *config.Config {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mc, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	dbName := fmt.Sprintf("slotbook_test_%d", time.Now().UnixNano())
	log := logger.Discard()
	if err := migrations.RunMigration(ctx, mc.Database(dbName), log); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = mc.Database(dbName).Drop(ctx)
		_ = mc.Disconnect(ctx)
	})

	return &config.Config{
		MongoDatabaseName:  dbName,
		SlotLocation:       loc,
		PhoneDefaultRegion: "IN",
		ReadTimeout:        5 * time.Second,
		WriteTimeout:       5 * time.Second,
		Log:                log,
		Client:             &client.Client{Mongo: mc},
	}
}

// CountDocuments counts every document in collection.
func CountDocuments(t *testing.T, cfg *config.Config, collection string) int64 {
	t.Helper()
	n, err := cfg.Client.Mongo.Database(cfg.MongoDatabaseName).
		Collection(collection).
		CountDocuments(context.Background(), bson.D{})
	if err != nil {
		t.Fatalf("count %s: %v", collection, err)
	}
	return n
}
