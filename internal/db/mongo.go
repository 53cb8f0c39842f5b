package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ukydev/store-locator/internal/geo"
	"github.com/ukydev/store-locator/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectMongo connects to MongoDB and verifies the connection with a ping.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

// storeDocument is the persisted shape of a store. The location is kept as
// GeoJSON so the 2dsphere index can serve radius queries.
type storeDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Location  models.GeoPoint    `bson:"location"`
	CreatedAt time.Time          `bson:"created_at"`
}

func (d storeDocument) toStore() models.Store {
	return models.Store{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		Location:  d.Location.Coordinate(),
		CreatedAt: d.CreatedAt,
	}
}

// nearFilter selects stores within radiusMeters of center on the sphere.
// $nearSphere sorts by distance, nearest first.
func nearFilter(center geo.Coordinate, radiusMeters float64) bson.M {
	return bson.M{
		"location": bson.M{
			"$nearSphere": bson.M{
				"$geometry":    models.NewGeoPoint(center),
				"$maxDistance": radiusMeters,
			},
		},
	}
}

// MongoStoreCollection implements StoreCollection for MongoDB.
type MongoStoreCollection struct {
	Collection *mongo.Collection
}

// EnsureIndexes creates the 2dsphere index required by FindStoresNear.
func (c *MongoStoreCollection) EnsureIndexes(ctx context.Context) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	_, err := c.Collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "location", Value: "2dsphere"}},
	})
	if err != nil {
		return fmt.Errorf("create 2dsphere index: %w", err)
	}
	return nil
}

// InsertStore persists a new store and returns it with its generated ID.
func (c *MongoStoreCollection) InsertStore(ctx context.Context, name string, location geo.Coordinate) (*models.Store, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	doc := storeDocument{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Location:  models.NewGeoPoint(location),
		CreatedAt: time.Now().UTC(),
	}
	if _, err := c.Collection.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert store: %w", err)
	}
	store := doc.toStore()
	return &store, nil
}

// ListStores returns every store, oldest first.
func (c *MongoStoreCollection) ListStores(ctx context.Context) ([]models.Store, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	cursor, err := c.Collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	return decodeStores(ctx, cursor)
}

// FindStoreByID finds a store by its ID.
func (c *MongoStoreCollection) FindStoreByID(ctx context.Context, id string) (*models.Store, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidID, id)
	}

	var doc storeDocument
	err = c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrStoreNotFound
		}
		return nil, err
	}
	store := doc.toStore()
	return &store, nil
}

// DeleteStore deletes a store by its ID.
func (c *MongoStoreCollection) DeleteStore(ctx context.Context, id string) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidID, id)
	}

	result, err := c.Collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("delete store: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrStoreNotFound
	}
	return nil
}

// FindStoresNear runs the coarse radius query on the 2dsphere index.
func (c *MongoStoreCollection) FindStoresNear(ctx context.Context, center geo.Coordinate, radiusMeters float64) ([]models.Store, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	cursor, err := c.Collection.Find(ctx, nearFilter(center, radiusMeters))
	if err != nil {
		return nil, fmt.Errorf("find stores near %s: %w", center, err)
	}
	return decodeStores(ctx, cursor)
}

func decodeStores(ctx context.Context, cursor *mongo.Cursor) ([]models.Store, error) {
	defer cursor.Close(ctx)

	var docs []storeDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode stores: %w", err)
	}
	stores := make([]models.Store, 0, len(docs))
	for _, d := range docs {
		stores = append(stores, d.toStore())
	}
	return stores, nil
}
