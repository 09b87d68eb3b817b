package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/aquamarinepk/aqm"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ackCollection = "acknowledgments"

type ackRecord struct {
	ID             string    `bson:"_id"`
	LocationID     string    `bson:"location_id"`
	SessionID      string    `bson:"session_id"`
	OrderIDs       []string  `bson:"order_ids"`
	Count          int       `bson:"count"`
	AcknowledgedAt time.Time `bson:"acknowledged_at"`
}

func connect(ctx context.Context, config *aqm.Config, logger aqm.Logger) (*mongo.Client, *mongo.Collection, error) {
	mongoURL := stringOrDef(config, "db.mongo.url", "mongodb://localhost:27017")
	dbName := stringOrDef(config, "db.mongo.name", "posboard")

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURL))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("ping mongodb: %w", err)
	}

	logger.Info("Connected to MongoDB", "database", dbName)
	return client, client.Database(dbName).Collection(ackCollection), nil
}

func locationFilter(locationID string) bson.M {
	if locationID == "" {
		return bson.M{}
	}
	return bson.M{"location_id": locationID}
}

// ListAcks prints the latest acknowledgments, optionally for one location.
func ListAcks(ctx context.Context, config *aqm.Config, logger aqm.Logger) error {
	client, coll, err := connect(ctx, config, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	locationID, _ := config.GetString("location.id")
	opts := options.Find().
		SetSort(bson.D{{Key: "acknowledged_at", Value: -1}}).
		SetLimit(50)

	cursor, err := coll.Find(ctx, locationFilter(locationID), opts)
	if err != nil {
		return fmt.Errorf("find acknowledgments: %w", err)
	}
	defer cursor.Close(ctx)

	var records []ackRecord
	if err := cursor.All(ctx, &records); err != nil {
		return fmt.Errorf("decode acknowledgments: %w", err)
	}

	for _, r := range records {
		fmt.Printf("%s  %-12s  %2d order(s)  session %s\n",
			r.AcknowledgedAt.Format(time.RFC3339), r.LocationID, r.Count, r.SessionID)
	}
	logger.Info("Listed acknowledgments", "count", len(records))
	return nil
}

// ClearAcks deletes journaled acknowledgments. Without location.id every
// location is cleared.
func ClearAcks(ctx context.Context, config *aqm.Config, logger aqm.Logger) error {
	client, coll, err := connect(ctx, config, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	locationID, _ := config.GetString("location.id")
	result, err := coll.DeleteMany(ctx, locationFilter(locationID))
	if err != nil {
		return fmt.Errorf("delete acknowledgments: %w", err)
	}
	logger.Info("Deleted acknowledgments", "location", locationID, "count", result.DeletedCount)
	return nil
}
