package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/appetiteclub/posboard/services/posboard/internal/session"
	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ackCollection = "acknowledgments"

// ackDocument is the stored form of a queue acknowledgment.
type ackDocument struct {
	ID             string    `bson:"_id"`
	LocationID     string    `bson:"location_id"`
	SessionID      string    `bson:"session_id"`
	OrderIDs       []string  `bson:"order_ids"`
	Count          int       `bson:"count"`
	AcknowledgedAt time.Time `bson:"acknowledged_at"`
}

func newAckDocument(ack session.Acknowledgment) ackDocument {
	return ackDocument{
		ID:             ack.ID.String(),
		LocationID:     ack.LocationID,
		SessionID:      ack.SessionID,
		OrderIDs:       ack.OrderIDs,
		Count:          ack.Count,
		AcknowledgedAt: ack.AcknowledgedAt,
	}
}

func (d ackDocument) toAcknowledgment() session.Acknowledgment {
	id, _ := uuid.Parse(d.ID)
	return session.Acknowledgment{
		ID:             id,
		LocationID:     d.LocationID,
		SessionID:      d.SessionID,
		OrderIDs:       d.OrderIDs,
		Count:          d.Count,
		AcknowledgedAt: d.AcknowledgedAt,
	}
}

// AckRepo journals alert acknowledgments.
type AckRepo struct {
	client     *mongo.Client
	db         *mongo.Database
	collection *mongo.Collection
	logger     aqm.Logger
	config     *aqm.Config
}

func NewAckRepo(config *aqm.Config, logger aqm.Logger) *AckRepo {
	return &AckRepo{
		logger: logger,
		config: config,
	}
}

func (r *AckRepo) Start(ctx context.Context) error {
	mongoURL, _ := r.config.GetString("db.mongo.url")
	if mongoURL == "" {
		mongoURL = "mongodb://localhost:27017"
	}

	dbName, _ := r.config.GetString("db.mongo.name")
	if dbName == "" {
		dbName = "posboard"
	}

	clientOptions := options.Client().ApplyURI(mongoURL).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("cannot connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("cannot ping MongoDB: %w", err)
	}

	r.client = client
	r.db = client.Database(dbName)
	r.collection = r.db.Collection(ackCollection)

	indexModel := mongo.IndexModel{
		Keys: bson.D{{Key: "location_id", Value: 1}, {Key: "acknowledged_at", Value: -1}},
	}
	if _, err := r.collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		return fmt.Errorf("cannot create location_id index: %w", err)
	}

	r.logger.Infof("Connected to MongoDB: %s, database: %s, collection: %s", mongoURL, dbName, ackCollection)
	return nil
}

func (r *AckRepo) Stop(ctx context.Context) error {
	if r.client != nil {
		if err := r.client.Disconnect(ctx); err != nil {
			return fmt.Errorf("cannot disconnect from MongoDB: %w", err)
		}
		r.logger.Info("Disconnected from MongoDB")
	}
	return nil
}

func (r *AckRepo) Record(ctx context.Context, ack session.Acknowledgment) error {
	if r.collection == nil {
		return fmt.Errorf("acknowledgment journal not started")
	}
	if _, err := r.collection.InsertOne(ctx, newAckDocument(ack)); err != nil {
		return fmt.Errorf("cannot insert acknowledgment: %w", err)
	}
	return nil
}

// ListByLocation returns the most recent acknowledgments for a location.
func (r *AckRepo) ListByLocation(ctx context.Context, locationID string, limit int64) ([]session.Acknowledgment, error) {
	if r.collection == nil {
		return nil, fmt.Errorf("acknowledgment journal not started")
	}

	opts := options.Find().SetSort(bson.D{{Key: "acknowledged_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := r.collection.Find(ctx, bson.M{"location_id": locationID}, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot list acknowledgments: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []ackDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("cannot decode acknowledgments: %w", err)
	}

	acks := make([]session.Acknowledgment, 0, len(docs))
	for _, d := range docs {
		acks = append(acks, d.toAcknowledgment())
	}
	return acks, nil
}
