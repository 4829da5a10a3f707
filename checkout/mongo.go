package checkout

import (
	"context"
	"errors"
	"fmt"

	"jewelry-ecommerce/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoOrders backs Orders with the orders collection. The unique
// index on payment_session_id is what makes Insert safe to race.
type MongoOrders struct {
	collection *mongo.Collection
}

func NewMongoOrders(db *mongo.Database) *MongoOrders {
	return &MongoOrders{collection: db.Collection("orders")}
}

func (o *MongoOrders) CreateIndexes(ctx context.Context) error {
	_, err := o.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "payment_session_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create order indexes: %w", err)
	}
	return nil
}

func (o *MongoOrders) FindBySession(ctx context.Context, sessionID string) (*models.Order, error) {
	var order models.Order
	err := o.collection.FindOne(ctx, bson.M{"payment_session_id": sessionID}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find order: %w", err)
	}
	return &order, nil
}

func (o *MongoOrders) Insert(ctx context.Context, order models.Order) (primitive.ObjectID, error) {
	result, err := o.collection.InsertOne(ctx, order)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, ErrDuplicateSession
		}
		return primitive.NilObjectID, fmt.Errorf("failed to insert order: %w", err)
	}
	return result.InsertedID.(primitive.ObjectID), nil
}

// MongoSessions backs Sessions with the checkout_sessions collection.
type MongoSessions struct {
	collection *mongo.Collection
}

func NewMongoSessions(db *mongo.Database) *MongoSessions {
	return &MongoSessions{collection: db.Collection("checkout_sessions")}
}

func (s *MongoSessions) CreateIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "session_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create session indexes: %w", err)
	}
	return nil
}

func (s *MongoSessions) Create(ctx context.Context, session models.CheckoutSession) error {
	if _, err := s.collection.InsertOne(ctx, session); err != nil {
		return fmt.Errorf("failed to insert checkout session: %w", err)
	}
	return nil
}

func (s *MongoSessions) Find(ctx context.Context, sessionID string, userID primitive.ObjectID) (*models.CheckoutSession, error) {
	var session models.CheckoutSession
	err := s.collection.FindOne(ctx, bson.M{"session_id": sessionID, "user_id": userID}).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find checkout session: %w", err)
	}
	return &session, nil
}

func (s *MongoSessions) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.collection.DeleteOne(ctx, bson.M{"session_id": sessionID}); err != nil {
		return fmt.Errorf("failed to delete checkout session: %w", err)
	}
	return nil
}
