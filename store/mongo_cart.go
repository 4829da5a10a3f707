package store

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

// MongoCartStore keeps one cart document per authenticated user. The
// server copy is the source of truth for logged-in customers.
type MongoCartStore struct {
	collection *mongo.Collection
}

func NewMongoCartStore(db *mongo.Database) *MongoCartStore {
	return &MongoCartStore{collection: db.Collection("carts")}
}

// CreateIndexes enforces one cart per user.
func (s *MongoCartStore) CreateIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create cart indexes: %w", err)
	}
	return nil
}

func ownerID(owner string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(owner)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("invalid cart owner %q: %w", owner, err)
	}
	return id, nil
}

func (s *MongoCartStore) Get(ctx context.Context, owner string) (*models.Cart, error) {
	userID, err := ownerID(owner)
	if err != nil {
		return nil, err
	}

	var cart models.Cart
	err = s.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&cart)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &models.Cart{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return &cart, nil
}

func (s *MongoCartStore) upsertItems(ctx context.Context, userID primitive.ObjectID, items []models.CartItem) error {
	filter := bson.M{"user_id": userID}
	update := bson.M{"$set": bson.M{"items": items}, "$setOnInsert": bson.M{"user_id": userID}}
	opts := options.Update().SetUpsert(true)

	if _, err := s.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}
	return nil
}

func (s *MongoCartStore) Add(ctx context.Context, owner string, item models.CartItem) error {
	cart, err := s.Get(ctx, owner)
	if err != nil {
		return err
	}
	items, err := AddItem(cart.Items, item)
	if err != nil {
		return err
	}
	return s.upsertItems(ctx, cart.UserID, items)
}

func (s *MongoCartStore) Remove(ctx context.Context, owner string, key models.CartKey) error {
	userID, err := ownerID(owner)
	if err != nil {
		return err
	}

	filter := bson.M{"user_id": userID}
	update := bson.M{"$pull": bson.M{"items": bson.M{
		"product_id": key.ProductID,
		"variant_id": key.VariantID,
	}}}

	result, err := s.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to remove item: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}

func (s *MongoCartStore) UpdateQuantity(ctx context.Context, owner string, key models.CartKey, quantity int) error {
	if quantity < 1 {
		return s.Remove(ctx, owner, key)
	}

	userID, err := ownerID(owner)
	if err != nil {
		return err
	}

	filter := bson.M{
		"user_id": userID,
		"items": bson.M{"$elemMatch": bson.M{
			"product_id": key.ProductID,
			"variant_id": key.VariantID,
		}},
	}
	update := bson.M{"$set": bson.M{"items.$[elem].quantity": quantity}}
	arrayFilters := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{
			"elem.product_id": key.ProductID,
			"elem.variant_id": key.VariantID,
		}},
	})

	result, err := s.collection.UpdateOne(ctx, filter, update, arrayFilters)
	if err != nil {
		return fmt.Errorf("failed to update item quantity: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (s *MongoCartStore) Clear(ctx context.Context, owner string) error {
	userID, err := ownerID(owner)
	if err != nil {
		return err
	}
	if _, err := s.collection.DeleteOne(ctx, bson.M{"user_id": userID}); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// Merge folds guest items into the user's cart, summing quantities on
// matching (product, variant) keys. The server-side policy is
// authoritative: callers discard their guest copy only after this
// returns nil.
func (s *MongoCartStore) Merge(ctx context.Context, owner string, incoming []models.CartItem) error {
	cart, err := s.Get(ctx, owner)
	if err != nil {
		return err
	}
	merged := MergeItems(cart.Items, incoming)
	return s.upsertItems(ctx, cart.UserID, merged)
}
