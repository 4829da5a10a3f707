package store

import (
	"context"
	"errors"
	"fmt"

	"jewelry-ecommerce/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var ErrProductNotFound = errors.New("product not found")

// ProductCatalog is the read/stock surface of the catalog that the
// cart and checkout flows need.
type ProductCatalog interface {
	Product(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	DeductStock(ctx context.Context, key models.CartKey, quantity int) error
}

// MongoCatalog backs ProductCatalog with the products collection.
type MongoCatalog struct {
	collection *mongo.Collection
}

func NewMongoCatalog(db *mongo.Database) *MongoCatalog {
	return &MongoCatalog{collection: db.Collection("products")}
}

func (c *MongoCatalog) Product(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var product models.Product
	err := c.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	return &product, nil
}

func (c *MongoCatalog) DeductStock(ctx context.Context, key models.CartKey, quantity int) error {
	_, err := c.collection.UpdateOne(ctx,
		bson.M{"_id": key.ProductID, "variants.variant_id": key.VariantID},
		bson.M{"$inc": bson.M{"variants.$.stock": -quantity}},
	)
	if err != nil {
		return fmt.Errorf("failed to deduct stock: %w", err)
	}
	return nil
}
