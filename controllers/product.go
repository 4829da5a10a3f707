package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"jewelry-ecommerce/models"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ProductController handles catalog requests.
type ProductController struct {
	Collection *mongo.Collection
}

// NewProductController creates a new ProductController.
func NewProductController(client *mongo.Client) *ProductController {
	return &ProductController{
		Collection: client.Database("jewelry").Collection("products"),
	}
}

// CreateProduct handles adding a new product (Admin only). Every
// product needs at least one variant, since variants carry price and
// stock.
func (pc *ProductController) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var product models.Product
	if err := json.NewDecoder(r.Body).Decode(&product); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	if product.Name == "" || len(product.Variants) == 0 {
		http.Error(w, "Product needs a name and at least one variant", http.StatusBadRequest)
		return
	}
	for _, v := range product.Variants {
		if v.VariantID == "" || v.Price <= 0 {
			http.Error(w, "Each variant needs an id and a positive price", http.StatusBadRequest)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	result, err := pc.Collection.InsertOne(ctx, product)
	if err != nil {
		http.Error(w, "Error creating product", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(result)
}

// GetProducts retrieves all products, optionally filtered by the
// category query parameter.
func (pc *ProductController) GetProducts(w http.ResponseWriter, r *http.Request) {
	filter := bson.M{}
	if category := r.URL.Query().Get("category"); category != "" {
		filter["category"] = category
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	cursor, err := pc.Collection.Find(ctx, filter)
	if err != nil {
		http.Error(w, "Error fetching products", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	products := []models.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		http.Error(w, "Error reading products", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(products)
}

// GetProductByID retrieves a single product by ID.
func (pc *ProductController) GetProductByID(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var product models.Product
	if err := pc.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&product); err != nil {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(product)
}

// UpdateProduct handles updating a product (Admin only). Live orders
// are unaffected: they hold their own price snapshots.
func (pc *ProductController) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}

	var product models.Product
	if err := json.NewDecoder(r.Body).Decode(&product); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	product.ID = primitive.NilObjectID

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	result, err := pc.Collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": product})
	if err != nil {
		http.Error(w, "Error updating product", http.StatusInternalServerError)
		return
	}
	if result.MatchedCount == 0 {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}

	json.NewEncoder(w).Encode(result)
}

// DeleteProduct handles deleting a product (Admin only).
func (pc *ProductController) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	result, err := pc.Collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		http.Error(w, "Error deleting product", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(result)
}
