// controllers/order.go
package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"jewelry-ecommerce/middleware"
	"jewelry-ecommerce/models"
	"jewelry-ecommerce/utils"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// OrderController handles order history and admin order management.
// Orders are only ever created by the checkout finalizer; from here
// they can be read and their status advanced.
type OrderController struct {
	OrderCollection *mongo.Collection
	UserCollection  *mongo.Collection
	EmailService    *utils.EmailService
}

// NewOrderController creates a new OrderController.
func NewOrderController(client *mongo.Client, emailService *utils.EmailService) *OrderController {
	db := client.Database("jewelry")
	return &OrderController{
		OrderCollection: db.Collection("orders"),
		UserCollection:  db.Collection("users"),
		EmailService:    emailService,
	}
}

// GetOrders retrieves the authenticated user's orders, newest first.
func (oc *OrderController) GetOrders(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.UserClaims(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := oc.OrderCollection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		http.Error(w, "Failed to retrieve orders", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	orders := []models.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		http.Error(w, "Error decoding orders", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(orders)
}

// GetOrderByID retrieves one of the authenticated user's orders.
func (oc *OrderController) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.UserClaims(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	orderID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid order ID", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var order models.Order
	err = oc.OrderCollection.FindOne(ctx, bson.M{"_id": orderID, "user_id": userID}).Decode(&order)
	if err != nil {
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(order)
}

// UpdateOrderStatus advances an order's status (admin only). Only the
// next lifecycle step is accepted: Pending→Paid→Shipped→Delivered.
func (oc *OrderController) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid order ID", http.StatusBadRequest)
		return
	}

	var statusUpdate struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&statusUpdate); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var order models.Order
	if err := oc.OrderCollection.FindOne(ctx, bson.M{"_id": orderID}).Decode(&order); err != nil {
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	}

	if !models.ValidStatusTransition(order.Status, statusUpdate.Status) {
		http.Error(w, fmt.Sprintf("Invalid status transition %s -> %s", order.Status, statusUpdate.Status), http.StatusBadRequest)
		return
	}

	_, err = oc.OrderCollection.UpdateOne(ctx, bson.M{"_id": orderID}, bson.M{
		"$set": bson.M{"status": statusUpdate.Status},
	})
	if err != nil {
		http.Error(w, "Failed to update order status", http.StatusInternalServerError)
		return
	}

	go oc.notifyStatusChange(order.UserID, orderID, statusUpdate.Status)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Order status updated successfully"})
}

// UpdateOrderPaymentStatus allows admin to correct a payment status.
func (oc *OrderController) UpdateOrderPaymentStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid order ID", http.StatusBadRequest)
		return
	}

	var paymentUpdate struct {
		PaymentStatus string `json:"payment_status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&paymentUpdate); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if paymentUpdate.PaymentStatus != models.PaymentStatusCompleted && paymentUpdate.PaymentStatus != models.PaymentStatusFailed {
		http.Error(w, "Invalid payment status", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	result, err := oc.OrderCollection.UpdateOne(ctx, bson.M{"_id": orderID}, bson.M{
		"$set": bson.M{"payment_status": paymentUpdate.PaymentStatus},
	})
	if err != nil {
		http.Error(w, "Failed to update payment status", http.StatusInternalServerError)
		return
	}
	if result.MatchedCount == 0 {
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Payment status updated successfully"})
}

func (oc *OrderController) notifyStatusChange(userID, orderID primitive.ObjectID, status string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var user models.User
	if err := oc.UserCollection.FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
		log.Printf("failed to load user for status email: %v", err)
		return
	}

	subject := "Order Update"
	content := fmt.Sprintf("Dear %s,<br><br>Your order (ID: %s) is now <strong>%s</strong>.<br><br>Thank you for shopping with us!", user.Name, orderID.Hex(), status)
	if err := oc.EmailService.SendEmail(user.Email, subject, content); err != nil {
		log.Printf("failed to send status email to %s: %v", user.Email, err)
	}
}
