// controllers/checkout.go
package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"jewelry-ecommerce/checkout"
	"jewelry-ecommerce/clients/carrier"
	"jewelry-ecommerce/clients/payment"
	"jewelry-ecommerce/middleware"
	"jewelry-ecommerce/models"
	"jewelry-ecommerce/store"
	"jewelry-ecommerce/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// AddressValidator is the carrier's address validation operation.
type AddressValidator interface {
	ValidateAddress(ctx context.Context, addr models.ShippingAddress) (*carrier.ValidationResult, error)
}

// CheckoutController maps the checkout flow onto HTTP: address
// validation, payment session creation, and order finalization on
// return from the payment provider.
type CheckoutController struct {
	Service        *checkout.Service
	Validator      AddressValidator
	UserCollection *mongo.Collection
	EmailService   *utils.EmailService
}

// NewCheckoutController creates a new CheckoutController.
func NewCheckoutController(service *checkout.Service, validator AddressValidator, client *mongo.Client, emailService *utils.EmailService) *CheckoutController {
	return &CheckoutController{
		Service:        service,
		Validator:      validator,
		UserCollection: client.Database("jewelry").Collection("users"),
		EmailService:   emailService,
	}
}

type validateAddressResponse struct {
	Standardized bool                   `json:"standardized"`
	Address      models.ShippingAddress `json:"address"`
}

// ValidateAddress checks a shipping address against the carrier before
// checkout may advance. Carrier complaints come back as 422 with the
// first customer-facing message; a carrier outage is a 502 and blocks
// progression (no fail-open).
func (ch *CheckoutController) ValidateAddress(w http.ResponseWriter, r *http.Request) {
	var addr models.ShippingAddress
	if err := json.NewDecoder(r.Body).Decode(&addr); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	if msg := missingAddressField(addr); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	result, err := ch.Validator.ValidateAddress(ctx, addr)
	if err != nil {
		if errors.Is(err, carrier.ErrUnknownCountry) {
			http.Error(w, "Unknown or unsupported country", http.StatusBadRequest)
			return
		}
		log.Printf("address validation failed: %v", err)
		http.Error(w, "Address validation service unavailable, please try again", http.StatusBadGateway)
		return
	}

	if len(result.Messages) > 0 {
		http.Error(w, result.Messages[0], http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(validateAddressResponse{
		Standardized: result.Standardized,
		Address:      result.Address,
	})
}

func missingAddressField(addr models.ShippingAddress) string {
	switch {
	case strings.TrimSpace(addr.FullName) == "":
		return "Full name is required"
	case strings.TrimSpace(addr.AddressLine1) == "":
		return "Address line 1 is required"
	case strings.TrimSpace(addr.City) == "":
		return "City is required"
	case strings.TrimSpace(addr.State) == "":
		return "State is required"
	case strings.TrimSpace(addr.ZipCode) == "":
		return "Zip code is required"
	case strings.TrimSpace(addr.Country) == "":
		return "Country is required"
	}
	return ""
}

type createSessionRequest struct {
	PaymentMethod   string                 `json:"payment_method"`
	ShippingAddress models.ShippingAddress `json:"shipping_address"`
}

// CreateSession builds a hosted payment session from the user's cart
// and returns the redirect URL.
func (ch *CheckoutController) CreateSession(w http.ResponseWriter, r *http.Request) {
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

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = "card"
	}
	if msg := missingAddressField(req.ShippingAddress); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	result, err := ch.Service.CreateSession(ctx, userID, req.PaymentMethod, req.ShippingAddress)
	if err != nil {
		writeCheckoutError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// Finalize converts a paid session into an order. Duplicate callbacks
// with the same session id get the already-created order back.
func (ch *CheckoutController) Finalize(w http.ResponseWriter, r *http.Request) {
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

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	order, created, err := ch.Service.Finalize(ctx, userID, sessionID)
	if err != nil {
		writeCheckoutError(w, err)
		return
	}

	if created {
		go ch.sendConfirmation(*order)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(order)
}

func (ch *CheckoutController) sendConfirmation(order models.Order) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var user models.User
	if err := ch.UserCollection.FindOne(ctx, bson.M{"_id": order.UserID}).Decode(&user); err != nil {
		log.Printf("failed to load user for confirmation email: %v", err)
		return
	}
	if err := ch.EmailService.SendOrderConfirmationEmail(user.Email, order); err != nil {
		log.Printf("failed to send confirmation email to %s: %v", user.Email, err)
	}
}

func writeCheckoutError(w http.ResponseWriter, err error) {
	var se checkout.StockError
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		http.Error(w, "Cart is empty", http.StatusBadRequest)
	case errors.Is(err, checkout.ErrSessionNotFound):
		http.Error(w, "Checkout session not found", http.StatusNotFound)
	case errors.Is(err, checkout.ErrNotPaid):
		http.Error(w, "Payment has not been completed", http.StatusPaymentRequired)
	case errors.Is(err, checkout.ErrInFlight):
		http.Error(w, "Finalization already in progress", http.StatusConflict)
	case errors.As(err, &se):
		http.Error(w, se.Error(), http.StatusConflict)
	case errors.Is(err, checkout.ErrVariantNotFound), errors.Is(err, store.ErrProductNotFound):
		http.Error(w, "A cart item is no longer available", http.StatusConflict)
	case errors.Is(err, payment.ErrUnavailable):
		http.Error(w, "Payment service unavailable, please try again", http.StatusBadGateway)
	default:
		log.Printf("checkout failed: %v", err)
		http.Error(w, "Checkout failed", http.StatusInternalServerError)
	}
}
