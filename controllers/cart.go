package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"jewelry-ecommerce/middleware"
	"jewelry-ecommerce/models"
	"jewelry-ecommerce/store"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GuestSessionHeader carries the anonymous cart owner id. The server
// issues one on first contact and echoes it back on every guest
// response.
const GuestSessionHeader = "X-Guest-Session"

// CartController handles cart-related requests for both guests and
// authenticated users behind the same endpoints.
type CartController struct {
	UserCarts  store.CartStore
	GuestCarts store.CartStore
	Merger     store.CartMerger
	Catalog    store.ProductCatalog
}

// NewCartController creates a new CartController.
func NewCartController(userCarts store.CartStore, guestCarts store.CartStore, merger store.CartMerger, catalog store.ProductCatalog) *CartController {
	return &CartController{
		UserCarts:  userCarts,
		GuestCarts: guestCarts,
		Merger:     merger,
		Catalog:    catalog,
	}
}

// resolveCart picks the backing store and owner key for a request:
// the user cart for authenticated callers, otherwise a guest cart
// keyed by the session header (issued here if absent).
func (cc *CartController) resolveCart(w http.ResponseWriter, r *http.Request) (store.CartStore, string) {
	if claims, ok := middleware.UserClaims(r); ok {
		return cc.UserCarts, claims.UserID
	}

	guestID := r.Header.Get(GuestSessionHeader)
	if guestID == "" {
		guestID = uuid.NewString()
	}
	w.Header().Set(GuestSessionHeader, guestID)
	return cc.GuestCarts, guestID
}

// GetCart retrieves the caller's cart with derived totals.
func (cc *CartController) GetCart(w http.ResponseWriter, r *http.Request) {
	carts, owner := cc.resolveCart(w, r)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	cart, err := carts.Get(ctx, owner)
	if err != nil {
		http.Error(w, "Error fetching cart", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(store.View(cart.Items))
}

type addToCartRequest struct {
	ProductID    string `json:"product_id"`
	VariantID    string `json:"variant_id"`
	Quantity     int    `json:"quantity"`
	SelectedSize string `json:"selected_size,omitempty"`
}

// AddToCart adds a product variant to the caller's cart. Name, image
// and price are taken from the catalog, never from the client.
func (cc *CartController) AddToCart(w http.ResponseWriter, r *http.Request) {
	carts, owner := cc.resolveCart(w, r)

	var req addToCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	if req.Quantity < 1 {
		http.Error(w, "Quantity must be at least 1", http.StatusBadRequest)
		return
	}

	productID, err := primitive.ObjectIDFromHex(req.ProductID)
	if err != nil {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	product, err := cc.Catalog.Product(ctx, productID)
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			http.Error(w, "Product not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Error fetching product", http.StatusInternalServerError)
		return
	}

	variant := product.FindVariant(req.VariantID)
	if variant == nil {
		http.Error(w, "Variant not found", http.StatusNotFound)
		return
	}
	if variant.Stock < req.Quantity {
		http.Error(w, fmt.Sprintf("Insufficient stock for %s", product.Name), http.StatusConflict)
		return
	}

	item := models.CartItem{
		ProductID: productID,
		VariantID: variant.VariantID,
		Quantity:  req.Quantity,
		Name:      product.Name,
		MainImage: product.MainImage,
		VariantDetails: models.VariantDetails{
			Material:        variant.Material,
			Purity:          variant.Purity,
			SelectedSize:    req.SelectedSize,
			Price:           variant.Price,
			Weight:          variant.Weight,
			WeightUnit:      variant.WeightUnit,
			HSCode:          variant.HSCode,
			CountryOfOrigin: variant.CountryOfOrigin,
		},
	}

	if err := carts.Add(ctx, owner, item); err != nil {
		if errors.Is(err, store.ErrInvalidQuantity) {
			http.Error(w, "Quantity must be at least 1", http.StatusBadRequest)
			return
		}
		http.Error(w, "Error updating cart", http.StatusInternalServerError)
		return
	}

	cc.respondWithCart(w, ctx, carts, owner)
}

type updateQuantityRequest struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

// UpdateQuantity sets the quantity of an existing cart line. A
// quantity of zero (or less) removes the line.
func (cc *CartController) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	carts, owner := cc.resolveCart(w, r)

	var req updateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}

	productID, err := primitive.ObjectIDFromHex(req.ProductID)
	if err != nil {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}
	key := models.CartKey{ProductID: productID, VariantID: req.VariantID}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := carts.UpdateQuantity(ctx, owner, key, req.Quantity); err != nil {
		if errors.Is(err, store.ErrItemNotFound) || errors.Is(err, store.ErrCartNotFound) {
			http.Error(w, "Item not found in cart", http.StatusNotFound)
			return
		}
		http.Error(w, "Error updating cart", http.StatusInternalServerError)
		return
	}

	cc.respondWithCart(w, ctx, carts, owner)
}

// RemoveFromCart removes one cart line.
func (cc *CartController) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	carts, owner := cc.resolveCart(w, r)

	params := mux.Vars(r)
	productID, err := primitive.ObjectIDFromHex(params["product_id"])
	if err != nil {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}
	key := models.CartKey{ProductID: productID, VariantID: params["variant_id"]}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := carts.Remove(ctx, owner, key); err != nil {
		if errors.Is(err, store.ErrCartNotFound) {
			http.Error(w, "Cart not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Error updating cart", http.StatusInternalServerError)
		return
	}

	cc.respondWithCart(w, ctx, carts, owner)
}

// ClearCart removes every line from the caller's cart.
func (cc *CartController) ClearCart(w http.ResponseWriter, r *http.Request) {
	carts, owner := cc.resolveCart(w, r)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := carts.Clear(ctx, owner); err != nil && !errors.Is(err, store.ErrCartNotFound) {
		http.Error(w, "Error clearing cart", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(store.View(nil))
}

type mergeCartRequest struct {
	Items []models.CartItem `json:"items"`
}

// MergeCart folds a guest cart into the authenticated user's cart,
// summing quantities on matching (product, variant) keys. On success
// the server-side guest copy for the session header is discarded; on
// failure nothing is touched, so the client keeps its guest cart.
func (cc *CartController) MergeCart(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.UserClaims(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req mergeCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	guestID := r.Header.Get(GuestSessionHeader)
	items := req.Items
	if len(items) == 0 && guestID != "" {
		// The client lost its local list; fall back to the server-side
		// guest copy before it gets discarded.
		guestCart, err := cc.GuestCarts.Get(ctx, guestID)
		if err != nil {
			http.Error(w, "Error merging cart", http.StatusInternalServerError)
			return
		}
		items = guestCart.Items
	}

	if len(items) > 0 {
		if err := cc.Merger.Merge(ctx, claims.UserID, items); err != nil {
			http.Error(w, "Error merging cart", http.StatusInternalServerError)
			return
		}
	}

	// The guest copy is only discarded after the merge landed.
	if guestID != "" {
		if err := cc.GuestCarts.Clear(ctx, guestID); err != nil {
			http.Error(w, "Cart merged but guest cart could not be cleared", http.StatusInternalServerError)
			return
		}
	}

	cc.respondWithCart(w, ctx, cc.UserCarts, claims.UserID)
}

func (cc *CartController) respondWithCart(w http.ResponseWriter, ctx context.Context, carts store.CartStore, owner string) {
	cart, err := carts.Get(ctx, owner)
	if err != nil {
		http.Error(w, "Error fetching cart", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(store.View(cart.Items))
}
