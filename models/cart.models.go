package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VariantDetails captures the purchasable configuration of a cart line
// at the moment it was added. Price here is what cart totals are
// derived from; it is re-read from the catalog at checkout time.
type VariantDetails struct {
	Material        string  `bson:"material" json:"material"`
	Purity          string  `bson:"purity,omitempty" json:"purity,omitempty"`
	SelectedSize    string  `bson:"selected_size,omitempty" json:"selected_size,omitempty"`
	Price           float64 `bson:"price" json:"price"`
	Weight          float64 `bson:"weight,omitempty" json:"weight,omitempty"`
	WeightUnit      string  `bson:"weight_unit,omitempty" json:"weight_unit,omitempty"`
	HSCode          string  `bson:"hs_code,omitempty" json:"hs_code,omitempty"`
	CountryOfOrigin string  `bson:"country_of_origin,omitempty" json:"country_of_origin,omitempty"`
}

// CartItem represents one line in a cart. A cart holds at most one line
// per (product_id, variant_id) pair.
type CartItem struct {
	ProductID      primitive.ObjectID `bson:"product_id" json:"product_id"`
	VariantID      string             `bson:"variant_id" json:"variant_id"`
	Quantity       int                `bson:"quantity" json:"quantity"`
	Name           string             `bson:"name" json:"name"`
	MainImage      string             `bson:"main_image,omitempty" json:"main_image,omitempty"`
	VariantDetails VariantDetails     `bson:"variant_details" json:"variant_details"`
}

// Key identifies the cart line this item belongs to.
func (ci CartItem) Key() CartKey {
	return CartKey{ProductID: ci.ProductID, VariantID: ci.VariantID}
}

// CartKey is the (product, variant) pair that makes a cart line unique.
type CartKey struct {
	ProductID primitive.ObjectID `json:"product_id"`
	VariantID string             `json:"variant_id"`
}

// Cart represents a shopping cart. Exactly one of UserID or GuestID is
// set: user carts live in Mongo, guest carts in the key-value store.
type Cart struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID  primitive.ObjectID `bson:"user_id,omitempty" json:"user_id,omitempty"`
	GuestID string             `bson:"guest_id,omitempty" json:"guest_id,omitempty"`
	Items   []CartItem         `bson:"items" json:"items"`
}

// CartView is the wire shape returned by every cart endpoint: the items
// plus the derived totals. Totals are computed on the way out and never
// persisted, so they cannot drift from the items.
type CartView struct {
	Items     []CartItem `json:"items"`
	CartTotal float64    `json:"cart_total"`
	ItemCount int        `json:"cart_item_count"`
}
