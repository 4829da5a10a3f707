package store

import (
	"context"
	"errors"

	"jewelry-ecommerce/models"
)

var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrItemNotFound    = errors.New("item not found in cart")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// CartStore is the single contract both cart backings implement. The
// owner key is the user id (hex) for authenticated carts and the guest
// session id for anonymous ones; callers never care which they hold.
type CartStore interface {
	Get(ctx context.Context, owner string) (*models.Cart, error)
	Add(ctx context.Context, owner string, item models.CartItem) error
	Remove(ctx context.Context, owner string, key models.CartKey) error
	UpdateQuantity(ctx context.Context, owner string, key models.CartKey, quantity int) error
	Clear(ctx context.Context, owner string) error
}

// CartMerger is implemented by stores that can fold a guest item list
// into an owner's cart server-side.
type CartMerger interface {
	Merge(ctx context.Context, owner string, items []models.CartItem) error
}

// AddItem merges an item into a line list: an existing
// (product, variant) line has its quantity incremented, anything else
// is appended. Quantities below 1 are rejected.
func AddItem(items []models.CartItem, item models.CartItem) ([]models.CartItem, error) {
	if item.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	for i := range items {
		if items[i].Key() == item.Key() {
			items[i].Quantity += item.Quantity
			return items, nil
		}
	}
	return append(items, item), nil
}

// RemoveItem drops the line with the given key, if present.
func RemoveItem(items []models.CartItem, key models.CartKey) []models.CartItem {
	out := items[:0]
	for _, it := range items {
		if it.Key() != key {
			out = append(out, it)
		}
	}
	return out
}

// UpdateItemQuantity sets the quantity of an existing line. A quantity
// below 1 removes the line. The bool reports whether the key matched.
func UpdateItemQuantity(items []models.CartItem, key models.CartKey, quantity int) ([]models.CartItem, bool) {
	for i := range items {
		if items[i].Key() == key {
			if quantity < 1 {
				return RemoveItem(items, key), true
			}
			items[i].Quantity = quantity
			return items, true
		}
	}
	return items, false
}

// MergeItems folds incoming lines into a base list, summing quantities
// on matching keys. Incoming lines with quantities below 1 are skipped.
func MergeItems(base, incoming []models.CartItem) []models.CartItem {
	merged := base
	for _, it := range incoming {
		if it.Quantity < 1 {
			continue
		}
		merged, _ = AddItem(merged, it)
	}
	return merged
}

// Totals derives the cart total (sum of quantity x price) and item
// count (sum of quantities). These are never stored.
func Totals(items []models.CartItem) (total float64, count int) {
	for _, it := range items {
		total += float64(it.Quantity) * it.VariantDetails.Price
		count += it.Quantity
	}
	return total, count
}

// View builds the wire shape for a list of lines.
func View(items []models.CartItem) models.CartView {
	if items == nil {
		items = []models.CartItem{}
	}
	total, count := Totals(items)
	return models.CartView{Items: items, CartTotal: total, ItemCount: count}
}
