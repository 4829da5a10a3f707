package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"jewelry-ecommerce/models"
)

// guestCartKeyPrefix namespaces guest carts inside the shared KV.
const guestCartKeyPrefix = "guest_cart:"

// GuestCartStore keeps anonymous carts as JSON documents in the KV
// port, keyed by guest session id.
type GuestCartStore struct {
	kv KV
}

func NewGuestCartStore(kv KV) *GuestCartStore {
	return &GuestCartStore{kv: kv}
}

func guestCartKey(guestID string) string {
	return guestCartKeyPrefix + guestID
}

func (s *GuestCartStore) Get(ctx context.Context, owner string) (*models.Cart, error) {
	data, err := s.kv.Read(ctx, guestCartKey(owner))
	if errors.Is(err, ErrKeyNotFound) {
		return &models.Cart{GuestID: owner}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read guest cart: %w", err)
	}

	var cart models.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("failed to decode guest cart: %w", err)
	}
	cart.GuestID = owner
	return &cart, nil
}

func (s *GuestCartStore) save(ctx context.Context, owner string, cart *models.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("failed to encode guest cart: %w", err)
	}
	if err := s.kv.Write(ctx, guestCartKey(owner), data); err != nil {
		return fmt.Errorf("failed to write guest cart: %w", err)
	}
	return nil
}

func (s *GuestCartStore) Add(ctx context.Context, owner string, item models.CartItem) error {
	cart, err := s.Get(ctx, owner)
	if err != nil {
		return err
	}
	items, err := AddItem(cart.Items, item)
	if err != nil {
		return err
	}
	cart.Items = items
	return s.save(ctx, owner, cart)
}

func (s *GuestCartStore) Remove(ctx context.Context, owner string, key models.CartKey) error {
	cart, err := s.Get(ctx, owner)
	if err != nil {
		return err
	}
	cart.Items = RemoveItem(cart.Items, key)
	return s.save(ctx, owner, cart)
}

func (s *GuestCartStore) UpdateQuantity(ctx context.Context, owner string, key models.CartKey, quantity int) error {
	cart, err := s.Get(ctx, owner)
	if err != nil {
		return err
	}
	items, found := UpdateItemQuantity(cart.Items, key, quantity)
	if !found {
		return ErrItemNotFound
	}
	cart.Items = items
	return s.save(ctx, owner, cart)
}

func (s *GuestCartStore) Clear(ctx context.Context, owner string) error {
	if err := s.kv.Clear(ctx, guestCartKey(owner)); err != nil {
		return fmt.Errorf("failed to clear guest cart: %w", err)
	}
	return nil
}
