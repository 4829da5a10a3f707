package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"jewelry-ecommerce/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type mockCache struct {
	m    sync.RWMutex
	cart *models.Cart
	err  error
}

func (m *mockCache) Get(context.Context, string) (*models.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.cart == nil {
		return nil, ErrCacheMiss
	}
	return m.cart, nil
}

func (m *mockCache) Set(_ context.Context, _ string, cart *models.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.cart = cart
	return nil
}

func (m *mockCache) Delete(context.Context, string) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.cart = nil
	return nil
}

func (m *mockCache) cached() *models.Cart {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.cart
}

// slowStore lets a test interleave a mutation while a backing read is
// returning.
type slowStore struct {
	CartStore
	afterGet func()
}

func (s *slowStore) Get(ctx context.Context, owner string) (*models.Cart, error) {
	cart, err := s.CartStore.Get(ctx, owner)
	if s.afterGet != nil {
		s.afterGet()
	}
	return cart, err
}

func TestCachedCartGetPopulatesCacheOnMiss(t *testing.T) {
	ctx := context.Background()
	backing := NewGuestCartStore(NewMemoryKV())
	cache := &mockCache{}
	carts := NewCachedCartStore(backing, cache)
	productID := primitive.NewObjectID()

	require.NoError(t, backing.Add(ctx, "owner-1", item(productID, "v1", 2, 150)))

	cart, err := carts.Get(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)

	cached := cache.cached()
	require.NotNil(t, cached)
	assert.Equal(t, cart.Items, cached.Items)
}

func TestCachedCartGetServesFromCache(t *testing.T) {
	ctx := context.Background()
	backing := NewGuestCartStore(NewMemoryKV())
	productID := primitive.NewObjectID()
	cache := &mockCache{cart: &models.Cart{Items: []models.CartItem{item(productID, "v1", 7, 10)}}}
	carts := NewCachedCartStore(backing, cache)

	cart, err := carts.Get(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 7, cart.Items[0].Quantity)
}

func TestCachedCartCacheErrorFallsThrough(t *testing.T) {
	ctx := context.Background()
	backing := NewGuestCartStore(NewMemoryKV())
	productID := primitive.NewObjectID()
	require.NoError(t, backing.Add(ctx, "owner-1", item(productID, "v1", 1, 10)))

	cache := &mockCache{err: errors.New("redis down")}
	carts := NewCachedCartStore(backing, cache)

	cart, err := carts.Get(ctx, "owner-1")
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
}

func TestCachedCartMutationsInvalidate(t *testing.T) {
	ctx := context.Background()
	backing := NewGuestCartStore(NewMemoryKV())
	productID := primitive.NewObjectID()
	stale := &models.Cart{Items: []models.CartItem{item(productID, "v1", 99, 10)}}

	cache := &mockCache{cart: stale}
	carts := NewCachedCartStore(backing, cache)

	require.NoError(t, carts.Add(ctx, "owner-1", item(productID, "v1", 1, 10)))
	assert.Nil(t, cache.cached())

	cache.Set(ctx, "owner-1", stale)
	require.NoError(t, carts.UpdateQuantity(ctx, "owner-1", models.CartKey{ProductID: productID, VariantID: "v1"}, 4))
	assert.Nil(t, cache.cached())

	cache.Set(ctx, "owner-1", stale)
	require.NoError(t, carts.Clear(ctx, "owner-1"))
	assert.Nil(t, cache.cached())
}

func TestCachedCartMissDoesNotPinStaleAfterRacingMutation(t *testing.T) {
	ctx := context.Background()
	backing := NewGuestCartStore(NewMemoryKV())
	productID := primitive.NewObjectID()
	require.NoError(t, backing.Add(ctx, "owner-1", item(productID, "v1", 1, 10)))

	cache := &mockCache{}
	slow := &slowStore{CartStore: backing}
	carts := NewCachedCartStore(slow, cache)

	// A mutation lands while the cache fill's backing read is in
	// flight; the fill must not pin the pre-mutation cart.
	slow.afterGet = func() {
		slow.afterGet = nil
		require.NoError(t, carts.UpdateQuantity(ctx, "owner-1", models.CartKey{ProductID: productID, VariantID: "v1"}, 5))
	}

	_, err := carts.Get(ctx, "owner-1")
	require.NoError(t, err)
	assert.Nil(t, cache.cached())

	// The next read sees the mutated cart.
	cart, err := carts.Get(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
}
