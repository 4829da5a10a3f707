package store

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"

	"jewelry-ecommerce/models"

	"golang.org/x/sync/singleflight"
)

// CachedCartStore layers a CartCache over another CartStore. Reads go
// through the cache; mutations hit the backing store and invalidate.
// Cache failures are logged and ignored, never surfaced to callers.
type CachedCartStore struct {
	backing CartStore
	cache   CartCache
	sfg     singleflight.Group // collapses concurrent misses for one owner
	gen     atomic.Uint64      // bumped on every invalidate; fences stale fills
}

func NewCachedCartStore(backing CartStore, cache CartCache) *CachedCartStore {
	return &CachedCartStore{backing: backing, cache: cache}
}

func (s *CachedCartStore) Get(ctx context.Context, owner string) (*models.Cart, error) {
	v, err, _ := s.sfg.Do(owner, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, owner)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			log.Printf("cart cache get error: %v", err)
		}

		gen := s.gen.Load()
		cart, err = s.backing.Get(ctx, owner)
		if err != nil {
			return nil, err
		}

		// Only fill the cache if no mutation invalidated while the
		// backing read was in flight, and drop the fill again if one
		// raced the write. Otherwise a stale copy could sit for the
		// whole cache TTL.
		if s.gen.Load() == gen {
			if err := s.cache.Set(ctx, owner, cart); err != nil {
				log.Printf("cart cache set error: %v", err)
			} else if s.gen.Load() != gen {
				if err := s.cache.Delete(ctx, owner); err != nil {
					log.Printf("cart cache invalidate error: %v", err)
				}
			}
		}

		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Cart), nil
}

func (s *CachedCartStore) Add(ctx context.Context, owner string, item models.CartItem) error {
	if err := s.backing.Add(ctx, owner, item); err != nil {
		return err
	}
	s.invalidate(owner)
	return nil
}

func (s *CachedCartStore) Remove(ctx context.Context, owner string, key models.CartKey) error {
	if err := s.backing.Remove(ctx, owner, key); err != nil {
		return err
	}
	s.invalidate(owner)
	return nil
}

func (s *CachedCartStore) UpdateQuantity(ctx context.Context, owner string, key models.CartKey, quantity int) error {
	if err := s.backing.UpdateQuantity(ctx, owner, key, quantity); err != nil {
		return err
	}
	s.invalidate(owner)
	return nil
}

func (s *CachedCartStore) Clear(ctx context.Context, owner string) error {
	if err := s.backing.Clear(ctx, owner); err != nil {
		return err
	}
	s.invalidate(owner)
	return nil
}

// Merge delegates to the backing store's merge and invalidates the
// cached copy.
func (s *CachedCartStore) Merge(ctx context.Context, owner string, items []models.CartItem) error {
	merger, ok := s.backing.(CartMerger)
	if !ok {
		return errors.New("backing cart store does not support merge")
	}
	if err := merger.Merge(ctx, owner, items); err != nil {
		return err
	}
	s.invalidate(owner)
	return nil
}

func (s *CachedCartStore) invalidate(owner string) {
	s.gen.Add(1)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, owner); err != nil {
		log.Printf("cart cache invalidate error: %v", err)
	}
}
