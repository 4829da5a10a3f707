package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"jewelry-ecommerce/clients/payment"
	"jewelry-ecommerce/models"
	"jewelry-ecommerce/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrSessionNotFound means no pending checkout session matches the
	// session id (or it belongs to another user).
	ErrSessionNotFound = errors.New("checkout session not found")
	// ErrNotPaid means the provider has not collected payment for the
	// session.
	ErrNotPaid = errors.New("payment not completed")
	// ErrEmptyCart blocks session creation and finalization on an
	// empty cart.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrOrderNotFound is returned by Orders.FindBySession when no
	// order exists for a session id.
	ErrOrderNotFound = errors.New("order not found")
	// ErrDuplicateSession is returned by Orders.Insert when an order
	// for the same session id already exists.
	ErrDuplicateSession = errors.New("order already exists for session")
	// ErrVariantNotFound means a cart line references a variant the
	// catalog no longer has.
	ErrVariantNotFound = errors.New("variant not found")
)

// StockError reports a line whose quantity exceeds available stock.
type StockError struct {
	Name string
}

func (e StockError) Error() string { return fmt.Sprintf("insufficient stock for %s", e.Name) }

// Orders is the order persistence the finalizer needs. Insert must be
// backed by a unique constraint on the session id and report
// violations as ErrDuplicateSession.
type Orders interface {
	FindBySession(ctx context.Context, sessionID string) (*models.Order, error)
	Insert(ctx context.Context, order models.Order) (primitive.ObjectID, error)
}

// Sessions persists pending checkout sessions between creation and the
// customer's return.
type Sessions interface {
	Create(ctx context.Context, session models.CheckoutSession) error
	Find(ctx context.Context, sessionID string, userID primitive.ObjectID) (*models.CheckoutSession, error)
	Delete(ctx context.Context, sessionID string) error
}

// PaymentProvider is the hosted-checkout surface of the payment API.
type PaymentProvider interface {
	CreateSession(ctx context.Context, items []models.CartItem) (*payment.Session, error)
	GetSession(ctx context.Context, sessionID string) (*payment.Session, error)
}

// Service drives payment session creation and order finalization.
type Service struct {
	orders   Orders
	sessions Sessions
	catalog  store.ProductCatalog
	carts    store.CartStore
	payments PaymentProvider
	guard    *Guard
}

func NewService(orders Orders, sessions Sessions, catalog store.ProductCatalog, carts store.CartStore, payments PaymentProvider) *Service {
	return &Service{
		orders:   orders,
		sessions: sessions,
		catalog:  catalog,
		carts:    carts,
		payments: payments,
		guard:    NewGuard(),
	}
}

// SessionResult is what the client needs to redirect to the provider.
type SessionResult struct {
	SessionID string  `json:"session_id"`
	URL       string  `json:"url"`
	Amount    float64 `json:"amount"`
}

// CreateSession builds a hosted payment session from the user's cart.
// Prices are refreshed from the catalog and stock is checked, but the
// cart itself stays untouched until the customer returns from the
// provider.
func (s *Service) CreateSession(ctx context.Context, userID primitive.ObjectID, paymentMethod string, addr models.ShippingAddress) (*SessionResult, error) {
	cart, err := s.carts.Get(ctx, userID.Hex())
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	items, err := s.priceFromCatalog(ctx, cart.Items)
	if err != nil {
		return nil, err
	}
	total, _ := store.Totals(items)

	session, err := s.payments.CreateSession(ctx, items)
	if err != nil {
		return nil, err
	}

	record := models.CheckoutSession{
		SessionID:       session.ID,
		UserID:          userID,
		Amount:          total,
		PaymentMethod:   paymentMethod,
		ShippingAddress: addr,
		CreatedAt:       time.Now(),
	}
	if err := s.sessions.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to record checkout session: %w", err)
	}

	return &SessionResult{SessionID: session.ID, URL: session.URL, Amount: total}, nil
}

// Finalize converts a paid session into an order, at most once per
// session id: the in-process guard rejects re-entry and the unique
// order index is the durable backstop. The returned bool is false when
// the order already existed (a duplicate callback), which is an
// idempotent success, not an error. Any failure before the order
// insert leaves the cart intact so the finalize can be retried.
func (s *Service) Finalize(ctx context.Context, userID primitive.ObjectID, sessionID string) (*models.Order, bool, error) {
	if err := s.guard.Begin(sessionID); err != nil {
		if errors.Is(err, ErrInFlight) {
			return nil, false, err
		}
		// Completed in this process: hand back the existing order.
		order, findErr := s.ownedOrder(ctx, userID, sessionID)
		if findErr != nil {
			return nil, false, findErr
		}
		return order, false, nil
	}

	order, created, err := s.finalize(ctx, userID, sessionID)
	if err != nil {
		s.guard.Reset(sessionID)
		return nil, false, err
	}
	s.guard.Complete(sessionID)
	return order, created, nil
}

func (s *Service) finalize(ctx context.Context, userID primitive.ObjectID, sessionID string) (*models.Order, bool, error) {
	// Durable duplicate check first: a prior finalize may have landed
	// from another process.
	existing, err := s.ownedOrder(ctx, userID, sessionID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrOrderNotFound) {
		return nil, false, err
	}

	record, err := s.sessions.Find(ctx, sessionID, userID)
	if err != nil {
		return nil, false, err
	}

	session, err := s.payments.GetSession(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}
	if session.PaymentStatus != payment.SessionPaid {
		return nil, false, ErrNotPaid
	}

	cart, err := s.carts.Get(ctx, userID.Hex())
	if err != nil {
		return nil, false, fmt.Errorf("failed to load cart: %w", err)
	}
	if len(cart.Items) == 0 {
		return nil, false, ErrEmptyCart
	}

	// Snapshot: prices, names and images are captured now and frozen
	// on the order. Catalog edits after this point change nothing.
	items, err := s.priceFromCatalog(ctx, cart.Items)
	if err != nil {
		return nil, false, err
	}
	total, _ := store.Totals(items)

	order := models.Order{
		UserID:           userID,
		Items:            items,
		TotalAmount:      total,
		ShippingAddress:  record.ShippingAddress,
		PaymentMethod:    record.PaymentMethod,
		PaymentStatus:    models.PaymentStatusCompleted,
		PaymentSessionID: sessionID,
		Status:           models.OrderStatusPaid,
		CreatedAt:        time.Now(),
	}

	orderID, err := s.orders.Insert(ctx, order)
	if errors.Is(err, ErrDuplicateSession) {
		existing, findErr := s.ownedOrder(ctx, userID, sessionID)
		if findErr != nil {
			return nil, false, findErr
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to create order: %w", err)
	}
	order.ID = orderID

	// Post-insert steps are best-effort: the order exists, duplicates
	// are impossible, and stock or cart cleanup must not undo that.
	for _, item := range items {
		if err := s.catalog.DeductStock(ctx, item.Key(), item.Quantity); err != nil {
			log.Printf("failed to deduct stock for %s/%s: %v", item.ProductID.Hex(), item.VariantID, err)
		}
	}

	if err := s.carts.Clear(ctx, userID.Hex()); err != nil && !errors.Is(err, store.ErrCartNotFound) {
		log.Printf("failed to clear cart after order %s: %v", order.ID.Hex(), err)
	}

	// The session record served its purpose; dropping it resets any
	// lingering checkout state for this user.
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		log.Printf("failed to delete checkout session %s: %v", sessionID, err)
	}

	return &order, true, nil
}

// ownedOrder looks up the order for a session id and verifies it
// belongs to the caller. Session ids travel through redirect URLs, so a
// leaked id must never expose another customer's order.
func (s *Service) ownedOrder(ctx context.Context, userID primitive.ObjectID, sessionID string) (*models.Order, error) {
	order, err := s.orders.FindBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return order, nil
}

// priceFromCatalog re-reads every cart line from the catalog,
// refreshing name, image and price and verifying stock. The returned
// lines are what orders snapshot.
func (s *Service) priceFromCatalog(ctx context.Context, items []models.CartItem) ([]models.CartItem, error) {
	out := make([]models.CartItem, 0, len(items))
	for _, item := range items {
		product, err := s.catalog.Product(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		variant := product.FindVariant(item.VariantID)
		if variant == nil {
			return nil, fmt.Errorf("%w: %s on product %s", ErrVariantNotFound, item.VariantID, product.Name)
		}
		if variant.Stock < item.Quantity {
			return nil, StockError{Name: product.Name}
		}

		item.Name = product.Name
		item.MainImage = product.MainImage
		item.VariantDetails.Price = variant.Price
		item.VariantDetails.Material = variant.Material
		item.VariantDetails.Purity = variant.Purity
		item.VariantDetails.Weight = variant.Weight
		item.VariantDetails.WeightUnit = variant.WeightUnit
		item.VariantDetails.HSCode = variant.HSCode
		item.VariantDetails.CountryOfOrigin = variant.CountryOfOrigin
		out = append(out, item)
	}
	return out, nil
}
