package checkout

import (
	"context"
	"sync"
	"testing"

	"jewelry-ecommerce/clients/payment"
	"jewelry-ecommerce/models"
	"jewelry-ecommerce/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type mockOrders struct {
	m       sync.Mutex
	orders  map[string]models.Order
	inserts int
}

func newMockOrders() *mockOrders {
	return &mockOrders{orders: map[string]models.Order{}}
}

func (m *mockOrders) FindBySession(_ context.Context, sessionID string) (*models.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	order, ok := m.orders[sessionID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return &order, nil
}

func (m *mockOrders) Insert(_ context.Context, order models.Order) (primitive.ObjectID, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if _, ok := m.orders[order.PaymentSessionID]; ok {
		return primitive.NilObjectID, ErrDuplicateSession
	}
	order.ID = primitive.NewObjectID()
	m.orders[order.PaymentSessionID] = order
	m.inserts++
	return order.ID, nil
}

func (m *mockOrders) insertCount() int {
	m.m.Lock()
	defer m.m.Unlock()
	return m.inserts
}

type mockSessions struct {
	m        sync.Mutex
	sessions map[string]models.CheckoutSession
}

func newMockSessions() *mockSessions {
	return &mockSessions{sessions: map[string]models.CheckoutSession{}}
}

func (m *mockSessions) Create(_ context.Context, session models.CheckoutSession) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.sessions[session.SessionID] = session
	return nil
}

func (m *mockSessions) Find(_ context.Context, sessionID string, userID primitive.ObjectID) (*models.CheckoutSession, error) {
	m.m.Lock()
	defer m.m.Unlock()
	session, ok := m.sessions[sessionID]
	if !ok || session.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

func (m *mockSessions) Delete(_ context.Context, sessionID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

type mockPayments struct {
	m         sync.Mutex
	status    string
	createErr error
	getErr    error
	created   [][]models.CartItem
}

func (m *mockPayments) CreateSession(_ context.Context, items []models.CartItem) (*payment.Session, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.created = append(m.created, items)
	return &payment.Session{ID: "sess_test_1", URL: "https://pay.example/sess_test_1"}, nil
}

func (m *mockPayments) GetSession(_ context.Context, sessionID string) (*payment.Session, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	return &payment.Session{ID: sessionID, PaymentStatus: m.status}, nil
}

func (m *mockPayments) setStatus(status string) {
	m.m.Lock()
	defer m.m.Unlock()
	m.status = status
}

type mockCatalog struct {
	m        sync.Mutex
	products map[primitive.ObjectID]*models.Product
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{products: map[primitive.ObjectID]*models.Product{}}
}

func (m *mockCatalog) Product(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	m.m.Lock()
	defer m.m.Unlock()
	product, ok := m.products[id]
	if !ok {
		return nil, store.ErrProductNotFound
	}
	copied := *product
	copied.Variants = append([]models.Variant(nil), product.Variants...)
	return &copied, nil
}

func (m *mockCatalog) DeductStock(_ context.Context, key models.CartKey, quantity int) error {
	m.m.Lock()
	defer m.m.Unlock()
	product, ok := m.products[key.ProductID]
	if !ok {
		return store.ErrProductNotFound
	}
	for i := range product.Variants {
		if product.Variants[i].VariantID == key.VariantID {
			product.Variants[i].Stock -= quantity
		}
	}
	return nil
}

func (m *mockCatalog) setPrice(id primitive.ObjectID, variantID string, price float64) {
	m.m.Lock()
	defer m.m.Unlock()
	for i := range m.products[id].Variants {
		if m.products[id].Variants[i].VariantID == variantID {
			m.products[id].Variants[i].Price = price
		}
	}
}

type fixture struct {
	service  *Service
	orders   *mockOrders
	sessions *mockSessions
	payments *mockPayments
	catalog  *mockCatalog
	carts    store.CartStore
	userID   primitive.ObjectID
	addr     models.ShippingAddress
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	orders := newMockOrders()
	sessions := newMockSessions()
	payments := &mockPayments{status: payment.SessionPaid}
	catalog := newMockCatalog()
	carts := store.NewGuestCartStore(store.NewMemoryKV())

	return &fixture{
		service:  NewService(orders, sessions, catalog, carts, payments),
		orders:   orders,
		sessions: sessions,
		payments: payments,
		catalog:  catalog,
		carts:    carts,
		userID:   primitive.NewObjectID(),
		addr: models.ShippingAddress{
			FullName:     "Ada Lovelace",
			AddressLine1: "12 Gem St",
			City:         "Austin",
			State:        "TX",
			ZipCode:      "78701",
			Country:      "United States",
		},
	}
}

// seedProduct registers a product with one variant and puts quantity
// of it in the user's cart.
func (f *fixture) seedProduct(t *testing.T, price float64, stock, quantity int) primitive.ObjectID {
	t.Helper()
	productID := primitive.NewObjectID()
	f.catalog.products[productID] = &models.Product{
		ID:        productID,
		Name:      "Gold Ring",
		MainImage: "ring.jpg",
		Variants: []models.Variant{{
			VariantID: "18k-6",
			Material:  "gold",
			Price:     price,
			Stock:     stock,
		}},
	}
	require.NoError(t, f.carts.Add(context.Background(), f.userID.Hex(), models.CartItem{
		ProductID:      productID,
		VariantID:      "18k-6",
		Quantity:       quantity,
		Name:           "stale name",
		VariantDetails: models.VariantDetails{Price: 1}, // stale, must be refreshed
	}))
	return productID
}

func (f *fixture) createSession(t *testing.T) string {
	t.Helper()
	result, err := f.service.CreateSession(context.Background(), f.userID, "card", f.addr)
	require.NoError(t, err)
	return result.SessionID
}

func TestCreateSessionRefreshesPricesFromCatalog(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, 150, 10, 2)

	result, err := f.service.CreateSession(context.Background(), f.userID, "card", f.addr)
	require.NoError(t, err)

	assert.Equal(t, 300.0, result.Amount)
	require.Len(t, f.payments.created, 1)
	assert.Equal(t, 150.0, f.payments.created[0][0].VariantDetails.Price)

	record, err := f.sessions.Find(context.Background(), result.SessionID, f.userID)
	require.NoError(t, err)
	assert.Equal(t, 300.0, record.Amount)
	assert.Equal(t, f.addr, record.ShippingAddress)
}

func TestCreateSessionEmptyCart(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.CreateSession(context.Background(), f.userID, "card", f.addr)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCreateSessionInsufficientStock(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, 150, 1, 2)

	_, err := f.service.CreateSession(context.Background(), f.userID, "card", f.addr)
	var se StockError
	assert.ErrorAs(t, err, &se)
}

func TestFinalizeCreatesOrderExactlyOnce(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, 200, 10, 2)
	sessionID := f.createSession(t)
	ctx := context.Background()

	order, created, err := f.service.Finalize(ctx, f.userID, sessionID)
	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, 400.0, order.TotalAmount)
	assert.Equal(t, models.PaymentStatusCompleted, order.PaymentStatus)
	assert.Equal(t, models.OrderStatusPaid, order.Status)
	assert.Equal(t, f.addr, order.ShippingAddress)

	// Cart is cleared after a successful finalize.
	cart, err := f.carts.Get(ctx, f.userID.Hex())
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	// The same callback fired again returns the same order and
	// creates nothing.
	again, created, err := f.service.Finalize(ctx, f.userID, sessionID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, order.ID, again.ID)
	assert.Equal(t, 1, f.orders.insertCount())
}

func TestFinalizeSnapshotSurvivesCatalogPriceChange(t *testing.T) {
	f := newFixture(t)
	productID := f.seedProduct(t, 200, 10, 2)
	sessionID := f.createSession(t)
	ctx := context.Background()

	order, _, err := f.service.Finalize(ctx, f.userID, sessionID)
	require.NoError(t, err)
	require.Equal(t, 400.0, order.TotalAmount)

	f.catalog.setPrice(productID, "18k-6", 999)

	stored, err := f.orders.FindBySession(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, 400.0, stored.TotalAmount)
	assert.Equal(t, 200.0, stored.Items[0].VariantDetails.Price)
	assert.Equal(t, "Gold Ring", stored.Items[0].Name)
}

func TestFinalizeDeductsStock(t *testing.T) {
	f := newFixture(t)
	productID := f.seedProduct(t, 200, 10, 3)
	sessionID := f.createSession(t)

	_, _, err := f.service.Finalize(context.Background(), f.userID, sessionID)
	require.NoError(t, err)

	product, err := f.catalog.Product(context.Background(), productID)
	require.NoError(t, err)
	assert.Equal(t, 7, product.Variants[0].Stock)
}

func TestFinalizeUnpaidSessionBlocksAndAllowsRetry(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, 200, 10, 2)
	sessionID := f.createSession(t)
	ctx := context.Background()

	f.payments.setStatus(payment.SessionUnpaid)
	_, _, err := f.service.Finalize(ctx, f.userID, sessionID)
	assert.ErrorIs(t, err, ErrNotPaid)

	// Failure leaves the cart intact for a retry.
	cart, err := f.carts.Get(ctx, f.userID.Hex())
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)

	f.payments.setStatus(payment.SessionPaid)
	_, created, err := f.service.Finalize(ctx, f.userID, sessionID)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestFinalizeProviderOutageKeepsCart(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, 200, 10, 2)
	sessionID := f.createSession(t)
	ctx := context.Background()

	f.payments.getErr = payment.ErrUnavailable
	_, _, err := f.service.Finalize(ctx, f.userID, sessionID)
	assert.ErrorIs(t, err, payment.ErrUnavailable)

	cart, err := f.carts.Get(ctx, f.userID.Hex())
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
	assert.Zero(t, f.orders.insertCount())
}

func TestFinalizeRejectsForeignSession(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, 200, 10, 2)
	sessionID := f.createSession(t)
	ctx := context.Background()
	otherUser := primitive.NewObjectID()

	// Before any finalize: the session belongs to someone else.
	_, _, err := f.service.Finalize(ctx, otherUser, sessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, created, err := f.service.Finalize(ctx, f.userID, sessionID)
	require.NoError(t, err)
	require.True(t, created)

	// A duplicate callback from another account must not hand over the
	// order: in-process guard path first.
	_, _, err = f.service.Finalize(ctx, otherUser, sessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// And through a fresh service, where only the durable order lookup
	// can catch the duplicate.
	fresh := NewService(f.orders, f.sessions, f.catalog, f.carts, f.payments)
	_, _, err = fresh.Finalize(ctx, otherUser, sessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// The owner still gets their own order back either way.
	order, created, err := fresh.Finalize(ctx, f.userID, sessionID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, f.userID, order.UserID)
}

func TestFinalizeUnknownSession(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.service.Finalize(context.Background(), f.userID, "sess_unknown")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
