package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"jewelry-ecommerce/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestClient(baseURL string) *Client {
	return NewClient(Config{
		BaseURL:    baseURL,
		APIKey:     "sk_test_123",
		SuccessURL: "https://shop.example/checkout/success",
		CancelURL:  "https://shop.example/checkout/cancel",
	})
}

func TestCreateSessionSendsLineItemsInCents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())

		assert.Equal(t, "payment", r.FormValue("mode"))
		assert.Equal(t, "https://shop.example/checkout/success", r.FormValue("success_url"))
		assert.Equal(t, "https://shop.example/checkout/cancel", r.FormValue("cancel_url"))

		assert.Equal(t, "Gold Ring", r.FormValue("line_items[0][name]"))
		assert.Equal(t, "2", r.FormValue("line_items[0][quantity]"))
		assert.Equal(t, "49999", r.FormValue("line_items[0][amount]"))
		assert.Equal(t, "usd", r.FormValue("line_items[0][currency]"))
		assert.Equal(t, "Silver Chain", r.FormValue("line_items[1][name]"))
		assert.Equal(t, "12050", r.FormValue("line_items[1][amount]"))

		json.NewEncoder(w).Encode(Session{
			ID:            "sess_abc",
			URL:           "https://pay.example/sess_abc",
			PaymentStatus: SessionUnpaid,
			AmountTotal:   112048,
		})
	}))
	defer srv.Close()

	items := []models.CartItem{
		{ProductID: primitive.NewObjectID(), VariantID: "v1", Quantity: 2, Name: "Gold Ring", VariantDetails: models.VariantDetails{Price: 499.99}},
		{ProductID: primitive.NewObjectID(), VariantID: "v2", Quantity: 1, Name: "Silver Chain", VariantDetails: models.VariantDetails{Price: 120.50}},
	}

	session, err := newTestClient(srv.URL).CreateSession(context.Background(), items)
	require.NoError(t, err)
	assert.Equal(t, "sess_abc", session.ID)
	assert.Equal(t, "https://pay.example/sess_abc", session.URL)
}

func TestGetSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/checkout/sessions/sess_abc", r.URL.Path)
		json.NewEncoder(w).Encode(Session{ID: "sess_abc", PaymentStatus: SessionPaid, AmountTotal: 99900})
	}))
	defer srv.Close()

	session, err := newTestClient(srv.URL).GetSession(context.Background(), "sess_abc")
	require.NoError(t, err)
	assert.Equal(t, SessionPaid, session.PaymentStatus)
	assert.Equal(t, int64(99900), session.AmountTotal)
}

func TestProviderErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetSession(context.Background(), "sess_abc")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNetworkErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, err := newTestClient(srv.URL).CreateSession(context.Background(), nil)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestToCentsRounds(t *testing.T) {
	assert.Equal(t, int64(49999), toCents(499.99))
	assert.Equal(t, int64(10), toCents(0.1))
	assert.Equal(t, int64(0), toCents(0))
	assert.Equal(t, int64(100), toCents(1.0))
}
