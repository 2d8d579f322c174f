package razorpay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	paymentdomain "github.com/srithedesigner/credmatrix-backend/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAdapter(t *testing.T, baseURL string) paymentdomain.Gateway {
	t.Helper()
	gw, err := NewFactory(nil).NewAdapter(paymentdomain.AdapterConfig{Config: map[string]any{
		"key_id":     "rzp_test_key",
		"key_secret": "secret",
		"base_url":   baseURL,
	}})
	require.NoError(t, err)
	return gw
}

func TestNewAdapterRequiresKeys(t *testing.T) {
	_, err := NewFactory(nil).NewAdapter(paymentdomain.AdapterConfig{Config: map[string]any{"key_id": "k"}})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidConfig)
}

func TestCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_test_key", user)
		assert.Equal(t, "secret", pass)

		var body orderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, int64(50000), body.Amount)
		assert.Equal(t, "INR", body.Currency)

		_ = json.NewEncoder(w).Encode(orderResponse{
			ID:       "order_abc",
			Amount:   body.Amount,
			Currency: body.Currency,
			Receipt:  body.Receipt,
			Status:   "created",
		})
	}))
	defer srv.Close()

	order, err := newAdapter(t, srv.URL).CreateOrder(context.Background(), paymentdomain.OrderInput{
		AmountMinor: 50000,
		Currency:    "INR",
		Receipt:     "rcpt_1",
	})
	require.NoError(t, err)
	assert.Equal(t, "order_abc", order.ID)
	assert.Equal(t, "rcpt_1", order.Receipt)
}

func TestCreateOrderGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"amount too small"}}`))
	}))
	defer srv.Close()

	_, err := newAdapter(t, srv.URL).CreateOrder(context.Background(), paymentdomain.OrderInput{AmountMinor: 1, Currency: "INR"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amount too small")
}

func TestVerifySignature(t *testing.T) {
	gw := newAdapter(t, "http://unused")

	assert.NoError(t, gw.VerifySignature("order_1", "pay_1", Sign("secret", "order_1", "pay_1")))
	assert.ErrorIs(t, gw.VerifySignature("order_1", "pay_1", Sign("other", "order_1", "pay_1")), paymentdomain.ErrInvalidSignature)
	assert.ErrorIs(t, gw.VerifySignature("order_1", "pay_2", Sign("secret", "order_1", "pay_1")), paymentdomain.ErrInvalidSignature)
	assert.ErrorIs(t, gw.VerifySignature("order_1", "pay_1", ""), paymentdomain.ErrInvalidSignature)
}
