package adapters

import (
	"errors"
	"testing"

	"github.com/srithedesigner/credmatrix-backend/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFactory struct {
	name string
	err  error
}

func (f stubFactory) Provider() string { return f.name }

func (f stubFactory) NewAdapter(cfg domain.AdapterConfig) (domain.Gateway, error) {
	if f.err != nil {
		return nil, f.err
	}
	return nil, nil
}

func TestRegistryOpen(t *testing.T) {
	keysMissing := errors.New("key_id and key_secret are required")
	registry, err := NewRegistry(stubFactory{name: " Razorpay "}, nil, stubFactory{name: "stripe", err: keysMissing})
	require.NoError(t, err)
	assert.Equal(t, []string{"razorpay", "stripe"}, registry.Providers())

	_, err = registry.Open("RAZORPAY", map[string]any{"key_id": "rzp_test"})
	assert.NoError(t, err)

	_, err = registry.Open("stripe", nil)
	assert.ErrorIs(t, err, keysMissing)
	assert.Contains(t, err.Error(), "stripe")

	_, err = registry.Open("paypal", nil)
	assert.ErrorIs(t, err, domain.ErrProviderNotFound)

	_, err = (*Registry)(nil).Open("razorpay", nil)
	assert.ErrorIs(t, err, domain.ErrProviderNotFound)
}

func TestNewRegistryRejectsAmbiguousProviders(t *testing.T) {
	_, err := NewRegistry(stubFactory{name: "razorpay"}, stubFactory{name: "RazorPay"})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	_, err = NewRegistry(stubFactory{name: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}
