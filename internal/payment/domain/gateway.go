package domain

import "context"

type AdapterConfig struct {
	Config map[string]any
}

type AdapterFactory interface {
	Provider() string
	NewAdapter(cfg AdapterConfig) (Gateway, error)
}

type OrderInput struct {
	// AmountMinor is the order amount in minor currency units.
	AmountMinor int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

type Order struct {
	ID       string
	Amount   int64
	Currency string
	Receipt  string
	Status   string
}

// Gateway is a payment processor that opens orders and signs completed
// payments.
type Gateway interface {
	Provider() string
	// KeyID is the public key the client checkout widget needs.
	KeyID() string
	CreateOrder(ctx context.Context, in OrderInput) (*Order, error)
	VerifySignature(orderID, paymentID, signature string) error
}
