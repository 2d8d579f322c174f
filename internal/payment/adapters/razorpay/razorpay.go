package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	paymentdomain "github.com/srithedesigner/credmatrix-backend/internal/payment/domain"
)

const (
	providerName   = "razorpay"
	defaultBaseURL = "https://api.razorpay.com"
	requestTimeout = 15 * time.Second
)

type Factory struct {
	client *http.Client
}

// NewFactory builds adapters on client, or on a client with a request
// timeout when client is nil.
func NewFactory(client *http.Client) *Factory {
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}
	return &Factory{client: client}
}

func (f *Factory) Provider() string {
	return providerName
}

func (f *Factory) NewAdapter(cfg paymentdomain.AdapterConfig) (paymentdomain.Gateway, error) {
	keyID, _ := readString(cfg.Config, "key_id")
	keySecret, _ := readString(cfg.Config, "key_secret")
	if keyID == "" || keySecret == "" {
		return nil, paymentdomain.ErrInvalidConfig
	}
	baseURL, _ := readString(cfg.Config, "base_url")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Adapter{
		client:    f.client,
		baseURL:   strings.TrimRight(baseURL, "/"),
		keyID:     keyID,
		keySecret: keySecret,
	}, nil
}

type Adapter struct {
	client    *http.Client
	baseURL   string
	keyID     string
	keySecret string
}

func (a *Adapter) Provider() string { return providerName }

func (a *Adapter) KeyID() string { return a.keyID }

type orderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt,omitempty"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type orderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type errorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (a *Adapter) CreateOrder(ctx context.Context, in paymentdomain.OrderInput) (*paymentdomain.Order, error) {
	body, err := json.Marshal(orderRequest{
		Amount:   in.AmountMinor,
		Currency: in.Currency,
		Receipt:  in.Receipt,
		Notes:    in.Notes,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(a.keyID, a.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr errorResponse
		if json.Unmarshal(payload, &apiErr) == nil && apiErr.Error.Description != "" {
			return nil, fmt.Errorf("razorpay: %s: %s", apiErr.Error.Code, apiErr.Error.Description)
		}
		return nil, fmt.Errorf("razorpay: unexpected status %d", resp.StatusCode)
	}

	var order orderResponse
	if err := json.Unmarshal(payload, &order); err != nil {
		return nil, fmt.Errorf("razorpay: decode order: %w", err)
	}
	if strings.TrimSpace(order.ID) == "" {
		return nil, fmt.Errorf("razorpay: order id missing")
	}

	return &paymentdomain.Order{
		ID:       order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
		Receipt:  order.Receipt,
		Status:   order.Status,
	}, nil
}

// VerifySignature checks the checkout signature, a hex HMAC-SHA256 of
// "order_id|payment_id" keyed by the key secret.
func (a *Adapter) VerifySignature(orderID, paymentID, signature string) error {
	signature = strings.TrimSpace(signature)
	if orderID == "" || paymentID == "" || signature == "" {
		return paymentdomain.ErrInvalidSignature
	}
	expected := Sign(a.keySecret, orderID, paymentID)
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return paymentdomain.ErrInvalidSignature
	}
	return nil
}

// Sign returns the signature Razorpay checkout produces for a payment.
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func readString(cfg map[string]any, key string) (string, bool) {
	if cfg == nil {
		return "", false
	}
	raw, ok := cfg[key]
	if !ok {
		return "", false
	}
	value, ok := raw.(string)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(value), true
}
