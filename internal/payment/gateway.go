// Package payment wraps the external payment gateway and the local
// signature verification used to reconcile checkout callbacks.
package payment

import (
	"context"
	"errors"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
	rzperrors "github.com/razorpay/razorpay-go/errors"
)

// ErrOrderNotFound is returned when the gateway does not know the order.
var ErrOrderNotFound = errors.New("gateway order not found")

// Order is the gateway's record of an intended charge. Notes carry the
// registration intent in the deferred-creation design, so no local rows
// exist until the payment is verified.
type Order struct {
	ID          string
	AmountPaise int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

// CreateOrderParams describes a new gateway order.
type CreateOrderParams struct {
	AmountPaise int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

// Gateway is the external payment provider abstraction. Implementations
// must be safe for concurrent use; callers never hold database row
// locks across these calls.
type Gateway interface {
	CreateOrder(ctx context.Context, p CreateOrderParams) (*Order, error)
	FetchOrder(ctx context.Context, orderID string) (*Order, error)
}

// RazorpayGateway is the production Gateway backed by the Razorpay SDK.
type RazorpayGateway struct {
	client *razorpay.Client
	keyID  string
}

// NewRazorpayGateway constructs a gateway client from API credentials.
func NewRazorpayGateway(keyID, keySecret string) *RazorpayGateway {
	return &RazorpayGateway{
		client: razorpay.NewClient(keyID, keySecret),
		keyID:  keyID,
	}
}

// KeyID returns the public API key the browser checkout needs.
func (g *RazorpayGateway) KeyID() string { return g.keyID }

// CreateOrder registers an intended charge with the gateway.
func (g *RazorpayGateway) CreateOrder(ctx context.Context, p CreateOrderParams) (*Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	notes := make(map[string]interface{}, len(p.Notes))
	for k, v := range p.Notes {
		notes[k] = v
	}
	data := map[string]interface{}{
		"amount":   p.AmountPaise,
		"currency": p.Currency,
		"receipt":  p.Receipt,
		"notes":    notes,
	}
	body, err := g.client.Order.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("create gateway order: %w", err)
	}
	return orderFromBody(body)
}

// FetchOrder retrieves an order previously created with the gateway.
func (g *RazorpayGateway) FetchOrder(ctx context.Context, orderID string) (*Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := g.client.Order.Fetch(orderID, nil, nil)
	if err != nil {
		// The gateway answers a fetch of an unknown order id with a bad
		// request. Outages and server-side failures are different error
		// types and must stay distinguishable for the caller.
		var badReq *rzperrors.BadRequestError
		if errors.As(err, &badReq) {
			return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		return nil, fmt.Errorf("fetch gateway order %s: %w", orderID, err)
	}
	return orderFromBody(body)
}

// orderFromBody converts the SDK's loosely typed response into an Order.
func orderFromBody(body map[string]interface{}) (*Order, error) {
	id, _ := body["id"].(string)
	if id == "" {
		return nil, errors.New("gateway response missing order id")
	}
	o := &Order{
		ID:    id,
		Notes: map[string]string{},
	}
	o.Currency, _ = body["currency"].(string)
	o.Receipt, _ = body["receipt"].(string)
	switch amount := body["amount"].(type) {
	case float64:
		o.AmountPaise = int64(amount)
	case int64:
		o.AmountPaise = amount
	case int:
		o.AmountPaise = int64(amount)
	}
	if notes, ok := body["notes"].(map[string]interface{}); ok {
		for k, v := range notes {
			if s, ok := v.(string); ok {
				o.Notes[k] = s
			}
		}
	}
	return o, nil
}
