package billing

import (
	"context"
	"fmt"
	"strings"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"

	"justbecause/internal/domain"
	"justbecause/internal/infra"
)

// Order is what the client needs to complete payment with a gateway.
type Order struct {
	OrderID     string `json:"order_id"`
	CheckoutURL string `json:"checkout_url,omitempty"`
	PublicKey   string `json:"public_key,omitempty"`
}

// Gateway opens a payment for a pending transaction.
type Gateway interface {
	Name() string
	CreateOrder(ctx context.Context, tx *domain.Transaction, buyer *domain.User, description string) (*Order, error)
}

// StripeGateway opens hosted Checkout Sessions. The transaction id travels as
// client_reference_id so the webhook can find it again.
type StripeGateway struct {
	api         *client.API
	frontendURL string
	breaker     *gobreaker.CircuitBreaker
}

func NewStripeGateway(secretKey, frontendURL string, logger zerolog.Logger) *StripeGateway {
	return &StripeGateway{
		api:         client.New(secretKey, nil),
		frontendURL: strings.TrimRight(frontendURL, "/"),
		breaker:     infra.NewBreaker("stripe", logger),
	}
}

func (g *StripeGateway) Name() string { return GatewayStripe }

func (g *StripeGateway) CreateOrder(ctx context.Context, tx *domain.Transaction, buyer *domain.User, description string) (*Order, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(tx.ID),
		CustomerEmail:     stripe.String(buyer.Email),
		SuccessURL:        stripe.String(g.frontendURL + "/billing/success?transaction=" + tx.ID),
		CancelURL:         stripe.String(g.frontendURL + "/billing/cancel?transaction=" + tx.ID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(strings.ToLower(tx.Currency)),
				UnitAmount: stripe.Int64(tx.AmountMinor - tx.DiscountMinor),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(description),
				},
			},
		}},
	}
	params.Context = ctx
	params.AddMetadata("transaction_id", tx.ID)
	params.AddMetadata("purpose", string(tx.Purpose))

	res, err := g.breaker.Execute(func() (interface{}, error) {
		return g.api.CheckoutSessions.New(params)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: stripe checkout: %v", domain.ErrProviderFailure, err)
	}
	sess := res.(*stripe.CheckoutSession)
	return &Order{OrderID: sess.ID, CheckoutURL: sess.URL}, nil
}

// RazorpayGateway creates orders the frontend completes with Razorpay
// Checkout; the transaction id is the order receipt.
type RazorpayGateway struct {
	client  *razorpay.Client
	keyID   string
	breaker *gobreaker.CircuitBreaker
}

func NewRazorpayGateway(keyID, keySecret string, logger zerolog.Logger) *RazorpayGateway {
	return &RazorpayGateway{
		client:  razorpay.NewClient(keyID, keySecret),
		keyID:   keyID,
		breaker: infra.NewBreaker("razorpay", logger),
	}
}

func (g *RazorpayGateway) Name() string { return GatewayRazorpay }

func (g *RazorpayGateway) CreateOrder(ctx context.Context, tx *domain.Transaction, _ *domain.User, description string) (*Order, error) {
	data := map[string]interface{}{
		"amount":   tx.AmountMinor - tx.DiscountMinor,
		"currency": strings.ToUpper(tx.Currency),
		"receipt":  tx.ID,
		"notes": map[string]interface{}{
			"transaction_id": tx.ID,
			"purpose":        string(tx.Purpose),
			"description":    description,
		},
	}
	res, err := g.breaker.Execute(func() (interface{}, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return g.client.Order.Create(data, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: razorpay order: %v", domain.ErrProviderFailure, err)
	}
	body, _ := res.(map[string]interface{})
	id, _ := body["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("%w: razorpay order: response has no id", domain.ErrProviderFailure)
	}
	return &Order{OrderID: id, PublicKey: g.keyID}, nil
}
