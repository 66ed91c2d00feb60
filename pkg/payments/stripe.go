package payments

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeConfig defines configuration options for the Stripe provider.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Logger        zerolog.Logger
}

// StripeProvider implements Provider against the Stripe API.
type StripeProvider struct {
	api           *client.API
	webhookSecret string
	logger        zerolog.Logger
}

// NewStripeProvider builds a Stripe-backed payment provider.
func NewStripeProvider(cfg StripeConfig) (*StripeProvider, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("stripe secret key is required")
	}
	if cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("stripe webhook secret is required")
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	api := &client.API{}
	api.Init(cfg.SecretKey, nil)

	return &StripeProvider{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
		logger:        logger,
	}, nil
}

// CreateCheckoutSession creates a hosted checkout session for a single line
// item, tagging the session with the task identifier so the completion
// webhook can be correlated back to the task.
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, input CheckoutInput) (CheckoutSession, error) {
	currency := input.Currency
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(input.ProductName),
						Description: stripe.String(input.Description),
					},
					UnitAmount: stripe.Int64(input.UnitAmount),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(input.SuccessURL),
		CancelURL:  stripe.String(input.CancelURL),
	}
	params.Context = ctx
	params.AddMetadata("task_id", input.TaskID)

	session, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("create checkout session: %w", err)
	}

	return CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

// VerifyEvent authenticates a raw webhook payload against the endpoint
// secret and extracts the fields this service acts on. Signature
// verification is the sole authentication mechanism for the webhook
// endpoint, so any verification failure is rejected outright.
func (p *StripeProvider) VerifyEvent(payload []byte, signature string) (Event, error) {
	stripeEvent, err := webhook.ConstructEvent(payload, signature, p.webhookSecret)
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	event := Event{Type: string(stripeEvent.Type)}
	if event.Type != EventCheckoutCompleted {
		return event, nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(stripeEvent.Data.Raw, &session); err != nil {
		return Event{}, fmt.Errorf("decode checkout session: %w", err)
	}

	event.SessionID = session.ID
	event.PaymentStatus = string(session.PaymentStatus)
	event.AmountTotal = session.AmountTotal
	event.Metadata = session.Metadata
	return event, nil
}
