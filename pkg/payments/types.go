package payments

import (
	"context"
	"errors"
)

// EventCheckoutCompleted is the provider event type that unlocks a report.
const EventCheckoutCompleted = "checkout.session.completed"

// ErrInvalidSignature indicates a webhook payload whose signature could not
// be verified against the shared endpoint secret.
var ErrInvalidSignature = errors.New("webhook signature verification failed")

// CheckoutInput describes a single-item checkout session to create.
type CheckoutInput struct {
	TaskID      string
	ProductName string
	Description string
	Currency    string
	UnitAmount  int64
	SuccessURL  string
	CancelURL   string
}

// CheckoutSession is the provider-hosted session the user is redirected to.
type CheckoutSession struct {
	ID  string
	URL string
}

// Event is a verified webhook notification from the payment provider.
type Event struct {
	Type          string
	SessionID     string
	PaymentStatus string
	AmountTotal   int64
	Metadata      map[string]string
}

// Provider abstracts the payment platform: creating hosted checkout sessions
// and authenticating the asynchronous events it delivers.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, input CheckoutInput) (CheckoutSession, error)
	VerifyEvent(payload []byte, signature string) (Event, error)
}
