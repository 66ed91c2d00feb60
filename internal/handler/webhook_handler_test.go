package handler_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/AntiAnoop/smartcode/internal/handler"
	"github.com/AntiAnoop/smartcode/internal/service"
	"github.com/AntiAnoop/smartcode/pkg/payments"
)

type webhookServiceStub struct {
	err       error
	payload   []byte
	signature string
}

func (s *webhookServiceStub) HandleEvent(ctx context.Context, payload []byte, signature string) error {
	s.payload = payload
	s.signature = signature
	return s.err
}

func newWebhookTestApp(stub *webhookServiceStub) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/v1/webhooks")
	handler.NewWebhookHandler(stub, zerolog.Nop()).Register(group)
	return app
}

func postStripeEvent(t *testing.T, app *fiber.App, body, signature string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signature)

	res, err := app.Test(req, -1)
	require.NoError(t, err)
	return res
}

func TestStripeWebhookAcknowledgesProcessedEvent(t *testing.T) {
	stub := &webhookServiceStub{}
	app := newWebhookTestApp(stub)

	res := postStripeEvent(t, app, `{"type":"checkout.session.completed"}`, "t=1,v1=sig")
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	require.Equal(t, `{"type":"checkout.session.completed"}`, string(stub.payload))
	require.Equal(t, "t=1,v1=sig", stub.signature)
}

func TestStripeWebhookRejectsInvalidSignature(t *testing.T) {
	stub := &webhookServiceStub{err: payments.ErrInvalidSignature}
	app := newWebhookTestApp(stub)

	res := postStripeEvent(t, app, `{}`, "t=1,v1=bogus")
	require.Equal(t, fiber.StatusBadRequest, res.StatusCode)
}

func TestStripeWebhookSignalsRetryableFailure(t *testing.T) {
	stub := &webhookServiceStub{err: service.ErrUnlockFailed}
	app := newWebhookTestApp(stub)

	res := postStripeEvent(t, app, `{}`, "t=1,v1=sig")
	require.Equal(t, fiber.StatusInternalServerError, res.StatusCode)
}
