package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/adgenix/adgenix-backend/internal/config"
	"github.com/adgenix/adgenix-backend/internal/models"
	"github.com/adgenix/adgenix-backend/internal/service"
	"github.com/adgenix/adgenix-backend/pkg/signature"
)

// The reconciliation semantics are covered in the service package; these
// tests pin the transport contract: the gateway must get its ack body no
// matter what it sends.

func newWebhookApp(t *testing.T, webhookSecret string) *fiber.App {
	t.Helper()

	svc := service.NewWebhookService(webhookSecret, nil, nil, nil, zap.NewNop())
	h := NewWebhookHandler(svc, config.StripeConfig{WebhookSecret: "whsec_test"}, zap.NewNop())

	app := fiber.New()
	app.Post("/webhook/dana", h.HandleDanaWebhook)
	app.Post("/webhook/dana/refund", h.HandleDanaRefundWebhook)
	app.Post("/webhook", h.HandleStripeWebhook)
	return app
}

func TestDanaWebhook_GarbageGetsProviderAck(t *testing.T) {
	t.Parallel()

	app := newWebhookApp(t, "secret")

	req := httptest.NewRequest("POST", "/webhook/dana", bytes.NewReader([]byte("!!not json!!")))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	var ack models.DanaAck
	require.NoError(t, json.Unmarshal(body, &ack))
	require.Equal(t, "2005600", ack.ResponseCode)
	require.Equal(t, "Successful", ack.ResponseMessage)
}

func TestDanaWebhook_UnsignedGetsProviderAck(t *testing.T) {
	t.Parallel()

	app := newWebhookApp(t, "secret")

	payload, _ := json.Marshal(models.DanaNotification{
		OriginalPartnerReferenceNo: "ADG-1-1-x",
		LatestTransactionStatus:    "00",
	})
	req := httptest.NewRequest("POST", "/webhook/dana", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	// no X-SIGNATURE header

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	var ack models.DanaAck
	require.NoError(t, json.Unmarshal(body, &ack))
	require.Equal(t, "2005600", ack.ResponseCode)
}

func TestRefundWebhook_GarbageGets200(t *testing.T) {
	t.Parallel()

	app := newWebhookApp(t, "secret")

	req := httptest.NewRequest("POST", "/webhook/dana/refund", bytes.NewReader([]byte("not json")))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	var ack models.RefundAck
	require.NoError(t, json.Unmarshal(body, &ack))
	require.False(t, ack.Success)
}

func TestRefundWebhook_UnsignedRejected(t *testing.T) {
	t.Parallel()

	app := newWebhookApp(t, "secret")

	payload, _ := json.Marshal(models.RefundNotification{
		RefundID: "rf-h1",
		Status:   "SUCCESS",
		Metadata: models.RefundMetadata{UserID: 9, PackageID: 1},
	})
	req := httptest.NewRequest("POST", "/webhook/dana/refund", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	// no X-SIGNATURE header

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	var ack models.RefundAck
	require.NoError(t, json.Unmarshal(body, &ack))
	require.False(t, ack.Success)
	require.Equal(t, "invalid signature", ack.Message)
}

func TestRefundWebhook_SignatureVerifiedOverRawBody(t *testing.T) {
	t.Parallel()

	// a correctly signed but unparseable body must get past the signature
	// check and fail on parsing, which pins that the handler hands the raw
	// bytes and the X-SIGNATURE header through untouched
	app := newWebhookApp(t, "secret")

	raw := []byte(`{"refund_id": not json`)
	req := httptest.NewRequest("POST", "/webhook/dana/refund", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-SIGNATURE", signature.SignHMAC(string(raw), "secret"))

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	var ack models.RefundAck
	require.NoError(t, json.Unmarshal(body, &ack))
	require.False(t, ack.Success)
	require.Equal(t, "unparseable payload", ack.Message)
}

func TestStripeWebhook_BadSignatureGets400(t *testing.T) {
	t.Parallel()

	app := newWebhookApp(t, "secret")

	req := httptest.NewRequest("POST", "/webhook", bytes.NewReader([]byte(`{"type":"checkout.session.completed"}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", "t=1,v1=bogus")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 400, resp.StatusCode)
}
