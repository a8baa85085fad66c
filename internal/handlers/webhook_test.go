package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PrinceDelali/kraloan-gobackend/internal/apperr"
	"github.com/PrinceDelali/kraloan-gobackend/internal/models"
	"github.com/PrinceDelali/kraloan-gobackend/internal/notify"
	"github.com/PrinceDelali/kraloan-gobackend/internal/paystack"
	"github.com/PrinceDelali/kraloan-gobackend/internal/services"
	"github.com/PrinceDelali/kraloan-gobackend/internal/storage/memory"
)

type stubGateway struct {
	charges map[string]*paystack.ChargeVerification
}

func (g *stubGateway) VerifyCharge(ctx context.Context, reference string) (*paystack.ChargeVerification, error) {
	if v, ok := g.charges[reference]; ok {
		return v, nil
	}
	return nil, apperr.New(apperr.ExternalService, "paystack error: status 404")
}

func (g *stubGateway) EnsureRecipient(ctx context.Context, name, phone, provider string) (string, error) {
	return "RCP_test", nil
}

func (g *stubGateway) InitiateTransfer(ctx context.Context, recipientCode string, amount float64, reference, reason string) (string, error) {
	return "TRF_test", nil
}

func (g *stubGateway) VerifyTransfer(ctx context.Context, reference string) (*paystack.TransferVerification, error) {
	return &paystack.TransferVerification{Reference: reference, Status: "pending"}, nil
}

func sign(secret, body []byte) string {
	mac := hmac.New(sha512.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func newWebhookFixture(t *testing.T) (*WebhookHandler, *memory.Store, string) {
	t.Helper()
	secret := []byte("whsec_test")
	store := memory.New()
	gateway := &stubGateway{charges: map[string]*paystack.ChargeVerification{
		"ref-1": {Reference: "ref-1", Status: "success", Amount: 100, Channel: "mobile_money"},
	}}
	notifier := notify.LogNotifier{}

	users := services.NewUserService(store)
	groups := services.NewGroupService(store, notifier)
	contributions := services.NewContributionService(store, gateway, notifier)

	ctx := context.Background()
	userID, err := users.Register(ctx, "Ama", "ama@example.com", "024", "secret123")
	require.NoError(t, err)
	group, err := groups.CreateGroup(ctx, userID, "Susu Circle", "", 1000, 100)
	require.NoError(t, err)

	// A pending contribution waiting for its webhook.
	failing := &stubGateway{charges: map[string]*paystack.ChargeVerification{}}
	pendingOnly := services.NewContributionService(store, failing, notifier)
	_, err = pendingOnly.Contribute(ctx, userID, group.ID.Hex(), 100, "ref-1", "")
	require.Error(t, err)

	return NewWebhookHandler(contributions, secret), store, group.ID.Hex()
}

func postWebhook(h *WebhookHandler, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/payment/webhook", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("x-paystack-signature", signature)
	}
	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	return rec
}

func TestWebhookConfirmsPendingContribution(t *testing.T) {
	h, store, groupID := newWebhookFixture(t)
	body := []byte(`{"event":"charge.success","data":{"reference":"ref-1"}}`)

	rec := postWebhook(h, body, sign([]byte("whsec_test"), body))
	assert.Equal(t, http.StatusOK, rec.Code)

	group, err := store.GetGroup(context.Background(), groupID)
	require.NoError(t, err)
	require.Len(t, group.Contributions, 1)
	assert.Equal(t, models.ContributionCompleted, group.Contributions[0].Status)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	h, store, groupID := newWebhookFixture(t)
	body := []byte(`{"event":"charge.success","data":{"reference":"ref-1"}}`)

	rec := postWebhook(h, body, sign([]byte("wrong-secret"), body))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postWebhook(h, body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	group, err := store.GetGroup(context.Background(), groupID)
	require.NoError(t, err)
	assert.Equal(t, models.ContributionPending, group.Contributions[0].Status)
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	h, store, groupID := newWebhookFixture(t)
	body := []byte(`{"event":"transfer.success","data":{"reference":"ref-1"}}`)

	rec := postWebhook(h, body, sign([]byte("whsec_test"), body))
	assert.Equal(t, http.StatusOK, rec.Code)

	group, err := store.GetGroup(context.Background(), groupID)
	require.NoError(t, err)
	assert.Equal(t, models.ContributionPending, group.Contributions[0].Status)
}

func TestWebhookUnknownReferenceAcknowledged(t *testing.T) {
	h, _, _ := newWebhookFixture(t)
	body := []byte(`{"event":"charge.success","data":{"reference":"no-such-ref"}}`)

	// Acknowledged so the gateway does not retry a reference we never issued.
	rec := postWebhook(h, body, sign([]byte("whsec_test"), body))
	assert.Equal(t, http.StatusOK, rec.Code)
}
