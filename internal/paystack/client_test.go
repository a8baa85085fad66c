package paystack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PrinceDelali/kraloan-gobackend/internal/apperr"
)

func TestVerifyChargeConvertsMinorUnits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/verify/ref-1", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"status": "success", "amount": 10050, "channel": "mobile_money"},
		})
	}))
	defer srv.Close()

	client := New("sk_test", srv.URL)
	v, err := client.VerifyCharge(context.Background(), "ref-1")
	require.NoError(t, err)
	assert.True(t, v.Success())
	assert.Equal(t, 100.50, v.Amount)
	assert.Equal(t, "mobile_money", v.Channel)
}

func TestVerifyChargeFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"status": "abandoned", "amount": 0},
		})
	}))
	defer srv.Close()

	client := New("sk_test", srv.URL)
	v, err := client.VerifyCharge(context.Background(), "ref-1")
	require.NoError(t, err)
	assert.False(t, v.Success())
	assert.Equal(t, "abandoned", v.Status)
}

func TestEnsureRecipient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transferrecipient", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "mobile_money", body["type"])
		assert.Equal(t, "VOD", body["bank_code"])
		assert.Equal(t, "GHS", body["currency"])
		assert.Equal(t, "0201234567", body["account_number"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"recipient_code": "RCP_abc"},
		})
	}))
	defer srv.Close()

	client := New("sk_test", srv.URL)
	code, err := client.EnsureRecipient(context.Background(), "Ama Mensah", "0201234567", "Vodafone")
	require.NoError(t, err)
	assert.Equal(t, "RCP_abc", code)
}

func TestEnsureRecipientUnknownProvider(t *testing.T) {
	client := New("sk_test", "http://unused")
	_, err := client.EnsureRecipient(context.Background(), "Ama", "024", "M-Pesa")
	require.Error(t, err)
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))
}

func TestInitiateTransferSendsMinorUnits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(5000), body["amount"])
		assert.Equal(t, "RCP_abc", body["recipient"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"reference": "TRF_xyz"},
		})
	}))
	defer srv.Close()

	client := New("sk_test", srv.URL)
	ref, err := client.InitiateTransfer(context.Background(), "RCP_abc", 50, "PAY-1", "monthly payout")
	require.NoError(t, err)
	assert.Equal(t, "TRF_xyz", ref)
}

func TestVerifyTransferFailureReasonFallsBackToMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"status": "failed", "message": "insufficient balance"},
		})
	}))
	defer srv.Close()

	client := New("sk_test", srv.URL)
	v, err := client.VerifyTransfer(context.Background(), "TRF_xyz")
	require.NoError(t, err)
	assert.Equal(t, "failed", v.Status)
	assert.Equal(t, "insufficient balance", v.FailureReason)
}

func TestErrorStatusMapsToExternalService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":false,"message":"Transaction reference not found"}`))
	}))
	defer srv.Close()

	client := New("sk_test", srv.URL)
	_, err := client.VerifyCharge(context.Background(), "no-such-ref")
	require.Error(t, err)
	assert.Equal(t, apperr.ExternalService, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "status 400")
}

func TestUnreachableGatewayMapsToExternalService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	client := New("sk_test", srv.URL)
	_, err := client.VerifyCharge(context.Background(), "ref-1")
	require.Error(t, err)
	assert.Equal(t, apperr.ExternalService, apperr.KindOf(err))
}
