// Package paystack is a thin client for the Paystack endpoints the ledger
// depends on: transaction verification, transfer recipients, transfers and
// transfer verification. Amounts cross the wire in minor units (pesewas);
// everything exposed from this package is in major units.
package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/PrinceDelali/kraloan-gobackend/internal/apperr"
)

// ChargeVerification is the outcome of verifying a charge reference.
type ChargeVerification struct {
	Reference string
	Status    string // "success" or the provider's failure status
	Amount    float64
	Channel   string
}

// TransferVerification is the outcome of polling a transfer reference.
type TransferVerification struct {
	Reference     string
	Status        string // "success", "failed", "pending", ...
	FailureReason string
}

// Success reports whether the provider confirmed the charge.
func (v *ChargeVerification) Success() bool { return v.Status == "success" }

// Mobile-money bank codes per provider.
var providerBankCodes = map[string]string{
	"MTN":        "MTN",
	"Vodafone":   "VOD",
	"AirtelTigo": "ATL",
}

type Client struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

// New builds a client. baseURL defaults to the public API when empty.
func New(secretKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://api.paystack.co"
	}
	return &Client{
		secretKey:  secretKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// VerifyCharge asks Paystack for the status of a charge reference.
func (c *Client) VerifyCharge(ctx context.Context, reference string) (*ChargeVerification, error) {
	var payload struct {
		Data struct {
			Status  string  `json:"status"`
			Amount  float64 `json:"amount"`
			Channel string  `json:"channel"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/transaction/verify/"+reference, nil, &payload); err != nil {
		return nil, err
	}
	return &ChargeVerification{
		Reference: reference,
		Status:    payload.Data.Status,
		Amount:    payload.Data.Amount / 100,
		Channel:   payload.Data.Channel,
	}, nil
}

// EnsureRecipient creates a mobile-money transfer recipient and returns its
// code. Callers cache the code per (provider, phone); Paystack itself
// deduplicates identical recipients.
func (c *Client) EnsureRecipient(ctx context.Context, name, phone, provider string) (string, error) {
	bankCode, ok := providerBankCodes[provider]
	if !ok {
		return "", apperr.New(apperr.InvalidInput, "unrecognized provider %q", provider)
	}

	body := map[string]any{
		"type":           "mobile_money",
		"name":           name,
		"account_number": phone,
		"bank_code":      bankCode,
		"currency":       "GHS",
	}
	var payload struct {
		Data struct {
			RecipientCode string `json:"recipient_code"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/transferrecipient", body, &payload); err != nil {
		return "", err
	}
	if payload.Data.RecipientCode == "" {
		return "", apperr.New(apperr.ExternalService, "paystack returned no recipient code")
	}
	return payload.Data.RecipientCode, nil
}

// InitiateTransfer starts a transfer to a recipient and returns the transfer
// reference used for later verification.
func (c *Client) InitiateTransfer(ctx context.Context, recipientCode string, amount float64, reference, reason string) (string, error) {
	body := map[string]any{
		"source":    "balance",
		"amount":    int64(math.Round(amount * 100)),
		"recipient": recipientCode,
		"reference": reference,
		"reason":    reason,
	}
	var payload struct {
		Data struct {
			Reference string `json:"reference"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/transfer", body, &payload); err != nil {
		return "", err
	}
	if payload.Data.Reference == "" {
		return "", apperr.New(apperr.ExternalService, "paystack returned no transfer reference")
	}
	return payload.Data.Reference, nil
}

// VerifyTransfer polls the status of a transfer reference.
func (c *Client) VerifyTransfer(ctx context.Context, reference string) (*TransferVerification, error) {
	var payload struct {
		Data struct {
			Status        string `json:"status"`
			FailureReason string `json:"failure_reason"`
			Message       string `json:"message"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/transfer/verify/"+reference, nil, &payload); err != nil {
		return nil, err
	}
	reason := payload.Data.FailureReason
	if reason == "" {
		reason = payload.Data.Message
	}
	return &TransferVerification{
		Reference:     reference,
		Status:        payload.Data.Status,
		FailureReason: reason,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Distinguishes an unreachable or timed-out gateway from an
		// explicit rejection; the cause stays in the chain.
		return apperr.Wrap(apperr.ExternalService, err, "paystack unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return apperr.New(apperr.ExternalService, "paystack error: status %d: %s", resp.StatusCode, string(raw))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
