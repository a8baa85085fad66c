package handlers

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/PrinceDelali/kraloan-gobackend/internal/apperr"
	"github.com/PrinceDelali/kraloan-gobackend/internal/services"
)

// WebhookHandler receives Paystack charge events. It is the asynchronous
// trigger for the same idempotent confirm-by-reference transition the direct
// contribute and sync paths use, so duplicate deliveries are harmless.
type WebhookHandler struct {
	contributions *services.ContributionService
	secret        []byte
}

func NewWebhookHandler(contributions *services.ContributionService, secret []byte) *WebhookHandler {
	return &WebhookHandler{contributions: contributions, secret: secret}
}

func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, `{"error":"failed to read body"}`, http.StatusBadRequest)
		return
	}

	if !h.validSignature(r.Header.Get("x-paystack-signature"), body) {
		http.Error(w, `{"error":"invalid signature"}`, http.StatusUnauthorized)
		return
	}

	var payload struct {
		Event string `json:"event"`
		Data  struct {
			Reference string `json:"reference"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, `{"error":"invalid webhook payload"}`, http.StatusBadRequest)
		return
	}

	if payload.Event != "charge.success" {
		slog.Debug("ignoring webhook event", "event", payload.Event)
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.contributions.ConfirmByReference(r.Context(), payload.Data.Reference); err != nil {
		// A reference we never issued is not worth a retry from the
		// gateway; everything else is.
		if apperr.Is(err, apperr.NotFound) {
			slog.Warn("webhook for unknown reference", "reference", payload.Data.Reference)
			w.WriteHeader(http.StatusOK)
			return
		}
		respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *WebhookHandler) validSignature(signature string, body []byte) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, h.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
