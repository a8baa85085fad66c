package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/PrinceDelali/kraloan-gobackend/internal/middleware"
	"github.com/PrinceDelali/kraloan-gobackend/internal/services"
)

type PayoutHandler struct {
	service *services.PayoutService
}

func NewPayoutHandler(service *services.PayoutService) *PayoutHandler {
	return &PayoutHandler{service: service}
}

func (h *PayoutHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RecipientID string  `json:"recipient_id"`
		Amount      float64 `json:"amount"`
		Phone       string  `json:"phone"`
		Provider    string  `json:"provider"`
		Reason      string  `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	payout, err := h.service.Initiate(r.Context(), middleware.UserID(r.Context()),
		mux.Vars(r)["groupID"], req.RecipientID, req.Amount, req.Phone, req.Provider, req.Reason)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, payout)
}

func (h *PayoutHandler) Verify(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	payout, err := h.service.Verify(r.Context(), middleware.UserID(r.Context()), vars["groupID"], vars["payoutID"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, payout)
}
