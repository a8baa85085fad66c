package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/PrinceDelali/kraloan-gobackend/internal/middleware"
	"github.com/PrinceDelali/kraloan-gobackend/internal/services"
)

type ContributionHandler struct {
	service *services.ContributionService
}

func NewContributionHandler(service *services.ContributionService) *ContributionHandler {
	return &ContributionHandler{service: service}
}

func (h *ContributionHandler) Contribute(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount    float64 `json:"amount"`
		Reference string  `json:"reference"`
		Method    string  `json:"method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	contribution, err := h.service.Contribute(r.Context(), middleware.UserID(r.Context()),
		mux.Vars(r)["groupID"], req.Amount, req.Reference, req.Method)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, contribution)
}

func (h *ContributionHandler) Sync(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Sync(r.Context(), middleware.UserID(r.Context()), mux.Vars(r)["groupID"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
