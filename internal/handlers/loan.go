package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/PrinceDelali/kraloan-gobackend/internal/middleware"
	"github.com/PrinceDelali/kraloan-gobackend/internal/services"
)

type LoanHandler struct {
	service *services.LoanService
}

func NewLoanHandler(service *services.LoanService) *LoanHandler {
	return &LoanHandler{service: service}
}

func (h *LoanHandler) RequestLoan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount         float64 `json:"amount"`
		Reason         string  `json:"reason"`
		DurationMonths int     `json:"duration_months"`
		RepaymentPlan  string  `json:"repayment_plan"`
		Collateral     string  `json:"collateral"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	loan, err := h.service.RequestLoan(r.Context(), middleware.UserID(r.Context()),
		mux.Vars(r)["groupID"], req.Amount, services.LoanTerms{
			Reason:         req.Reason,
			DurationMonths: req.DurationMonths,
			RepaymentPlan:  req.RepaymentPlan,
			Collateral:     req.Collateral,
		})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, loan)
}

func (h *LoanHandler) ApproveLoan(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	loan, err := h.service.ApproveLoan(r.Context(), middleware.UserID(r.Context()), vars["groupID"], vars["loanID"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, loan)
}

func (h *LoanHandler) DeclineLoan(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	loan, err := h.service.DeclineLoan(r.Context(), middleware.UserID(r.Context()), vars["groupID"], vars["loanID"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, loan)
}

func (h *LoanHandler) RepayLoan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	vars := mux.Vars(r)
	loan, err := h.service.RepayLoan(r.Context(), middleware.UserID(r.Context()),
		vars["groupID"], vars["loanID"], req.Amount)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, loan)
}

func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.service.ListLoans(r.Context(), middleware.UserID(r.Context()), mux.Vars(r)["groupID"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, loans)
}
