package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/PrinceDelali/kraloan-gobackend/internal/middleware"
	"github.com/PrinceDelali/kraloan-gobackend/internal/services"
)

type GroupHandler struct {
	service *services.GroupService
}

func NewGroupHandler(service *services.GroupService) *GroupHandler {
	return &GroupHandler{service: service}
}

func (h *GroupHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name                string  `json:"name"`
		Description         string  `json:"description"`
		TargetAmount        float64 `json:"target_amount"`
		MonthlyContribution float64 `json:"monthly_contribution"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	group, err := h.service.CreateGroup(r.Context(), middleware.UserID(r.Context()),
		req.Name, req.Description, req.TargetAmount, req.MonthlyContribution)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, group)
}

func (h *GroupHandler) GetGroup(w http.ResponseWriter, r *http.Request) {
	group, err := h.service.GetGroup(r.Context(), middleware.UserID(r.Context()), mux.Vars(r)["groupID"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, group)
}

func (h *GroupHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.ListGroups(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, groups)
}

func (h *GroupHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name                  string  `json:"name"`
		Description           string  `json:"description"`
		TargetAmount          float64 `json:"target_amount"`
		MonthlyContribution   float64 `json:"monthly_contribution"`
		RegenerateInviteToken bool    `json:"regenerate_invite_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	group, err := h.service.UpdateSettings(r.Context(), middleware.UserID(r.Context()),
		mux.Vars(r)["groupID"], services.GroupSettings{
			Name:                  req.Name,
			Description:           req.Description,
			TargetAmount:          req.TargetAmount,
			MonthlyContribution:   req.MonthlyContribution,
			RegenerateInviteToken: req.RegenerateInviteToken,
		})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, group)
}

func (h *GroupHandler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteGroup(r.Context(), middleware.UserID(r.Context()), mux.Vars(r)["groupID"]); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "group deleted"})
}

func (h *GroupHandler) JoinByInvite(w http.ResponseWriter, r *http.Request) {
	group, err := h.service.JoinByInvite(r.Context(), middleware.UserID(r.Context()), mux.Vars(r)["token"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, group)
}

func (h *GroupHandler) RequestToJoin(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RequestToJoin(r.Context(), middleware.UserID(r.Context()), mux.Vars(r)["groupID"]); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"message": "join request submitted"})
}

func (h *GroupHandler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	group, err := h.service.ApproveRequest(r.Context(), middleware.UserID(r.Context()), vars["groupID"], vars["userID"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, group)
}

func (h *GroupHandler) DeclineRequest(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.service.DeclineRequest(r.Context(), middleware.UserID(r.Context()), vars["groupID"], vars["userID"]); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "join request declined"})
}

func (h *GroupHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	group, err := h.service.RemoveMember(r.Context(), middleware.UserID(r.Context()), vars["groupID"], vars["userID"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, group)
}

func (h *GroupHandler) LeaveGroup(w http.ResponseWriter, r *http.Request) {
	if err := h.service.LeaveGroup(r.Context(), middleware.UserID(r.Context()), mux.Vars(r)["groupID"]); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "left group"})
}

func (h *GroupHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	txns, err := h.service.ListGroupTransactions(r.Context(), middleware.UserID(r.Context()), mux.Vars(r)["groupID"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, txns)
}
