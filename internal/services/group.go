package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/PrinceDelali/kraloan-gobackend/internal/apperr"
	"github.com/PrinceDelali/kraloan-gobackend/internal/models"
	"github.com/PrinceDelali/kraloan-gobackend/internal/notify"
	"github.com/PrinceDelali/kraloan-gobackend/internal/storage"
)

// Role classifies an acting user against a group.
type Role int

const (
	RoleStranger Role = iota
	RolePendingRequester
	RoleMember
	RoleAdmin
)

// Classify returns the strongest role userID holds in the group.
func Classify(g *models.Group, userID string) Role {
	switch {
	case g.IsAdmin(userID):
		return RoleAdmin
	case g.IsMember(userID):
		return RoleMember
	case g.HasPendingRequest(userID):
		return RolePendingRequester
	default:
		return RoleStranger
	}
}

// GroupService owns group lifecycle and membership.
type GroupService struct {
	store    storage.Store
	notifier notify.Notifier
}

func NewGroupService(store storage.Store, notifier notify.Notifier) *GroupService {
	return &GroupService{store: store, notifier: notifier}
}

// GroupSettings carries the admin-editable fields of a group.
type GroupSettings struct {
	Name                  string
	Description           string
	TargetAmount          float64
	MonthlyContribution   float64
	RegenerateInviteToken bool
}

// CreateGroup starts a new savings circle with the creator as its sole admin
// and member.
func (s *GroupService) CreateGroup(ctx context.Context, creatorID, name, description string, targetAmount, monthlyContribution float64) (*models.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.New(apperr.InvalidInput, "group name is required")
	}
	if targetAmount < 0 || monthlyContribution < 0 {
		return nil, apperr.New(apperr.InvalidInput, "amounts cannot be negative")
	}

	group := &models.Group{
		Name:                name,
		Description:         description,
		TargetAmount:        targetAmount,
		MonthlyContribution: monthlyContribution,
		Members:             []string{creatorID},
		Admins:              []string{creatorID},
		PendingRequests:     []string{},
		InviteToken:         uuid.NewString(),
		Contributions:       []models.Contribution{},
		Loans:               []models.Loan{},
		Payouts:             []models.Payout{},
	}
	if err := s.store.CreateGroup(ctx, group); err != nil {
		slog.Error("create group failed", "error", err)
		return nil, err
	}
	slog.Info("group created", "group_id", group.ID.Hex(), "creator", creatorID)
	return group, nil
}

// GetGroup returns the group if the caller belongs to it.
func (s *GroupService) GetGroup(ctx context.Context, actorID, groupID string) (*models.Group, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if Classify(group, actorID) < RoleMember {
		return nil, apperr.New(apperr.Forbidden, "not a member of this group")
	}
	return group, nil
}

// ListGroups returns the groups the caller is a member of.
func (s *GroupService) ListGroups(ctx context.Context, actorID string) ([]models.Group, error) {
	return s.store.ListGroupsByMember(ctx, actorID)
}

// JoinByInvite adds the caller to the group behind the invite token. Joining
// a group you already belong to is a no-op, not an error.
func (s *GroupService) JoinByInvite(ctx context.Context, actorID, token string) (*models.Group, error) {
	found, err := s.store.GetGroupByInviteToken(ctx, token)
	if err != nil {
		return nil, err
	}

	joined := false
	group, err := mutateGroup(ctx, s.store, found.ID.Hex(), func(g *models.Group) error {
		joined = !g.IsMember(actorID)
		g.AddMember(actorID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if joined {
		s.notifier.Broadcast(group.ID.Hex(), notify.EventMemberJoined, map[string]any{"user_id": actorID})
		slog.Info("member joined by invite", "group_id", group.ID.Hex(), "user_id", actorID)
	}
	return group, nil
}

// RequestToJoin files a join request for admin approval. Strangers only.
func (s *GroupService) RequestToJoin(ctx context.Context, actorID, groupID string) error {
	group, err := mutateGroup(ctx, s.store, groupID, func(g *models.Group) error {
		switch Classify(g, actorID) {
		case RoleMember, RoleAdmin:
			return apperr.New(apperr.Conflict, "already a member")
		case RolePendingRequester:
			return apperr.New(apperr.Conflict, "join request already pending")
		}
		g.PendingRequests = append(g.PendingRequests, actorID)
		return nil
	})
	if err != nil {
		return err
	}
	s.notifier.Broadcast(group.ID.Hex(), notify.EventJoinRequested, map[string]any{"user_id": actorID})
	return nil
}

// ApproveRequest promotes a pending requester to member. Admin only.
func (s *GroupService) ApproveRequest(ctx context.Context, actorID, groupID, userID string) (*models.Group, error) {
	group, err := mutateGroup(ctx, s.store, groupID, func(g *models.Group) error {
		if !g.IsAdmin(actorID) {
			return apperr.New(apperr.Forbidden, "admin role required")
		}
		if !g.HasPendingRequest(userID) {
			return apperr.New(apperr.NotFound, "no pending request for user")
		}
		g.AddMember(userID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifier.Broadcast(groupID, notify.EventMemberJoined, map[string]any{"user_id": userID})
	slog.Info("join request approved", "group_id", groupID, "user_id", userID, "admin", actorID)
	return group, nil
}

// DeclineRequest drops a pending join request. Admin only.
func (s *GroupService) DeclineRequest(ctx context.Context, actorID, groupID, userID string) error {
	_, err := mutateGroup(ctx, s.store, groupID, func(g *models.Group) error {
		if !g.IsAdmin(actorID) {
			return apperr.New(apperr.Forbidden, "admin role required")
		}
		if !g.HasPendingRequest(userID) {
			return apperr.New(apperr.NotFound, "no pending request for user")
		}
		g.DropPendingRequest(userID)
		return nil
	})
	return err
}

// RemoveMember takes a member off the roster. Admin only. Nothing stops an
// admin removing themself, even as the last admin; that gap is inherited and
// documented rather than papered over.
func (s *GroupService) RemoveMember(ctx context.Context, actorID, groupID, userID string) (*models.Group, error) {
	return mutateGroup(ctx, s.store, groupID, func(g *models.Group) error {
		if !g.IsAdmin(actorID) {
			return apperr.New(apperr.Forbidden, "admin role required")
		}
		if !g.IsMember(userID) {
			return apperr.New(apperr.NotFound, "user is not a member")
		}
		g.DropMember(userID)
		return nil
	})
}

// LeaveGroup removes the caller from the roster. Self-service, no admin gate.
func (s *GroupService) LeaveGroup(ctx context.Context, actorID, groupID string) error {
	_, err := mutateGroup(ctx, s.store, groupID, func(g *models.Group) error {
		if !g.IsMember(actorID) {
			return apperr.New(apperr.NotFound, "not a member of this group")
		}
		g.DropMember(actorID)
		return nil
	})
	return err
}

// UpdateSettings edits group metadata and optionally rotates the invite
// token. Admin only.
func (s *GroupService) UpdateSettings(ctx context.Context, actorID, groupID string, settings GroupSettings) (*models.Group, error) {
	return mutateGroup(ctx, s.store, groupID, func(g *models.Group) error {
		if !g.IsAdmin(actorID) {
			return apperr.New(apperr.Forbidden, "admin role required")
		}
		if name := strings.TrimSpace(settings.Name); name != "" {
			g.Name = name
		}
		if settings.Description != "" {
			g.Description = settings.Description
		}
		if settings.TargetAmount > 0 {
			g.TargetAmount = settings.TargetAmount
		}
		if settings.MonthlyContribution > 0 {
			g.MonthlyContribution = settings.MonthlyContribution
		}
		if settings.RegenerateInviteToken {
			g.InviteToken = uuid.NewString()
		}
		return nil
	})
}

// DeleteGroup removes the group outright. Admin only.
func (s *GroupService) DeleteGroup(ctx context.Context, actorID, groupID string) error {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if !group.IsAdmin(actorID) {
		return apperr.New(apperr.Forbidden, "admin role required")
	}
	if err := s.store.DeleteGroup(ctx, groupID); err != nil {
		return err
	}
	slog.Info("group deleted", "group_id", groupID, "admin", actorID)
	return nil
}

// ListGroupTransactions returns the mirror rows for a group. Member gated.
func (s *GroupService) ListGroupTransactions(ctx context.Context, actorID, groupID string) ([]models.Transaction, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if Classify(group, actorID) < RoleMember {
		return nil, apperr.New(apperr.Forbidden, "not a member of this group")
	}
	return s.store.ListTransactionsByGroup(ctx, groupID)
}

// ListUserTransactions returns the caller's own mirror rows.
func (s *GroupService) ListUserTransactions(ctx context.Context, actorID string) ([]models.Transaction, error) {
	return s.store.ListTransactionsByUser(ctx, actorID)
}
