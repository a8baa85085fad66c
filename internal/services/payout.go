package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/PrinceDelali/kraloan-gobackend/internal/apperr"
	"github.com/PrinceDelali/kraloan-gobackend/internal/models"
	"github.com/PrinceDelali/kraloan-gobackend/internal/notify"
	"github.com/PrinceDelali/kraloan-gobackend/internal/storage"
)

// PayoutService disburses pooled funds to members through the mobile-money
// gateway and reconciles transfer status by explicit polling.
type PayoutService struct {
	store    storage.Store
	gateway  PaymentGateway
	notifier notify.Notifier
}

func NewPayoutService(store storage.Store, gateway PaymentGateway, notifier notify.Notifier) *PayoutService {
	return &PayoutService{store: store, gateway: gateway, notifier: notifier}
}

// Initiate starts a disbursement. All local checks (admin acting, recipient
// on the roster, provider known, funds available) run before any gateway
// call, and a gateway failure aborts with no local mutation. On success the
// payout is recorded processing; status only advances via Verify.
func (s *PayoutService) Initiate(ctx context.Context, actorID, groupID, recipientID string, amount float64, phone, provider, reason string) (*models.Payout, error) {
	if amount <= 0 {
		return nil, apperr.New(apperr.InvalidInput, "amount must be positive")
	}
	if phone == "" {
		return nil, apperr.New(apperr.InvalidInput, "phone number is required")
	}
	if !models.PayoutProviders[provider] {
		return nil, apperr.New(apperr.InvalidInput, "unrecognized provider %q", provider)
	}

	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.IsAdmin(actorID) {
		return nil, apperr.New(apperr.Forbidden, "admin role required")
	}
	if !group.IsMember(recipientID) {
		return nil, apperr.New(apperr.NotFound, "recipient is not a member of this group")
	}
	if available := group.AvailableForPayout(); amount > available {
		return nil, apperr.New(apperr.InsufficientFunds,
			"payout of %.2f exceeds available funds %.2f", amount, available)
	}

	recipient, err := s.store.GetUser(ctx, recipientID)
	if err != nil {
		return nil, err
	}

	code, err := s.recipientCode(ctx, recipient, phone, provider)
	if err != nil {
		return nil, err
	}

	reference := "PAY-" + uuid.NewString()
	transferRef, err := s.gateway.InitiateTransfer(ctx, code, amount, reference, reason)
	if err != nil {
		slog.Error("transfer initiation failed", "group_id", groupID, "recipient", recipientID, "error", err)
		return nil, err
	}

	var created models.Payout
	updated, err := mutateGroup(ctx, s.store, groupID, func(g *models.Group) error {
		now := time.Now()
		created = models.Payout{
			ID:          newObjectID(),
			UserID:      recipientID,
			Amount:      amount,
			Phone:       phone,
			Provider:    provider,
			Status:      models.PayoutProcessing,
			Reference:   transferRef,
			InitiatedBy: actorID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		g.Payouts = append(g.Payouts, created)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.store.InsertTransaction(ctx, &models.Transaction{
		Reference: transferRef,
		GroupID:   updated.ID.Hex(),
		UserID:    recipientID,
		Kind:      models.TransactionPayout,
		Amount:    amount,
		Status:    models.PayoutProcessing,
	}); err != nil {
		return nil, err
	}

	s.notifier.Broadcast(groupID, notify.EventPayoutInitiated, map[string]any{
		"user_id": recipientID, "amount": amount, "provider": provider,
	})
	slog.Info("payout initiated", "group_id", groupID, "recipient", recipientID,
		"amount", amount, "reference", transferRef, "admin", actorID)
	return &created, nil
}

// Verify polls the gateway for the payout's transfer status and applies the
// result: success completes it, failed fails it with the provider's reason,
// anything else leaves it processing. Pull-based by design; there is no
// webhook or retry path for payouts.
func (s *PayoutService) Verify(ctx context.Context, actorID, groupID, payoutID string) (*models.Payout, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.IsAdmin(actorID) {
		return nil, apperr.New(apperr.Forbidden, "admin role required")
	}
	payout := group.FindPayout(payoutID)
	if payout == nil {
		return nil, apperr.New(apperr.NotFound, "payout not found")
	}
	if payout.Status != models.PayoutProcessing {
		return payout, nil
	}

	verification, err := s.gateway.VerifyTransfer(ctx, payout.Reference)
	if err != nil {
		return nil, err
	}

	var status, reason string
	switch verification.Status {
	case "success":
		status = models.PayoutCompleted
	case "failed", "reversed":
		status = models.PayoutFailed
		reason = verification.FailureReason
	default:
		// Still pending on the provider side; nothing to record.
		return payout, nil
	}

	var resolved models.Payout
	_, err = mutateGroup(ctx, s.store, groupID, func(g *models.Group) error {
		p := g.FindPayout(payoutID)
		if p == nil {
			return apperr.New(apperr.NotFound, "payout not found")
		}
		if p.Status == models.PayoutProcessing {
			p.Status = status
			p.FailureReason = reason
			p.UpdatedAt = time.Now()
		}
		resolved = *p
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateTransactionStatus(ctx, resolved.Reference, resolved.Status); err != nil {
		return nil, err
	}

	s.notifier.Broadcast(groupID, notify.EventPayoutResolved, map[string]any{
		"payout_id": payoutID, "status": resolved.Status, "reason": resolved.FailureReason,
	})
	slog.Info("payout resolved", "group_id", groupID, "payout_id", payoutID, "status", resolved.Status)
	return &resolved, nil
}

// recipientCode returns the cached gateway recipient for (provider, phone) or
// creates one and caches it on the user.
func (s *PayoutService) recipientCode(ctx context.Context, user *models.User, phone, provider string) (string, error) {
	key := models.RecipientKey(provider, phone)
	if code, ok := user.RecipientCodes[key]; ok && code != "" {
		return code, nil
	}
	code, err := s.gateway.EnsureRecipient(ctx, user.FullName, phone, provider)
	if err != nil {
		return "", err
	}
	if err := s.store.SaveRecipientCode(ctx, user.ID.Hex(), key, code); err != nil {
		return "", err
	}
	return code, nil
}
