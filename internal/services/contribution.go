package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/PrinceDelali/kraloan-gobackend/internal/apperr"
	"github.com/PrinceDelali/kraloan-gobackend/internal/models"
	"github.com/PrinceDelali/kraloan-gobackend/internal/notify"
	"github.com/PrinceDelali/kraloan-gobackend/internal/storage"
)

// ContributionService records verified inflows into a group's pool.
type ContributionService struct {
	store    storage.Store
	gateway  PaymentGateway
	notifier notify.Notifier
}

func NewContributionService(store storage.Store, gateway PaymentGateway, notifier notify.Notifier) *ContributionService {
	return &ContributionService{store: store, gateway: gateway, notifier: notifier}
}

// SyncResult summarizes a batch reconciliation: which references were
// confirmed and which failed, per item.
type SyncResult struct {
	Confirmed []string      `json:"confirmed"`
	Failed    []SyncFailure `json:"failed"`
}

type SyncFailure struct {
	Reference string `json:"reference"`
	Error     string `json:"error"`
}

// Contribute records a member's payment and verifies it with the gateway in
// the same call. The contribution is appended pending first, so a failed or
// mismatched verification leaves it behind for the sync/webhook paths to
// reconcile later.
func (s *ContributionService) Contribute(ctx context.Context, actorID, groupID string, amount float64, reference, method string) (*models.Contribution, error) {
	if amount <= 0 {
		return nil, apperr.New(apperr.InvalidInput, "amount must be positive")
	}
	if reference == "" {
		return nil, apperr.New(apperr.InvalidInput, "payment reference is required")
	}

	_, err := mutateGroup(ctx, s.store, groupID, func(g *models.Group) error {
		if Classify(g, actorID) < RoleMember {
			return apperr.New(apperr.Forbidden, "not a member of this group")
		}
		if g.FindContributionByReference(reference) != nil {
			return apperr.New(apperr.Conflict, "reference %q already recorded", reference)
		}
		g.Contributions = append(g.Contributions, models.Contribution{
			ID:        newObjectID(),
			UserID:    actorID,
			Amount:    amount,
			Reference: reference,
			Status:    models.ContributionPending,
			Method:    method,
			CreatedAt: time.Now(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.confirm(ctx, reference, &amount)
}

// ConfirmByReference is the webhook-facing confirm path: it locates whichever
// group owns the reference and promotes the contribution. Duplicate
// deliveries are no-ops.
func (s *ContributionService) ConfirmByReference(ctx context.Context, reference string) error {
	_, err := s.confirm(ctx, reference, nil)
	return err
}

// Sync re-verifies every pending contribution in the group, promoting those
// the gateway now reports successful. Per-item failures are accumulated, not
// fatal to the batch.
func (s *ContributionService) Sync(ctx context.Context, actorID, groupID string) (*SyncResult, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if Classify(group, actorID) < RoleMember {
		return nil, apperr.New(apperr.Forbidden, "not a member of this group")
	}

	result := &SyncResult{Confirmed: []string{}, Failed: []SyncFailure{}}
	for _, c := range group.Contributions {
		if c.Status != models.ContributionPending || c.Reference == "" {
			continue
		}
		if _, err := s.confirm(ctx, c.Reference, nil); err != nil {
			result.Failed = append(result.Failed, SyncFailure{Reference: c.Reference, Error: err.Error()})
			continue
		}
		result.Confirmed = append(result.Confirmed, c.Reference)
	}
	slog.Info("contribution sync finished", "group_id", groupID,
		"confirmed", len(result.Confirmed), "failed", len(result.Failed))
	return result, nil
}

// confirm is the single idempotent "confirm contribution by external
// reference" transition behind all three triggers (direct contribute, batch
// sync, webhook). When expect is non-nil the provider-confirmed amount must
// equal it exactly. The amount stored is always the provider's figure.
func (s *ContributionService) confirm(ctx context.Context, reference string, expect *float64) (*models.Contribution, error) {
	group, err := s.store.FindGroupByContributionReference(ctx, reference)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil, apperr.New(apperr.NotFound, "no contribution with reference %q", reference)
		}
		return nil, err
	}

	// Already completed: make sure the mirror row exists, then succeed
	// without another gateway round trip.
	if c := group.FindContributionByReference(reference); c != nil && c.Status == models.ContributionCompleted {
		if err := s.mirror(ctx, group.ID.Hex(), c); err != nil {
			return nil, err
		}
		return c, nil
	}

	verification, err := s.gateway.VerifyCharge(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !verification.Success() {
		return nil, apperr.New(apperr.ExternalService,
			"payment verification failed: provider status %q for reference %q", verification.Status, reference)
	}
	if expect != nil && verification.Amount != *expect {
		return nil, apperr.New(apperr.ExternalService,
			"payment verification failed: provider amount %.2f does not match requested %.2f",
			verification.Amount, *expect)
	}

	var confirmed models.Contribution
	updated, err := mutateGroup(ctx, s.store, group.ID.Hex(), func(g *models.Group) error {
		c := g.FindContributionByReference(reference)
		if c == nil {
			return apperr.New(apperr.NotFound, "no contribution with reference %q", reference)
		}
		if c.Status != models.ContributionCompleted {
			now := time.Now()
			c.Status = models.ContributionCompleted
			c.Amount = verification.Amount
			c.VerifiedAt = &now
			if c.Method == "" {
				c.Method = verification.Channel
			}
		}
		confirmed = *c
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.mirror(ctx, updated.ID.Hex(), &confirmed); err != nil {
		return nil, err
	}

	total := updated.TotalSavings()
	s.notifier.Broadcast(updated.ID.Hex(), notify.EventContributionConfirmed, map[string]any{
		"user_id":       confirmed.UserID,
		"amount":        confirmed.Amount,
		"total_savings": total,
	})
	slog.Info("contribution confirmed", "group_id", updated.ID.Hex(),
		"reference", reference, "amount", confirmed.Amount, "total_savings", total)
	return &confirmed, nil
}

// mirror writes the derived transaction row; the unique reference makes this
// safe to call any number of times.
func (s *ContributionService) mirror(ctx context.Context, groupID string, c *models.Contribution) error {
	_, err := s.store.InsertTransaction(ctx, &models.Transaction{
		Reference: c.Reference,
		GroupID:   groupID,
		UserID:    c.UserID,
		Kind:      models.TransactionContribution,
		Amount:    c.Amount,
		Status:    c.Status,
	})
	return err
}
