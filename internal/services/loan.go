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

// LoanService runs the loan lifecycle: pending -> approved -> repaid, or
// pending -> declined.
type LoanService struct {
	store    storage.Store
	notifier notify.Notifier
}

func NewLoanService(store storage.Store, notifier notify.Notifier) *LoanService {
	return &LoanService{store: store, notifier: notifier}
}

// LoanTerms carries the descriptive fields of a loan request. RepaymentPlan
// and Collateral are stored as-is; no interest is computed from them.
type LoanTerms struct {
	Reason         string
	DurationMonths int
	RepaymentPlan  string
	Collateral     string
}

// RequestLoan appends a pending loan. A member may hold at most one pending
// loan per group, and the amount must fit in completed contributions minus
// every loan that ever reached approved (repayment does not restore the
// pool; see DESIGN.md).
func (s *LoanService) RequestLoan(ctx context.Context, actorID, groupID string, amount float64, terms LoanTerms) (*models.Loan, error) {
	if amount <= 0 {
		return nil, apperr.New(apperr.InvalidInput, "amount must be positive")
	}

	var created models.Loan
	group, err := mutateGroup(ctx, s.store, groupID, func(g *models.Group) error {
		if Classify(g, actorID) < RoleMember {
			return apperr.New(apperr.Forbidden, "not a member of this group")
		}
		for _, l := range g.Loans {
			if l.UserID == actorID && l.Status == models.LoanPending {
				return apperr.New(apperr.Conflict, "a pending loan already exists for this member")
			}
		}
		if available := g.AvailableForLoan(); amount > available {
			return apperr.New(apperr.InsufficientFunds,
				"loan of %.2f exceeds available funds %.2f", amount, available)
		}
		now := time.Now()
		created = models.Loan{
			ID:             newObjectID(),
			UserID:         actorID,
			Amount:         amount,
			Reason:         terms.Reason,
			Status:         models.LoanPending,
			DurationMonths: terms.DurationMonths,
			RepaymentPlan:  terms.RepaymentPlan,
			Collateral:     terms.Collateral,
			Repayments:     []models.Repayment{},
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		g.Loans = append(g.Loans, created)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Broadcast(group.ID.Hex(), notify.EventLoanRequested, map[string]any{
		"user_id": actorID, "amount": amount,
	})
	slog.Info("loan requested", "group_id", groupID, "user_id", actorID, "amount", amount)
	return &created, nil
}

// ApproveLoan moves a pending loan to approved. Admin only. Available funds
// are deliberately not re-checked here; concurrent approvals can over-commit
// the pool exactly as upstream allowed (open question, see DESIGN.md).
func (s *LoanService) ApproveLoan(ctx context.Context, actorID, groupID, loanID string) (*models.Loan, error) {
	return s.resolve(ctx, actorID, groupID, loanID, models.LoanApproved, notify.EventLoanApproved)
}

// DeclineLoan moves a pending loan to declined (terminal). Admin only.
func (s *LoanService) DeclineLoan(ctx context.Context, actorID, groupID, loanID string) (*models.Loan, error) {
	return s.resolve(ctx, actorID, groupID, loanID, models.LoanDeclined, notify.EventLoanDeclined)
}

func (s *LoanService) resolve(ctx context.Context, actorID, groupID, loanID, status, event string) (*models.Loan, error) {
	var resolved models.Loan
	_, err := mutateGroup(ctx, s.store, groupID, func(g *models.Group) error {
		if !g.IsAdmin(actorID) {
			return apperr.New(apperr.Forbidden, "admin role required")
		}
		loan := g.FindLoan(loanID)
		if loan == nil {
			return apperr.New(apperr.NotFound, "loan not found")
		}
		if loan.Status != models.LoanPending {
			return apperr.New(apperr.Conflict, "loan is %s, only pending loans can be resolved", loan.Status)
		}
		loan.Status = status
		loan.UpdatedAt = time.Now()
		resolved = *loan
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Broadcast(groupID, event, map[string]any{
		"loan_id": loanID, "user_id": resolved.UserID, "amount": resolved.Amount,
	})
	slog.Info("loan resolved", "group_id", groupID, "loan_id", loanID, "status", status, "admin", actorID)
	return &resolved, nil
}

// RepayLoan appends an installment. The loan's requester or any admin may
// repay; partial repayments accumulate, and once they cover the loan amount
// the loan transitions to repaid and stays there.
func (s *LoanService) RepayLoan(ctx context.Context, actorID, groupID, loanID string, amount float64) (*models.Loan, error) {
	if amount <= 0 {
		return nil, apperr.New(apperr.InvalidInput, "amount must be positive")
	}

	var repaid bool
	var updated models.Loan
	_, err := mutateGroup(ctx, s.store, groupID, func(g *models.Group) error {
		loan := g.FindLoan(loanID)
		if loan == nil {
			return apperr.New(apperr.NotFound, "loan not found")
		}
		if loan.UserID != actorID && !g.IsAdmin(actorID) {
			return apperr.New(apperr.Forbidden, "only the requester or an admin may repay")
		}
		if loan.Status != models.LoanApproved {
			return apperr.New(apperr.Conflict, "loan is %s, only approved loans accept repayments", loan.Status)
		}
		loan.Repayments = append(loan.Repayments, models.Repayment{Amount: amount, Date: time.Now()})
		repaid = false
		if loan.TotalRepaid() >= loan.Amount {
			loan.Status = models.LoanRepaid
			repaid = true
		}
		loan.UpdatedAt = time.Now()
		updated = *loan
		return nil
	})
	if err != nil {
		return nil, err
	}

	if repaid {
		s.notifier.Broadcast(groupID, notify.EventLoanRepaid, map[string]any{
			"loan_id": loanID, "user_id": updated.UserID,
		})
		slog.Info("loan fully repaid", "group_id", groupID, "loan_id", loanID)
	}
	return &updated, nil
}

// ListLoans returns the group's loans. Member gated.
func (s *LoanService) ListLoans(ctx context.Context, actorID, groupID string) ([]models.Loan, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if Classify(group, actorID) < RoleMember {
		return nil, apperr.New(apperr.Forbidden, "not a member of this group")
	}
	return group.Loans, nil
}
