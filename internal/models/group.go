package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Contribution statuses.
const (
	ContributionPending   = "pending"
	ContributionCompleted = "completed"
)

// Loan statuses. Transitions are forward-only:
// pending -> approved -> repaid, or pending -> declined.
const (
	LoanPending  = "pending"
	LoanApproved = "approved"
	LoanDeclined = "declined"
	LoanRepaid   = "repaid"
)

// Payout statuses.
const (
	PayoutProcessing = "processing"
	PayoutCompleted  = "completed"
	PayoutFailed     = "failed"
)

// Mobile-money providers accepted for payouts.
var PayoutProviders = map[string]bool{
	"MTN":        true,
	"Vodafone":   true,
	"AirtelTigo": true,
}

// Group is the aggregate root for a savings circle. It exclusively owns the
// embedded contribution, loan and payout records; they have no identity
// outside their parent group. Version is the optimistic-concurrency counter
// asserted and incremented on every save.
type Group struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name                string             `bson:"name" json:"name"`
	Description         string             `bson:"description" json:"description"`
	TargetAmount        float64            `bson:"target_amount" json:"target_amount"`
	MonthlyContribution float64            `bson:"monthly_contribution" json:"monthly_contribution"`
	Members             []string           `bson:"members" json:"members"`
	Admins              []string           `bson:"admins" json:"admins"`
	PendingRequests     []string           `bson:"pending_requests" json:"pending_requests"`
	InviteToken         string             `bson:"invite_token" json:"invite_token"`
	Contributions       []Contribution     `bson:"contributions" json:"contributions"`
	Loans               []Loan             `bson:"loans" json:"loans"`
	Payouts             []Payout           `bson:"payouts" json:"payouts"`
	Version             int64              `bson:"version" json:"-"`
	CreatedAt           time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt           time.Time          `bson:"updated_at" json:"updated_at"`
}

// Contribution is a member's inflow into the group pool. It is created
// pending and promoted to completed once the gateway confirms the reference;
// contributions are never deleted.
type Contribution struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     string             `bson:"user_id" json:"user_id"`
	Amount     float64            `bson:"amount" json:"amount"`
	Reference  string             `bson:"reference,omitempty" json:"reference,omitempty"`
	Status     string             `bson:"status" json:"status"`
	Method     string             `bson:"method,omitempty" json:"method,omitempty"`
	VerifiedAt *time.Time         `bson:"verified_at,omitempty" json:"verified_at,omitempty"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}

// Loan tracks a member's withdrawal request through approval and repayment.
// RepaymentPlan and Collateral are opaque descriptors; no interest is
// calculated on them.
type Loan struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID         string             `bson:"user_id" json:"user_id"`
	Amount         float64            `bson:"amount" json:"amount"`
	Reason         string             `bson:"reason" json:"reason"`
	Status         string             `bson:"status" json:"status"`
	DurationMonths int                `bson:"duration_months" json:"duration_months"`
	RepaymentPlan  string             `bson:"repayment_plan,omitempty" json:"repayment_plan,omitempty"`
	Collateral     string             `bson:"collateral,omitempty" json:"collateral,omitempty"`
	Repayments     []Repayment        `bson:"repayments" json:"repayments"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
}

// Repayment is an append-only installment against a loan.
type Repayment struct {
	Amount float64   `bson:"amount" json:"amount"`
	Date   time.Time `bson:"date" json:"date"`
}

// TotalRepaid sums the installments recorded against the loan.
func (l *Loan) TotalRepaid() float64 {
	var total float64
	for _, r := range l.Repayments {
		total += r.Amount
	}
	return total
}

// Payout is an admin-initiated disbursement to a member through the
// mobile-money gateway. Status starts processing and is resolved only by an
// explicit verify call (pull-based reconciliation).
type Payout struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID        string             `bson:"user_id" json:"user_id"`
	Amount        float64            `bson:"amount" json:"amount"`
	Phone         string             `bson:"phone" json:"phone"`
	Provider      string             `bson:"provider" json:"provider"`
	Status        string             `bson:"status" json:"status"`
	Reference     string             `bson:"reference" json:"reference"`
	FailureReason string             `bson:"failure_reason,omitempty" json:"failure_reason,omitempty"`
	InitiatedBy   string             `bson:"initiated_by" json:"initiated_by"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}

// TotalSavings is the pool balance: the sum of completed contributions.
func (g *Group) TotalSavings() float64 {
	var total float64
	for _, c := range g.Contributions {
		if c.Status == ContributionCompleted {
			total += c.Amount
		}
	}
	return total
}

// AvailableForLoan is the balance checked when a loan is requested: completed
// contributions minus every loan that ever reached approved (repaid loans
// stay subtracted; repayment does not restore the pool).
func (g *Group) AvailableForLoan() float64 {
	available := g.TotalSavings()
	for _, l := range g.Loans {
		if l.Status == LoanApproved || l.Status == LoanRepaid {
			available -= l.Amount
		}
	}
	return available
}

// AvailableForPayout is the balance checked when a payout is initiated: all
// contribution amounts minus completed payouts. This deliberately differs
// from the loan formula; the two balances were never unified upstream.
func (g *Group) AvailableForPayout() float64 {
	var available float64
	for _, c := range g.Contributions {
		available += c.Amount
	}
	for _, p := range g.Payouts {
		if p.Status == PayoutCompleted {
			available -= p.Amount
		}
	}
	return available
}

// IsMember reports whether userID is on the group roster.
func (g *Group) IsMember(userID string) bool {
	return contains(g.Members, userID)
}

// IsAdmin reports whether userID administers the group.
func (g *Group) IsAdmin(userID string) bool {
	return contains(g.Admins, userID)
}

// HasPendingRequest reports whether userID has an open join request.
func (g *Group) HasPendingRequest(userID string) bool {
	return contains(g.PendingRequests, userID)
}

// AddMember puts userID on the roster if not already present and clears any
// pending join request for them. Safe to call twice.
func (g *Group) AddMember(userID string) {
	g.PendingRequests = remove(g.PendingRequests, userID)
	if !g.IsMember(userID) {
		g.Members = append(g.Members, userID)
	}
}

// DropPendingRequest clears any open join request for userID.
func (g *Group) DropPendingRequest(userID string) {
	g.PendingRequests = remove(g.PendingRequests, userID)
}

// DropMember removes userID from the roster and, to keep admins a subset of
// members, from the admin set as well.
func (g *Group) DropMember(userID string) {
	g.Members = remove(g.Members, userID)
	g.Admins = remove(g.Admins, userID)
}

// FindLoan returns the loan with the given id, or nil.
func (g *Group) FindLoan(loanID string) *Loan {
	for i := range g.Loans {
		if g.Loans[i].ID.Hex() == loanID {
			return &g.Loans[i]
		}
	}
	return nil
}

// FindPayout returns the payout with the given id, or nil.
func (g *Group) FindPayout(payoutID string) *Payout {
	for i := range g.Payouts {
		if g.Payouts[i].ID.Hex() == payoutID {
			return &g.Payouts[i]
		}
	}
	return nil
}

// FindContributionByReference returns the contribution carrying the external
// payment reference, or nil.
func (g *Group) FindContributionByReference(ref string) *Contribution {
	for i := range g.Contributions {
		if g.Contributions[i].Reference == ref {
			return &g.Contributions[i]
		}
	}
	return nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func remove(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
