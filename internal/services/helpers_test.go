package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/PrinceDelali/kraloan-gobackend/internal/apperr"
	"github.com/PrinceDelali/kraloan-gobackend/internal/models"
	"github.com/PrinceDelali/kraloan-gobackend/internal/paystack"
	"github.com/PrinceDelali/kraloan-gobackend/internal/storage/memory"
)

// fakeGateway implements PaymentGateway with canned responses.
type fakeGateway struct {
	mu sync.Mutex

	charges   map[string]*paystack.ChargeVerification
	verifyErr error

	recipientCode  string
	recipientErr   error
	recipientCalls int

	transferRef   string
	transferErr   error
	transferCalls int

	transferStatus *paystack.TransferVerification
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		charges:       make(map[string]*paystack.ChargeVerification),
		recipientCode: "RCP_test",
		transferRef:   "TRF_test",
	}
}

func (f *fakeGateway) succeedCharge(reference string, amount float64) {
	f.charges[reference] = &paystack.ChargeVerification{
		Reference: reference, Status: "success", Amount: amount, Channel: "mobile_money",
	}
}

func (f *fakeGateway) failCharge(reference, status string) {
	f.charges[reference] = &paystack.ChargeVerification{Reference: reference, Status: status}
}

func (f *fakeGateway) VerifyCharge(ctx context.Context, reference string) (*paystack.ChargeVerification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	v, ok := f.charges[reference]
	if !ok {
		return nil, apperr.New(apperr.ExternalService, "paystack error: status 404: unknown reference")
	}
	return v, nil
}

func (f *fakeGateway) EnsureRecipient(ctx context.Context, name, phone, provider string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recipientCalls++
	if f.recipientErr != nil {
		return "", f.recipientErr
	}
	return f.recipientCode, nil
}

func (f *fakeGateway) InitiateTransfer(ctx context.Context, recipientCode string, amount float64, reference, reason string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transferCalls++
	if f.transferErr != nil {
		return "", f.transferErr
	}
	return f.transferRef, nil
}

func (f *fakeGateway) VerifyTransfer(ctx context.Context, reference string) (*paystack.TransferVerification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.transferStatus == nil {
		return &paystack.TransferVerification{Reference: reference, Status: "pending"}, nil
	}
	return f.transferStatus, nil
}

// recordingNotifier captures broadcasts for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) Broadcast(groupID, event string, payload map[string]any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) has(event string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range n.events {
		if e == event {
			return true
		}
	}
	return false
}

type testEnv struct {
	store         *memory.Store
	gateway       *fakeGateway
	notifier      *recordingNotifier
	users         *UserService
	groups        *GroupService
	contributions *ContributionService
	loans         *LoanService
	payouts       *PayoutService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.New()
	gateway := newFakeGateway()
	notifier := &recordingNotifier{}
	return &testEnv{
		store:         store,
		gateway:       gateway,
		notifier:      notifier,
		users:         NewUserService(store),
		groups:        NewGroupService(store, notifier),
		contributions: NewContributionService(store, gateway, notifier),
		loans:         NewLoanService(store, notifier),
		payouts:       NewPayoutService(store, gateway, notifier),
	}
}

func (e *testEnv) createUser(t *testing.T, name, email string) string {
	t.Helper()
	id, err := e.users.Register(context.Background(), name, email, "0241234567", "secret123")
	require.NoError(t, err)
	return id
}

func (e *testEnv) createGroup(t *testing.T, creatorID string) *models.Group {
	t.Helper()
	group, err := e.groups.CreateGroup(context.Background(), creatorID, "Susu Circle", "monthly susu", 1000, 100)
	require.NoError(t, err)
	return group
}

// addMember joins userID to the group via its invite token.
func (e *testEnv) addMember(t *testing.T, group *models.Group, userID string) {
	t.Helper()
	_, err := e.groups.JoinByInvite(context.Background(), userID, group.InviteToken)
	require.NoError(t, err)
}

// contribute runs a verified contribution of the given amount.
func (e *testEnv) contribute(t *testing.T, groupID, userID, reference string, amount float64) {
	t.Helper()
	e.gateway.succeedCharge(reference, amount)
	_, err := e.contributions.Contribute(context.Background(), userID, groupID, amount, reference, "mobile_money")
	require.NoError(t, err)
}
