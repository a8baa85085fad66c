package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/PrinceDelali/kraloan-gobackend/internal/apperr"
	"github.com/PrinceDelali/kraloan-gobackend/internal/models"
	"github.com/PrinceDelali/kraloan-gobackend/internal/paystack"
	"github.com/PrinceDelali/kraloan-gobackend/internal/storage"
)

// PaymentGateway is the slice of the Paystack client the ledger depends on.
// Tests substitute a fake; production wires *paystack.Client.
type PaymentGateway interface {
	VerifyCharge(ctx context.Context, reference string) (*paystack.ChargeVerification, error)
	EnsureRecipient(ctx context.Context, name, phone, provider string) (string, error)
	InitiateTransfer(ctx context.Context, recipientCode string, amount float64, reference, reason string) (string, error)
	VerifyTransfer(ctx context.Context, reference string) (*paystack.TransferVerification, error)
}

func newObjectID() primitive.ObjectID { return primitive.NewObjectID() }

// maxWriteRetries bounds how often a mutation is re-applied after losing an
// optimistic-write race before giving up with Conflict.
const maxWriteRetries = 3

// mutateGroup loads the group, applies fn to the in-memory copy and saves it
// back under the version read. On a concurrent-write conflict it re-reads and
// re-applies, so checks made inside fn hold for the state that actually gets
// persisted. Checks made on an earlier read outside fn are not re-asserted;
// the payout path orders its funds check before the external transfer, so its
// record-keeping fn runs without one (see DESIGN.md).
func mutateGroup(ctx context.Context, store storage.Store, groupID string, fn func(*models.Group) error) (*models.Group, error) {
	var lastErr error
	for attempt := 0; attempt < maxWriteRetries; attempt++ {
		group, err := store.GetGroup(ctx, groupID)
		if err != nil {
			return nil, err
		}
		if err := fn(group); err != nil {
			return nil, err
		}
		if err := store.UpdateGroup(ctx, group); err != nil {
			if apperr.Is(err, apperr.Conflict) {
				lastErr = err
				continue
			}
			return nil, err
		}
		return group, nil
	}
	return nil, lastErr
}
