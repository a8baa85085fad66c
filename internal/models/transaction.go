package models

import "time"

// Transaction kinds.
const (
	TransactionContribution = "contribution"
	TransactionPayout       = "payout"
)

// Transaction is a denormalized mirror of a contribution or payout, kept for
// per-user and per-group reporting. The Group aggregate is the source of
// truth; rows here are derived and keyed by the external reference, whose
// uniqueness doubles as the idempotency guard against duplicate webhook
// deliveries.
type Transaction struct {
	Reference string    `bson:"reference" json:"reference"`
	GroupID   string    `bson:"group_id" json:"group_id"`
	UserID    string    `bson:"user_id" json:"user_id"`
	Kind      string    `bson:"kind" json:"kind"`
	Amount    float64   `bson:"amount" json:"amount"`
	Status    string    `bson:"status" json:"status"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
