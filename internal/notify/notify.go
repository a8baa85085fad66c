// Package notify is the best-effort broadcast channel for group events. The
// real-time transport is out of scope here; the production binding writes
// structured log lines, and the interface is the seam for a push backend.
package notify

import "log/slog"

// Event names broadcast to group members.
const (
	EventMemberJoined          = "member.joined"
	EventJoinRequested         = "join.requested"
	EventContributionConfirmed = "contribution.confirmed"
	EventLoanRequested         = "loan.requested"
	EventLoanApproved          = "loan.approved"
	EventLoanDeclined          = "loan.declined"
	EventLoanRepaid            = "loan.repaid"
	EventPayoutInitiated       = "payout.initiated"
	EventPayoutResolved        = "payout.resolved"
)

// Notifier broadcasts an event to a group's members. Implementations are
// at-most-once and must never block or fail the calling operation.
type Notifier interface {
	Broadcast(groupID, event string, payload map[string]any)
}

// LogNotifier emits broadcasts as log lines.
type LogNotifier struct{}

func (LogNotifier) Broadcast(groupID, event string, payload map[string]any) {
	slog.Info("broadcast", "group_id", groupID, "event", event, "payload", payload)
}
