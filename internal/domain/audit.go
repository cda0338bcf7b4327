package domain

import (
	"fmt"
	"strconv"
	"time"
)

// Audit fields written by the ledger
const (
	AuditFieldCreated    = "created"
	AuditFieldUpdated    = "updated"
	AuditFieldFundStatus = "fund_status"
)

// SystemActor is recorded when an operation has no acting user
const SystemActor = "system"

// AuditEntry is one immutable item of a record's audit trail
type AuditEntry struct {
	ID        int64
	RecordID  int64
	Timestamp time.Time
	Actor     string
	Field     string
	OldValue  string
	NewValue  string
	Reason    string
}

// Describe renders the entry the way it is shown to users.
// Status transitions read "Working->Reserved: reason (by user: 42)".
func (e AuditEntry) Describe() string {
	switch e.Field {
	case AuditFieldFundStatus:
		return fmt.Sprintf("%s->%s: %s (by user: %s)", e.OldValue, e.NewValue, e.Reason, e.Actor)
	case AuditFieldCreated:
		return fmt.Sprintf("created by %s at %s", e.Actor, e.Timestamp.Format(time.RFC3339))
	default:
		return fmt.Sprintf("%s by %s at %s", e.Field, e.Actor, e.Timestamp.Format(time.RFC3339))
	}
}

// ActorName converts an optional user id into an audit actor
func ActorName(actorID *int64) string {
	if actorID == nil {
		return SystemActor
	}
	return strconv.FormatInt(*actorID, 10)
}
