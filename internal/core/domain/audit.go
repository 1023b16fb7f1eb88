package domain

import "time"

// AuditAction names a recorded state change.
type AuditAction string

const (
	AuditUserRegistered AuditAction = "user.registered"
	AuditCardAssigned   AuditAction = "card.assigned"
	AuditCardArchived   AuditAction = "card.archived"
	AuditLoanCreated    AuditAction = "loan.created"
	AuditLoanReturned   AuditAction = "loan.returned"
	AuditUserDeleted    AuditAction = "user.deleted"
)

// AuditEntry is an append-only record of who changed what.
type AuditEntry struct {
	Action     AuditAction       `json:"action" bson:"action"`
	ActorID    int64             `json:"actor_id" bson:"actor_id"`
	ActorRole  Role              `json:"actor_role" bson:"actor_role"`
	EntityID   int64             `json:"entity_id" bson:"entity_id"`
	Attributes map[string]string `json:"attributes,omitempty" bson:"attributes,omitempty"`
	OccurredAt time.Time         `json:"occurred_at" bson:"occurred_at"`
}
