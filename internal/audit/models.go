package audit

import "time"

// Event is an immutable, append-only audit record of an agent lifecycle change.
//
// Events are never updated or deleted. owner_user_id is required and scopes
// the trail to a tenant. Recording is best-effort; critical flows never block
// on audit failures.
type Event struct {
	ID          string `json:"id" db:"id"`
	OwnerUserID string `json:"owner_user_id" db:"owner_user_id"`

	Type EventType `json:"type" db:"type"`

	// Target identifiers. ExternalID is the platform agent id and may be the
	// only identifier for orphan compensation events.
	AgentID    string `json:"agent_id,omitempty" db:"agent_id"`
	ExternalID string `json:"external_id,omitempty" db:"external_id"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventAgentCreated           EventType = "agent_created"
	EventAgentUpdated           EventType = "agent_updated"
	EventAgentDeleted           EventType = "agent_deleted"
	EventTestCallInitiated      EventType = "test_call_initiated"
	EventAgentOrphanCompensated EventType = "agent_orphan_compensated"
)
