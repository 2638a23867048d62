package audit

import (
	"time"

	id "certitrack/pkg/domain"
)

// Action names a recorded domain event.
type Action string

const (
	ActionTestCreated        Action = "test.created"
	ActionTestCompleted      Action = "test.completed"
	ActionTestValidated      Action = "test.validated"
	ActionTestCancelled      Action = "test.cancelled"
	ActionCertificateIssued  Action = "certificate.issued"
	ActionCertificateRevoked Action = "certificate.revoked"
	ActionAssetDeleted       Action = "asset.deleted"
	ActionExpiryAlert        Action = "alert.expiry"
)

// Event is emitted from domain logic to capture key lifecycle actions. Keep
// it transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time   `json:"timestamp"`
	TenantID  id.TenantID `json:"tenant_id"`
	ActorID   string      `json:"actor_id,omitempty"`
	ActorName string      `json:"actor_name,omitempty"`
	Action    Action      `json:"action"`
	EntityID  string      `json:"entity_id"`
	Detail    string      `json:"detail,omitempty"`
}
