package audit

import (
	"time"
)

// EventType represents the category of audit event
type EventType string

const (
	// Membership events
	EventTypeMemberRoleChange EventType = "member.role_change"
	EventTypeMemberRemove     EventType = "member.remove"
	EventTypeMemberAdd        EventType = "member.add"

	// Invitation events
	EventTypeInvitationCreate EventType = "invitation.create"
	EventTypeInvitationAccept EventType = "invitation.accept"
	EventTypeInvitationRevoke EventType = "invitation.revoke"

	// Organization events
	EventTypeOrgCreate EventType = "org.create"
	EventTypeOrgDelete EventType = "org.delete"

	// Tenant events
	EventTypeSessionSwitch EventType = "session.switch"
)

// EventStatus represents the outcome of an event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// Event is a single append-only audit entry for a sensitive mutation.
// Events are write-only from the application's perspective; failures to
// record one must never block the mutation it describes.
type Event struct {
	ID        int64       `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	// Actor and scope
	ActorID        *int64 `json:"actor_id,omitempty"`
	OrganizationID *int64 `json:"organization_id,omitempty"`

	// Target of the mutation
	TargetUserID *int64 `json:"target_user_id,omitempty"`
	TargetEmail  string `json:"target_email,omitempty"`

	RequestID string         `json:"request_id,omitempty"`
	Message   string         `json:"message,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewEvent creates an event stamped with the current time
func NewEvent(eventType EventType, status EventStatus) *Event {
	return &Event{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Status:    status,
	}
}

// WithActor sets the acting principal
func (e *Event) WithActor(actorID int64) *Event {
	e.ActorID = &actorID
	return e
}

// WithOrganization sets the organization scope
func (e *Event) WithOrganization(orgID int64) *Event {
	e.OrganizationID = &orgID
	return e
}

// WithTarget sets the target principal
func (e *Event) WithTarget(userID int64) *Event {
	e.TargetUserID = &userID
	return e
}

// WithMetadata merges free-form metadata into the event
func (e *Event) WithMetadata(metadata map[string]any) *Event {
	if e.Metadata == nil {
		e.Metadata = make(map[string]any, len(metadata))
	}
	for k, v := range metadata {
		e.Metadata[k] = v
	}
	return e
}
