package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance: decisions,
	// supersessions and rule changes. Long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers routine activity such as replays and review
	// scheduling. Can be sampled or aggregated.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	// Subject is the aggregate the event is about (decision id, rule id,
	// network/asset key).
	Subject        string
	Action         string
	OrganizationID string
	Decision       string
	Reason         string
	RequestID      string
	// ActorID is the admin, reviewer or system component that acted.
	ActorID    string
	Attributes map[string]string
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

type AuditEvent string

const (
	// Rule events
	EventRuleCreated AuditEvent = "rule_created"
	EventRuleUpdated AuditEvent = "rule_updated"
	EventRuleDeleted AuditEvent = "rule_deleted"
	EventRulesSeeded AuditEvent = "rules_seeded"

	// Assignment events
	EventJurisdictionAssigned AuditEvent = "jurisdiction_assigned"
	EventJurisdictionRemoved  AuditEvent = "jurisdiction_removed"

	// Decision events
	EventDecisionCreated    AuditEvent = "decision_created"
	EventDecisionReplayed   AuditEvent = "decision_replayed"
	EventDecisionSuperseded AuditEvent = "decision_superseded"
	EventDecisionReviewDue  AuditEvent = "decision_review_due"
	EventDecisionExpired    AuditEvent = "decision_expired"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventRuleCreated:          CategoryCompliance,
	EventRuleUpdated:          CategoryCompliance,
	EventRuleDeleted:          CategoryCompliance,
	EventJurisdictionAssigned: CategoryCompliance,
	EventJurisdictionRemoved:  CategoryCompliance,
	EventDecisionCreated:      CategoryCompliance,
	EventDecisionSuperseded:   CategoryCompliance,
	EventDecisionExpired:      CategoryCompliance,

	EventRulesSeeded:       CategoryOperations,
	EventDecisionReplayed:  CategoryOperations,
	EventDecisionReviewDue: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// NewEvent fills Category from the action.
func NewEvent(action AuditEvent, subject string, at time.Time) Event {
	return Event{
		Category:  action.Category(),
		Timestamp: at,
		Subject:   subject,
		Action:    string(action),
	}
}
