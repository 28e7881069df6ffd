package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	audit "complyledger/pkg/platform/audit"
	txcontext "complyledger/pkg/platform/tx"
)

// Store implements audit.Store using the transactional outbox pattern.
// When ctx carries a transaction the outbox row commits with it.
type Store struct {
	db    *sql.DB
	clock func() time.Time
}

// New creates a new PostgreSQL audit store that writes to the outbox.
func New(db *sql.DB) *Store {
	return &Store{db: db, clock: time.Now}
}

// outboxPayload is the JSON structure relayed to Kafka.
type outboxPayload struct {
	ID             string            `json:"id"`
	Category       string            `json:"category"`
	Timestamp      string            `json:"timestamp"`
	Subject        string            `json:"subject"`
	Action         string            `json:"action"`
	OrganizationID string            `json:"organization_id,omitempty"`
	Decision       string            `json:"decision,omitempty"`
	Reason         string            `json:"reason,omitempty"`
	RequestID      string            `json:"request_id,omitempty"`
	ActorID        string            `json:"actor_id,omitempty"`
	Attributes     map[string]string `json:"attributes,omitempty"`
}

// Append writes an audit event to the outbox table.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()
	category := audit.AuditEvent(event.Action).Category()

	payloadBytes, err := json.Marshal(outboxPayload{
		ID:             eventID.String(),
		Category:       string(category),
		Timestamp:      event.Timestamp.UTC().Format(time.RFC3339Nano),
		Subject:        event.Subject,
		Action:         event.Action,
		OrganizationID: event.OrganizationID,
		Decision:       event.Decision,
		Reason:         event.Reason,
		RequestID:      event.RequestID,
		ActorID:        event.ActorID,
		Attributes:     event.Attributes,
	})
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	query := `
		INSERT INTO audit_outbox (id, aggregate_id, event_type, category, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, query,
		eventID,
		event.Subject,
		event.Action,
		string(category),
		payloadBytes,
		s.clock(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// ListBySubject returns outbox events for one aggregate, oldest first.
func (s *Store) ListBySubject(ctx context.Context, subject string) ([]audit.Event, error) {
	query := `
		SELECT payload FROM audit_outbox
		WHERE aggregate_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, subject)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		var p outboxPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode audit payload: %w", err)
		}
		ts, _ := time.Parse(time.RFC3339Nano, p.Timestamp)
		events = append(events, audit.Event{
			Category:       audit.EventCategory(p.Category),
			Timestamp:      ts,
			Subject:        p.Subject,
			Action:         p.Action,
			OrganizationID: p.OrganizationID,
			Decision:       p.Decision,
			Reason:         p.Reason,
			RequestID:      p.RequestID,
			ActorID:        p.ActorID,
			Attributes:     p.Attributes,
		})
	}
	return events, rows.Err()
}
