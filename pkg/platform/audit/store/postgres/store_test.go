package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "complyledger/pkg/platform/audit"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store := New(db)
	store.clock = func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }
	return store, mock
}

func TestAppendWritesOutboxRow(t *testing.T) {
	store, mock := newMockStore(t)
	event := audit.NewEvent(audit.EventDecisionCreated, "d-1", time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	event.OrganizationID = "org-1"

	mock.ExpectExec("INSERT INTO audit_outbox").
		WithArgs(sqlmock.AnyArg(), "d-1", "decision_created", "compliance", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Append(context.Background(), event))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendPropagatesError(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO audit_outbox").WillReturnError(errors.New("connection reset"))

	err := store.Append(context.Background(), audit.NewEvent(audit.EventRuleCreated, "r-1", time.Now()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert outbox entry")
}

func TestListBySubjectDecodesPayload(t *testing.T) {
	store, mock := newMockStore(t)
	payload, err := json.Marshal(outboxPayload{
		ID:        "e-1",
		Category:  "compliance",
		Timestamp: "2026-05-01T00:00:00Z",
		Subject:   "d-1",
		Action:    "decision_superseded",
		Reason:    "superseded by d-2",
	})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT payload FROM audit_outbox").
		WithArgs("d-1").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(payload))

	events, err := store.ListBySubject(context.Background(), "d-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "decision_superseded", events[0].Action)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
	assert.Equal(t, 2026, events[0].Timestamp.Year())
}
