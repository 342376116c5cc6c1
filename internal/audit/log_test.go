package audit

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"c2d.dev/portal/internal/auth"
	"c2d.dev/portal/internal/obs"
)

func TestLogEvent(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	defer obs.SetLogger(zap.New(core))()

	ctx := context.Background()
	ctx = WithRequestID(ctx, "req-123")
	ctx = auth.ContextWithSession(ctx, auth.Session{ID: "s1", User: auth.User{Email: "admin@acme.test"}})

	if err := LogEvent(ctx, "employee.invited", map[string]any{"foo": "bar", "resource_type": "employee", "resource_id": "new@acme.test"}); err != nil {
		t.Fatalf("LogEvent failed: %v", err)
	}

	entries := logs.FilterMessage("audit").All()
	if len(entries) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["type"] != "audit" || fields["event"] != "employee.invited" {
		t.Fatalf("unexpected entry: %v", fields)
	}
	if fields["request_id"] != "req-123" {
		t.Fatalf("unexpected request id: %v", fields["request_id"])
	}
	if fields["actor"] != "admin@acme.test" {
		t.Fatalf("unexpected actor: %v", fields["actor"])
	}
	if fields["resource_type"] != "employee" || fields["resource_id"] != "new@acme.test" {
		t.Fatalf("resource not lifted: %v", fields)
	}
	extra, ok := fields["fields"].(map[string]any)
	if !ok || extra["foo"] != "bar" {
		t.Fatalf("fields missing or incorrect: %v", fields["fields"])
	}
	if _, leaked := extra["resource_id"]; leaked {
		t.Fatalf("reserved field left in payload: %v", extra)
	}
}

func TestLogEventRequiresName(t *testing.T) {
	if err := LogEvent(context.Background(), "  ", nil); err == nil {
		t.Fatal("expected error for empty event")
	}
}

func TestSQLSink(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	defer obs.SetLogger(zap.NewNop())()

	UseSink(NewSQLSink(db))
	defer UseSink(nil)

	mock.ExpectExec("insert into audit_events").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "", "role.created", "role", "r-1", "", []byte(`{}`)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := LogEvent(context.Background(), "role.created", map[string]any{"resource_type": "role", "resource_id": "r-1"}); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
