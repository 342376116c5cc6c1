package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"c2d.dev/portal/internal/auth"
	"c2d.dev/portal/internal/ids"
	"c2d.dev/portal/internal/obs"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// Event is one security-relevant action.
type Event struct {
	ID           string
	OccurredAt   time.Time
	Actor        string
	Action       string
	ResourceType string
	ResourceID   string
	RequestID    string
	Fields       map[string]any
}

// Sink persists audit events in addition to the log stream.
type Sink interface {
	Append(ctx context.Context, e Event) error
}

var (
	sinkMu sync.RWMutex
	sink   Sink
)

// UseSink installs s as the durable audit destination. Passing nil disables it.
func UseSink(s Sink) {
	sinkMu.Lock()
	sink = s
	sinkMu.Unlock()
}

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// LogEvent records an audit entry enriched with request and session context.
// Reserved fields resource_type and resource_id are lifted out of fields.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	e := Event{
		ID:         ids.Prefixed("aud"),
		OccurredAt: time.Now().UTC(),
		Action:     event,
		RequestID:  requestIDFromContext(ctx),
		Fields:     make(map[string]any, len(fields)),
	}
	if u := auth.UserFromContext(ctx); u != nil {
		e.Actor = u.Email
	}
	for k, v := range fields {
		switch k {
		case "resource_type":
			e.ResourceType, _ = v.(string)
		case "resource_id":
			e.ResourceID, _ = v.(string)
		default:
			e.Fields[k] = v
		}
	}

	zf := []zap.Field{
		zap.String("type", "audit"),
		zap.String("event", e.Action),
		zap.String("audit_id", e.ID),
		zap.Any("fields", e.Fields),
	}
	if e.RequestID != "" {
		zf = append(zf, zap.String("request_id", e.RequestID))
	}
	if e.Actor != "" {
		zf = append(zf, zap.String("actor", e.Actor))
	}
	if e.ResourceType != "" {
		zf = append(zf, zap.String("resource_type", e.ResourceType), zap.String("resource_id", e.ResourceID))
	}
	obs.Logger().Info("audit", zf...)

	sinkMu.RLock()
	s := sink
	sinkMu.RUnlock()
	if s == nil {
		return nil
	}
	return s.Append(ctx, e)
}

// SQLSink appends events to the audit_events table.
type SQLSink struct {
	db *sql.DB
}

func NewSQLSink(db *sql.DB) *SQLSink { return &SQLSink{db: db} }

func (s *SQLSink) Append(ctx context.Context, e Event) error {
	meta, err := json.Marshal(e.Fields)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		insert into audit_events(id, occurred_at, actor, action, resource_type, resource_id, request_id, metadata)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
	`, e.ID, e.OccurredAt, e.Actor, e.Action, e.ResourceType, e.ResourceID, e.RequestID, meta)
	return err
}
