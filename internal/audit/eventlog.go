// Package audit appends advisory progress events (enrollments, completions,
// failed quizzes) to the event_log table. Nothing in the engine reads these
// rows back; they exist for operators and offline sync tooling.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"
)

type Event struct {
	Offset    int64
	SiteID    string
	Type      string
	Key       string
	DataJSON  string
	CreatedAt int64
}

type EventRepo struct {
	db     *sql.DB
	siteID string
}

func NewEventRepo(db *sql.DB, siteID string) *EventRepo {
	if siteID == "" {
		siteID = "local"
	}
	return &EventRepo{db: db, siteID: siteID}
}

func (r *EventRepo) Append(ctx context.Context, e Event) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		r.siteID, e.Type, e.Key, e.DataJSON, time.Now().Unix())
	return err
}

// Record satisfies the engine's EventRecorder. Marshal or insert failures are
// logged and swallowed: the event log must never fail a business operation.
func (r *EventRepo) Record(ctx context.Context, typ, key string, data any) {
	buf, err := json.Marshal(data)
	if err != nil {
		slog.Warn("audit: marshal event", "type", typ, "error", err)
		return
	}
	if err := r.Append(ctx, Event{Type: typ, Key: key, DataJSON: string(buf)}); err != nil {
		slog.Warn("audit: append event", "type", typ, "error", err)
	}
}
