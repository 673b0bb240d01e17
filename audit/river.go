package audit

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	log "github.com/sirupsen/logrus"
)

// EventArgs is the river job payload for one audit event.
type EventArgs struct {
	Event
}

// Kind implements river.JobArgs.
func (EventArgs) Kind() string { return "access_audit_insert" }

// EventWorker persists audit events into cases.access_audit.
type EventWorker struct {
	river.WorkerDefaults[EventArgs]
	DB *pgxpool.Pool
}

// Work implements river.Worker.
func (w *EventWorker) Work(ctx context.Context, job *river.Job[EventArgs]) error {
	ev := job.Args.Event
	_, err := w.DB.Exec(ctx,
		`INSERT INTO cases.access_audit (subject, username, route, outcome, request_id, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		ev.Subject, ev.Username, ev.Route, ev.Outcome, ev.RequestID, ev.At)
	return err
}

// RiverLogger enqueues events as background jobs so request latency never
// pays for the audit write.
type RiverLogger struct {
	client *river.Client[pgx.Tx]
}

// NewRiverLogger wraps a started river client.
func NewRiverLogger(client *river.Client[pgx.Tx]) *RiverLogger {
	return &RiverLogger{client: client}
}

// Record implements Logger. Enqueue failures are logged and dropped.
func (l *RiverLogger) Record(ctx context.Context, ev Event) {
	if _, err := l.client.Insert(ctx, EventArgs{Event: ev}, nil); err != nil {
		log.WithError(err).WithField("route", ev.Route).Warn("failed to enqueue audit event")
	}
}
