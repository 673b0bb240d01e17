// Package audit records access decisions on protected endpoints.
// Recording is best-effort and must never block or fail a request.
package audit

import (
	"context"
	"time"
)

// Event is one access decision.
type Event struct {
	Subject   string    `json:"subject"`
	Username  string    `json:"username"`
	Route     string    `json:"route"`
	Outcome   string    `json:"outcome"` // "allowed" or a verifier failure kind
	RequestID string    `json:"request_id"`
	At        time.Time `json:"at"`
}

// Logger is the audit sink.
type Logger interface {
	Record(ctx context.Context, ev Event)
}

// Noop discards events. Used when no database is configured.
type Noop struct{}

func (Noop) Record(context.Context, Event) {}
