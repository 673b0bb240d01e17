// Package cases defines the court-process lookup source consumed by the
// protected endpoints.
package cases

import (
	"context"
	"errors"
)

// ErrNotFound reports that no process is registered under a protocol.
var ErrNotFound = errors.New("cases: process not found")

// Store resolves a filing protocol to its unified process number
// (CNJ numbering, e.g. 0014356-84.2024.8.16.6000).
type Store interface {
	ProcessNumber(ctx context.Context, protocol string) (string, error)
}
