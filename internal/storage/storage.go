// Package storage defines how entity collections are persisted: one
// artifact per collection, each a table of records.
package storage

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/restaurant-desk/internal/record"
)

// ErrNotExist is returned when an artifact has never been written.
var ErrNotExist = errors.New("artifact does not exist")

// Store reads and writes whole artifacts. Every Write replaces the artifact
// as a unit; writes across artifacts are independent of each other.
type Store interface {
	// Exists reports whether the artifact has been written before.
	Exists(ctx context.Context, artifact string) (bool, error)
	// Read returns the artifact's rows in order. Cells are keyed by the
	// artifact's column headers; validating them is the caller's job.
	Read(ctx context.Context, schema record.Schema) ([]record.Record, error)
	// Write replaces the artifact with records, in order.
	Write(ctx context.Context, schema record.Schema, records []record.Record) error
}

// Pinger is implemented by stores that can verify they are reachable
// without touching any artifact.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Error reports an unreadable, unwritable or corrupt artifact.
type Error struct {
	Artifact string
	Op       string
	Err      error
}

func (e *Error) Error() string {
	return e.Op + " " + e.Artifact + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap returns err as an *Error for artifact, or nil when err is nil.
func Wrap(err error, op, artifact string) error {
	if err == nil {
		return nil
	}
	return &Error{Artifact: artifact, Op: op, Err: err}
}
