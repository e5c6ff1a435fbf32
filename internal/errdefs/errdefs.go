// Package errdefs defines the failure taxonomy shared by the indexer, the
// store and the snapshot sources.
//
// Every failure that crosses a package boundary is an *Error carrying the
// phase it happened in (fetch, parse, write, read, lock) and one of the kind
// sentinels below, so callers can use errors.Is for both the kind and the
// underlying cause.
package errdefs

import (
	"errors"
	"fmt"
)

var (
	// ErrSnapshot marks a failure to obtain or decode the package snapshot.
	ErrSnapshot = errors.New("snapshot failure")

	// ErrStoreIO marks a failure of the durable store (open, lock, read, write).
	ErrStoreIO = errors.New("store I/O failure")

	// ErrInvalidRecord marks a record that cannot be stored (empty attr or name).
	ErrInvalidRecord = errors.New("invalid record")
)

// Phase names the step of an operation that failed.
type Phase string

const (
	PhaseFetch Phase = "fetch"
	PhaseParse Phase = "parse"
	PhaseWrite Phase = "write"
	PhaseRead  Phase = "read"
	PhaseLock  Phase = "lock"
)

// Error is a classified failure.
type Error struct {
	Kind  error
	Phase Phase
	Op    string
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Phase, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", e.Phase, e.Op, e.Err)
}

// Unwrap exposes both the kind sentinel and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Snapshot classifies err as a snapshot failure.
func Snapshot(phase Phase, op string, err error) error {
	return &Error{Kind: ErrSnapshot, Phase: phase, Op: op, Err: err}
}

// StoreIO classifies err as a store failure.
func StoreIO(phase Phase, op string, err error) error {
	return &Error{Kind: ErrStoreIO, Phase: phase, Op: op, Err: err}
}

// InvalidRecord reports a record rejected before reaching the database.
func InvalidRecord(op string) error {
	return &Error{Kind: ErrInvalidRecord, Phase: PhaseWrite, Op: op}
}

// PhaseOf returns the phase of the first *Error in err's chain.
func PhaseOf(err error) (Phase, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Phase, true
	}
	return "", false
}
