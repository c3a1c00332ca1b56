package api

import "errors"

var (
	// ErrNotFound is returned when a workflow, instance, or activity
	// instance cannot be located. Signaling an already-ended activity
	// instance also reports ErrNotFound.
	ErrNotFound = errors.New("not found")

	// ErrNotSuspended is returned when a signal or cancel addresses an
	// activity instance that is not waiting for one. The instance tree is
	// left untouched.
	ErrNotSuspended = errors.New("activity instance is not suspended")

	// ErrConflict is returned when an optimistic save loses a concurrent
	// update. The operation performed no mutation; callers may reload and
	// retry.
	ErrConflict = errors.New("instance was modified concurrently")

	// ErrDeadEnd is an engine invariant failure: an exclusive gateway
	// matched no condition and has no default transition. The in-memory
	// attempt is discarded and nothing partial is persisted.
	ErrDeadEnd = errors.New("no outgoing transition matched and no default transition exists")

	// ErrExecutionLimit is an engine invariant failure: a synchronous
	// transition cycle exceeded the step ceiling without reaching a
	// suspension point.
	ErrExecutionLimit = errors.New("execution step limit exceeded")

	// ErrCancelNotSupported is returned when a cancel signal addresses an
	// activity whose type declares no cancellation transition.
	ErrCancelNotSupported = errors.New("activity kind does not support cancellation")
)
