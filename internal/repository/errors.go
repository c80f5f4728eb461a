// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers and services to distinguish between failure scenarios without
// inspecting SQL errors directly.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// resource that belongs to a different hotel or channel. Handlers
// translate this into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an update cannot be performed because of
// conflicting state, such as confirming a block that is already expired.
// Handlers translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrOpApplied is returned when a ledger operation id has already been
// recorded. Callers treat the duplicate release as a successful no-op so
// a replayed cancellation can never inflate counters.
var ErrOpApplied = errors.New("operation already applied")

// ErrVersionConflict is returned when an optimistic counter update
// matched zero rows because the record's version moved underneath it.
// The surrounding transaction should be rolled back and retried.
var ErrVersionConflict = errors.New("version conflict")
