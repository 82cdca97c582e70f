// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios without knowing which store produced them.
package repository

import "errors"

// ErrNotFound is returned when the addressed row or document does not
// exist, or exists but does not match the conditional part of an update
// (for example marking an already-read notification as read).
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a write violates a uniqueness rule or
// conflicting state. Handlers should translate this into an HTTP 409
// response.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned when an account email is already taken.
var ErrEmailExists = errors.New("email already exists")
