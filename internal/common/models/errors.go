package models

import "errors"

// Authentication failure modes shared between the session service and the
// middleware boundary. All of them surface as 401; only ErrProfileNotFound
// gets its own message, the rest stay generic to avoid aiding credential
// probing.
var (
	ErrInvalidSession  = errors.New("invalid session")
	ErrProfileNotFound = errors.New("user profile not found")
	ErrAccountInactive = errors.New("account inactive")
	ErrAccountLocked   = errors.New("account locked")
)

// Expected business failure modes, translated to the HTTP taxonomy at the
// controller boundary.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrVersionMismatch = errors.New("version mismatch")
)
