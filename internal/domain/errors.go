package domain

import "errors"

// Sentinel errors for the domain layer.
var (
	ErrNotFound        = errors.New("domain: not found")
	ErrInvalidState    = errors.New("domain: invalid state")
	ErrInvalidKind     = errors.New("domain: invalid agent kind")
	ErrNoDriver        = errors.New("domain: browser driver not initialized")
	ErrProfileRequired = errors.New("domain: profile name required")
	ErrNotLoggedOut    = errors.New("domain: account is not logged out")
	ErrPrecondition    = errors.New("domain: precondition failed")
)
