package services

import "errors"

// Failure taxonomy for profile operations. Handlers map these to HTTP
// statuses with errors.Is; anything unrecognized is a storage failure and
// surfaces as a 500.
var (
	ErrAccountNotFound    = errors.New("user account not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrAdminRequired      = errors.New("admin access required")
	ErrSelfDelete         = errors.New("admin cannot delete their own account")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrMissingClaim       = errors.New("authentication required")

	// ErrExtendedInfoPending reports a degraded success: the account store
	// write committed but the extended-info store write failed, leaving the
	// two stores out of step until the next successful write. The account
	// change is kept, never rolled back.
	ErrExtendedInfoPending = errors.New("account store committed but extended info write failed")
)
