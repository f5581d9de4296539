package tgtg

import "errors"

var (
	// ErrUnauthorized means the marketplace rejected the credentials and
	// an in-flight token refresh did not recover the call.
	ErrUnauthorized = errors.New("marketplace rejected credentials")

	// ErrNoAccount is returned by AuthByEmail when the service reports
	// no account exists for the address.
	ErrNoAccount = errors.New("no marketplace account for this email")

	// ErrNotFound is returned for unknown item or order identifiers.
	ErrNotFound = errors.New("marketplace resource not found")
)
