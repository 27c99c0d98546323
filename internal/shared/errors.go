package shared

import "errors"

var (
	// ErrUnauthenticated indicates the request carries no valid session.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
)
