// api/errors/access_errors.go
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrPermissionDenied       = errors.New("permission denied")
	// ErrCatalogUnavailable means the grant store could not be consulted.
	// It is distinct from a role that simply has no grants.
	ErrCatalogUnavailable = errors.New("permission catalog unavailable")

	ErrInvalidGrantData = errors.New("invalid grant data")
)

// PermissionDeniedError carries the {resource, action} pair that was refused
// so callers can surface it with a 403.
type PermissionDeniedError struct {
	Resource string
	Action   string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("permission denied: %s:%s", e.Resource, e.Action)
}

func (e *PermissionDeniedError) Is(target error) bool {
	return target == ErrPermissionDenied
}
