// api/errors/common_errors.go
package errors

import "errors"

var (
	ErrDatabaseOperation = errors.New("database operation failed")
	ErrInternalServer    = errors.New("internal server error")
	ErrInvalidPagination = errors.New("invalid pagination parameters")
	ErrInvalidRequest    = errors.New("invalid request")
)
