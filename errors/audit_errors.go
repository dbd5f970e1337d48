// api/errors/audit_errors.go
package errors

import "errors"

var (
	ErrInvalidAuditEntry  = errors.New("invalid audit entry")
	ErrAuditAppendFailed  = errors.New("audit append failed")
	ErrAuditEntryNotFound = errors.New("audit entry not found")
	ErrChainStateMissing  = errors.New("audit chain state missing")
	// ErrArchivalRace is reported when the retention horizon would archive
	// the chain head. The head is skipped and the next cycle retries.
	ErrArchivalRace      = errors.New("refusing to archive the audit chain head")
	ErrInvalidExportLine = errors.New("invalid audit export line")
	ErrInvalidRange      = errors.New("invalid audit range")
)
