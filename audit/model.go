// api/audit/model.go
package audit

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"

	hterrors "github.com/hoteltrack/api/errors"
)

const (
	// HashVersionV1 is SHA-256 over the pipe-joined fields. Rows written
	// with it stay verifiable; new rows use CurrentHashVersion.
	HashVersionV1 = "sha256-pipe-v1"
	// HashVersionV2 is SHA-256 over length-prefixed fields.
	HashVersionV2 = "sha256-lenprefix-v2"

	CurrentHashVersion = HashVersionV2

	KindBrokenChain  = "BROKEN_CHAIN"
	KindTamperedData = "TAMPERED_DATA"

	EventEntryAppended      = "audit.appended"
	EventIntegrityViolation = "audit.integrity_violation"
)

// GenesisHash is the previous hash of the first entry in the chain.
var GenesisHash = strings.Repeat("0", 68)

// AuditEntry is one link of the tamper-evident chain. Rows are never
// deleted; only Verified, Archived and ArchivedAt change after insert.
type AuditEntry struct {
	ID             string         `gorm:"primaryKey;size:36" json:"id"`
	Seq            int64          `gorm:"not null;uniqueIndex" json:"seq"`
	HotelID        *string        `gorm:"size:64;index" json:"hotelId,omitempty"`
	UserID         *string        `gorm:"size:64;index" json:"userId,omitempty"`
	Action         string         `gorm:"size:64;not null" json:"action"`
	EntityType     string         `gorm:"size:64;not null;index:idx_audit_entity" json:"entityType"`
	EntityID       string         `gorm:"size:128;not null;index:idx_audit_entity" json:"entityId"`
	Details        datatypes.JSON `gorm:"type:json" json:"details,omitempty"`
	SnapshotBefore datatypes.JSON `gorm:"type:json" json:"snapshotBefore,omitempty"`
	SnapshotAfter  datatypes.JSON `gorm:"type:json" json:"snapshotAfter,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;index" json:"createdAt"`
	PreviousHash   string         `gorm:"size:68;not null" json:"previousHash"`
	CurrentHash    string         `gorm:"size:68;not null;uniqueIndex" json:"currentHash"`
	HashVersion    string         `gorm:"size:32;not null" json:"hashVersion"`
	Verified       bool           `gorm:"not null;default:true" json:"verified"`
	Archived       bool           `gorm:"not null;default:false;index" json:"archived"`
	ArchivedAt     *time.Time     `json:"archivedAt,omitempty"`
}

func (AuditEntry) TableName() string { return "audit_entries" }

const chainStateID = 1

// ChainState is the single row pointing at the chain head. It is read with
// a locking read inside every append and archival transaction.
type ChainState struct {
	ID            uint       `gorm:"primaryKey"`
	HeadHash      string     `gorm:"size:68;not null"`
	HeadEntryID   *string    `gorm:"size:36"`
	HeadCreatedAt *time.Time
	Seq           int64 `gorm:"not null"`
	UpdatedAt     time.Time
}

func (ChainState) TableName() string { return "audit_chain_state" }

// NewEntry is what a caller supplies to Append. Payloads are any value that
// encodes to JSON; sensitive fields must be stripped by the caller.
type NewEntry struct {
	HotelID        string      `json:"hotelId" validate:"max=64"`
	UserID         string      `json:"userId" validate:"max=64"`
	Action         string      `json:"action" validate:"required,max=64"`
	EntityType     string      `json:"entityType" validate:"required,max=64"`
	EntityID       string      `json:"entityId" validate:"required,max=128"`
	Details        interface{} `json:"details,omitempty"`
	SnapshotBefore interface{} `json:"snapshotBefore,omitempty"`
	SnapshotAfter  interface{} `json:"snapshotAfter,omitempty"`
}

// Range selects entries by creation time. From is inclusive, To exclusive;
// a zero bound is open.
type Range struct {
	From time.Time
	To   time.Time
}

func (r Range) Validate() error {
	if !r.From.IsZero() && !r.To.IsZero() && !r.From.Before(r.To) {
		return fmt.Errorf("%w: from %s is not before to %s", hterrors.ErrInvalidRange,
			r.From.Format(time.RFC3339), r.To.Format(time.RFC3339))
	}
	return nil
}

// Contains reports whether t lies within the range.
func (r Range) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !t.Before(r.To) {
		return false
	}
	return true
}

// ChainError is one integrity finding. For TAMPERED_DATA Expected is the
// recomputed hash and Actual the stored one.
type ChainError struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

type Report struct {
	Valid           bool         `json:"valid"`
	TotalRecords    int          `json:"totalRecords"`
	ArchivedSkipped int          `json:"archivedSkipped"`
	Errors          []ChainError `json:"errors"`
}

// IntegrityViolation is the payload of EventIntegrityViolation.
type IntegrityViolation struct {
	Mode     string       `json:"mode"`
	Findings []ChainError `json:"findings"`
}

// Filter narrows ListEntries. Zero values are ignored.
type Filter struct {
	EntityType      string
	EntityID        string
	UserID          string
	HotelID         string
	From            time.Time
	To              time.Time
	IncludeArchived bool
	Limit           int
	Offset          int
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
