package audit

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// HashTimeFormat renders createdAt inside the hash input.
const HashTimeFormat = "2006-01-02T15:04:05.000000Z"

// CanonicalJSON re-encodes raw with object keys sorted, no insignificant
// whitespace, numbers kept verbatim and no HTML escaping. Empty input
// returns nil.
func CanonicalJSON(raw []byte) ([]byte, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("invalid JSON payload: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid JSON payload: trailing data")
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// encodePayload turns a caller payload into canonical JSON. nil and JSON
// null both map to a NULL column.
func encodePayload(v interface{}) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	var raw []byte
	switch p := v.(type) {
	case json.RawMessage:
		raw = p
	case []byte:
		raw = p
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode payload: %w", err)
		}
		raw = b
	}
	canonical, err := CanonicalJSON(raw)
	if err != nil {
		return nil, err
	}
	if string(canonical) == "null" {
		return nil, nil
	}
	return canonical, nil
}

// HashFields are the inputs to the chain hash, in their fixed order.
type HashFields struct {
	ID            string
	EntityType    string
	EntityID      string
	Action        string
	UserID        string
	SnapshotAfter []byte
	CreatedAt     time.Time
	PreviousHash  string
}

// values lists the fields in hash order. An absent userId is "" and an
// absent snapshot is "null".
func (f HashFields) values() ([]string, error) {
	snapshot := "null"
	canonical, err := CanonicalJSON(f.SnapshotAfter)
	if err != nil {
		return nil, err
	}
	if canonical != nil {
		snapshot = string(canonical)
	}
	return []string{
		f.ID,
		f.EntityType,
		f.EntityID,
		f.Action,
		f.UserID,
		snapshot,
		f.CreatedAt.UTC().Format(HashTimeFormat),
		f.PreviousHash,
	}, nil
}

// ComputeHashV1 returns
// hex(SHA-256(id|entityType|entityId|action|userId|canonicalJSON(snapshotAfter)|createdAt|previousHash)).
// A "|" inside a field is not escaped, so v1 is only used to verify rows
// that were written with it.
func ComputeHashV1(f HashFields) (string, error) {
	values, err := f.values()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(strings.Join(values, "|")))
	return hex.EncodeToString(sum[:]), nil
}

// ComputeHashV2 hashes the same fields as v1, each written as
// <byte length>:<bytes>, so no field boundary can move without changing
// the digest.
func ComputeHashV2(f HashFields) (string, error) {
	values, err := f.values()
	if err != nil {
		return "", err
	}
	h := sha256.New()
	for _, v := range values {
		h.Write([]byte(strconv.Itoa(len(v))))
		h.Write([]byte{':'})
		h.Write([]byte(v))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ComputeHashVersion hashes f with the named algorithm. An empty version
// is v1, the only algorithm that predates the hash_version column.
func ComputeHashVersion(version string, f HashFields) (string, error) {
	switch version {
	case HashVersionV1, "":
		return ComputeHashV1(f)
	case HashVersionV2:
		return ComputeHashV2(f)
	default:
		return "", fmt.Errorf("unsupported hash version %q", version)
	}
}

// ComputeHash recomputes the hash of a stored entry from its own fields.
func ComputeHash(e *AuditEntry) (string, error) {
	return ComputeHashVersion(e.HashVersion, hashFields(e))
}

func hashFields(e *AuditEntry) HashFields {
	f := HashFields{
		ID:            e.ID,
		EntityType:    e.EntityType,
		EntityID:      e.EntityID,
		Action:        e.Action,
		SnapshotAfter: e.SnapshotAfter,
		CreatedAt:     e.CreatedAt,
		PreviousHash:  e.PreviousHash,
	}
	if e.UserID != nil {
		f.UserID = *e.UserID
	}
	return f
}
