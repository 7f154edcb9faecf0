package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRecords is returned when an ingestion source yields no usable record
	ErrNoRecords = errors.New("no records extracted from ingestion source")
	// ErrOracleUnavailable is returned when the verification oracle cannot be reached
	ErrOracleUnavailable = errors.New("verification oracle unavailable")
	// ErrNotFound is returned when a stored entity does not exist
	ErrNotFound = errors.New("not found")
)

// ParseError reports an ingested item that is not a recognizable message or archive
type ParseError struct {
	Item  string
	Index int
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s (item %d): %v", e.Item, e.Index, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// WarningKind classifies a non-fatal problem
type WarningKind string

const (
	WarnMissingField      WarningKind = "missing_field"
	WarnConvergence       WarningKind = "convergence"
	WarnOracleUnavailable WarningKind = "oracle_unavailable"
	WarnDuplicate         WarningKind = "duplicate"
	WarnAttachment        WarningKind = "attachment"
	WarnDecode            WarningKind = "decode"
	WarnExport            WarningKind = "export"
)

// Warning is a non-fatal annotation surfaced in the integrity section
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Item    string      `json:"item,omitempty"`
	Message string      `json:"message"`
}

// NewWarning creates a warning
func NewWarning(kind WarningKind, item, format string, args ...interface{}) Warning {
	return Warning{Kind: kind, Item: item, Message: fmt.Sprintf(format, args...)}
}

// WithItem returns a copy of the warning bound to an item reference
func (w Warning) WithItem(item string) Warning {
	if w.Item == "" {
		w.Item = item
	}
	return w
}
