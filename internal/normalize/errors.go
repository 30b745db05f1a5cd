package normalize

import "fmt"

// CoercionError rejects a record whose numeric field cannot be coerced to a
// decimal. It carries the field path and the offending raw value so the
// record can be reported instead of silently zeroed.
type CoercionError struct {
	Path  string
	Value any
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("cannot coerce %s to decimal: %v", e.Path, e.Value)
}

// Reason classifies a validation rejection.
type Reason string

const (
	ReasonMissingIdentity Reason = "missing_identity"
	ReasonEmptyItems      Reason = "empty_line_items"
)

// RejectionError marks a structurally incomplete record. Rejected records
// are counted and excluded from the canonical store, never dropped silently.
type RejectionError struct {
	Reason Reason
	Field  string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("record rejected (%s): %s", e.Reason, e.Field)
}
