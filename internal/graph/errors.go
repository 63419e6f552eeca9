package graph

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for programmatic checking via errors.Is().
var (
	// ErrFieldFormat indicates a field that does not parse into its expected type or syntax.
	ErrFieldFormat = errors.New("field format error")

	// ErrReference indicates a predecessor id that names no declared task.
	ErrReference = errors.New("reference error")

	// ErrStructural indicates a graph shape violation: start/end count, duplicates, cycles.
	ErrStructural = errors.New("structural error")
)

// Structural error kinds.
const (
	KindEmpty         = "empty"
	KindDuplicateID   = "duplicate_id"
	KindNoStart       = "no_start"
	KindMultipleStart = "multiple_start"
	KindNoEnd         = "no_end"
	KindMultipleEnd   = "multiple_end"
	KindCycle         = "cycle"
)

// FieldError reports a single malformed field of a task record.
type FieldError struct {
	Line   int    // 1-based source line, 0 if unknown
	TaskID string // raw id of the offending record
	Field  string // "id", "duration" or "predecessors"
	Value  string // offending value, verbatim
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s%s %q: %s", ErrFieldFormat, location(e.Line, e.TaskID), e.Field, e.Value, e.Reason)
}

func (e *FieldError) Unwrap() error { return ErrFieldFormat }

// ReferenceError reports a predecessor id that cannot be resolved.
type ReferenceError struct {
	Line    int
	TaskID  string // the referencing task
	Missing string // the unresolved predecessor id
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s: %sunknown predecessor %q", ErrReference, location(e.Line, e.TaskID), e.Missing)
}

func (e *ReferenceError) Unwrap() error { return ErrReference }

// StructuralError reports a violation of the graph shape.
// IDs lists the offending task ids, in insertion order.
type StructuralError struct {
	Kind string
	IDs  []string
	Msg  string
}

func (e *StructuralError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Msg
	if msg == "" {
		msg = e.Kind
	}
	if len(e.IDs) > 0 {
		return fmt.Sprintf("%s: %s: %s", ErrStructural, msg, strings.Join(e.IDs, ", "))
	}
	return fmt.Sprintf("%s: %s", ErrStructural, msg)
}

func (e *StructuralError) Unwrap() error { return ErrStructural }

func location(line int, id string) string {
	switch {
	case line > 0 && id != "":
		return fmt.Sprintf("line %d (task %s): ", line, id)
	case line > 0:
		return fmt.Sprintf("line %d: ", line)
	case id != "":
		return fmt.Sprintf("task %s: ", id)
	}
	return ""
}
