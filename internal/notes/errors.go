package notes

import (
	"errors"
	"fmt"

	"ink/api/internal/store"
)

var (
	ErrNoSource  = errors.New("no source")
	ErrNoContext = errors.New("no context")
	ErrNoNote    = errors.New("no note")
)

// ValidationError rejects a payload before or while it is persisted.
type ValidationError struct {
	Op     string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s Validation Error: %s", e.Op, e.Reason)
}

const (
	opCreate = "Create Note"
	opUpdate = "Note Update"
)

func missingBody(op string) error {
	return &ValidationError{Op: op, Field: "body", Reason: "body is a required property"}
}

// translate maps store failures onto the engine's error taxonomy. Anything
// it does not recognise is returned unchanged.
func translate(op string, err error) error {
	switch store.ConstraintName(err) {
	case "note_sourceid_foreign":
		return ErrNoSource
	case "note_contextid_foreign":
		return ErrNoContext
	}
	switch {
	case errors.Is(err, store.ErrMissingMotivation):
		return &ValidationError{Op: op, Field: "body", Reason: err.Error()}
	case errors.Is(err, store.ErrOutlineReference):
		return &ValidationError{Op: op, Field: "outline", Reason: err.Error()}
	}
	return err
}
