package incident

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownCase is returned when an operation references a case id
	// that does not exist in the store.
	ErrUnknownCase = errors.New("incident: unknown case")

	// ErrEmptyArtifact is returned when an artifact has no content or no
	// source id. Validation failures are never retried.
	ErrEmptyArtifact = errors.New("incident: empty or malformed artifact")

	// ErrUpstreamTimeout is returned when an embedding or oracle call
	// exceeded its deadline even after the single internal retry.
	ErrUpstreamTimeout = errors.New("incident: upstream call timed out")

	// ErrSchemaViolation is returned when the reasoning oracle's output
	// failed the hypothesis contract twice in a row. Callers degrade this
	// to a refusal outcome rather than surfacing fabricated content.
	ErrSchemaViolation = errors.New("incident: oracle output violates contract")
)

// ValidationError wraps a fail-fast input problem with the offending field.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a fail-fast validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) || errors.Is(err, ErrUnknownCase) || errors.Is(err, ErrEmptyArtifact)
}
