package sqlgen

import (
	"fmt"

	"github.com/querypilot/querypilot/internal/guard"
)

// ReasonExtraction marks attempts whose response contained no extractable
// statement. It shares the guard.Reason namespace so attempt records carry
// a single rejection vocabulary.
const ReasonExtraction guard.Reason = "extraction_failed"

// Kind classifies terminal pipeline failures.
type Kind string

const (
	// KindExhausted is returned when every allowed attempt was rejected.
	KindExhausted Kind = "generation_failed"
	// KindBackend is returned when the generation backend itself failed;
	// it aborts the request without consuming a retry attempt.
	KindBackend Kind = "generation_error"
	// KindCancelled is returned when the request context ended between
	// retry cycles.
	KindCancelled Kind = "cancelled"
)

// PipelineError is the terminal failure of a generation request. It keeps
// the attempt count and the last rejection so callers can explain why,
// never just that, the request failed.
type PipelineError struct {
	Kind     Kind
	Detail   string
	Attempts int
	Err      error
}

func (e *PipelineError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("%s after %d attempt(s): %s", e.Kind, e.Attempts, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}
