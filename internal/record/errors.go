package record

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
)

// ValidationError reports a malformed record: a missing or mistyped field.
// Artifact and Row are filled in by the loader once the failing row is known.
type ValidationError struct {
	Artifact string
	Row      int
	Field    string
	Value    string
	Reason   string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	if e.Artifact != "" {
		fmt.Fprintf(&b, "%s ", e.Artifact)
	}
	if e.Row > 0 {
		fmt.Fprintf(&b, "row %d ", e.Row)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, "field %q: ", e.Field)
	}
	b.WriteString(e.Reason)
	if e.Value != "" {
		fmt.Fprintf(&b, " (got %q)", e.Value)
	}
	return b.String()
}

// Invalid returns a ValidationError for a field whose value parsed but broke
// a domain rule.
func Invalid(field, value, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// AtRow annotates a ValidationError in err's chain with the artifact name and
// the 1-based data row it came from. Other errors are returned unchanged.
func AtRow(err error, artifact string, row int) error {
	var ve *ValidationError
	if errors.As(err, &ve) {
		ve.Artifact = artifact
		ve.Row = row
	}
	return err
}
