package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Violation is a single schema failure at one location in the deck.
type Violation struct {
	// Path is a JSON pointer into the deck document, "/" for the root.
	Path string
	// Message describes what failed at Path.
	Message string
}

func (v Violation) String() string {
	path := v.Path
	if path == "" {
		path = "/"
	}
	return fmt.Sprintf("%s: %s", path, v.Message)
}

// ValidationError aggregates every violation found in one deck so the
// user can fix them all in a single pass.
type ValidationError struct {
	Kind       DeckKind
	Violations []Violation
}

func (e *ValidationError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s deck failed schema validation (%d violation", e.Kind, len(e.Violations))
	if len(e.Violations) != 1 {
		sb.WriteString("s")
	}
	sb.WriteString(")")
	for _, v := range e.Violations {
		sb.WriteString("\n  - ")
		sb.WriteString(v.String())
	}
	return sb.String()
}

// newValidationError flattens the cause tree produced by the jsonschema
// library into sorted leaf violations. Interior nodes only restate which
// branch of an allOf/anyOf failed and are dropped.
func newValidationError(kind DeckKind, err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return fmt.Errorf("%s deck failed schema validation: %w", kind, err)
	}
	out := &ValidationError{Kind: kind}
	collectLeaves(ve, &out.Violations)
	sort.Slice(out.Violations, func(i, j int) bool {
		if out.Violations[i].Path != out.Violations[j].Path {
			return out.Violations[i].Path < out.Violations[j].Path
		}
		return out.Violations[i].Message < out.Violations[j].Message
	})
	return out
}

func collectLeaves(ve *jsonschema.ValidationError, into *[]Violation) {
	if len(ve.Causes) == 0 {
		*into = append(*into, Violation{
			Path:    ve.InstanceLocation,
			Message: ve.Message,
		})
		return
	}
	for _, c := range ve.Causes {
		collectLeaves(c, into)
	}
}
