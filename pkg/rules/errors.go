package rules

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRules is returned when a category declares an empty rule list.
	ErrNoRules = errors.New("no rules defined")

	// ErrEmptyPattern is returned for a rule with an empty pattern, which would match every line.
	ErrEmptyPattern = errors.New("empty pattern")

	// ErrUnknownKind is returned for a rule kind other than substring or regex.
	ErrUnknownKind = errors.New("unknown rule kind")
)

// CompileError identifies the rule that failed to compile.
type CompileError struct {
	Category string
	Stage    Stage
	Index    int // -1 when the error concerns the whole list
	Pattern  string
	Err      error
}

func (e *CompileError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("category %q (%s): %v", e.Category, e.Stage, e.Err)
	}
	return fmt.Sprintf("category %q (%s) rule %d %q: %v", e.Category, e.Stage, e.Index, e.Pattern, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }
