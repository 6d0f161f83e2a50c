package core

import (
	"errors"
	"fmt"
)

var (
	ErrNoCategories      = errors.New("no categories defined")
	ErrUnnamedCategory   = errors.New("category without a name")
	ErrDuplicateCategory = errors.New("duplicate category")
	ErrArtifactConflict  = errors.New("artifact path conflict")
	ErrSourceUnavailable = errors.New("source log unavailable")
)

// ErrorClass tells the pipeline whether an error ends the run or only one unit.
type ErrorClass int

const (
	// ClassDegraded errors skip one category's unit; siblings keep running.
	ClassDegraded ErrorClass = iota
	// ClassFatal errors abort the whole run.
	ClassFatal
)

func (c ErrorClass) String() string {
	switch c {
	case ClassDegraded:
		return "degraded"
	case ClassFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// ClassifiedError wraps an error with its class and the category, operation
// and path it concerns.
type ClassifiedError struct {
	Class    ErrorClass
	Op       string
	Category string
	Path     string
	Err      error
}

func (e *ClassifiedError) Error() string {
	msg := e.Op
	if e.Category != "" {
		msg += " [" + e.Category + "]"
	}
	if e.Path != "" {
		msg += " " + e.Path
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *ClassifiedError) Unwrap() error { return e.Err }

// Fatal returns a ClassFatal error.
func Fatal(op, category, path string, err error) error {
	return &ClassifiedError{Class: ClassFatal, Op: op, Category: category, Path: path, Err: err}
}

// Degraded returns a ClassDegraded error.
func Degraded(op, category, path string, err error) error {
	return &ClassifiedError{Class: ClassDegraded, Op: op, Category: category, Path: path, Err: err}
}

// IsFatal reports whether err carries ClassFatal anywhere in its chain.
func IsFatal(err error) bool {
	var ce *ClassifiedError
	return errors.As(err, &ce) && ce.Class == ClassFatal
}
