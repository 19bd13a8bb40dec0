// Package errors provides the error types shared by the corpus packages.
//
// Every structured error matches its category sentinel with errors.Is, and
// also matches its underlying cause when one is set. Details are reached with
// errors.As.
package errors

import (
	"errors"
	"fmt"
)

// Category sentinels.
var (
	// ErrNotFound: a file, URL, stored corpus, edition or block does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput: malformed markup, URN, delimited text or configuration.
	ErrInvalidInput = errors.New("invalid input")
	// ErrIO: reading, fetching or writing failed.
	ErrIO = errors.New("i/o error")
	// ErrUnsupported: content the tool cannot handle.
	ErrUnsupported = errors.New("unsupported")
)

// chain lists the sentinel first, then the cause if there is one.
func chain(sentinel, cause error) []error {
	if cause == nil {
		return []error{sentinel}
	}
	return []error{sentinel, cause}
}

// NotFoundError reports a missing resource.
type NotFoundError struct {
	Resource string // "file", "URL", "corpus", "edition", ...
	ID       string
	Err      error
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() []error { return chain(ErrNotFound, e.Err) }

// ValidationError reports a value that is syntactically or semantically
// invalid.
type ValidationError struct {
	Field   string
	Value   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	switch {
	case e.Field != "" && e.Value != "":
		return fmt.Sprintf("validation failed for %s %q: %s", e.Field, e.Value, e.Message)
	case e.Field != "":
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return "validation failed: " + e.Message
}

func (e *ValidationError) Unwrap() []error { return chain(ErrInvalidInput, e.Err) }

// IOError reports a failed read, fetch or write.
type IOError struct {
	Operation string // "read", "fetch", "decompress", "create", ...
	Path      string // file path or URL
	Err       error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
}

func (e *IOError) Unwrap() []error { return chain(ErrIO, e.Err) }

// ParseError reports input that does not follow its format.
type ParseError struct {
	Format  string // "XML", "CEX", "YAML"
	Path    string
	Line    int // 1-based, 0 when unknown
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	where := e.Path
	switch {
	case e.Line > 0 && where != "":
		where = fmt.Sprintf("%s:%d", where, e.Line)
	case e.Line > 0:
		where = fmt.Sprintf("line %d", e.Line)
	}
	if where == "" {
		return fmt.Sprintf("failed to parse %s: %s", e.Format, e.Message)
	}
	return fmt.Sprintf("failed to parse %s at %s: %s", e.Format, where, e.Message)
}

func (e *ParseError) Unwrap() []error { return chain(ErrInvalidInput, e.Err) }

// UnsupportedError reports content outside what the tool handles.
type UnsupportedError struct {
	Feature string
	Reason  string
	Err     error
}

func (e *UnsupportedError) Error() string {
	if e.Reason == "" {
		return "unsupported " + e.Feature
	}
	return fmt.Sprintf("unsupported %s: %s", e.Feature, e.Reason)
}

func (e *UnsupportedError) Unwrap() []error { return chain(ErrUnsupported, e.Err) }

// NewNotFound returns a NotFoundError without a cause.
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// NewValidation returns a ValidationError for field.
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NewIO returns an IOError wrapping err.
func NewIO(operation, path string, err error) *IOError {
	return &IOError{Operation: operation, Path: path, Err: err}
}

// NewUnsupported returns an UnsupportedError.
func NewUnsupported(feature, reason string) *UnsupportedError {
	return &UnsupportedError{Feature: feature, Reason: reason}
}

// Wrap prefixes err with message. A nil err stays nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf is Wrap with a format string.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}
