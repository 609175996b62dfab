// Package errors provides the error taxonomy shared by the equation pipeline
// and the services built on top of it.
package errors

import (
	"errors"
	"fmt"
	"math/big"
)

// Sentinel errors for each failure kind
var (
	// ErrLex indicates input text that could not be tokenized
	ErrLex = errors.New("lex error")
	// ErrParse indicates a token sequence that violates the equation grammar
	ErrParse = errors.New("parse error")
	// ErrUnsupportedDegree indicates a reduced polynomial of degree 3 or more
	ErrUnsupportedDegree = errors.New("unsupported degree")
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates invalid input or validation failure
	ErrInvalidInput = errors.New("invalid input")
)

// Position locates a byte in the equation text.
type Position struct {
	Offset int // 0-based byte offset
	Line   int // 1-based line
	Column int // 1-based column
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// LexError reports a character the lexer cannot accept.
type LexError struct {
	Pos    Position
	Text   string // offending character or malformed literal
	Reason string
}

func (e *LexError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("lex error at %s: %s %q", e.Pos, e.Reason, e.Text)
	}
	return fmt.Sprintf("lex error at %s: unexpected character %q", e.Pos, e.Text)
}

func (e *LexError) Unwrap() error {
	return ErrLex
}

// ParseError reports a grammar violation.
type ParseError struct {
	Pos    Position
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %s: %s", e.Pos, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return ErrParse
}

// UnsupportedDegreeError is returned for polynomials the solver does not handle.
type UnsupportedDegreeError struct {
	Degree  *big.Int
	Reduced string // rendered reduced form, if the caller filled it in
}

func (e *UnsupportedDegreeError) Error() string {
	return fmt.Sprintf("polynomial degree %d is strictly greater than 2, cannot solve", e.Degree)
}

func (e *UnsupportedDegreeError) Unwrap() error {
	return ErrUnsupportedDegree
}

// NotFoundError represents a resource not found error with context
type NotFoundError struct {
	Resource string // Type of resource (e.g., "history entry", "job")
	ID       string // Identifier of the resource
	Err      error  // Underlying error, if any
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNotFound
}

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string // Field name that failed validation
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// IOError represents an I/O operation error with context
type IOError struct {
	Operation string // Operation being performed (e.g., "read", "open")
	Path      string // File/resource path involved
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Helper functions for creating common errors

// NewLex creates a LexError
func NewLex(pos Position, text, reason string) *LexError {
	return &LexError{Pos: pos, Text: text, Reason: reason}
}

// NewParse creates a ParseError
func NewParse(pos Position, format string, args ...interface{}) *ParseError {
	return &ParseError{Pos: pos, Reason: fmt.Sprintf(format, args...)}
}

// NewUnsupportedDegree creates an UnsupportedDegreeError
func NewUnsupportedDegree(degree *big.Int) *UnsupportedDegreeError {
	return &UnsupportedDegreeError{Degree: degree}
}

// NewNotFound creates a NotFoundError
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

// NewValidation creates a ValidationError
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewIO creates an IOError
func NewIO(operation, path string, err error) *IOError {
	return &IOError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}

// Kind returns a stable code for the error's category, e.g. "PARSE_ERROR".
// Unknown errors map to "INTERNAL_ERROR".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrLex):
		return "LEX_ERROR"
	case errors.Is(err, ErrParse):
		return "PARSE_ERROR"
	case errors.Is(err, ErrUnsupportedDegree):
		return "UNSUPPORTED_DEGREE"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrInvalidInput):
		return "INVALID_REQUEST"
	default:
		return "INTERNAL_ERROR"
	}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
