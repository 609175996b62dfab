package errors

import (
	"errors"
	"fmt"
	"math/big"
	"testing"
)

func TestLexError(t *testing.T) {
	tests := []struct {
		name    string
		err     *LexError
		wantMsg string
	}{
		{
			name:    "unexpected character",
			err:     &LexError{Pos: Position{Offset: 4, Line: 1, Column: 5}, Text: "y"},
			wantMsg: `lex error at 1:5: unexpected character "y"`,
		},
		{
			name:    "malformed number",
			err:     &LexError{Pos: Position{Line: 1, Column: 1}, Text: "1.2.3", Reason: "malformed number"},
			wantMsg: `lex error at 1:1: malformed number "1.2.3"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if !errors.Is(tt.err, ErrLex) {
				t.Error("expected errors.Is(err, ErrLex)")
			}
			if errors.Is(tt.err, ErrParse) {
				t.Error("lex error must not match ErrParse")
			}
		})
	}
}

func TestParseError(t *testing.T) {
	err := NewParse(Position{Line: 1, Column: 3}, "expected %s after %q", "integer", "^")
	if got, want := err.Error(), `parse error at 1:3: expected integer after "^"`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrParse) {
		t.Error("expected errors.Is(err, ErrParse)")
	}
}

func TestUnsupportedDegreeError(t *testing.T) {
	err := NewUnsupportedDegree(big.NewInt(3))
	if err.Degree.Int64() != 3 {
		t.Errorf("Degree = %d, want 3", err.Degree)
	}
	if !errors.Is(err, ErrUnsupportedDegree) {
		t.Error("expected errors.Is(err, ErrUnsupportedDegree)")
	}

	wrapped := fmt.Errorf("solve: %w", err)
	var target *UnsupportedDegreeError
	if !errors.As(wrapped, &target) {
		t.Fatal("expected errors.As to find UnsupportedDegreeError")
	}
	if target.Degree.Int64() != 3 {
		t.Errorf("unwrapped Degree = %d, want 3", target.Degree)
	}
}

func TestNotFoundError(t *testing.T) {
	tests := []struct {
		name     string
		err      *NotFoundError
		wantMsg  string
		wantBase error
	}{
		{
			name:     "with ID",
			err:      &NotFoundError{Resource: "job", ID: "abc"},
			wantMsg:  "job not found: abc",
			wantBase: ErrNotFound,
		},
		{
			name:     "without ID",
			err:      &NotFoundError{Resource: "history entry"},
			wantMsg:  "history entry not found",
			wantBase: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if got := tt.err.Unwrap(); !errors.Is(got, tt.wantBase) {
				t.Errorf("Unwrap() = %v, want %v", got, tt.wantBase)
			}
		})
	}

	t.Run("with underlying error", func(t *testing.T) {
		underlyingErr := fmt.Errorf("no rows")
		err := &NotFoundError{Resource: "history entry", ID: "x", Err: underlyingErr}
		if got := err.Unwrap(); got != underlyingErr {
			t.Errorf("Unwrap() = %v, want %v", got, underlyingErr)
		}
	})
}

func TestValidationError(t *testing.T) {
	err := NewValidation("equation", "must not be empty")
	if got, want := err.Error(), "validation failed for equation: must not be empty"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("expected errors.Is(err, ErrInvalidInput)")
	}

	noField := &ValidationError{Message: "bad"}
	if got, want := noField.Error(), "validation failed: bad"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestIOError(t *testing.T) {
	underlying := fmt.Errorf("permission denied")
	err := NewIO("read", "/tmp/eq.txt", underlying)
	if got, want := err.Error(), "failed to read /tmp/eq.txt: permission denied"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if err.Unwrap() != underlying {
		t.Error("Unwrap() should return the underlying error")
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&LexError{}, "LEX_ERROR"},
		{fmt.Errorf("wrapped: %w", &ParseError{}), "PARSE_ERROR"},
		{NewUnsupportedDegree(big.NewInt(4)), "UNSUPPORTED_DEGREE"},
		{NewNotFound("job", "1"), "NOT_FOUND"},
		{NewValidation("workers", "negative"), "INVALID_REQUEST"},
		{fmt.Errorf("boom"), "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		if got := Kind(tt.err); got != tt.want {
			t.Errorf("Kind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("Wrap(nil) should return nil")
	}
	base := NewParse(Position{Line: 1, Column: 1}, "missing '='")
	wrapped := Wrap(base, "solving")
	if !Is(wrapped, ErrParse) {
		t.Error("wrapped error should still match ErrParse")
	}
	if got, want := wrapped.Error(), "solving: parse error at 1:1: missing '='"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestWrapf(t *testing.T) {
	if Wrapf(nil, "line %d", 1) != nil {
		t.Error("Wrapf(nil) should return nil")
	}
	wrapped := Wrapf(NewUnsupportedDegree(big.NewInt(3)), "line %d", 7)
	var target *UnsupportedDegreeError
	if !As(wrapped, &target) {
		t.Fatal("As should find UnsupportedDegreeError")
	}
	if got, want := wrapped.Error(), "line 7: polynomial degree 3 is strictly greater than 2, cannot solve"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
