// Package validation checks untrusted input before it reaches the solver
// or the filesystem.
package validation

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Limits on untrusted input (CWE-400).
const (
	// MaxEquationLength is the maximum equation length in bytes.
	MaxEquationLength = 4096
	// MaxPathLength is the maximum allowed path length.
	MaxPathLength = 4096
	// SniffLength is how much of a file IsLikelyText needs to see.
	SniffLength = 512
)

// Common validation errors.
var (
	ErrEmptyEquation    = errors.New("equation is required")
	ErrEquationTooLong  = errors.New("equation too long")
	ErrInvalidEncoding  = errors.New("invalid UTF-8")
	ErrInvalidCharacter = errors.New("invalid character")
	ErrEmptyPath        = errors.New("path cannot be empty")
	ErrPathTooLong      = errors.New("path too long")
)

// ValidateEquation rejects input the lexer should never see: blank
// strings, oversized strings, invalid UTF-8 and control characters other
// than tab.
func ValidateEquation(s string) error {
	if strings.TrimSpace(s) == "" {
		return ErrEmptyEquation
	}
	if len(s) > MaxEquationLength {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrEquationTooLong, len(s), MaxEquationLength)
	}
	if !utf8.ValidString(s) {
		return ErrInvalidEncoding
	}
	for i, r := range s {
		if r != '\t' && unicode.IsControl(r) {
			return fmt.Errorf("%w: control character at offset %d", ErrInvalidCharacter, i)
		}
	}
	return nil
}

// ValidatePath checks a filesystem path for length limits, null bytes and
// control characters.
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}

	if len(path) > MaxPathLength {
		return ErrPathTooLong
	}

	if strings.Contains(path, "\x00") {
		return fmt.Errorf("%w: null byte not allowed", ErrInvalidCharacter)
	}

	for _, r := range path {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidCharacter)
		}
	}

	return nil
}

// IsLikelyText reports whether buf looks like text rather than binary
// content. An empty buffer is text.
func IsLikelyText(buf []byte) bool {
	if len(buf) == 0 {
		return true
	}

	// Null bytes are a strong indicator of binary content
	if bytes.IndexByte(buf, 0) != -1 {
		return false
	}

	printable := 0
	control := 0
	for _, b := range buf {
		if b >= 0x20 && b <= 0x7e || b == '\t' || b == '\n' || b == '\r' {
			printable++
		} else if b < 0x20 || b == 0x7f {
			control++
		}
		// UTF-8 lead and continuation bytes count for neither
	}

	if printable+control == 0 {
		return utf8.Valid(buf)
	}
	return float64(printable)/float64(printable+control) > 0.95
}
