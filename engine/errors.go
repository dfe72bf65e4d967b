package engine

import (
	"errors"
	"fmt"
)

// ErrorKind classifies engine failures per the recovery contract: validation
// failures are recoverable (state untouched, session informed); desync
// failures are fatal to the match.
type ErrorKind uint8

const (
	ErrValidation ErrorKind = iota
	ErrDesync
)

// RuleError is the structured failure value returned by action handlers.
// Code is a stable machine tag; Message is safe to surface to the player.
type RuleError struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *RuleError) Error() string { return e.Message }

func validationErr(code, format string, args ...any) *RuleError {
	return &RuleError{Kind: ErrValidation, Code: code, Message: fmt.Sprintf(format, args...)}
}

func desyncErr(format string, args ...any) *RuleError {
	return &RuleError{Kind: ErrDesync, Code: "desync", Message: fmt.Sprintf(format, args...)}
}

// IsDesync reports whether err is a fatal card-conservation failure.
func IsDesync(err error) bool {
	var re *RuleError
	return errors.As(err, &re) && re.Kind == ErrDesync
}

// ErrCode extracts the machine tag from a RuleError, or "" for other errors.
func ErrCode(err error) string {
	var re *RuleError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}
