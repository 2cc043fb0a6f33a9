package queryexpr

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Code categorizes engine errors.
type Code string

// Error code constants for categorizing errors.
const (
	CodeInvalidArgumentShape  Code = "INVALID_ARGUMENT_SHAPE"  // wrong arity/type at a builder
	CodeInvalidExpressionItem Code = "INVALID_EXPRESSION_ITEM" // expression array holds a non-token
	CodeEvaluationFailure     Code = "EVALUATION_FAILURE"      // syntax or runtime fault in an expression
	CodeNotAnArray            Code = "NOT_AN_ARRAY"
	CodeMalformedJSON         Code = "MALFORMED_JSON"
	CodeUnknownMethod         Code = "UNKNOWN_METHOD"
	CodeInvalidDescriptor     Code = "INVALID_DESCRIPTOR" // descriptor or token object has the wrong structure
)

// Sentinel errors, one per Code. Every *Error and *ParseError unwraps to one of
// these so callers can use errors.Is.
var (
	ErrInvalidArgumentShape  = errors.New("invalid argument shape")
	ErrInvalidExpressionItem = errors.New("invalid expression item")
	ErrEvaluationFailure     = errors.New("evaluation failure")
	ErrNotAnArray            = errors.New("not an array")
	ErrMalformedJSON         = errors.New("malformed json")
	ErrUnknownMethod         = errors.New("unknown method")
	ErrInvalidDescriptor     = errors.New("invalid descriptor")
)

var sentinels = map[Code]error{
	CodeInvalidArgumentShape:  ErrInvalidArgumentShape,
	CodeInvalidExpressionItem: ErrInvalidExpressionItem,
	CodeEvaluationFailure:     ErrEvaluationFailure,
	CodeNotAnArray:            ErrNotAnArray,
	CodeMalformedJSON:         ErrMalformedJSON,
	CodeUnknownMethod:         ErrUnknownMethod,
	CodeInvalidDescriptor:     ErrInvalidDescriptor,
}

// Error represents a structured error with a code, message, and optional details.
// It is JSON-serializable so callers can surface it next to an input field.
type Error struct {
	Code    Code           `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the sentinel error for the code.
func (e *Error) Unwrap() error {
	return sentinels[e.Code]
}

func newError(code Code, details map[string]any, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: details,
	}
}

// shapeError reports a builder call or descriptor whose arguments do not match
// the method's arity/type contract.
func shapeError(m Method, format string, args ...any) *Error {
	return &Error{
		Code:    CodeInvalidArgumentShape,
		Message: fmt.Sprintf("%s expects (%s): %s", m.Name, m.Shape.Expected(m.List), fmt.Sprintf(format, args...)),
		Details: map[string]any{
			"method":   m.Name,
			"expected": m.Shape.Expected(m.List),
		},
	}
}

// ParseError represents a syntax error found while parsing an expression.
type ParseError struct {
	Message  string `json:"message"`
	Pos      Pos    `json:"pos"`
	Got      string `json:"got,omitempty"`
	Expected string `json:"expected,omitempty"`
}

// Error implements the error interface for ParseError.
func (e *ParseError) Error() string {
	if e.Got != "" && e.Expected != "" {
		return fmt.Sprintf("parse error at %d:%d: %s (got %q, expected %s)",
			e.Pos.Line, e.Pos.Column, e.Message, e.Got, e.Expected)
	}
	if e.Got != "" {
		return fmt.Sprintf("parse error at %d:%d: %s (got %q)",
			e.Pos.Line, e.Pos.Column, e.Message, e.Got)
	}
	return fmt.Sprintf("parse error at %d:%d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// Unwrap makes every parse error an evaluation failure.
func (e *ParseError) Unwrap() error {
	return ErrEvaluationFailure
}

// CodeOf returns the code of the first *Error or *ParseError in err's chain,
// or an empty Code when err carries neither.
func CodeOf(err error) Code {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Code
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		return CodeEvaluationFailure
	}
	return ""
}

// Diagnostic renders err as the single line shown next to an input field.
// Hints attached with errors.WithHint are appended. A nil error yields "".
func Diagnostic(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if hints := errors.GetAllHints(err); len(hints) > 0 {
		msg += " (" + strings.Join(hints, "; ") + ")"
	}
	return msg
}
