package statement

import (
	"fmt"
	"strings"
)

// SyntaxError reports malformed statement text.
type SyntaxError struct {
	Offset   int
	Line     int
	Column   int
	Expected []string
	Found    string
}

func (e *SyntaxError) Error() string {
	if len(e.Expected) == 0 {
		return fmt.Sprintf("syntax error at line %d, column %d: %s", e.Line, e.Column, e.Found)
	}
	return fmt.Sprintf("syntax error at line %d, column %d: expected %s, found %s",
		e.Line, e.Column, strings.Join(e.Expected, " or "), e.Found)
}

// SemanticError reports well-formed text that names an unknown keyword, field,
// option or account, or uses an operator the field does not support. Errors
// found after parsing carry no position.
type SemanticError struct {
	Offset int
	Line   int
	Column int
	Msg    string
	Err    error
}

func (e *SemanticError) Error() string {
	msg := e.Msg
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Line == 0 {
		return "semantic error: " + msg
	}
	return fmt.Sprintf("semantic error at line %d, column %d: %s", e.Line, e.Column, msg)
}

func (e *SemanticError) Unwrap() error { return e.Err }

// position converts a byte offset into 1-based line and column numbers.
func position(src string, offset int) (line, col int) {
	offset = min(offset, len(src))
	line = 1 + strings.Count(src[:offset], "\n")
	col = offset - strings.LastIndex(src[:offset], "\n")
	return line, col
}

func syntaxAt(src string, offset int, expected []string, found string) *SyntaxError {
	line, col := position(src, offset)
	return &SyntaxError{Offset: offset, Line: line, Column: col, Expected: expected, Found: found}
}

func semanticAt(src string, offset int, err error, format string, args ...any) *SemanticError {
	line, col := position(src, offset)
	return &SemanticError{Offset: offset, Line: line, Column: col, Msg: fmt.Sprintf(format, args...), Err: err}
}
