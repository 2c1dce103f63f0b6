package template

import (
	"fmt"
	"strings"
)

// TemplateError is a structural problem in a directive template, such as
// an endfor without a for. Line and Column are 1-based, 0 when unknown.
type TemplateError struct {
	Message string
	Line    int
	Column  int
}

func (e *TemplateError) Error() string {
	switch {
	case e.Line > 0 && e.Column > 0:
		return fmt.Sprintf("template %d:%d: %s", e.Line, e.Column, e.Message)
	case e.Line > 0:
		return fmt.Sprintf("template line %d: %s", e.Line, e.Message)
	}
	return "template: " + e.Message
}

func NewTemplateError(message string, line, column int) error {
	return &TemplateError{Message: message, Line: line, Column: column}
}

// ParseError is a malformed expression. Position is the rune offset inside
// the expression.
type ParseError struct {
	Message  string
	Token    string
	Position int
}

func (e *ParseError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("expression offset %d: %s", e.Position, e.Message)
	}
	return fmt.Sprintf("expression offset %d: %s (at %q)", e.Position, e.Message, e.Token)
}

func NewParseError(message, token string, position int) error {
	return &ParseError{Message: message, Token: token, Position: position}
}

// EvaluationError wraps a failure while evaluating a {{ }} or condition
type EvaluationError struct {
	Expression string
	Cause      error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluating %q: %v", e.Expression, e.Cause)
}

func (e *EvaluationError) Unwrap() error {
	return e.Cause
}

func NewEvaluationError(expression string, cause error) error {
	return &EvaluationError{Expression: expression, Cause: cause}
}

// FunctionError is a bad call of a registered function
type FunctionError struct {
	Function string
	Args     []interface{}
	Message  string
}

func (e *FunctionError) Error() string {
	args := make([]string, len(e.Args))
	for i, arg := range e.Args {
		args[i] = fmt.Sprintf("%#v", arg)
	}
	return fmt.Sprintf("%s(%s): %s", e.Function, strings.Join(args, ", "), e.Message)
}

func NewFunctionError(function string, args []interface{}, message string) error {
	return &FunctionError{Function: function, Args: args, Message: message}
}
