package vsdx

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotVisio is returned when a container lacks the parts of a Visio package.
	ErrNotVisio = errors.New("not a visio package")
	// ErrClosed is returned by operations on a closed Document.
	ErrClosed = errors.New("document is closed")
	// ErrPageNotFound is returned when a page index or name does not resolve.
	ErrPageNotFound = errors.New("page not found")
	// ErrShapeNotFound is returned when a shape id does not resolve.
	ErrShapeNotFound = errors.New("shape not found")
	// ErrInvalidPosition is returned for page positions outside the page list.
	ErrInvalidPosition = errors.New("invalid page position")
)

// DocumentError represents a structural failure while loading or saving a
// package
type DocumentError struct {
	Operation string
	Path      string
	Cause     error
}

func (e *DocumentError) Error() string {
	if e.Path != "" && e.Cause != nil {
		return fmt.Sprintf("document error during %s of '%s': %v", e.Operation, e.Path, e.Cause)
	} else if e.Path != "" {
		return fmt.Sprintf("document error during %s of '%s'", e.Operation, e.Path)
	} else if e.Cause != nil {
		return fmt.Sprintf("document error during %s: %v", e.Operation, e.Cause)
	}
	return fmt.Sprintf("document error during %s", e.Operation)
}

func (e *DocumentError) Unwrap() error {
	return e.Cause
}

// NewDocumentError creates a new document error
func NewDocumentError(operation, path string, cause error) error {
	return &DocumentError{
		Operation: operation,
		Path:      path,
		Cause:     cause,
	}
}

// DirectiveError is a directive expansion failure on one page
type DirectiveError struct {
	Page  string
	Cause error
}

func (e *DirectiveError) Error() string {
	return fmt.Sprintf("directive error on page '%s': %v", e.Page, e.Cause)
}

func (e *DirectiveError) Unwrap() error {
	return e.Cause
}

// ValidationIssue is a single dangling reference or structural problem
type ValidationIssue struct {
	Page    string
	ShapeID string
	Cell    string
	Message string
}

func (i ValidationIssue) String() string {
	var loc []string
	if i.Page != "" {
		loc = append(loc, "page "+i.Page)
	}
	if i.ShapeID != "" {
		loc = append(loc, "shape "+i.ShapeID)
	}
	if i.Cell != "" {
		loc = append(loc, "cell "+i.Cell)
	}
	if len(loc) == 0 {
		return i.Message
	}
	return strings.Join(loc, " ") + ": " + i.Message
}

// ValidationError represents multiple validation issues
type ValidationError struct {
	Issues []ValidationIssue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "validation error"
	}

	if len(e.Issues) == 1 {
		return fmt.Sprintf("validation error: %s", e.Issues[0])
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("%d validation issues:", len(e.Issues)))
	for _, issue := range e.Issues {
		parts = append(parts, "  "+issue.String())
	}
	return strings.Join(parts, "\n")
}

// MultiError collects multiple errors
type MultiError struct {
	errors []error
}

// NewMultiError creates a new multi-error collector
func NewMultiError() *MultiError {
	return &MultiError{
		errors: make([]error, 0),
	}
}

// Add adds an error to the collection (ignores nil errors)
func (m *MultiError) Add(err error) {
	if err != nil {
		m.errors = append(m.errors, err)
	}
}

// Len returns the number of errors
func (m *MultiError) Len() int {
	return len(m.errors)
}

// Errors returns the collected errors
func (m *MultiError) Errors() []error {
	return m.errors
}

// Unwrap exposes the collected errors to errors.Is and errors.As
func (m *MultiError) Unwrap() []error {
	return m.errors
}

// Err returns the multi-error or nil if empty
func (m *MultiError) Err() error {
	if len(m.errors) == 0 {
		return nil
	}
	return m
}

func (m *MultiError) Error() string {
	if len(m.errors) == 0 {
		return "no errors"
	}

	if len(m.errors) == 1 {
		return m.errors[0].Error()
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("%d errors occurred:", len(m.errors)))
	for i, err := range m.errors {
		parts = append(parts, fmt.Sprintf("  [%d] %v", i+1, err))
	}
	return strings.Join(parts, "\n")
}

// ContextError adds context to an existing error
type ContextError struct {
	Operation string
	Context   map[string]interface{}
	Cause     error
}

func (e *ContextError) Error() string {
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var contextParts []string
	for _, k := range keys {
		contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
	}

	if len(contextParts) > 0 {
		return fmt.Sprintf("%s [%s]: %v", e.Operation, strings.Join(contextParts, ", "), e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Operation, e.Cause)
}

func (e *ContextError) Unwrap() error {
	return e.Cause
}

// WithContext wraps an error with additional context
func WithContext(err error, operation string, context map[string]interface{}) error {
	if err == nil {
		return nil
	}
	return &ContextError{
		Operation: operation,
		Context:   context,
		Cause:     err,
	}
}

// IsDocumentError checks if an error is a document error
func IsDocumentError(err error) bool {
	var docErr *DocumentError
	return errors.As(err, &docErr)
}

// IsDirectiveError checks if an error carries a directive error
func IsDirectiveError(err error) bool {
	var dirErr *DirectiveError
	return errors.As(err, &dirErr)
}
