package vsdx

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestDocumentError(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"full", NewDocumentError("save", "a.vsdx", cause), "document error during save of 'a.vsdx': boom"},
		{"no path", NewDocumentError("read", "", cause), "document error during read: boom"},
		{"no cause", NewDocumentError("open", "a.vsdx", nil), "document error during open of 'a.vsdx'"},
		{"bare", NewDocumentError("close", "", nil), "document error during close"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}

	wrapped := fmt.Errorf("outer: %w", NewDocumentError("open", "x", ErrNotVisio))
	if !IsDocumentError(wrapped) || !errors.Is(wrapped, ErrNotVisio) {
		t.Error("DocumentError should unwrap to its cause")
	}
}

func TestMultiError(t *testing.T) {
	m := NewMultiError()
	if m.Err() != nil {
		t.Error("empty MultiError should yield nil")
	}

	m.Add(nil)
	m.Add(&DirectiveError{Page: "P1", Cause: errors.New("bad")})
	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", m.Len())
	}
	if got := m.Error(); got != "directive error on page 'P1': bad" {
		t.Errorf("Error() = %q", got)
	}

	m.Add(ErrPageNotFound)
	if !strings.HasPrefix(m.Error(), "2 errors occurred:") {
		t.Errorf("Error() = %q", m.Error())
	}
	if !errors.Is(m.Err(), ErrPageNotFound) || !IsDirectiveError(m.Err()) {
		t.Error("MultiError should expose its errors to errors.Is and errors.As")
	}
}

func TestValidationError(t *testing.T) {
	one := &ValidationError{Issues: []ValidationIssue{{Page: "P", ShapeID: "3", Cell: "Width", Message: "dangling"}}}
	if got := one.Error(); got != "validation error: page P shape 3 cell Width: dangling" {
		t.Errorf("Error() = %q", got)
	}

	two := &ValidationError{Issues: []ValidationIssue{{Message: "a"}, {Message: "b"}}}
	if got := two.Error(); !strings.HasPrefix(got, "2 validation issues:") {
		t.Errorf("Error() = %q", got)
	}
}

func TestWithContext(t *testing.T) {
	if WithContext(nil, "op", nil) != nil {
		t.Error("WithContext(nil) should be nil")
	}

	err := WithContext(ErrInvalidPosition, "add page", map[string]interface{}{"name": "A", "index": 9})
	if got := err.Error(); got != "add page [index=9, name=A]: invalid page position" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, ErrInvalidPosition) {
		t.Error("ContextError should unwrap to its cause")
	}
}
