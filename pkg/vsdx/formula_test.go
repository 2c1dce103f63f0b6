package vsdx

import (
	"reflect"
	"testing"
)

func TestFormulaReferences(t *testing.T) {
	tests := []struct {
		formula string
		want    []string
	}{
		{"Sheet.7!Width", []string{"7"}},
		{"Sheet.7!PinX+Sheet.12!PinX", []string{"7", "12"}},
		{"GUARD(Sheet.3!Height*0.5)", []string{"3"}},
		{"Width*2", nil},
		{`"Sheet.4!Width"`, nil},
		{`"Sheet.9!x"&Sheet.1!PinX`, []string{"1"}},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.formula, func(t *testing.T) {
			if got := FormulaReferences(tt.formula); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FormulaReferences(%q) = %v, want %v", tt.formula, got, tt.want)
			}
		})
	}
}

func TestRewriteFormula(t *testing.T) {
	ids := map[string]string{"7": "42", "1": "2"}

	tests := []struct {
		formula string
		want    string
	}{
		{"Sheet.7!PinX", "Sheet.42!PinX"},
		{"Sheet.7!PinX+Sheet.8!PinX", "Sheet.42!PinX+Sheet.8!PinX"},
		{"Sheet.17!Width", "Sheet.17!Width"},
		{"Sheet.1!A+Sheet.7!B", "Sheet.2!A+Sheet.42!B"},
		{"Width*2", "Width*2"},
		{`"Sheet.7!x"&Sheet.7!PinX`, `"Sheet.7!x"&Sheet.42!PinX`},
		{`"a""Sheet.1!"""&Sheet.1!A`, `"a""Sheet.1!"""&Sheet.2!A`},
	}

	for _, tt := range tests {
		t.Run(tt.formula, func(t *testing.T) {
			if got := rewriteFormula(tt.formula, ids); got != tt.want {
				t.Errorf("rewriteFormula(%q) = %q, want %q", tt.formula, got, tt.want)
			}
		})
	}
}
