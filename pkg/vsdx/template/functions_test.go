package template

import (
	"errors"
	"reflect"
	"testing"
)

func TestBuiltinFunctions(t *testing.T) {
	data := Data{
		"xs":    []interface{}{1, 2, 3},
		"fs":    []interface{}{1.5, 2},
		"names": []string{"a", "b"},
		"s":     "Hello",
		"blank": "",
	}

	tests := []struct {
		expr string
		want interface{}
	}{
		{"len(xs)", 3},
		{"length(s)", 5},
		{"len(names)", 2},
		{"upper(s)", "HELLO"},
		{"lower(s)", "hello"},
		{`join(xs, ", ")`, "1, 2, 3"},
		{"join(names)", "ab"},
		{`default(blank, "n/a")`, "n/a"},
		{`default(s, "n/a")`, "Hello"},
		{`coalesce(missing, blank, "x")`, "x"},
		{"empty(blank)", true},
		{"empty(xs)", false},
		{"range(3)", []interface{}{0, 1, 2}},
		{"range(1, 7, 2)", []interface{}{1, 3, 5}},
		{"range(3, 0, -1)", []interface{}{3, 2, 1}},
		{"str(42)", "42"},
		{"round(2.6)", 3},
		{"round(1.25, 1)", 1.3},
		{"sum(xs)", 6},
		{"sum(fs)", 3.5},
		{`contains("ell", s)`, true},
		{"contains(2, xs)", true},
		{"contains(9, xs)", false},
		{`format("%s-%d", s, 7)`, "Hello-7"},
		{`replace(s, "l", "L")`, "HeLLo"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			node, err := ParseExpression(tt.expr)
			if err != nil {
				t.Fatalf("ParseExpression(%q) error: %v", tt.expr, err)
			}
			got, err := node.Evaluate(data)
			if err != nil {
				t.Fatalf("Evaluate(%q) error: %v", tt.expr, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Evaluate(%q) = %#v, want %#v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestFunctionArgumentCount(t *testing.T) {
	fn, ok := GetDefaultFunctionRegistry().GetFunction("upper")
	if !ok {
		t.Fatal("upper not registered")
	}

	_, err := fn.Call()
	var fnErr *FunctionError
	if !errors.As(err, &fnErr) {
		t.Fatalf("Call() error = %v, want *FunctionError", err)
	}
	if fnErr.Function != "upper" {
		t.Errorf("FunctionError.Function = %q, want upper", fnErr.Function)
	}

	if _, err := fn.Call("a", "b"); err == nil {
		t.Error("expected error for too many arguments")
	}
}

func TestCustomFunctionRegistry(t *testing.T) {
	registry := NewRegistryWithBuiltins()
	err := registry.RegisterFunction(NewSimpleFunction("rack", 1, 1, func(args ...interface{}) (interface{}, error) {
		return "rack-" + FormatValue(args[0]), nil
	}))
	if err != nil {
		t.Fatalf("RegisterFunction() error: %v", err)
	}

	got, err := Render("{{ rack(n) }} {{ upper(\"x\") }}", Data{"n": 4}, &Options{Functions: registry})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if got != "rack-4 X" {
		t.Errorf("Render() = %q, want %q", got, "rack-4 X")
	}

	if _, err := Render("{{ rack(1) }}", Data{}, nil); err == nil {
		t.Error("custom function leaked into the default registry")
	}

	if err := registry.RegisterFunction(NewSimpleFunction("", 0, 0, nil)); err == nil {
		t.Error("expected error registering a function without a name")
	}
}
