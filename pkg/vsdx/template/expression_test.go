package template

import (
	"reflect"
	"testing"
)

func TestParseExpressionAST(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		want    string
		wantErr bool
	}{
		{name: "variable", expr: "name", want: "Variable(name)"},
		{name: "string literal", expr: `"hi"`, want: `Literal("hi")`},
		{name: "field access", expr: "server.name", want: "FieldAccess(Variable(server).name)"},
		{name: "index access", expr: "xs[0]", want: "IndexAccess(Variable(xs)[Literal(0)])"},
		{name: "precedence", expr: "1 + 2 * 3", want: "BinaryOp(Literal(1) + BinaryOp(Literal(2) * Literal(3)))"},
		{name: "word operators", expr: "a and not b", want: "BinaryOp(Variable(a) & UnaryOp(! Variable(b)))"},
		{name: "double ampersand", expr: "a && b || c", want: "BinaryOp(BinaryOp(Variable(a) & Variable(b)) | Variable(c))"},
		{name: "function call", expr: "len(xs)", want: "FunctionCall(len, [Variable(xs)])"},
		{name: "trailing tokens", expr: "a b", wantErr: true},
		{name: "unbalanced paren", expr: "(a + b", wantErr: true},
		{name: "bad character", expr: "a # b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := ParseExpression(tt.expr)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseExpression(%q) expected error, got %s", tt.expr, node)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseExpression(%q) error: %v", tt.expr, err)
			}
			if got := node.String(); got != tt.want {
				t.Errorf("ParseExpression(%q) = %s, want %s", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEvaluateExpression(t *testing.T) {
	data := Data{
		"count": 3,
		"price": 2.5,
		"name":  "web",
		"tags":  []interface{}{"a", "b"},
		"server": map[string]interface{}{
			"host": "db1",
			"up":   true,
		},
		"empty": "",
	}

	tests := []struct {
		expr string
		want interface{}
	}{
		{"count + 1", 4},
		{"count * price", 7.5},
		{"count / 3", 1},
		{"7 % count", 1},
		{`name + "-" + count`, "web-3"},
		{"server.host", "db1"},
		{`server["up"]`, true},
		{"tags[1]", "b"},
		{"tags[-1]", "b"},
		{"count > 2 and server.up", true},
		{"count < 2 or empty", false},
		{"not empty", true},
		{`name == "web"`, true},
		{"count != 3", false},
		{`"abc" < "abd"`, true},
		{"missing", nil},
		{"missing.field", nil},
		{"-count", -3},
		{"(1 + 2) * 2", 6},
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

func TestEvaluateExpressionErrors(t *testing.T) {
	tests := []string{
		"1 / 0",
		"5 % 0",
		`"a" - 1`,
		"nosuchfn(1)",
	}

	for _, expr := range tests {
		t.Run(expr, func(t *testing.T) {
			node, err := ParseExpression(expr)
			if err != nil {
				t.Fatalf("ParseExpression(%q) error: %v", expr, err)
			}
			if _, err := node.Evaluate(Data{}); err == nil {
				t.Errorf("Evaluate(%q) expected error", expr)
			}
		})
	}
}

func TestIsTruthy(t *testing.T) {
	tests := []struct {
		value interface{}
		want  bool
	}{
		{nil, false},
		{false, false},
		{0, false},
		{0.0, false},
		{"", false},
		{[]interface{}{}, false},
		{map[string]interface{}{}, false},
		{true, true},
		{1, true},
		{"x", true},
		{[]string{"a"}, true},
		{struct{}{}, true},
	}

	for _, tt := range tests {
		if got := IsTruthy(tt.value); got != tt.want {
			t.Errorf("IsTruthy(%#v) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestLexExpression(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		want    []string
		wantErr bool
	}{
		{name: "escaped quote", expr: `"say \"hi\""`, want: []string{`say "hi"`}},
		{name: "single quotes", expr: `'it\'s'`, want: []string{"it's"}},
		{name: "leading dot number", expr: ".5 + 1.25", want: []string{"0.5", "+", "1.25"}},
		{name: "two char operators", expr: "a<=b&&c!=d", want: []string{"a", "<=", "b", "&", "c", "!=", "d"}},
		{name: "unicode identifier", expr: "größe", want: []string{"größe"}},
		{name: "unclosed string", expr: `"abc`, wantErr: true},
		{name: "assignment", expr: "a = 1", wantErr: true},
		{name: "extra close paren", expr: "a)", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := lexExpression(tt.expr)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("lexExpression(%q) expected error", tt.expr)
				}
				return
			}
			if err != nil {
				t.Fatalf("lexExpression(%q) error: %v", tt.expr, err)
			}
			var got []string
			for _, tok := range tokens {
				if tok.kind != exprEOF {
					got = append(got, tok.text)
				}
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("lexExpression(%q) = %q, want %q", tt.expr, got, tt.want)
			}
		})
	}
}

func TestIsIdentifier(t *testing.T) {
	tests := map[string]bool{
		"item":   true,
		"_x1":    true,
		"1x":     false,
		"a.b":    false,
		"":       false,
		"and":    false,
		"my var": false,
	}
	for in, want := range tests {
		if got := isIdentifier(in); got != want {
			t.Errorf("isIdentifier(%q) = %v, want %v", in, got, want)
		}
	}
}
