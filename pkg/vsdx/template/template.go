package template

import (
	"fmt"
	"html"
	"strings"
)

// Data is the variable scope a template is executed against
type Data map[string]interface{}

// functionsKey carries a per-execution FunctionRegistry inside Data
const functionsKey = "__functions__"

// Options control a single template execution
type Options struct {
	// Escape is applied to the output of every {{ }} expression.
	Escape func(string) string
	// Strict makes references to undefined root variables an error instead
	// of rendering as the empty string.
	Strict bool
	// Functions overrides the default function registry.
	Functions FunctionRegistry
}

// Template is a compiled template source
type Template struct {
	source string
	nodes  []Node
}

// Compile parses src into a reusable Template
func Compile(src string) (*Template, error) {
	nodes, err := ParseControlStructures(src)
	if err != nil {
		return nil, err
	}
	return &Template{source: src, nodes: nodes}, nil
}

// Source returns the text the template was compiled from
func (t *Template) Source() string {
	return t.source
}

// Execute renders the template against data
func (t *Template) Execute(data Data, opts *Options) (string, error) {
	if opts == nil {
		opts = &Options{}
	}

	scope := make(Data, len(data)+1)
	for k, v := range data {
		scope[k] = v
	}
	if opts.Functions != nil {
		scope[functionsKey] = opts.Functions
	}

	out, err := renderNodes(t.nodes, scope, opts)
	if err != nil {
		return "", err
	}
	return out, nil
}

// Render compiles src through the default cache and executes it
func Render(src string, data Data, opts *Options) (string, error) {
	tmpl, err := DefaultCache().Compile(src)
	if err != nil {
		return "", err
	}
	return tmpl.Execute(data, opts)
}

// EvaluateCondition evaluates a bare expression and reports its truthiness
func EvaluateCondition(expr string, data Data) (bool, error) {
	if strings.TrimSpace(expr) == "" {
		return false, fmt.Errorf("empty condition")
	}
	node, err := ParseExpression(expr)
	if err != nil {
		return false, err
	}
	value, err := node.Evaluate(data)
	if err != nil {
		return false, NewEvaluationError(expr, err)
	}
	return IsTruthy(value), nil
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// EscapeXML escapes s for use in XML character data or attribute values
func EscapeXML(s string) string {
	return xmlEscaper.Replace(s)
}

// UnescapeDirectives decodes character entities inside directive spans,
// leaving the text around them untouched. A serializer escapes the
// operators of "{% if a > b %}", this restores them.
func UnescapeDirectives(s string) string {
	spans := DirectiveSpans(s)
	if len(spans) == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	last := 0
	for _, span := range spans {
		b.WriteString(s[last:span[0]])
		b.WriteString(html.UnescapeString(s[span[0]:span[1]]))
		last = span[1]
	}
	b.WriteString(s[last:])
	return b.String()
}

// HasDirectives reports whether s contains any {{ }} or {% %} span
func HasDirectives(s string) bool {
	return directiveSpanRegex.MatchString(s)
}
