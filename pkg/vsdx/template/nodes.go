package template

import (
	"fmt"
	"strings"
)

// Node is an element of a compiled template
type Node interface {
	Render(data Data, opts *Options) (string, error)
	String() string
}

type TextNode struct {
	Content string
}

func (n *TextNode) String() string {
	return fmt.Sprintf("Text(%q)", n.Content)
}

func (n *TextNode) Render(data Data, opts *Options) (string, error) {
	return n.Content, nil
}

// OutputNode is a {{ expr }} whose value is written to the output
type OutputNode struct {
	Source     string
	Expression ExpressionNode
	Offset     int
}

func (n *OutputNode) String() string {
	return fmt.Sprintf("Output(%s)", n.Expression)
}

func (n *OutputNode) Render(data Data, opts *Options) (string, error) {
	if opts.Strict {
		if name, ok := rootVariable(n.Expression); ok {
			if _, defined := data[name]; !defined {
				return "", NewEvaluationError(n.Source, fmt.Errorf("undefined variable %q", name))
			}
		}
	}

	value, err := n.Expression.Evaluate(data)
	if err != nil {
		return "", NewEvaluationError(n.Source, err)
	}
	out := FormatValue(value)
	if opts.Escape != nil {
		out = opts.Escape(out)
	}
	return out, nil
}

// rootVariable returns the identifier an access chain starts from
func rootVariable(node ExpressionNode) (string, bool) {
	switch n := node.(type) {
	case *VariableNode:
		return n.Name, true
	case *FieldAccessNode:
		return rootVariable(n.Object)
	case *IndexAccessNode:
		return rootVariable(n.Object)
	}
	return "", false
}

// Branch is one guarded body of a conditional
type Branch struct {
	Condition ExpressionNode
	Body      []Node
}

// ConditionalNode is an if/elif/else chain. An unless block is a
// conditional whose first condition is negated and that has no elif.
type ConditionalNode struct {
	Negated  bool
	Branches []*Branch
	Else     []Node
}

func (n *ConditionalNode) String() string {
	if n.Negated {
		return fmt.Sprintf("Unless(%s)", n.Branches[0].Condition)
	}
	parts := []string{fmt.Sprintf("If(%s)", n.Branches[0].Condition)}
	for _, b := range n.Branches[1:] {
		parts = append(parts, fmt.Sprintf("ElsIf(%s)", b.Condition))
	}
	if len(n.Else) > 0 {
		parts = append(parts, "Else")
	}
	return strings.Join(parts, " ")
}

func (n *ConditionalNode) Render(data Data, opts *Options) (string, error) {
	for i, b := range n.Branches {
		value, err := b.Condition.Evaluate(data)
		if err != nil {
			return "", fmt.Errorf("condition %s: %w", b.Condition, err)
		}
		truthy := IsTruthy(value)
		if i == 0 && n.Negated {
			truthy = !truthy
		}
		if truthy {
			return renderNodes(b.Body, data, opts)
		}
	}
	return renderNodes(n.Else, data, opts)
}

// ForNode renders its body once per item. IndexVar is optional.
type ForNode struct {
	Variable   string
	IndexVar   string
	Collection ExpressionNode
	Body       []Node
}

func (n *ForNode) String() string {
	if n.IndexVar != "" {
		return fmt.Sprintf("For(%s, %s in %s)", n.IndexVar, n.Variable, n.Collection)
	}
	return fmt.Sprintf("For(%s in %s)", n.Variable, n.Collection)
}

func (n *ForNode) Render(data Data, opts *Options) (string, error) {
	value, err := n.Collection.Evaluate(data)
	if err != nil {
		return "", fmt.Errorf("loop collection %s: %w", n.Collection, err)
	}
	items, err := toSlice(value)
	if err != nil {
		return "", fmt.Errorf("loop collection %s: %w", n.Collection, err)
	}

	var out strings.Builder
	for i, item := range items {
		scope := Data{
			n.Variable: item,
			"loop": map[string]interface{}{
				"index":  i + 1,
				"index0": i,
				"first":  i == 0,
				"last":   i == len(items)-1,
				"length": len(items),
			},
		}
		if n.IndexVar != "" {
			scope[n.IndexVar] = i
		}

		body, err := renderNodes(n.Body, childScope(data, scope), opts)
		if err != nil {
			return "", err
		}
		out.WriteString(body)
	}
	return out.String(), nil
}

// childScope layers vars over parent without touching parent
func childScope(parent, vars Data) Data {
	scope := make(Data, len(parent)+len(vars))
	for k, v := range parent {
		scope[k] = v
	}
	for k, v := range vars {
		scope[k] = v
	}
	return scope
}

func renderNodes(body []Node, data Data, opts *Options) (string, error) {
	var out strings.Builder
	for _, node := range body {
		rendered, err := node.Render(data, opts)
		if err != nil {
			return "", err
		}
		out.WriteString(rendered)
	}
	return out.String(), nil
}
