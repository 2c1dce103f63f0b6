package template

import (
	"fmt"
	"strings"
)

// blockFrame is an open {% if %}, {% unless %} or {% for %} block
type blockFrame struct {
	opener    Token
	cond      *ConditionalNode // nil for loops
	body      *[]Node          // where nodes are appended
	afterElse bool
}

// ParseControlStructures parses template source into nodes. Blocks are
// matched with a stack; the first structural error is reported with the
// line and column of the offending directive.
func ParseControlStructures(source string) ([]Node, error) {
	var root []Node
	stack := []*blockFrame{{body: &root}}

	errorAt := func(tok Token, format string, args ...interface{}) error {
		line, col := position(source, tok.Offset)
		return NewTemplateError(fmt.Sprintf(format, args...), line, col)
	}

	for _, tok := range Tokenize(source) {
		top := stack[len(stack)-1]

		switch tok.Type {
		case TokenText:
			if tok.Value != "" {
				*top.body = append(*top.body, &TextNode{Content: tok.Value})
			}

		case TokenVariable:
			expr, err := ParseExpression(tok.Value)
			if err != nil {
				return nil, errorAt(tok, "invalid expression %q: %v", tok.Value, err)
			}
			*top.body = append(*top.body, &OutputNode{Source: tok.Value, Expression: expr, Offset: tok.Offset})

		case TokenIf, TokenUnless:
			condition, err := parseCondition(tok)
			if err != nil {
				return nil, errorAt(tok, "%v", err)
			}
			branch := &Branch{Condition: condition}
			node := &ConditionalNode{Negated: tok.Type == TokenUnless, Branches: []*Branch{branch}}
			*top.body = append(*top.body, node)
			stack = append(stack, &blockFrame{opener: tok, cond: node, body: &branch.Body})

		case TokenFor:
			node, err := parseForSyntax(tok.Value)
			if err != nil {
				return nil, errorAt(tok, "%v", err)
			}
			*top.body = append(*top.body, node)
			stack = append(stack, &blockFrame{opener: tok, body: &node.Body})

		case TokenElsif:
			if top.cond == nil || top.cond.Negated {
				return nil, errorAt(tok, "unexpected {%% %s %%}", tok.Keyword)
			}
			if top.afterElse {
				return nil, errorAt(tok, "{%% %s %%} after {%% else %%}", tok.Keyword)
			}
			condition, err := parseCondition(tok)
			if err != nil {
				return nil, errorAt(tok, "%v", err)
			}
			branch := &Branch{Condition: condition}
			top.cond.Branches = append(top.cond.Branches, branch)
			top.body = &branch.Body

		case TokenElse:
			if top.cond == nil {
				return nil, errorAt(tok, "unexpected {%% else %%}")
			}
			if top.afterElse {
				return nil, errorAt(tok, "{%% else %%} after {%% else %%}")
			}
			top.afterElse = true
			top.body = &top.cond.Else

		case TokenEnd:
			if len(stack) == 1 {
				return nil, errorAt(tok, "unexpected {%% %s %%} without a matching opening directive", tok.Keyword)
			}
			if tok.Keyword != "end" && tok.Keyword != "end"+top.opener.Keyword {
				return nil, errorAt(tok, "{%% %s %%} does not close {%% %s %%}", tok.Keyword, top.opener.Keyword)
			}
			stack = stack[:len(stack)-1]

		default:
			return nil, errorAt(tok, "unknown directive {%% %s %%}", tok.Value)
		}
	}

	if len(stack) > 1 {
		open := stack[len(stack)-1].opener
		return nil, errorAt(open, "unclosed {%% %s %%} directive", open.Keyword)
	}
	return root, nil
}

func parseCondition(tok Token) (ExpressionNode, error) {
	if strings.TrimSpace(tok.Value) == "" {
		return nil, fmt.Errorf("{%% %s %%} requires a condition", tok.Keyword)
	}
	condition, err := ParseExpression(tok.Value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s condition %q: %w", tok.Keyword, tok.Value, err)
	}
	return condition, nil
}

// parseForSyntax parses "var in collection" or "idx, var in collection"
func parseForSyntax(src string) (*ForNode, error) {
	src = strings.TrimSpace(src)

	vars, collectionSrc, ok := strings.Cut(src, " in ")
	if !ok {
		return nil, fmt.Errorf("invalid for loop syntax %q: missing 'in' keyword", src)
	}

	collection, err := ParseExpression(strings.TrimSpace(collectionSrc))
	if err != nil {
		return nil, fmt.Errorf("invalid loop collection: %w", err)
	}

	node := &ForNode{Collection: collection}
	if index, variable, indexed := strings.Cut(vars, ","); indexed {
		node.IndexVar = strings.TrimSpace(index)
		node.Variable = strings.TrimSpace(variable)
		if !isIdentifier(node.IndexVar) {
			return nil, fmt.Errorf("invalid loop index variable %q", node.IndexVar)
		}
	} else {
		node.Variable = strings.TrimSpace(vars)
	}

	if !isIdentifier(node.Variable) {
		return nil, fmt.Errorf("invalid loop variable %q", node.Variable)
	}
	return node, nil
}
