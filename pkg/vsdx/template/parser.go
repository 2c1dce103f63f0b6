package template

import "strconv"

// binaryPrecedence binds tighter with larger values
var binaryPrecedence = map[string]struct {
	op    BinaryOp
	level int
}{
	"|":  {BinOpOr, 1},
	"&":  {BinOpAnd, 2},
	"==": {BinOpEqual, 3},
	"!=": {BinOpNotEqual, 3},
	"<":  {BinOpLess, 4},
	">":  {BinOpGreater, 4},
	"<=": {BinOpLessEqual, 4},
	">=": {BinOpGreaterEqual, 4},
	"+":  {BinOpAdd, 5},
	"-":  {BinOpSubtract, 5},
	"*":  {BinOpMultiply, 6},
	"/":  {BinOpDivide, 6},
	"%":  {BinOpModulo, 6},
}

var unaryOperators = map[string]UnaryOp{
	"!": UnaryOpNot,
	"-": UnaryOpMinus,
	"+": UnaryOpPlus,
}

// ParseExpression parses a directive expression into an AST. The whole
// input must be consumed, so "name name2" is an error.
func ParseExpression(expr string) (ExpressionNode, error) {
	tokens, err := lexExpression(expr)
	if err != nil {
		return nil, err
	}

	p := &exprParser{tokens: tokens}
	node, err := p.parseBinary(1)
	if err != nil {
		return nil, err
	}
	if tok := p.current(); tok.kind != exprEOF {
		return nil, NewParseError("unexpected trailing token", tok.text, tok.pos)
	}
	return node, nil
}

type exprParser struct {
	tokens []exprToken
	pos    int
}

func (p *exprParser) current() exprToken {
	if p.pos >= len(p.tokens) {
		return exprToken{kind: exprEOF}
	}
	return p.tokens[p.pos]
}

func (p *exprParser) advance() exprToken {
	tok := p.current()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *exprParser) expect(kind exprTokenKind, what string) error {
	tok := p.current()
	if tok.kind != kind {
		return NewParseError("expected "+what, tok.text, tok.pos)
	}
	p.pos++
	return nil
}

// parseBinary climbs precedence: operands bind to operators of at least
// minLevel, all operators are left-associative
func (p *exprParser) parseBinary(minLevel int) (ExpressionNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.current()
		if tok.kind != exprOperator {
			return left, nil
		}
		info, ok := binaryPrecedence[tok.text]
		if !ok || info.level < minLevel {
			return left, nil
		}
		p.advance()

		right, err := p.parseBinary(info.level + 1)
		if err != nil {
			return nil, err
		}
		left = &BinaryOpNode{Left: left, Operator: info.op, Right: right}
	}
}

func (p *exprParser) parseUnary() (ExpressionNode, error) {
	tok := p.current()
	if tok.kind == exprOperator {
		if op, ok := unaryOperators[tok.text]; ok {
			p.advance()
			operand, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			return &UnaryOpNode{Operator: op, Operand: operand}, nil
		}
	}
	return p.parsePostfix()
}

// parsePostfix parses a primary followed by any chain of .field and [index]
func (p *exprParser) parsePostfix() (ExpressionNode, error) {
	node, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for {
		switch p.current().kind {
		case exprDot:
			p.advance()
			field := p.current()
			if field.kind != exprIdent {
				return nil, NewParseError("expected identifier after '.'", field.text, field.pos)
			}
			p.advance()
			node = &FieldAccessNode{Object: node, Field: field.text}
		case exprLBracket:
			p.advance()
			index, err := p.parseBinary(1)
			if err != nil {
				return nil, err
			}
			if err := p.expect(exprRBracket, "']' after index"); err != nil {
				return nil, err
			}
			node = &IndexAccessNode{Object: node, Index: index}
		default:
			return node, nil
		}
	}
}

func (p *exprParser) parsePrimary() (ExpressionNode, error) {
	tok := p.advance()

	switch tok.kind {
	case exprNumber:
		if n, err := strconv.Atoi(tok.text); err == nil {
			return &LiteralNode{Value: n}, nil
		}
		f, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return nil, NewParseError("invalid number", tok.text, tok.pos)
		}
		return &LiteralNode{Value: f}, nil

	case exprString:
		return &LiteralNode{Value: tok.text}, nil

	case exprIdent:
		switch tok.text {
		case "true", "True":
			return &LiteralNode{Value: true}, nil
		case "false", "False":
			return &LiteralNode{Value: false}, nil
		case "null", "nil", "None":
			return &LiteralNode{Value: nil}, nil
		}
		if p.current().kind == exprLParen {
			return p.parseCall(tok.text)
		}
		return &VariableNode{Name: tok.text}, nil

	case exprLParen:
		node, err := p.parseBinary(1)
		if err != nil {
			return nil, err
		}
		if err := p.expect(exprRParen, "')' after expression"); err != nil {
			return nil, err
		}
		return node, nil

	case exprEOF:
		return nil, NewParseError("unexpected end of expression", "", tok.pos)
	}
	return nil, NewParseError("unexpected token", tok.text, tok.pos)
}

func (p *exprParser) parseCall(name string) (ExpressionNode, error) {
	p.advance() // (
	call := &FunctionCallNode{Name: name}

	if p.current().kind == exprRParen {
		p.advance()
		return call, nil
	}

	for {
		arg, err := p.parseBinary(1)
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)

		tok := p.advance()
		switch tok.kind {
		case exprComma:
			continue
		case exprRParen:
			return call, nil
		}
		return nil, NewParseError("expected ',' or ')' in arguments", tok.text, tok.pos)
	}
}
