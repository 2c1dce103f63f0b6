package template

import "unicode"

type exprTokenKind int

const (
	exprEOF exprTokenKind = iota
	exprIdent
	exprNumber
	exprString
	exprOperator
	exprLParen
	exprRParen
	exprLBracket
	exprRBracket
	exprComma
	exprDot
)

// exprToken is one lexical token of a directive expression
type exprToken struct {
	kind exprTokenKind
	text string
	pos  int // rune offset in the expression
}

const (
	charTab        = '\t'
	charNewline    = '\n'
	charReturn     = '\r'
	charSpace      = ' '
	charQuote      = '"'
	charApostrophe = '\''
	charBackslash  = '\\'
	charPeriod     = '.'
	charUnderscore = '_'
)

// wordOperators are spelled-out logical operators
var wordOperators = map[string]string{
	"and": "&",
	"or":  "|",
	"not": "!",
}

// exprLexer scans an expression one rune at a time
type exprLexer struct {
	runes      []rune
	pos        int
	parenDepth int
	tokens     []exprToken
}

func lexExpression(input string) ([]exprToken, error) {
	l := &exprLexer{runes: []rune(input)}
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		l.tokens = append(l.tokens, tok)
		if tok.kind == exprEOF {
			break
		}
	}
	if l.parenDepth > 0 {
		return nil, NewParseError("unbalanced parentheses: missing ')'", "", len(l.runes))
	}
	return l.tokens, nil
}

func (l *exprLexer) peek(offset int) rune {
	if l.pos+offset >= len(l.runes) {
		return 0
	}
	return l.runes[l.pos+offset]
}

func (l *exprLexer) skipWhitespace() {
	for l.pos < len(l.runes) {
		switch l.runes[l.pos] {
		case charSpace, charTab, charNewline, charReturn:
			l.pos++
		default:
			return
		}
	}
}

func (l *exprLexer) next() (exprToken, error) {
	l.skipWhitespace()
	if l.pos >= len(l.runes) {
		return exprToken{kind: exprEOF, pos: l.pos}, nil
	}

	start := l.pos
	ch := l.runes[l.pos]

	switch {
	case ch == charQuote || ch == charApostrophe:
		return l.scanString(ch)
	case unicode.IsDigit(ch), ch == charPeriod && unicode.IsDigit(l.peek(1)):
		return l.scanNumber(), nil
	case unicode.IsLetter(ch) || ch == charUnderscore:
		word := l.scanWord()
		if op, ok := wordOperators[word]; ok {
			return exprToken{kind: exprOperator, text: op, pos: start}, nil
		}
		return exprToken{kind: exprIdent, text: word, pos: start}, nil
	}

	l.pos++
	switch ch {
	case '(':
		l.parenDepth++
		return exprToken{kind: exprLParen, text: "(", pos: start}, nil
	case ')':
		l.parenDepth--
		if l.parenDepth < 0 {
			return exprToken{}, NewParseError("unbalanced parentheses: unexpected ')'", ")", start)
		}
		return exprToken{kind: exprRParen, text: ")", pos: start}, nil
	case '[':
		return exprToken{kind: exprLBracket, text: "[", pos: start}, nil
	case ']':
		return exprToken{kind: exprRBracket, text: "]", pos: start}, nil
	case ',':
		return exprToken{kind: exprComma, text: ",", pos: start}, nil
	case '.':
		return exprToken{kind: exprDot, text: ".", pos: start}, nil
	case '+', '-', '*', '/', '%':
		return exprToken{kind: exprOperator, text: string(ch), pos: start}, nil
	case '=', '!', '<', '>':
		if l.peek(0) == '=' {
			l.pos++
			return exprToken{kind: exprOperator, text: string(ch) + "=", pos: start}, nil
		}
		if ch == '=' {
			return exprToken{}, NewParseError("assignment is not supported, use '=='", "=", start)
		}
		return exprToken{kind: exprOperator, text: string(ch), pos: start}, nil
	case '&', '|':
		// && and || collapse onto the single-character form
		if l.peek(0) == ch {
			l.pos++
		}
		return exprToken{kind: exprOperator, text: string(ch), pos: start}, nil
	}

	return exprToken{}, NewParseError("unexpected character", string(ch), start)
}

func (l *exprLexer) scanWord() string {
	start := l.pos
	for l.pos < len(l.runes) {
		ch := l.runes[l.pos]
		if !unicode.IsLetter(ch) && !unicode.IsDigit(ch) && ch != charUnderscore {
			break
		}
		l.pos++
	}
	return string(l.runes[start:l.pos])
}

func (l *exprLexer) scanNumber() exprToken {
	start := l.pos
	seenDot := false
	for l.pos < len(l.runes) {
		ch := l.runes[l.pos]
		if ch == charPeriod && !seenDot && unicode.IsDigit(l.peek(1)) {
			seenDot = true
			l.pos++
			continue
		}
		if !unicode.IsDigit(ch) {
			break
		}
		l.pos++
	}
	text := string(l.runes[start:l.pos])
	if text[0] == charPeriod {
		text = "0" + text
	}
	return exprToken{kind: exprNumber, text: text, pos: start}
}

// scanString reads a literal delimited by quote. A backslash escapes the
// next rune.
func (l *exprLexer) scanString(quote rune) (exprToken, error) {
	start := l.pos
	l.pos++

	var value []rune
	for l.pos < len(l.runes) {
		ch := l.runes[l.pos]
		switch {
		case ch == charBackslash && l.pos+1 < len(l.runes):
			value = append(value, l.runes[l.pos+1])
			l.pos += 2
		case ch == quote:
			l.pos++
			return exprToken{kind: exprString, text: string(value), pos: start}, nil
		default:
			value = append(value, ch)
			l.pos++
		}
	}
	return exprToken{}, NewParseError("unclosed string literal", string(quote), start)
}

// isIdentifier reports whether s is a single variable name
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, ch := range s {
		if ch == charUnderscore || unicode.IsLetter(ch) || (i > 0 && unicode.IsDigit(ch)) {
			continue
		}
		return false
	}
	_, reserved := wordOperators[s]
	return !reserved
}
