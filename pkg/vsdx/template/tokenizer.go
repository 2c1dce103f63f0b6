package template

import (
	"regexp"
	"strings"
)

// TokenType represents the type of a template token
type TokenType int

const (
	TokenText TokenType = iota
	TokenVariable
	TokenIf
	TokenElsif
	TokenElse
	TokenUnless
	TokenFor
	TokenEnd
	TokenUnknown
)

func (t TokenType) String() string {
	switch t {
	case TokenText:
		return "text"
	case TokenVariable:
		return "variable"
	case TokenIf:
		return "if"
	case TokenElsif:
		return "elif"
	case TokenElse:
		return "else"
	case TokenUnless:
		return "unless"
	case TokenFor:
		return "for"
	case TokenEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Token represents a parsed template token
type Token struct {
	Type TokenType
	// Value holds literal text, the expression of a {{ }} token or the
	// argument of a statement (the condition of an if, "x in xs" of a for).
	Value string
	// Keyword is the statement keyword as written, e.g. "endfor" or "elif".
	Keyword string
	// Offset is the byte offset of the token in the source.
	Offset int
}

var (
	// Matches {{ expr }} and {% statement %}. Statements may use the
	// whitespace-control dash form {%- ... -%}.
	tokenRegex = regexp.MustCompile(`(?s)\{\{(.*?)\}\}|\{%-?(.*?)-?%\}`)
	// Matches any directive delimiter span, used by callers that need to
	// locate directives without tokenizing.
	directiveSpanRegex = regexp.MustCompile(`(?s)\{\{.*?\}\}|\{%.*?%\}`)
)

// Tokenize parses a template string into tokens
func Tokenize(input string) []Token {
	var tokens []Token
	lastEnd := 0

	matches := tokenRegex.FindAllStringSubmatchIndex(input, -1)

	for _, match := range matches {
		// Add any text before this token
		if match[0] > lastEnd {
			tokens = append(tokens, Token{
				Type:   TokenText,
				Value:  input[lastEnd:match[0]],
				Offset: lastEnd,
			})
		}

		if match[2] >= 0 {
			// {{ expr }}
			content := strings.TrimSpace(input[match[2]:match[3]])
			if content == "" {
				tokens = append(tokens, Token{Type: TokenText, Value: input[match[0]:match[1]], Offset: match[0]})
			} else {
				tokens = append(tokens, Token{Type: TokenVariable, Value: content, Offset: match[0]})
			}
		} else {
			content := strings.TrimSpace(input[match[4]:match[5]])
			token := parseStatement(content)
			token.Offset = match[0]
			tokens = append(tokens, token)
		}

		lastEnd = match[1]
	}

	// Add any remaining text
	if lastEnd < len(input) {
		tokens = append(tokens, Token{
			Type:   TokenText,
			Value:  input[lastEnd:],
			Offset: lastEnd,
		})
	}

	return tokens
}

// parseStatement determines the type of a {% %} token from its content
func parseStatement(content string) Token {
	parts := strings.Fields(content)
	if len(parts) == 0 {
		return Token{Type: TokenUnknown, Value: content}
	}

	keyword := parts[0]
	rest := strings.TrimSpace(strings.TrimPrefix(content, keyword))

	switch keyword {
	case "if":
		return Token{Type: TokenIf, Value: rest, Keyword: keyword}
	case "elif", "elsif", "elseif":
		return Token{Type: TokenElsif, Value: rest, Keyword: keyword}
	case "else":
		return Token{Type: TokenElse, Keyword: keyword}
	case "unless":
		return Token{Type: TokenUnless, Value: rest, Keyword: keyword}
	case "for":
		return Token{Type: TokenFor, Value: rest, Keyword: keyword}
	case "end", "endif", "endfor", "endunless":
		return Token{Type: TokenEnd, Keyword: keyword}
	default:
		return Token{Type: TokenUnknown, Value: content, Keyword: keyword}
	}
}

// FindDirectives returns every {{ }} and {% %} span in input, in order.
func FindDirectives(input string) []string {
	matches := directiveSpanRegex.FindAllString(input, -1)
	if matches == nil {
		return []string{}
	}
	return matches
}

// DirectiveSpans returns the [start, end) byte offsets of every directive
// span in input.
func DirectiveSpans(input string) [][]int {
	return directiveSpanRegex.FindAllStringIndex(input, -1)
}

// position converts a byte offset to a 1-based line and column.
func position(src string, offset int) (int, int) {
	if offset > len(src) {
		offset = len(src)
	}
	line := 1 + strings.Count(src[:offset], "\n")
	col := offset + 1
	if idx := strings.LastIndex(src[:offset], "\n"); idx >= 0 {
		col = offset - idx
	}
	return line, col
}
