// Package token defines constants representing the lexical tokens of the
// evaluated SQL subset.
package token

// Token represents a lexical token.
type Token int

const (
	// Special tokens
	ILLEGAL Token = iota
	EOF
	COMMENT

	// Literals
	IDENT  // identifiers
	NUMBER // integer or float literals
	STRING // string literals

	// Operators
	PLUS     // +
	MINUS    // -
	ASTERISK // *
	SLASH    // /
	EQ       // =
	NEQ      // != or <>
	LT       // <
	GT       // >
	LTE      // <=
	GTE      // >=

	// Delimiters
	LPAREN    // (
	RPAREN    // )
	COMMA     // ,
	DOT       // .
	SEMICOLON // ;

	// Keywords
	keyword_beg
	AND
	AS
	ASC
	AVG
	BETWEEN
	BY
	COUNT
	DESC
	DISTINCT
	EXCEPT
	EXISTS
	FROM
	GROUP
	HAVING
	IN
	INTERSECT
	IS
	JOIN
	LIKE
	LIMIT
	MAX
	MIN
	NOT
	ON
	OR
	ORDER
	SELECT
	SUM
	UNION
	WHERE
	keyword_end
)

var tokens = [...]string{
	ILLEGAL: "ILLEGAL",
	EOF:     "EOF",
	COMMENT: "COMMENT",

	IDENT:  "IDENT",
	NUMBER: "NUMBER",
	STRING: "STRING",

	PLUS:     "+",
	MINUS:    "-",
	ASTERISK: "*",
	SLASH:    "/",
	EQ:       "=",
	NEQ:      "!=",
	LT:       "<",
	GT:       ">",
	LTE:      "<=",
	GTE:      ">=",

	LPAREN:    "(",
	RPAREN:    ")",
	COMMA:     ",",
	DOT:       ".",
	SEMICOLON: ";",

	AND:       "AND",
	AS:        "AS",
	ASC:       "ASC",
	AVG:       "AVG",
	BETWEEN:   "BETWEEN",
	BY:        "BY",
	COUNT:     "COUNT",
	DESC:      "DESC",
	DISTINCT:  "DISTINCT",
	EXCEPT:    "EXCEPT",
	EXISTS:    "EXISTS",
	FROM:      "FROM",
	GROUP:     "GROUP",
	HAVING:    "HAVING",
	IN:        "IN",
	INTERSECT: "INTERSECT",
	IS:        "IS",
	JOIN:      "JOIN",
	LIKE:      "LIKE",
	LIMIT:     "LIMIT",
	MAX:       "MAX",
	MIN:       "MIN",
	NOT:       "NOT",
	ON:        "ON",
	OR:        "OR",
	ORDER:     "ORDER",
	SELECT:    "SELECT",
	SUM:       "SUM",
	UNION:     "UNION",
	WHERE:     "WHERE",
}

func (tok Token) String() string {
	if tok >= 0 && int(tok) < len(tokens) {
		return tokens[tok]
	}
	return ""
}

// Keywords maps keyword strings to their token types.
var Keywords map[string]Token

func init() {
	Keywords = make(map[string]Token)
	for i := keyword_beg + 1; i < keyword_end; i++ {
		Keywords[tokens[i]] = i
	}
}

// Lookup returns the token type for an identifier string. Matching is
// case-insensitive; if the string is not a keyword, IDENT is returned.
func Lookup(ident string) Token {
	if tok, ok := Keywords[upper(ident)]; ok {
		return tok
	}
	return IDENT
}

// IsKeyword returns true if the token is a keyword.
func (tok Token) IsKeyword() bool {
	return tok > keyword_beg && tok < keyword_end
}

// IsAggregate returns true for the aggregation function keywords.
func (tok Token) IsAggregate() bool {
	switch tok {
	case MAX, MIN, COUNT, SUM, AVG:
		return true
	}
	return false
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'a' <= c && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

// Position represents a source position.
type Position struct {
	Offset int // byte offset
	Line   int // line number (1-based)
	Column int // column number (1-based)
}
