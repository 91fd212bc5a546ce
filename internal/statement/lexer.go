package statement

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenKind classifies a lexical token.
type TokenKind int

const (
	TokEOF TokenKind = iota
	TokIdent
	TokString
	TokNumber
	TokDate
	TokOp
	TokLParen
	TokRParen
	TokComma
	TokSemicolon
	TokStar
)

var tokenNames = map[TokenKind]string{
	TokEOF:       "end of input",
	TokIdent:     "identifier",
	TokString:    "string",
	TokNumber:    "number",
	TokDate:      "date",
	TokOp:        "operator",
	TokLParen:    "'('",
	TokRParen:    "')'",
	TokComma:     "','",
	TokSemicolon: "';'",
	TokStar:      "'*'",
}

func (k TokenKind) String() string { return tokenNames[k] }

// Token is one lexeme. Offset is the byte offset of its first character.
type Token struct {
	Kind   TokenKind
	Text   string
	Offset int
}

func (t Token) describe() string {
	switch t.Kind {
	case TokEOF:
		return t.Kind.String()
	case TokString:
		return fmt.Sprintf("string '%s'", t.Text)
	}
	return fmt.Sprintf("%q", t.Text)
}

// Lex splits src into tokens, ending with a TokEOF token. "--" starts a
// comment that runs to the end of the line.
func Lex(src string) ([]Token, error) {
	var toks []Token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '-' && i+1 < len(src) && src[i+1] == '-':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case c == '\'' || c == '"':
			tok, next, err := lexString(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			i = next
		case isDigit(c) || (c == '-' && i+1 < len(src) && isDigit(src[i+1])):
			tok, next := lexNumber(src, i)
			toks = append(toks, tok)
			i = next
		case isIdentStart(src, i):
			start := i
			for i < len(src) && isIdentPart(src, i) {
				_, size := utf8.DecodeRuneInString(src[i:])
				i += size
			}
			toks = append(toks, Token{Kind: TokIdent, Text: src[start:i], Offset: start})
		case c == '(':
			toks = append(toks, Token{Kind: TokLParen, Text: "(", Offset: i})
			i++
		case c == ')':
			toks = append(toks, Token{Kind: TokRParen, Text: ")", Offset: i})
			i++
		case c == ',':
			toks = append(toks, Token{Kind: TokComma, Text: ",", Offset: i})
			i++
		case c == ';':
			toks = append(toks, Token{Kind: TokSemicolon, Text: ";", Offset: i})
			i++
		case c == '*':
			toks = append(toks, Token{Kind: TokStar, Text: "*", Offset: i})
			i++
		case c == '=' || c == '<' || c == '>' || c == '!':
			width := 1
			if i+1 < len(src) && (src[i+1] == '=' || (c == '<' && src[i+1] == '>')) {
				width = 2
			}
			op := src[i : i+width]
			switch op {
			case "!":
				return nil, syntaxAt(src, i, []string{"'!='"}, "'!'")
			case "<>":
				op = "!="
			}
			toks = append(toks, Token{Kind: TokOp, Text: op, Offset: i})
			i += width
		default:
			r, _ := utf8.DecodeRuneInString(src[i:])
			return nil, syntaxAt(src, i, nil, fmt.Sprintf("unexpected character %q", r))
		}
	}
	toks = append(toks, Token{Kind: TokEOF, Offset: len(src)})
	return toks, nil
}

// lexString reads a quoted literal; a doubled quote character escapes itself.
func lexString(src string, start int) (Token, int, error) {
	quote := src[start]
	var b strings.Builder
	i := start + 1
	for i < len(src) {
		if src[i] == quote {
			if i+1 < len(src) && src[i+1] == quote {
				b.WriteByte(quote)
				i += 2
				continue
			}
			return Token{Kind: TokString, Text: b.String(), Offset: start}, i + 1, nil
		}
		b.WriteByte(src[i])
		i++
	}
	return Token{}, 0, syntaxAt(src, start, []string{"closing " + string(quote)}, "end of input")
}

// lexNumber reads a signed decimal, or a YYYY-MM / YYYY-MM-DD date literal.
// Digits running straight into letters form an identifier (e.g. 7eleven).
func lexNumber(src string, start int) (Token, int) {
	i := start
	if src[i] == '-' {
		i++
	}
	digitsStart := i
	for i < len(src) && isDigit(src[i]) {
		i++
	}
	if src[start] != '-' && i-digitsStart == 4 && i+2 < len(src) && src[i] == '-' && isDigit(src[i+1]) {
		j := i
		for j < len(src) && (isDigit(src[j]) || src[j] == '-') {
			j++
		}
		return Token{Kind: TokDate, Text: src[start:j], Offset: start}, j
	}
	if i < len(src) && src[i] == '.' && i+1 < len(src) && isDigit(src[i+1]) {
		i++
		for i < len(src) && isDigit(src[i]) {
			i++
		}
	}
	if src[start] != '-' && i < len(src) && isIdentStart(src, i) {
		for i < len(src) && isIdentPart(src, i) {
			_, size := utf8.DecodeRuneInString(src[i:])
			i += size
		}
		return Token{Kind: TokIdent, Text: src[start:i], Offset: start}, i
	}
	return Token{Kind: TokNumber, Text: src[start:i], Offset: start}, i
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(src string, i int) bool {
	r, _ := utf8.DecodeRuneInString(src[i:])
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(src string, i int) bool {
	r, _ := utf8.DecodeRuneInString(src[i:])
	return r == '_' || r == '-' || r == '.' || r == '&' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
