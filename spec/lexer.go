package spec

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"unicode"

	verr "github.com/ottar/skilja/error"
)

type tokenKind string

const (
	tokenKindID           = tokenKind("id")
	tokenKindTerminal     = tokenKind("terminal")
	tokenKindLiteral      = tokenKind("literal")
	tokenKindExactLiteral = tokenKind("exact literal")
	tokenKindArrow        = tokenKind("->")
	tokenKindOr           = tokenKind("|")
	tokenKindPrec         = tokenKind(">")
	tokenKindOption       = tokenKind("?")
	tokenKindStar         = tokenKind("*")
	tokenKindPlus         = tokenKind("+")
	tokenKindEmpty        = tokenKind("0")
	tokenKindPragma       = tokenKind("pragma")
	tokenKindNewline      = tokenKind("newline")
	tokenKindEOF          = tokenKind("eof")
	tokenKindInvalid      = tokenKind("invalid")
)

type Position struct {
	Row int
	Col int
}

func newPosition(row, col int) Position {
	return Position{
		Row: row,
		Col: col,
	}
}

type token struct {
	kind tokenKind
	text string
	num  int
	pos  Position
}

func newSymbolToken(kind tokenKind, pos Position) *token {
	return &token{
		kind: kind,
		pos:  pos,
	}
}

func newIDToken(text string, pos Position) *token {
	return &token{
		kind: tokenKindID,
		text: text,
		pos:  pos,
	}
}

func newTerminalToken(text string, pos Position) *token {
	return &token{
		kind: tokenKindTerminal,
		text: text,
		pos:  pos,
	}
}

func newLiteralToken(kind tokenKind, text string, pos Position) *token {
	return &token{
		kind: kind,
		text: text,
		pos:  pos,
	}
}

func newEOFToken() *token {
	return &token{
		kind: tokenKindEOF,
	}
}

func newInvalidToken(text string, pos Position) *token {
	return &token{
		kind: tokenKindInvalid,
		text: text,
		pos:  pos,
	}
}

// lexer tokenizes the line-oriented grammar description language.
// Physical lines starting with whitespace continue the previous logical
// line; a '#' starts a comment running to the end of the physical line.
type lexer struct {
	toks []*token
	next int
}

func newLexer(src io.Reader) (*lexer, error) {
	l := &lexer{}

	var logical string
	var logicalRow int
	scan := bufio.NewScanner(src)
	row := 0
	for scan.Scan() {
		row++
		s := scan.Text()
		if ix := strings.Index(s, "#"); ix >= 0 {
			s = s[:ix]
		}
		s = strings.TrimRight(s, " \t")
		if s == "" {
			continue
		}
		if s[0] == ' ' || s[0] == '\t' {
			logical += " " + strings.TrimLeft(s, " \t")
			continue
		}
		if logical != "" {
			err := l.lexLine(logical, logicalRow)
			if err != nil {
				return nil, err
			}
		}
		logical = s
		logicalRow = row
	}
	if err := scan.Err(); err != nil {
		return nil, err
	}
	if logical != "" {
		err := l.lexLine(logical, logicalRow)
		if err != nil {
			return nil, err
		}
	}
	l.toks = append(l.toks, newEOFToken())

	return l, nil
}

func (l *lexer) lexLine(line string, row int) error {
	runes := []rune(line)
	i := 0
	for i < len(runes) {
		c := runes[i]
		col := i + 1
		pos := newPosition(row, col)
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '-' && i+1 < len(runes) && runes[i+1] == '>':
			l.toks = append(l.toks, newSymbolToken(tokenKindArrow, pos))
			i += 2
		case c == '→':
			l.toks = append(l.toks, newSymbolToken(tokenKindArrow, pos))
			i++
		case c == '|':
			l.toks = append(l.toks, newSymbolToken(tokenKindOr, pos))
			i++
		case c == '>':
			l.toks = append(l.toks, newSymbolToken(tokenKindPrec, pos))
			i++
		case c == '?':
			l.toks = append(l.toks, newSymbolToken(tokenKindOption, pos))
			i++
		case c == '*':
			l.toks = append(l.toks, newSymbolToken(tokenKindStar, pos))
			i++
		case c == '+':
			l.toks = append(l.toks, newSymbolToken(tokenKindPlus, pos))
			i++
		case c == '0' && (i+1 >= len(runes) || !isIdentRune(runes[i+1])):
			l.toks = append(l.toks, newSymbolToken(tokenKindEmpty, pos))
			i++
		case c == '\'' || c == '"':
			n, err := l.lexLiteral(runes, i, pos)
			if err != nil {
				return err
			}
			i = n
		case c == '$':
			n, err := l.lexPragma(runes, i, pos)
			if err != nil {
				return err
			}
			i = n
		case isIdentHead(c):
			start := i
			for i < len(runes) && isIdentRune(runes[i]) {
				i++
			}
			text := string(runes[start:i])
			if c == '_' {
				return &verr.GrammarError{
					Cause:  synErrReservedName,
					Detail: text,
					Row:    row,
					Col:    col,
				}
			}
			if unicode.IsUpper(c) {
				l.toks = append(l.toks, newIDToken(text, pos))
			} else {
				l.toks = append(l.toks, newTerminalToken(text, pos))
			}
		default:
			l.toks = append(l.toks, newInvalidToken(string(c), pos))
			i++
		}
	}
	l.toks = append(l.toks, newSymbolToken(tokenKindNewline, newPosition(row, len(runes)+1)))

	return nil
}

func (l *lexer) lexLiteral(runes []rune, start int, pos Position) (int, error) {
	quote := runes[start]
	kind := tokenKindLiteral
	if quote == '"' {
		kind = tokenKindExactLiteral
	}
	i := start + 1
	for i < len(runes) && runes[i] != quote {
		i++
	}
	if i >= len(runes) {
		return 0, &verr.GrammarError{
			Cause: synErrUnclosedLiteral,
			Row:   pos.Row,
			Col:   pos.Col,
		}
	}
	text := string(runes[start+1 : i])
	if text == "" {
		return 0, &verr.GrammarError{
			Cause: synErrEmptyLiteral,
			Row:   pos.Row,
			Col:   pos.Col,
		}
	}
	l.toks = append(l.toks, newLiteralToken(kind, text, pos))

	return i + 1, nil
}

// lexPragma scans a whole "$name(value)" form as a single token. The value
// is a signed integer.
func (l *lexer) lexPragma(runes []rune, start int, pos Position) (int, error) {
	i := start + 1
	nameStart := i
	for i < len(runes) && isIdentRune(runes[i]) {
		i++
	}
	name := string(runes[nameStart:i])
	if name == "" || i >= len(runes) || runes[i] != '(' {
		return 0, &verr.GrammarError{
			Cause: synErrMalformedPragma,
			Row:   pos.Row,
			Col:   pos.Col,
		}
	}
	i++
	argStart := i
	for i < len(runes) && runes[i] != ')' {
		i++
	}
	if i >= len(runes) {
		return 0, &verr.GrammarError{
			Cause: synErrMalformedPragma,
			Row:   pos.Row,
			Col:   pos.Col,
		}
	}
	num, err := strconv.Atoi(strings.TrimSpace(string(runes[argStart:i])))
	if err != nil {
		return 0, &verr.GrammarError{
			Cause: synErrMalformedPragma,
			Row:   pos.Row,
			Col:   pos.Col,
		}
	}
	l.toks = append(l.toks, &token{
		kind: tokenKindPragma,
		text: name,
		num:  num,
		pos:  pos,
	})

	return i + 1, nil
}

func (l *lexer) nextToken() (*token, error) {
	if l.next >= len(l.toks) {
		return newEOFToken(), nil
	}
	tok := l.toks[l.next]
	l.next++

	return tok, nil
}

func isIdentHead(c rune) bool {
	return c == '_' || unicode.IsLetter(c)
}

func isIdentRune(c rune) bool {
	return c == '_' || unicode.IsLetter(c) || unicode.IsDigit(c)
}
