package spec

import (
	"io"

	verr "github.com/ottar/skilja/error"
)

type RootNode struct {
	Rules   []*RuleNode
	Pragmas []*PragmaNode
}

// PragmaNode is a "$name(value) Nt..." directive line. Pragmas adjust the
// compilation of the rules that follow; they never introduce symbols.
type PragmaNode struct {
	Name    string
	Value   int
	Targets []string
	Pos     Position
}

// RuleNode is one logical grammar line: a nonterminal and its alternatives.
// Prioritized reports whether the alternatives were separated by '>', in
// which case earlier alternatives outrank later ones.
type RuleNode struct {
	LHS         string
	Prioritized bool
	Alts        []*AlternativeNode
	Pos         Position
}

type AlternativeNode struct {
	Empty    bool
	Elements []*ElementNode
	Pos      Position
}

type ElementKind string

const (
	ElementKindNonTerminal  = ElementKind("non-terminal")
	ElementKindTerminal     = ElementKind("terminal")
	ElementKindLiteral      = ElementKind("literal")
	ElementKindExactLiteral = ElementKind("exact literal")
)

type Quantifier string

const (
	QuantifierNone   = Quantifier("")
	QuantifierOption = Quantifier("?")
	QuantifierStar   = Quantifier("*")
	QuantifierPlus   = Quantifier("+")
)

type ElementNode struct {
	Kind  ElementKind
	Text  string
	Quant Quantifier
	Pos   Position
}

func raiseSyntaxError(synErr *SyntaxError, pos Position) {
	panic(&verr.GrammarError{
		Cause: synErr,
		Row:   pos.Row,
		Col:   pos.Col,
	})
}

// Parse reads a grammar description and returns its AST. The returned error
// is a *error.GrammarError carrying the source position of the defect.
func Parse(src io.Reader) (*RootNode, error) {
	lex, err := newLexer(src)
	if err != nil {
		return nil, err
	}
	p := &parser{
		lex: lex,
	}
	return p.parse()
}

type parser struct {
	lex       *lexer
	peekedTok *token
	lastTok   *token
}

func (p *parser) parse() (root *RootNode, retErr error) {
	defer func() {
		err := recover()
		if err != nil {
			retErr = err.(error)
			return
		}
	}()
	return p.parseRoot(), nil
}

func (p *parser) parseRoot() *RootNode {
	var rules []*RuleNode
	var pragmas []*PragmaNode
	for {
		if p.consume(tokenKindNewline) {
			continue
		}
		if p.consume(tokenKindEOF) {
			break
		}
		if p.consume(tokenKindPragma) {
			pragmas = append(pragmas, p.parsePragma())
			continue
		}
		rules = append(rules, p.parseRule())
	}
	if len(rules) == 0 {
		raiseSyntaxError(synErrNoRule, Position{})
	}
	return &RootNode{
		Rules:   rules,
		Pragmas: pragmas,
	}
}

func (p *parser) parsePragma() *PragmaNode {
	pragma := &PragmaNode{
		Name:  p.lastTok.text,
		Value: p.lastTok.num,
		Pos:   p.lastTok.pos,
	}
	for p.consume(tokenKindID) {
		pragma.Targets = append(pragma.Targets, p.lastTok.text)
	}
	if len(pragma.Targets) == 0 {
		raiseSyntaxError(synErrPragmaNoTarget, p.peek().pos)
	}
	if !p.consume(tokenKindNewline) && !p.consume(tokenKindEOF) {
		raiseSyntaxError(synErrInvalidToken, p.peek().pos)
	}
	return pragma
}

func (p *parser) parseRule() *RuleNode {
	if !p.consume(tokenKindID) {
		raiseSyntaxError(synErrNoRuleName, p.peek().pos)
	}
	rule := &RuleNode{
		LHS: p.lastTok.text,
		Pos: p.lastTok.pos,
	}
	if !p.consume(tokenKindArrow) {
		raiseSyntaxError(synErrNoArrow, p.peek().pos)
	}

	sep := tokenKind("")
	for {
		alt := p.parseAlternative()
		if alt != nil {
			rule.Alts = append(rule.Alts, alt)
		}
		switch {
		case p.consume(tokenKindOr):
			if sep == tokenKindPrec {
				raiseSyntaxError(synErrMixedSeparators, p.lastTok.pos)
			}
			sep = tokenKindOr
		case p.consume(tokenKindPrec):
			if sep == tokenKindOr {
				raiseSyntaxError(synErrMixedSeparators, p.lastTok.pos)
			}
			sep = tokenKindPrec
			rule.Prioritized = true
		case p.consume(tokenKindNewline) || p.consume(tokenKindEOF):
			return rule
		default:
			raiseSyntaxError(synErrInvalidToken, p.peek().pos)
		}
	}
}

// parseAlternative returns nil for an alternative with no elements; extra
// separators are tolerated so that low-priority fallback productions can be
// appended to a rule without reshuffling it.
func (p *parser) parseAlternative() *AlternativeNode {
	if p.consume(tokenKindEmpty) {
		alt := &AlternativeNode{
			Empty: true,
			Pos:   p.lastTok.pos,
		}
		if p.consume(tokenKindOption) || p.consume(tokenKindStar) || p.consume(tokenKindPlus) {
			raiseSyntaxError(synErrQuantifiedEmpty, p.lastTok.pos)
		}
		if tok := p.peek(); isElementToken(tok.kind) || tok.kind == tokenKindEmpty {
			raiseSyntaxError(synErrEmptyNotAlone, tok.pos)
		}
		return alt
	}

	var alt *AlternativeNode
	for {
		elem := p.parseElement()
		if elem == nil {
			break
		}
		if alt == nil {
			alt = &AlternativeNode{
				Pos: elem.Pos,
			}
		}
		alt.Elements = append(alt.Elements, elem)
	}
	if tok := p.peek(); tok.kind == tokenKindEmpty {
		raiseSyntaxError(synErrEmptyNotAlone, tok.pos)
	}
	return alt
}

func (p *parser) parseElement() *ElementNode {
	var elem *ElementNode
	switch {
	case p.consume(tokenKindID):
		elem = &ElementNode{
			Kind: ElementKindNonTerminal,
			Text: p.lastTok.text,
			Pos:  p.lastTok.pos,
		}
	case p.consume(tokenKindTerminal):
		elem = &ElementNode{
			Kind: ElementKindTerminal,
			Text: p.lastTok.text,
			Pos:  p.lastTok.pos,
		}
	case p.consume(tokenKindLiteral):
		elem = &ElementNode{
			Kind: ElementKindLiteral,
			Text: p.lastTok.text,
			Pos:  p.lastTok.pos,
		}
	case p.consume(tokenKindExactLiteral):
		elem = &ElementNode{
			Kind: ElementKindExactLiteral,
			Text: p.lastTok.text,
			Pos:  p.lastTok.pos,
		}
	case p.consume(tokenKindOption) || p.consume(tokenKindStar) || p.consume(tokenKindPlus):
		raiseSyntaxError(synErrDanglingQuant, p.lastTok.pos)
	default:
		return nil
	}

	switch {
	case p.consume(tokenKindOption):
		elem.Quant = QuantifierOption
	case p.consume(tokenKindStar):
		elem.Quant = QuantifierStar
	case p.consume(tokenKindPlus):
		elem.Quant = QuantifierPlus
	}
	return elem
}

func isElementToken(kind tokenKind) bool {
	switch kind {
	case tokenKindID, tokenKindTerminal, tokenKindLiteral, tokenKindExactLiteral:
		return true
	}
	return false
}

func (p *parser) peek() *token {
	if p.peekedTok == nil {
		tok, err := p.lex.nextToken()
		if err != nil {
			panic(err)
		}
		p.peekedTok = tok
	}
	return p.peekedTok
}

func (p *parser) consume(expected tokenKind) bool {
	tok := p.peek()
	if tok.kind == tokenKindInvalid {
		raiseSyntaxError(synErrInvalidToken, tok.pos)
	}
	if tok.kind == expected {
		p.peekedTok = nil
		p.lastTok = tok
		return true
	}
	return false
}
