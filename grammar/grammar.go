package grammar

import (
	"fmt"

	verr "github.com/ottar/skilja/error"
	"github.com/ottar/skilja/spec"
)

type TerminalKind string

const (
	// TerminalKindName matches by terminal category name.
	TerminalKindName = TerminalKind("name")
	// TerminalKindStem matches a 'quoted' literal by stem.
	TerminalKindStem = TerminalKind("stem")
	// TerminalKindExact matches a "quoted" literal by exact text.
	TerminalKindExact = TerminalKind("exact")
)

// Terminal is one terminal category of the grammar. How a token satisfies a
// terminal is the host's business; the compiler only records what the
// grammar source said about it.
type Terminal struct {
	Num  int
	Kind TerminalKind
	Text string
}

// Grammar is the compiled, immutable form of a grammar description.
// It is read-only after Compile returns and may be shared freely across
// concurrent parses.
type Grammar struct {
	root         Symbol
	terms        []*Terminal
	nonTermNames []string
	prods        []*Production
	lhs2Prods    map[Symbol][]*Production
}

// Root returns the root nonterminal, the LHS of the first rule in the
// source.
func (g *Grammar) Root() Symbol {
	return g.root
}

func (g *Grammar) TerminalCount() int {
	return len(g.terms)
}

func (g *Grammar) NonTerminalCount() int {
	return len(g.nonTermNames)
}

func (g *Grammar) ProductionCount() int {
	return len(g.prods)
}

// Production returns the production numbered num, or nil when the number is
// out of range.
func (g *Grammar) Production(num int) *Production {
	if num < 1 || num > len(g.prods) {
		return nil
	}
	return g.prods[num-1]
}

func (g *Grammar) ProductionsByLHS(lhs Symbol) []*Production {
	return g.lhs2Prods[lhs]
}

// Terminal returns the terminal numbered num, or nil when the number is out
// of range.
func (g *Grammar) Terminal(num int) *Terminal {
	if num < 1 || num > len(g.terms) {
		return nil
	}
	return g.terms[num-1]
}

func (g *Grammar) NonTerminalName(num int) string {
	if num < 1 || num > len(g.nonTermNames) {
		return ""
	}
	return g.nonTermNames[num-1]
}

// SymbolText returns the display form of a symbol: the nonterminal name,
// the terminal name, or the quoted literal text.
func (g *Grammar) SymbolText(sym Symbol) string {
	switch {
	case sym.IsNonTerminal():
		return g.NonTerminalName(sym.NonTerminalNum())
	case sym.IsTerminal():
		term := g.Terminal(sym.TerminalNum())
		if term == nil {
			return ""
		}
		switch term.Kind {
		case TerminalKindStem:
			return "'" + term.Text + "'"
		case TerminalKindExact:
			return `"` + term.Text + `"`
		}
		return term.Text
	}
	return "nil"
}

type termKey struct {
	kind TerminalKind
	text string
}

type synthKey struct {
	sym   Symbol
	quant spec.Quantifier
}

// Compile turns a grammar description AST into an immutable Grammar.
// Terminals are numbered from 1 in order of first use, nonterminals from 1
// in order of first definition, productions in source order. All errors are
// *error.GrammarError values carrying the source position of the defect.
func Compile(ast *spec.RootNode) (*Grammar, error) {
	b := &builder{
		ast:         ast,
		termNums:    map[termKey]int{},
		nonTermNums: map[string]int{},
		prods:       newProductionSet(),
		lhsMinPri:   map[Symbol]int{},
		synths:      map[synthKey]Symbol{},
	}
	return b.build()
}

type builder struct {
	ast *spec.RootNode

	terms        []*Terminal
	termNums     map[termKey]int
	nonTermNames []string
	nonTermNums  map[string]int
	prods        *productionSet
	lhsMinPri    map[Symbol]int
	synths       map[synthKey]Symbol
}

func (b *builder) build() (*Grammar, error) {
	if len(b.ast.Rules) == 0 {
		return nil, &verr.GrammarError{
			Cause: semErrNoProduction,
		}
	}

	// Definition pass first so that a rule may reference a nonterminal
	// defined further down the file.
	for _, rule := range b.ast.Rules {
		b.internNonTerminal(rule.LHS)
	}
	root := newNonTerminalSymbol(b.nonTermNums[b.ast.Rules[0].LHS])

	for _, rule := range b.ast.Rules {
		err := b.buildRule(rule)
		if err != nil {
			return nil, err
		}
	}

	for _, pragma := range b.ast.Pragmas {
		err := b.applyPragma(pragma)
		if err != nil {
			return nil, err
		}
	}

	err := b.checkProductivity()
	if err != nil {
		return nil, err
	}

	err = b.checkReachability(root)
	if err != nil {
		return nil, err
	}

	return &Grammar{
		root:         root,
		terms:        b.terms,
		nonTermNames: b.nonTermNames,
		prods:        b.prods.prods,
		lhs2Prods:    b.prods.lhs2Prods,
	}, nil
}

func (b *builder) buildRule(rule *spec.RuleNode) error {
	lhs := newNonTerminalSymbol(b.nonTermNums[rule.LHS])

	top := 0
	if rule.Prioritized {
		if min, ok := b.lhsMinPri[lhs]; ok {
			top = min - 1
		} else {
			top = len(rule.Alts) - 1
		}
		b.lhsMinPri[lhs] = top - len(rule.Alts) + 1
	}

	for i, alt := range rule.Alts {
		pri := 0
		if rule.Prioritized {
			pri = top - i
		}
		err := b.buildAlternative(lhs, alt, pri)
		if err != nil {
			return err
		}
	}

	return nil
}

func (b *builder) buildAlternative(lhs Symbol, alt *spec.AlternativeNode, pri int) error {
	if alt.Empty {
		_, ok := b.prods.append(lhs, nil, pri)
		if !ok {
			return &verr.GrammarError{
				Cause: semErrDuplicateProduction,
				Row:   alt.Pos.Row,
				Col:   alt.Pos.Col,
			}
		}
		return nil
	}

	expanded := expandOptionals(alt.Elements)
	for _, elems := range expanded {
		rhs := make([]Symbol, 0, len(elems))
		for _, elem := range elems {
			sym, err := b.elementSymbol(elem)
			if err != nil {
				return err
			}
			rhs = append(rhs, sym)
		}
		if len(rhs) == 1 && rhs[0] == lhs {
			// A -> A contributes nothing but a forest cycle.
			return &verr.GrammarError{
				Cause: semErrSelfDerivation,
				Row:   alt.Pos.Row,
				Col:   alt.Pos.Col,
			}
		}
		_, ok := b.prods.append(lhs, rhs, pri)
		if !ok && len(expanded) == 1 {
			// Expansion of '?' may legitimately reproduce an existing
			// production; only a directly written duplicate is a defect.
			return &verr.GrammarError{
				Cause: semErrDuplicateProduction,
				Row:   alt.Pos.Row,
				Col:   alt.Pos.Col,
			}
		}
	}

	return nil
}

// expandOptionals resolves '?' quantifiers by expanding an alternative into
// the cartesian set of element sequences with each optional element present
// or absent. The all-present sequence comes first so production numbering
// favors the fuller form.
func expandOptionals(elems []*spec.ElementNode) [][]*spec.ElementNode {
	seqs := [][]*spec.ElementNode{nil}
	for _, elem := range elems {
		if elem.Quant == spec.QuantifierOption {
			var next [][]*spec.ElementNode
			for _, seq := range seqs {
				next = append(next, extendSeq(seq, elem), seq)
			}
			seqs = next
			continue
		}
		for i, seq := range seqs {
			seqs[i] = extendSeq(seq, elem)
		}
	}
	return seqs
}

// extendSeq appends without sharing a backing array; branches produced by
// '?' expansion may hold a common prefix.
func extendSeq(seq []*spec.ElementNode, elem *spec.ElementNode) []*spec.ElementNode {
	out := make([]*spec.ElementNode, len(seq), len(seq)+1)
	copy(out, seq)
	return append(out, elem)
}

func (b *builder) elementSymbol(elem *spec.ElementNode) (Symbol, error) {
	var sym Symbol
	switch elem.Kind {
	case spec.ElementKindNonTerminal:
		num, ok := b.nonTermNums[elem.Text]
		if !ok {
			return SymbolNil, &verr.GrammarError{
				Cause:  semErrUndefinedSym,
				Detail: elem.Text,
				Row:    elem.Pos.Row,
				Col:    elem.Pos.Col,
			}
		}
		sym = newNonTerminalSymbol(num)
	case spec.ElementKindTerminal:
		sym = b.internTerminal(TerminalKindName, elem.Text)
	case spec.ElementKindLiteral:
		sym = b.internTerminal(TerminalKindStem, elem.Text)
	case spec.ElementKindExactLiteral:
		sym = b.internTerminal(TerminalKindExact, elem.Text)
	default:
		return SymbolNil, fmt.Errorf("invalid element kind: %v", elem.Kind)
	}

	switch elem.Quant {
	case spec.QuantifierStar, spec.QuantifierPlus:
		return b.synthSequence(sym, elem.Quant), nil
	}
	return sym, nil
}

// synthSequence returns the helper nonterminal deriving a repetition of
// sym, creating it on first use. The helper is left recursive so the chart
// stays linear in the repetition length. Helper names carry the reserved
// '_' prefix, so they can never collide with user identifiers.
func (b *builder) synthSequence(sym Symbol, quant spec.Quantifier) Symbol {
	key := synthKey{sym: sym, quant: quant}
	if seq, ok := b.synths[key]; ok {
		return seq
	}

	suffix := "_star"
	if quant == spec.QuantifierPlus {
		suffix = "_plus"
	}
	seq := newNonTerminalSymbol(b.internNonTerminal("_" + b.synthBaseName(sym) + suffix))
	b.synths[key] = seq

	if quant == spec.QuantifierStar {
		b.prods.append(seq, nil, 0)
	} else {
		b.prods.append(seq, []Symbol{sym}, 0)
	}
	b.prods.append(seq, []Symbol{seq, sym}, 0)

	return seq
}

func (b *builder) synthBaseName(sym Symbol) string {
	if sym.IsNonTerminal() {
		return b.nonTermNames[sym.NonTerminalNum()-1]
	}
	term := b.terms[sym.TerminalNum()-1]
	switch term.Kind {
	case TerminalKindStem:
		return "'" + term.Text + "'"
	case TerminalKindExact:
		return `"` + term.Text + `"`
	}
	return term.Text
}

func (b *builder) internNonTerminal(name string) int {
	if num, ok := b.nonTermNums[name]; ok {
		return num
	}
	b.nonTermNames = append(b.nonTermNames, name)
	num := len(b.nonTermNames)
	b.nonTermNums[name] = num
	return num
}

func (b *builder) internTerminal(kind TerminalKind, text string) Symbol {
	key := termKey{kind: kind, text: text}
	if num, ok := b.termNums[key]; ok {
		return newTerminalSymbol(num)
	}
	num := len(b.terms) + 1
	b.terms = append(b.terms, &Terminal{
		Num:  num,
		Kind: kind,
		Text: text,
	})
	b.termNums[key] = num
	return newTerminalSymbol(num)
}

func (b *builder) applyPragma(pragma *spec.PragmaNode) error {
	if pragma.Name != "priority" {
		return &verr.GrammarError{
			Cause:  semErrUnknownPragma,
			Detail: pragma.Name,
			Row:    pragma.Pos.Row,
			Col:    pragma.Pos.Col,
		}
	}
	for _, target := range pragma.Targets {
		num, ok := b.nonTermNums[target]
		if !ok {
			return &verr.GrammarError{
				Cause:  semErrPragmaTarget,
				Detail: target,
				Row:    pragma.Pos.Row,
				Col:    pragma.Pos.Col,
			}
		}
		for _, prod := range b.prods.findByLHS(newNonTerminalSymbol(num)) {
			prod.Priority += pragma.Value
		}
	}
	return nil
}

// checkProductivity verifies that every nonterminal derives some terminal
// string. A production is productive when all of its nonterminal RHS symbols
// are; the set grows to a fixpoint starting from productions whose RHS holds
// only terminals (an empty RHS included). A nonterminal left outside the
// fixpoint, like S in "S -> S b", can never complete a parse.
func (b *builder) checkProductivity() error {
	productive := map[Symbol]bool{}
	for changed := true; changed; {
		changed = false
		for _, prod := range b.prods.prods {
			if productive[prod.LHS] {
				continue
			}
			ok := true
			for _, sym := range prod.RHS {
				if sym.IsNonTerminal() && !productive[sym] {
					ok = false
					break
				}
			}
			if ok {
				productive[prod.LHS] = true
				changed = true
			}
		}
	}

	for _, rule := range b.ast.Rules {
		sym := newNonTerminalSymbol(b.nonTermNums[rule.LHS])
		if !productive[sym] {
			return &verr.GrammarError{
				Cause:  semErrUnproductiveSym,
				Detail: rule.LHS,
				Row:    rule.Pos.Row,
				Col:    rule.Pos.Col,
			}
		}
	}
	return nil
}

func (b *builder) checkReachability(root Symbol) error {
	reachable := map[Symbol]bool{
		root: true,
	}
	frontier := []Symbol{root}
	for len(frontier) > 0 {
		sym := frontier[0]
		frontier = frontier[1:]
		for _, prod := range b.prods.findByLHS(sym) {
			for _, rhsSym := range prod.RHS {
				if rhsSym.IsNonTerminal() && !reachable[rhsSym] {
					reachable[rhsSym] = true
					frontier = append(frontier, rhsSym)
				}
			}
		}
	}

	for _, rule := range b.ast.Rules {
		sym := newNonTerminalSymbol(b.nonTermNums[rule.LHS])
		if !reachable[sym] {
			return &verr.GrammarError{
				Cause:  semErrUnreachableSym,
				Detail: rule.LHS,
				Row:    rule.Pos.Row,
				Col:    rule.Pos.Col,
			}
		}
	}
	return nil
}
