package grammar

import "fmt"

// CompiledGrammar is the JSON-serializable shape of a Grammar. It is the
// artifact the CLI writes on compile and reads back to parse, so FromCompiled
// re-validates every invariant instead of trusting the file.
type CompiledGrammar struct {
	Root         int                   `json:"root"`
	Terminals    []*CompiledTerminal   `json:"terminals"`
	NonTerminals []string              `json:"non_terminals"`
	Productions  []*CompiledProduction `json:"productions"`
}

type CompiledTerminal struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

type CompiledProduction struct {
	LHS      int   `json:"lhs"`
	RHS      []int `json:"rhs"`
	Priority int   `json:"priority,omitempty"`
}

func (g *Grammar) Compiled() *CompiledGrammar {
	terms := make([]*CompiledTerminal, len(g.terms))
	for i, term := range g.terms {
		terms[i] = &CompiledTerminal{
			Kind: string(term.Kind),
			Text: term.Text,
		}
	}
	prods := make([]*CompiledProduction, len(g.prods))
	for i, prod := range g.prods {
		rhs := make([]int, len(prod.RHS))
		for j, sym := range prod.RHS {
			rhs[j] = int(sym)
		}
		prods[i] = &CompiledProduction{
			LHS:      int(prod.LHS),
			RHS:      rhs,
			Priority: prod.Priority,
		}
	}
	return &CompiledGrammar{
		Root:         int(g.root),
		Terminals:    terms,
		NonTerminals: g.nonTermNames,
		Productions:  prods,
	}
}

// FromCompiled rebuilds a Grammar from its serialized form, validating that
// every symbol reference lands inside the declared symbol tables and that
// the root is a defined nonterminal.
func FromCompiled(cg *CompiledGrammar) (*Grammar, error) {
	termCount := len(cg.Terminals)
	nonTermCount := len(cg.NonTerminals)
	validSym := func(n int) bool {
		sym := Symbol(n)
		switch {
		case sym.IsTerminal():
			return sym.TerminalNum() <= termCount
		case sym.IsNonTerminal():
			return sym.NonTerminalNum() <= nonTermCount
		}
		return false
	}

	root := Symbol(cg.Root)
	if !root.IsNonTerminal() || root.NonTerminalNum() > nonTermCount {
		return nil, fmt.Errorf("invalid root symbol: %v", cg.Root)
	}
	if len(cg.Productions) == 0 {
		return nil, fmt.Errorf("a compiled grammar needs at least one production")
	}

	terms := make([]*Terminal, termCount)
	for i, ct := range cg.Terminals {
		kind := TerminalKind(ct.Kind)
		switch kind {
		case TerminalKindName, TerminalKindStem, TerminalKindExact:
		default:
			return nil, fmt.Errorf("invalid terminal kind: %v", ct.Kind)
		}
		terms[i] = &Terminal{
			Num:  i + 1,
			Kind: kind,
			Text: ct.Text,
		}
	}

	prods := make([]*Production, len(cg.Productions))
	lhs2Prods := map[Symbol][]*Production{}
	for i, cp := range cg.Productions {
		lhs := Symbol(cp.LHS)
		if !lhs.IsNonTerminal() || lhs.NonTerminalNum() > nonTermCount {
			return nil, fmt.Errorf("production %v: invalid LHS symbol: %v", i+1, cp.LHS)
		}
		rhs := make([]Symbol, len(cp.RHS))
		for j, n := range cp.RHS {
			if !validSym(n) {
				return nil, fmt.Errorf("production %v: invalid RHS symbol: %v", i+1, n)
			}
			rhs[j] = Symbol(n)
		}
		prod := &Production{
			Num:      i + 1,
			LHS:      lhs,
			RHS:      rhs,
			Priority: cp.Priority,
		}
		prods[i] = prod
		lhs2Prods[lhs] = append(lhs2Prods[lhs], prod)
	}
	if len(lhs2Prods[root]) == 0 {
		return nil, fmt.Errorf("the root nonterminal has no production")
	}

	return &Grammar{
		root:         root,
		terms:        terms,
		nonTermNames: cg.NonTerminals,
		prods:        prods,
		lhs2Prods:    lhs2Prods,
	}, nil
}
