package grammar

// Production is one rewrite rule of the compiled grammar. The RHS order is
// the derivation order. Productions are owned by their Grammar and must not
// be mutated after compilation.
type Production struct {
	// Num is the 1-based production number, assigned in source order.
	// It doubles as the tie-break key during disambiguation, so it must be
	// stable for a fixed grammar source.
	Num int

	LHS Symbol
	RHS []Symbol

	// Priority ranks alternative derivations during disambiguation.
	// Higher wins.
	Priority int
}

func (p *Production) IsEmpty() bool {
	return len(p.RHS) == 0
}

type productionSet struct {
	prods     []*Production
	lhs2Prods map[Symbol][]*Production
}

func newProductionSet() *productionSet {
	return &productionSet{
		lhs2Prods: map[Symbol][]*Production{},
	}
}

// append registers a production, assigning its number. It reports false
// when an identical production (same LHS and RHS) is already registered.
func (ps *productionSet) append(lhs Symbol, rhs []Symbol, priority int) (*Production, bool) {
	for _, prod := range ps.lhs2Prods[lhs] {
		if equalRHS(prod.RHS, rhs) {
			return prod, false
		}
	}
	prod := &Production{
		Num:      len(ps.prods) + 1,
		LHS:      lhs,
		RHS:      rhs,
		Priority: priority,
	}
	ps.prods = append(ps.prods, prod)
	ps.lhs2Prods[lhs] = append(ps.lhs2Prods[lhs], prod)

	return prod, true
}

func (ps *productionSet) findByLHS(lhs Symbol) []*Production {
	return ps.lhs2Prods[lhs]
}

func equalRHS(a, b []Symbol) bool {
	if len(a) != len(b) {
		return false
	}
	for i, sym := range a {
		if b[i] != sym {
			return false
		}
	}
	return true
}
