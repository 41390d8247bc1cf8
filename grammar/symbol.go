package grammar

import "strconv"

// Symbol identifies a terminal or a nonterminal as a signed integer.
// Positive values are 1-based terminal numbers, negative values are
// nonterminal numbers, and 0 is the nil symbol. The single encoding lets a
// production hold a heterogeneous right-hand side as one []Symbol and lets a
// parse root be passed around as a plain integer.
type Symbol int

const SymbolNil = Symbol(0)

func newTerminalSymbol(num int) Symbol {
	return Symbol(num)
}

func newNonTerminalSymbol(num int) Symbol {
	return Symbol(-num)
}

func (s Symbol) IsNil() bool {
	return s == SymbolNil
}

func (s Symbol) IsTerminal() bool {
	return s > 0
}

func (s Symbol) IsNonTerminal() bool {
	return s < 0
}

// TerminalNum returns the 1-based terminal number, or 0 when s is not a
// terminal.
func (s Symbol) TerminalNum() int {
	if s <= 0 {
		return 0
	}
	return int(s)
}

// NonTerminalNum returns the 1-based nonterminal number, or 0 when s is not
// a nonterminal.
func (s Symbol) NonTerminalNum() int {
	if s >= 0 {
		return 0
	}
	return int(-s)
}

func (s Symbol) String() string {
	switch {
	case s.IsTerminal():
		return "t" + strconv.Itoa(s.TerminalNum())
	case s.IsNonTerminal():
		return "n" + strconv.Itoa(s.NonTerminalNum())
	}
	return "nil"
}
