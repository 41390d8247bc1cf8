package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/ottar/skilja/grammar"
	"github.com/ottar/skilja/spec"
)

// textReader matches tokens to terminals by literal text. It is the
// simplest possible host: a terminal category is satisfied exactly when its
// text equals the token.
type textReader struct {
	g      *grammar.Grammar
	tokens []string
}

func (r *textReader) Matches(tokenIndex int, terminal grammar.Symbol) bool {
	term := r.g.Terminal(terminal.TerminalNum())
	return term != nil && term.Text == r.tokens[tokenIndex]
}

func (r *textReader) Allocate(tokenIndex, size int) []byte {
	return nil
}

func compileGrammar(t *testing.T, src string) *grammar.Grammar {
	t.Helper()
	ast, err := spec.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g, err := grammar.Compile(ast)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return g
}

func mustParse(t *testing.T, p *Parser, g *grammar.Grammar, tokens []string) *Node {
	t.Helper()
	root, err := p.Parse(len(tokens), g.Root(), &textReader{g: g, tokens: tokens})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return root
}

func nonTerminal(t *testing.T, g *grammar.Grammar, name string) grammar.Symbol {
	t.Helper()
	for num := 1; num <= g.NonTerminalCount(); num++ {
		if g.NonTerminalName(num) == name {
			return grammar.Symbol(-num)
		}
	}
	t.Fatalf("nonterminal not found: %v", name)
	return grammar.SymbolNil
}

const ambiguousSrc = `$priority(1) B
S -> A B | A C
A -> 'a'
B -> 'b'
C -> 'b'
`

func TestParse_ambiguityAndPriority(t *testing.T) {
	g := compileGrammar(t, ambiguousSrc)
	var m Meter
	p := New(g, WithMeter(&m))

	root := mustParse(t, p, g, []string{"a", "b"})
	if c := Combinations(root); c != 2 {
		t.Fatalf("unexpected combination count; want: %v, got: %v", 2, c)
	}

	tree, score := Reduce(root)
	if score != 10 {
		t.Fatalf("unexpected score; want: %v, got: %v", 10, score)
	}
	if len(tree.Children) != 2 {
		t.Fatalf("unexpected child count; want: %v, got: %v", 2, len(tree.Children))
	}
	if want := nonTerminal(t, g, "B"); tree.Children[1].Sym != want {
		t.Fatalf("unexpected second child; want: %v, got: %v", want, tree.Children[1].Sym)
	}

	root.Free()
	if m.Live != 0 {
		t.Fatalf("unexpected live node count after freeing the forest; want: %v, got: %v", 0, m.Live)
	}
	if m.Nodes == 0 {
		t.Fatalf("the meter counted no allocations")
	}
}

func TestParse_errorPosition(t *testing.T) {
	tests := []struct {
		caption string
		src     string
		tokens  []string
		errAt   int
	}{
		{
			caption: "the first unscannable token is reported",
			src:     ambiguousSrc,
			tokens:  []string{"a", "x"},
			errAt:   1,
		},
		{
			caption: "a defect in the middle of a sequence is located exactly",
			src: `S -> a S | a
`,
			tokens: []string{"a", "a", "x", "a"},
			errAt:  2,
		},
		{
			caption: "a token rejected at the start is reported as position zero",
			src:     ambiguousSrc,
			tokens:  []string{"x", "b"},
			errAt:   0,
		},
		{
			caption: "exhausted input short of a full derivation reports the end",
			src:     ambiguousSrc,
			tokens:  []string{"a"},
			errAt:   1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			g := compileGrammar(t, tt.src)
			p := New(g)
			_, err := p.Parse(len(tt.tokens), g.Root(), &textReader{g: g, tokens: tt.tokens})
			if err == nil {
				t.Fatalf("an expected error didn't occur")
			}
			var pErr *ParseError
			if !errors.As(err, &pErr) {
				t.Fatalf("unexpected error type; want: *ParseError, got: %T (%v)", err, err)
			}
			if pErr.TokenIndex != tt.errAt {
				t.Fatalf("unexpected error position; want: %v, got: %v", tt.errAt, pErr.TokenIndex)
			}
		})
	}
}

func TestParse_determinism(t *testing.T) {
	g := compileGrammar(t, ambiguousSrc)
	p := New(g)
	tokens := []string{"a", "b"}

	var wantDump string
	var wantScore int64
	for i := 0; i < 50; i++ {
		root := mustParse(t, p, g, tokens)
		tree, score := Reduce(root)
		var b strings.Builder
		PrintTree(&b, g, tree)
		root.Free()
		if i == 0 {
			wantDump = b.String()
			wantScore = score
			continue
		}
		if b.String() != wantDump || score != wantScore {
			t.Fatalf("run %v diverged; want: score %v\n%v\ngot: score %v\n%v",
				i, wantScore, wantDump, score, b.String())
		}
	}
}

func TestParse_tieBreak(t *testing.T) {
	// Two equal-scoring derivations of the same span; the lower-numbered
	// production must win.
	src := `S -> A | B
A -> a
B -> a
`
	g := compileGrammar(t, src)
	p := New(g)

	root := mustParse(t, p, g, []string{"a"})
	defer root.Free()
	if c := Combinations(root); c != 2 {
		t.Fatalf("unexpected combination count; want: %v, got: %v", 2, c)
	}
	tree, score := Reduce(root)
	if score != 0 {
		t.Fatalf("unexpected score; want: %v, got: %v", 0, score)
	}
	if want := nonTerminal(t, g, "A"); tree.Children[0].Sym != want {
		t.Fatalf("unexpected winner; want: %v, got: %v", want, tree.Children[0].Sym)
	}
}

func TestParse_binarizationCoalescing(t *testing.T) {
	// A four-symbol production runs through intermediate chain nodes in
	// the forest but must come back out as one node with four children.
	g := compileGrammar(t, `S -> a b c d`)
	p := New(g)

	root := mustParse(t, p, g, []string{"a", "b", "c", "d"})
	defer root.Free()
	if c := Combinations(root); c != 1 {
		t.Fatalf("unexpected combination count; want: %v, got: %v", 1, c)
	}
	tree, _ := Reduce(root)
	if len(tree.Children) != 4 {
		t.Fatalf("unexpected child count; want: %v, got: %v", 4, len(tree.Children))
	}
	for i, child := range tree.Children {
		if child.Start != i || child.End != i+1 {
			t.Fatalf("unexpected span of child %v; want: [%v:%v), got: [%v:%v)",
				i, i, i+1, child.Start, child.End)
		}
	}
}

func TestParse_epsilon(t *testing.T) {
	tests := []struct {
		caption string
		src     string
		tokens  []string
	}{
		{
			caption: "a nullable nonterminal before a terminal",
			src: `S -> A b
A -> a | 0
`,
			tokens: []string{"b"},
		},
		{
			caption: "an empty input against a nullable root",
			src:     `S -> a | 0`,
			tokens:  nil,
		},
		{
			caption: "a nullable chain",
			src: `S -> A b
A -> B
B -> 0
`,
			tokens: []string{"b"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			g := compileGrammar(t, tt.src)
			var m Meter
			p := New(g, WithMeter(&m))
			root := mustParse(t, p, g, tt.tokens)
			if c := Combinations(root); c != 1 {
				t.Fatalf("unexpected combination count; want: %v, got: %v", 1, c)
			}
			tree, _ := Reduce(root)
			if tree.Start != 0 || tree.End != len(tt.tokens) {
				t.Fatalf("unexpected root span; want: [%v:%v), got: [%v:%v)",
					0, len(tt.tokens), tree.Start, tree.End)
			}
			root.Free()
			if m.Live != 0 {
				t.Fatalf("unexpected live node count after freeing the forest; want: %v, got: %v", 0, m.Live)
			}
		})
	}
}

func TestParse_sharedSubtreeCounting(t *testing.T) {
	// Catalan-style ambiguity: every bracketing of x p x p ... p x is a
	// distinct derivation, while subtrees are heavily shared. The count
	// must come out exact despite the sharing.
	g := compileGrammar(t, `S -> S p S | x`)
	p := New(g)

	tests := []struct {
		tokens []string
		combos uint64
	}{
		{tokens: []string{"x"}, combos: 1},
		{tokens: []string{"x", "p", "x"}, combos: 1},
		{tokens: []string{"x", "p", "x", "p", "x"}, combos: 2},
		{tokens: []string{"x", "p", "x", "p", "x", "p", "x"}, combos: 5},
		{tokens: []string{"x", "p", "x", "p", "x", "p", "x", "p", "x"}, combos: 14},
	}
	for _, tt := range tests {
		root := mustParse(t, p, g, tt.tokens)
		if c := Combinations(root); c != tt.combos {
			t.Fatalf("unexpected combination count for %v tokens; want: %v, got: %v",
				len(tt.tokens), tt.combos, c)
		}
		root.Free()
	}
}

func TestParse_repetition(t *testing.T) {
	g := compileGrammar(t, `S -> a+ b`)
	var m Meter
	p := New(g, WithMeter(&m))

	root := mustParse(t, p, g, []string{"a", "a", "a", "b"})
	if c := Combinations(root); c != 1 {
		t.Fatalf("unexpected combination count; want: %v, got: %v", 1, c)
	}
	tree, _ := Reduce(root)
	if tree.End != 4 {
		t.Fatalf("unexpected root span end; want: %v, got: %v", 4, tree.End)
	}
	root.Free()
	if m.Live != 0 {
		t.Fatalf("unexpected live node count after freeing the forest; want: %v, got: %v", 0, m.Live)
	}
}

func TestFree_underflowPanics(t *testing.T) {
	g := compileGrammar(t, `S -> a`)
	p := New(g)
	root := mustParse(t, p, g, []string{"a"})
	root.Free()

	defer func() {
		if recover() == nil {
			t.Fatalf("an expected panic didn't occur")
		}
	}()
	root.Free()
}

// A nullable recursion like S -> S S | 0 derives the empty span from
// itself, so the forest for empty input holds a node among its own
// descendants. Both walkers must detect the cycle and fail loudly instead
// of recursing without bound.
func TestParse_cyclicForestPanics(t *testing.T) {
	g := compileGrammar(t, `S -> S S | 0`)
	p := New(g)
	root := mustParse(t, p, g, nil)

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("an expected panic didn't occur")
			}
		}()
		Combinations(root)
	}()

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("an expected panic didn't occur")
			}
		}()
		Reduce(root)
	}()
}

// countingReader verifies the per-token memoization: the engine must not
// ask the host about the same (token, terminal) pair twice in one parse.
type countingReader struct {
	textReader
	calls map[[2]int]int
}

func (r *countingReader) Matches(tokenIndex int, terminal grammar.Symbol) bool {
	r.calls[[2]int{tokenIndex, int(terminal)}]++
	return r.textReader.Matches(tokenIndex, terminal)
}

func (r *countingReader) Allocate(tokenIndex, size int) []byte {
	return make([]byte, size)
}

func TestParse_matchMemoization(t *testing.T) {
	// Both alternatives predict the same terminal for token 0.
	g := compileGrammar(t, `S -> A | B
A -> a
B -> a
`)
	p := New(g)
	r := &countingReader{
		textReader: textReader{g: g, tokens: []string{"a"}},
		calls:      map[[2]int]int{},
	}
	_, err := p.Parse(1, g.Root(), r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for key, n := range r.calls {
		if n > 1 {
			t.Fatalf("token %v was matched against terminal %v %v times", key[0], key[1], n)
		}
	}
}
