package parser

import (
	"fmt"

	"github.com/ottar/skilja/grammar"
)

// ParseError reports the earliest token index beyond which no valid
// continuation exists. It is an ordinary result value, not a defect; the
// caller decides whether to retry with another root, truncate, or report a
// user-facing syntax error.
type ParseError struct {
	TokenIndex int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("no valid continuation at token %v", e.TokenIndex)
}

// Parser runs Earley parses over one compiled grammar. It holds no per-parse
// state, so one Parser may serve any number of sequential parses; concurrent
// parses need independent TokenReaders but may share the Parser's grammar.
type Parser struct {
	g     *grammar.Grammar
	meter *Meter
}

type Option func(*Parser)

// WithMeter attaches allocation instrumentation to every parse run by this
// Parser. The meter is only touched from inside Parse calls, so a metered
// Parser must not run parses concurrently.
func WithMeter(m *Meter) Option {
	return func(p *Parser) {
		p.meter = m
	}
}

func New(g *grammar.Grammar, opts ...Option) *Parser {
	p := &Parser{
		g: g,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse recognizes tokens [0, tokenCount) as a derivation of root, building
// the shared packed parse forest as it goes. On success it returns the
// forest root holding one reference owned by the caller; releasing it with
// Free reclaims the whole forest. On failure the error is a *ParseError
// carrying the first token index that no chart item could scan.
//
// The algorithm is Earley with immediate forest construction: one item set
// per input position, items of shape (production, dot, origin, forest
// node); predict, scan, and complete run to closure at each position, and
// every completion materializes or reuses the node for the resulting label
// instead of deferring to a separate tree-building phase. Productions
// longer than two symbols are binarized through intermediate labels, so
// every packed family has at most two children. Item sets keep insertion
// order, which makes the forest identical across runs for a fixed grammar
// and token sequence.
func (p *Parser) Parse(tokenCount int, root grammar.Symbol, r TokenReader) (*Node, error) {
	if !root.IsNonTerminal() {
		return nil, fmt.Errorf("parse root must be a nonterminal: %v", root)
	}
	if len(p.g.ProductionsByLHS(root)) == 0 {
		return nil, fmt.Errorf("parse root has no production: %v", p.g.SymbolText(root))
	}

	run := &parseRun{
		g:          p.g,
		reader:     r,
		tokenCount: tokenCount,
		meter:      p.meter,
		nodes:      map[Label]*Node{},
		cols:       make([]*column, tokenCount+1),
		matchBufs:  make([][]byte, tokenCount),
	}
	for i := range run.cols {
		run.cols[i] = &column{
			seen: map[itemKey]struct{}{},
		}
	}

	node, err := run.parse(root)

	// The dedup map holds one reference per node; dropping those leaves
	// the result forest owned by the returned reference alone and
	// reclaims every dead-end chart node.
	if node != nil {
		node.addRef()
	}
	for _, n := range run.nodes {
		n.Free()
	}

	if err != nil {
		return nil, err
	}
	return node, nil
}

type item struct {
	prod   *grammar.Production
	dot    int
	origin int
	node   *Node
}

type itemKey struct {
	prodNum int
	dot     int
	origin  int
	node    *Node
}

type column struct {
	items []*item
	// scans holds the items whose next symbol is a terminal matching the
	// token at this position; the scan pass moves them into the next
	// column once the rest of the column has closed.
	scans []*item
	seen  map[itemKey]struct{}
}

func (c *column) dedup(it *item) bool {
	key := itemKey{
		prodNum: it.prod.Num,
		dot:     it.dot,
		origin:  it.origin,
		node:    it.node,
	}
	if _, ok := c.seen[key]; ok {
		return false
	}
	c.seen[key] = struct{}{}
	return true
}

type parseRun struct {
	g          *grammar.Grammar
	reader     TokenReader
	tokenCount int
	meter      *Meter
	nodes      map[Label]*Node
	cols       []*column
	matchBufs  [][]byte
}

func (run *parseRun) parse(root grammar.Symbol) (*Node, error) {
	for _, prod := range run.g.ProductionsByLHS(root) {
		run.addItem(0, &item{
			prod:   prod,
			origin: 0,
		})
	}

	for i := 0; i <= run.tokenCount; i++ {
		run.closeColumn(i)
		if i < run.tokenCount {
			if len(run.cols[i].scans) == 0 {
				return nil, &ParseError{TokenIndex: i}
			}
			run.scan(i)
		}
	}

	node, ok := run.nodes[symbolLabel(root, 0, run.tokenCount)]
	if !ok {
		return nil, &ParseError{TokenIndex: run.tokenCount}
	}
	return node, nil
}

// closeColumn runs predict and complete to closure over column i. The
// nulled set records nonterminals already completed over the empty span
// [i, i), so that items predicted after such a completion still advance
// past them.
func (run *parseRun) closeColumn(i int) {
	col := run.cols[i]
	nulled := map[grammar.Symbol]*Node{}

	for idx := 0; idx < len(col.items); idx++ {
		it := col.items[idx]
		if it.dot < len(it.prod.RHS) {
			// Terminals never enter col.items, so the next symbol is a
			// nonterminal: predict it.
			next := it.prod.RHS[it.dot]
			for _, prod := range run.g.ProductionsByLHS(next) {
				run.addItem(i, &item{
					prod:   prod,
					origin: i,
				})
			}
			if v, ok := nulled[next]; ok {
				run.addItem(i, &item{
					prod:   it.prod,
					dot:    it.dot + 1,
					origin: it.origin,
					node:   run.makeNode(it.prod, it.dot+1, it.origin, i, it.node, v),
				})
			}
			continue
		}

		// Completion of it.prod.LHS over [it.origin, i).
		w := it.node
		if w == nil {
			// An empty production completes in the column it was
			// predicted in.
			w = run.findOrCreateNode(symbolLabel(it.prod.LHS, i, i))
			w.addFamily(it.prod, nil, nil)
		}
		if it.origin == i {
			if _, ok := nulled[it.prod.LHS]; !ok {
				nulled[it.prod.LHS] = w
			}
		}
		origin := run.cols[it.origin]
		for j := 0; j < len(origin.items); j++ {
			oit := origin.items[j]
			if oit.dot < len(oit.prod.RHS) && oit.prod.RHS[oit.dot] == it.prod.LHS {
				run.addItem(i, &item{
					prod:   oit.prod,
					dot:    oit.dot + 1,
					origin: oit.origin,
					node:   run.makeNode(oit.prod, oit.dot+1, oit.origin, i, oit.node, w),
				})
			}
		}
	}
}

// scan consumes token i, advancing every pending scan item into column i+1
// over a shared terminal node per matched terminal category.
func (run *parseRun) scan(i int) {
	for _, it := range run.cols[i].scans {
		term := it.prod.RHS[it.dot]
		v := run.findOrCreateNode(symbolLabel(term, i, i+1))
		run.addItem(i+1, &item{
			prod:   it.prod,
			dot:    it.dot + 1,
			origin: it.origin,
			node:   run.makeNode(it.prod, it.dot+1, it.origin, i+1, it.node, v),
		})
	}
}

// addItem routes a new item: items whose next symbol is a terminal live in
// the column's scan set when the terminal matches the token at that
// position and die silently when it does not; everything else joins the
// closure worklist. Duplicate items are dropped.
func (run *parseRun) addItem(colIdx int, it *item) {
	col := run.cols[colIdx]
	if it.dot < len(it.prod.RHS) {
		next := it.prod.RHS[it.dot]
		if next.IsTerminal() {
			if colIdx < run.tokenCount && run.matches(colIdx, next) && col.dedup(it) {
				col.scans = append(col.scans, it)
			}
			return
		}
	}
	if col.dedup(it) {
		col.items = append(col.items, it)
	}
}

// makeNode materializes or reuses the forest node for recognizing prod up
// to dot over [start, end), packing (w, v) as one of its families. When
// only the first symbol has been recognized and more remain, the child node
// itself suffices and no intermediate node is made.
func (run *parseRun) makeNode(prod *grammar.Production, dot, start, end int, w, v *Node) *Node {
	if dot == 1 && dot < len(prod.RHS) {
		return v
	}
	var label Label
	if dot == len(prod.RHS) {
		label = symbolLabel(prod.LHS, start, end)
	} else {
		label = intermediateLabel(prod, dot, start, end)
	}
	y := run.findOrCreateNode(label)
	y.addFamily(prod, w, v)
	return y
}

func (run *parseRun) findOrCreateNode(label Label) *Node {
	if n, ok := run.nodes[label]; ok {
		return n
	}
	n := newNode(label, run.meter)
	run.nodes[label] = n
	return n
}

const (
	matchUnknown = byte(0)
	matchYes     = byte(1)
	matchNo      = byte(2)
)

// matches memoizes TokenReader.Matches per (token, terminal) in the scratch
// buffer obtained from the reader, so a terminal category probed by many
// predictions is resolved once per token.
func (run *parseRun) matches(tokenIndex int, term grammar.Symbol) bool {
	buf := run.matchBufs[tokenIndex]
	if buf == nil {
		size := run.g.TerminalCount()
		buf = run.reader.Allocate(tokenIndex, size)
		if len(buf) < size {
			buf = make([]byte, size)
		}
		run.matchBufs[tokenIndex] = buf
	}
	slot := term.TerminalNum() - 1
	switch buf[slot] {
	case matchYes:
		return true
	case matchNo:
		return false
	}
	if run.reader.Matches(tokenIndex, term) {
		buf[slot] = matchYes
		return true
	}
	buf[slot] = matchNo
	return false
}
