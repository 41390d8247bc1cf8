package parser

import (
	"fmt"
	"math"

	"github.com/ottar/skilja/grammar"
)

// Label identifies the semantic position of a forest node: the symbol being
// recognized over a half-open token span, or, for an intermediate packing
// node, a production and dot position over that span. Label equality is the
// node-sharing key: at most one live node exists per distinct label during
// one parse.
type Label struct {
	Sym   grammar.Symbol
	Prod  *grammar.Production
	Dot   int
	Start int
	End   int
}

func symbolLabel(sym grammar.Symbol, start, end int) Label {
	return Label{
		Sym:   sym,
		Start: start,
		End:   end,
	}
}

func intermediateLabel(prod *grammar.Production, dot, start, end int) Label {
	return Label{
		Prod:  prod,
		Dot:   dot,
		Start: start,
		End:   end,
	}
}

func (l Label) isIntermediate() bool {
	return l.Sym.IsNil()
}

// Family is one packed alternative derivation under a node: the production
// that produced it and up to two children. Right-hand sides longer than two
// symbols are chained through intermediate nodes, so two children always
// suffice. The list of families under one node is exactly the ambiguity at
// that point.
type Family struct {
	prod  *grammar.Production
	left  *Node
	right *Node
	next  *Family
}

func (f *Family) matches(prod *grammar.Production, left, right *Node) bool {
	return f.prod == prod && f.left == left && f.right == right
}

// Node is a shared packed parse forest node. Nodes are shared by reference
// count, not owned by a tree: every family adopting a node as a child takes
// a reference, and the parse itself hands one reference to the caller.
type Node struct {
	label    Label
	families *Family
	refs     int32
	meter    *Meter
}

func newNode(label Label, meter *Meter) *Node {
	meter.countNode()
	return &Node{
		label: label,
		refs:  1,
		meter: meter,
	}
}

func (n *Node) Label() Label {
	return n.label
}

// addFamily packs another alternative derivation onto n, taking a reference
// on each child. Re-adding an identical family is a no-op.
func (n *Node) addFamily(prod *grammar.Production, left, right *Node) {
	tail := &n.families
	for f := n.families; f != nil; f = f.next {
		if f.matches(prod, left, right) {
			return
		}
		tail = &f.next
	}
	left.addRef()
	right.addRef()
	n.meter.countFamily()
	*tail = &Family{
		prod:  prod,
		left:  left,
		right: right,
	}
}

func (n *Node) addRef() {
	if n == nil {
		return
	}
	n.refs++
}

// Free releases one reference. When the count reaches zero the node
// releases one reference from each child of each of its families and is
// retired; the recursion is how packed sharing is reclaimed without
// double-freeing shared subtrees. Freeing below zero is a defect in the
// caller's ownership discipline and panics.
func (n *Node) Free() {
	if n == nil {
		return
	}
	n.refs--
	if n.refs < 0 {
		panic(fmt.Sprintf("forest node %v freed more times than referenced", n.label))
	}
	if n.refs > 0 {
		return
	}
	for f := n.families; f != nil; f = f.next {
		f.left.Free()
		f.right.Free()
	}
	n.families = nil
	n.meter.countFree()
}

// CombinationsMax is the saturation point of Combinations: a count of
// exactly CombinationsMax means "too many to count", not an exact value.
const CombinationsMax = uint64(math.MaxUint64)

// Combinations counts the distinct derivations packed under node without
// enumerating them. Shared nodes are counted once per call via a memo keyed
// by node identity, so sharing never double-counts. The count saturates at
// CombinationsMax instead of overflowing.
//
// A node reachable from itself would make the count infinite; spans never
// shrink, so only a nullable cycle can produce one. Such a forest is a
// defect in the grammar, and hitting it panics rather than recursing
// forever.
func Combinations(node *Node) uint64 {
	return combinations(node, map[*Node]uint64{}, map[*Node]bool{})
}

func combinations(node *Node, memo map[*Node]uint64, walking map[*Node]bool) uint64 {
	if node == nil || node.families == nil {
		return 1
	}
	if c, ok := memo[node]; ok {
		return c
	}
	if walking[node] {
		panic(fmt.Sprintf("forest node %v participates in its own derivation", node.label))
	}
	walking[node] = true
	total := uint64(0)
	for f := node.families; f != nil; f = f.next {
		total = satAdd(total, satMul(combinations(f.left, memo, walking), combinations(f.right, memo, walking)))
	}
	memo[node] = total
	return total
}

func satMul(a, b uint64) uint64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a > CombinationsMax/b {
		return CombinationsMax
	}
	return a * b
}

func satAdd(a, b uint64) uint64 {
	if a > CombinationsMax-b {
		return CombinationsMax
	}
	return a + b
}

// Meter is optional per-parse allocation instrumentation. A caller that
// wants liveness accounting attaches one with WithMeter; without one the
// engine runs unmetered. Counters are plain ints because a parse is a
// single synchronous call.
type Meter struct {
	// Nodes is the total number of forest nodes allocated.
	Nodes int
	// Families is the total number of packed families allocated.
	Families int
	// Live is the number of nodes allocated but not yet retired. After
	// freeing the root of a parse with no other retained references it
	// must read zero.
	Live int
}

func (m *Meter) countNode() {
	if m == nil {
		return
	}
	m.Nodes++
	m.Live++
}

func (m *Meter) countFamily() {
	if m == nil {
		return
	}
	m.Families++
}

func (m *Meter) countFree() {
	if m == nil {
		return
	}
	m.Live--
}
