package parser

import (
	"fmt"
	"io"

	"github.com/ottar/skilja/grammar"
)

// Tree is one derivation extracted from a forest: every node has exactly
// one production and a full child list, with the binarization chains of the
// forest coalesced away. Trees are read-only; an epsilon subtree may be
// shared between parents.
type Tree struct {
	Sym   grammar.Symbol
	Prod  *grammar.Production
	Start int
	End   int
	// Children is nil for terminal leaves and for epsilon derivations.
	Children []*Tree
}

// PrintTree writes an indented dump of a derivation tree. Diagnostics only;
// the layout is not a stable interface.
func PrintTree(w io.Writer, g *grammar.Grammar, tree *Tree) {
	printTree(w, g, tree, "", "")
}

func printTree(w io.Writer, g *grammar.Grammar, tree *Tree, ruledLine string, childRuledLinePrefix string) {
	if tree == nil {
		return
	}

	if tree.Sym.IsTerminal() {
		fmt.Fprintf(w, "%v%v [%v]\n", ruledLine, g.SymbolText(tree.Sym), tree.Start)
		return
	}
	fmt.Fprintf(w, "%v%v\n", ruledLine, g.SymbolText(tree.Sym))

	num := len(tree.Children)
	for i, child := range tree.Children {
		var line string
		if num > 1 && i < num-1 {
			line = "├─ "
		} else {
			line = "└─ "
		}

		var prefix string
		if i >= num-1 {
			prefix = "   "
		} else {
			prefix = "│  "
		}

		printTree(w, g, child, childRuledLinePrefix+line, childRuledLinePrefix+prefix)
	}
}

// PrintForest writes a dump of a packed forest, one line per node, with a
// "* option" line per family where a node packs more than one alternative.
// Diagnostics only.
func PrintForest(w io.Writer, g *grammar.Grammar, node *Node) {
	printForest(w, g, node, "", map[*Node]bool{})
}

func printForest(w io.Writer, g *grammar.Grammar, node *Node, indent string, visited map[*Node]bool) {
	if node == nil {
		return
	}
	label := node.label

	switch {
	case label.isIntermediate():
		// Binarization chains carry no information of their own; walk
		// through them.
		for f := node.families; f != nil; f = f.next {
			printForest(w, g, f.left, indent, visited)
			printForest(w, g, f.right, indent, visited)
			if f.next != nil {
				fmt.Fprintf(w, "%v* option\n", indent)
			}
		}
	case label.Sym.IsTerminal():
		fmt.Fprintf(w, "%v%v [%v:%v)\n", indent, g.SymbolText(label.Sym), label.Start, label.End)
	default:
		if visited[node] {
			fmt.Fprintf(w, "%v%v [%v:%v) (shared)\n", indent, g.SymbolText(label.Sym), label.Start, label.End)
			return
		}
		visited[node] = true
		fmt.Fprintf(w, "%v%v [%v:%v)\n", indent, g.SymbolText(label.Sym), label.Start, label.End)
		for f := node.families; f != nil; f = f.next {
			if node.families.next != nil {
				fmt.Fprintf(w, "%v* option (production %v)\n", indent+"  ", f.prod.Num)
			}
			printForest(w, g, f.left, indent+"  ", visited)
			printForest(w, g, f.right, indent+"  ", visited)
		}
	}
}
