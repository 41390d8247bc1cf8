package parser

import "fmt"

// Reduce deterministically collapses an ambiguous forest into its single
// preferred derivation and that derivation's score. The forest is left
// intact; the result is a fresh Tree.
//
// Scores are computed bottom-up, memoized by node identity so a shared node
// is resolved once. A family scores the sum of its children's scores, plus
// ten times its production's priority at the node completing the
// production; terminal leaves score zero. At an ambiguous node the family
// with the highest score wins, and equal scores fall back to the lower
// production number, a fixed total order making the winner independent of
// the order families were discovered in.
func Reduce(node *Node) (*Tree, int64) {
	r := &reducer{
		memo: map[*Node]*reduction{},
	}
	red := r.reduce(node)
	return red.trees[0], red.score
}

// reduction is the resolved form of one forest node. A symbol node resolves
// to exactly one tree; an intermediate node resolves to the flattened child
// list it contributes to its parent.
type reduction struct {
	trees []*Tree
	score int64
}

type reducer struct {
	memo map[*Node]*reduction
}

func (r *reducer) reduce(node *Node) *reduction {
	if red, ok := r.memo[node]; ok {
		if red == nil {
			// In-progress marker hit again: the node derives itself
			// through a nullable cycle. The forest is unresolvable.
			panic(fmt.Sprintf("forest node %v participates in its own derivation", node.label))
		}
		return red
	}

	label := node.label
	if node.families == nil {
		// Terminal leaf.
		red := &reduction{
			trees: []*Tree{{
				Sym:   label.Sym,
				Start: label.Start,
				End:   label.End,
			}},
		}
		r.memo[node] = red
		return red
	}

	r.memo[node] = nil

	var best *reduction
	var bestFam *Family
	for f := node.families; f != nil; f = f.next {
		red := r.reduceFamily(f, label)
		if best == nil || red.score > best.score ||
			(red.score == best.score && f.prod.Num < bestFam.prod.Num) {
			best = red
			bestFam = f
		}
	}

	r.memo[node] = best
	return best
}

func (r *reducer) reduceFamily(f *Family, label Label) *reduction {
	var children []*Tree
	score := int64(0)
	if f.left != nil {
		red := r.reduce(f.left)
		children = append(children, red.trees...)
		score += red.score
	}
	if f.right != nil {
		red := r.reduce(f.right)
		children = append(children, red.trees...)
		score += red.score
	}

	if label.isIntermediate() {
		// A binarization link only forwards its children; the production
		// scores once, at the node that completes it.
		return &reduction{
			trees: children,
			score: score,
		}
	}

	return &reduction{
		trees: []*Tree{{
			Sym:      label.Sym,
			Prod:     f.prod,
			Start:    label.Start,
			End:      label.End,
			Children: children,
		}},
		score: score + 10*int64(f.prod.Priority),
	}
}
