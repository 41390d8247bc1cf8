package spec

import (
	"errors"
	"strings"
	"testing"

	verr "github.com/ottar/skilja/error"
)

func TestParse(t *testing.T) {
	nt := func(text string) *ElementNode {
		return &ElementNode{Kind: ElementKindNonTerminal, Text: text}
	}
	term := func(text string) *ElementNode {
		return &ElementNode{Kind: ElementKindTerminal, Text: text}
	}
	lit := func(text string) *ElementNode {
		return &ElementNode{Kind: ElementKindLiteral, Text: text}
	}
	exact := func(text string) *ElementNode {
		return &ElementNode{Kind: ElementKindExactLiteral, Text: text}
	}
	quant := func(elem *ElementNode, q Quantifier) *ElementNode {
		elem.Quant = q
		return elem
	}
	alt := func(elems ...*ElementNode) *AlternativeNode {
		return &AlternativeNode{Elements: elems}
	}
	eps := &AlternativeNode{Empty: true}

	tests := []struct {
		caption string
		src     string
		root    *RootNode
		synErr  *SyntaxError
	}{
		{
			caption: "single rule with one alternative",
			src:     `S -> a B`,
			root: &RootNode{
				Rules: []*RuleNode{
					{LHS: "S", Alts: []*AlternativeNode{alt(term("a"), nt("B"))}},
				},
			},
		},
		{
			caption: "alternatives separated by '|'",
			src:     `S -> A B | A C`,
			root: &RootNode{
				Rules: []*RuleNode{
					{LHS: "S", Alts: []*AlternativeNode{alt(nt("A"), nt("B")), alt(nt("A"), nt("C"))}},
				},
			},
		},
		{
			caption: "alternatives separated by '>' are prioritized",
			src:     `S -> A B > A C`,
			root: &RootNode{
				Rules: []*RuleNode{
					{LHS: "S", Prioritized: true, Alts: []*AlternativeNode{alt(nt("A"), nt("B")), alt(nt("A"), nt("C"))}},
				},
			},
		},
		{
			caption: "the fancy arrow works like '->'",
			src:     `S → a`,
			root: &RootNode{
				Rules: []*RuleNode{
					{LHS: "S", Alts: []*AlternativeNode{alt(term("a"))}},
				},
			},
		},
		{
			caption: "literals and exact literals",
			src:     `S -> 'stem' "exact"`,
			root: &RootNode{
				Rules: []*RuleNode{
					{LHS: "S", Alts: []*AlternativeNode{alt(lit("stem"), exact("exact"))}},
				},
			},
		},
		{
			caption: "quantifiers attach to the preceding element",
			src:     `S -> a? B* c+`,
			root: &RootNode{
				Rules: []*RuleNode{
					{LHS: "S", Alts: []*AlternativeNode{
						alt(quant(term("a"), QuantifierOption), quant(nt("B"), QuantifierStar), quant(term("c"), QuantifierPlus)),
					}},
				},
			},
		},
		{
			caption: "0 denotes an epsilon alternative",
			src:     `S -> a | 0`,
			root: &RootNode{
				Rules: []*RuleNode{
					{LHS: "S", Alts: []*AlternativeNode{alt(term("a")), eps}},
				},
			},
		},
		{
			caption: "an indented line continues the previous rule",
			src: `S ->
    a b
    | c`,
			root: &RootNode{
				Rules: []*RuleNode{
					{LHS: "S", Alts: []*AlternativeNode{alt(term("a"), term("b")), alt(term("c"))}},
				},
			},
		},
		{
			caption: "comments and blank lines are skipped",
			src: `# grammar
S -> a # trailing

A -> b`,
			root: &RootNode{
				Rules: []*RuleNode{
					{LHS: "S", Alts: []*AlternativeNode{alt(term("a"))}},
					{LHS: "A", Alts: []*AlternativeNode{alt(term("b"))}},
				},
			},
		},
		{
			caption: "extra separators are tolerated",
			src:     `S -> a | | b`,
			root: &RootNode{
				Rules: []*RuleNode{
					{LHS: "S", Alts: []*AlternativeNode{alt(term("a")), alt(term("b"))}},
				},
			},
		},
		{
			caption: "a priority pragma names its targets",
			src: `$priority(1) B C
S -> a`,
			root: &RootNode{
				Rules: []*RuleNode{
					{LHS: "S", Alts: []*AlternativeNode{alt(term("a"))}},
				},
				Pragmas: []*PragmaNode{
					{Name: "priority", Value: 1, Targets: []string{"B", "C"}},
				},
			},
		},
		{
			caption: "a pragma value may be negative",
			src: `$priority(-2) B
S -> a`,
			root: &RootNode{
				Rules: []*RuleNode{
					{LHS: "S", Alts: []*AlternativeNode{alt(term("a"))}},
				},
				Pragmas: []*PragmaNode{
					{Name: "priority", Value: -2, Targets: []string{"B"}},
				},
			},
		},
		{
			caption: "a pragma without arguments is malformed",
			src: `$priority B
S -> a`,
			synErr: synErrMalformedPragma,
		},
		{
			caption: "a pragma with a non-numeric argument is malformed",
			src: `$priority(x) B
S -> a`,
			synErr: synErrMalformedPragma,
		},
		{
			caption: "a pragma must name a target",
			src: `$priority(1)
S -> a`,
			synErr: synErrPragmaNoTarget,
		},
		{
			caption: "an empty source is invalid",
			src:     ``,
			synErr:  synErrNoRule,
		},
		{
			caption: "a rule needs an arrow",
			src:     `S a b`,
			synErr:  synErrNoArrow,
		},
		{
			caption: "a rule must be named by a nonterminal",
			src:     `s -> a`,
			synErr:  synErrNoRuleName,
		},
		{
			caption: "'|' and '>' cannot be mixed",
			src:     `S -> a | b > c`,
			synErr:  synErrMixedSeparators,
		},
		{
			caption: "'0' must stand alone",
			src:     `S -> 0 a`,
			synErr:  synErrEmptyNotAlone,
		},
		{
			caption: "'0' cannot be quantified",
			src:     `S -> 0?`,
			synErr:  synErrQuantifiedEmpty,
		},
		{
			caption: "a quantifier needs a preceding element",
			src:     `S -> ? a`,
			synErr:  synErrDanglingQuant,
		},
		{
			caption: "an unclosed literal is invalid",
			src:     `S -> 'a`,
			synErr:  synErrUnclosedLiteral,
		},
		{
			caption: "an empty literal is invalid",
			src:     `S -> ''`,
			synErr:  synErrEmptyLiteral,
		},
		{
			caption: "identifiers starting with '_' are reserved",
			src:     `S -> _a`,
			synErr:  synErrReservedName,
		},
		{
			caption: "an invalid token is rejected",
			src:     `S -> a ; b`,
			synErr:  synErrInvalidToken,
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			root, err := Parse(strings.NewReader(tt.src))
			if tt.synErr != nil {
				if err == nil {
					t.Fatalf("an expected error didn't occur; want: %v", tt.synErr)
				}
				var gErr *verr.GrammarError
				if !errors.As(err, &gErr) {
					t.Fatalf("unexpected error type; want: *GrammarError, got: %T (%v)", err, err)
				}
				if !errors.Is(gErr.Cause, tt.synErr) {
					t.Fatalf("unexpected error; want: %v, got: %v", tt.synErr, gErr.Cause)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			matchRoot(t, tt.root, root)
		})
	}
}

func matchRoot(t *testing.T, want, got *RootNode) {
	t.Helper()
	if len(got.Rules) != len(want.Rules) {
		t.Fatalf("unexpected rule count; want: %v, got: %v", len(want.Rules), len(got.Rules))
	}
	if len(got.Pragmas) != len(want.Pragmas) {
		t.Fatalf("unexpected pragma count; want: %v, got: %v", len(want.Pragmas), len(got.Pragmas))
	}
	for i, wPragma := range want.Pragmas {
		gPragma := got.Pragmas[i]
		if gPragma.Name != wPragma.Name || gPragma.Value != wPragma.Value {
			t.Fatalf("unexpected pragma; want: %v(%v), got: %v(%v)",
				wPragma.Name, wPragma.Value, gPragma.Name, gPragma.Value)
		}
		if len(gPragma.Targets) != len(wPragma.Targets) {
			t.Fatalf("unexpected pragma target count; want: %v, got: %v",
				len(wPragma.Targets), len(gPragma.Targets))
		}
		for j, wTarget := range wPragma.Targets {
			if gPragma.Targets[j] != wTarget {
				t.Fatalf("unexpected pragma target; want: %v, got: %v", wTarget, gPragma.Targets[j])
			}
		}
	}
	for i, wRule := range want.Rules {
		gRule := got.Rules[i]
		if gRule.LHS != wRule.LHS || gRule.Prioritized != wRule.Prioritized {
			t.Fatalf("unexpected rule; want: %v (prioritized: %v), got: %v (prioritized: %v)",
				wRule.LHS, wRule.Prioritized, gRule.LHS, gRule.Prioritized)
		}
		if len(gRule.Alts) != len(wRule.Alts) {
			t.Fatalf("unexpected alternative count for %v; want: %v, got: %v",
				wRule.LHS, len(wRule.Alts), len(gRule.Alts))
		}
		for j, wAlt := range wRule.Alts {
			gAlt := gRule.Alts[j]
			if gAlt.Empty != wAlt.Empty {
				t.Fatalf("unexpected epsilon marker; want: %v, got: %v", wAlt.Empty, gAlt.Empty)
			}
			if len(gAlt.Elements) != len(wAlt.Elements) {
				t.Fatalf("unexpected element count; want: %v, got: %v", len(wAlt.Elements), len(gAlt.Elements))
			}
			for k, wElem := range wAlt.Elements {
				gElem := gAlt.Elements[k]
				if gElem.Kind != wElem.Kind || gElem.Text != wElem.Text || gElem.Quant != wElem.Quant {
					t.Fatalf("unexpected element; want: %+v, got: %+v", wElem, gElem)
				}
			}
		}
	}
}
