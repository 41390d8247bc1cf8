package parser

import "github.com/ottar/skilja/grammar"

// TokenReader is the capability the host supplies for one parse. The engine
// knows nothing about tokens beyond their count and index; what a token is
// and how it satisfies a terminal category is entirely the host's business.
//
// Matches must be a pure function of its arguments for the duration of one
// parse. The engine may ask about the same (token, terminal) pair many
// times and memoizes the answer, so a reader whose answers drift mid-parse
// produces an undefined chart.
//
// Allocate supplies a scratch buffer of at least size bytes associated with
// a token slot, valid for the lifetime of the parse call. The host keeps
// ownership of the buffer; the engine only writes match-cache bytes into
// it. A host that shares one buffer between identical tokens shares the
// memoized match results too. Returning nil makes the engine fall back to a
// private per-token buffer.
type TokenReader interface {
	Matches(tokenIndex int, terminal grammar.Symbol) bool
	Allocate(tokenIndex, size int) []byte
}
