package grammar

type SemanticError struct {
	message string
}

func newSemanticError(message string) *SemanticError {
	return &SemanticError{
		message: message,
	}
}

func (e *SemanticError) Error() string {
	return e.message
}

var (
	semErrNoProduction        = newSemanticError("a grammar needs at least one production")
	semErrDuplicateProduction = newSemanticError("duplicate production")
	semErrUndefinedSym        = newSemanticError("undefined nonterminal")
	semErrSelfDerivation      = newSemanticError("a nonterminal must not derive only itself")
	semErrUnreachableSym      = newSemanticError("a nonterminal is unreachable from the root")
	semErrUnproductiveSym     = newSemanticError("a nonterminal derives no terminal string")
	semErrUnknownPragma       = newSemanticError("unknown pragma")
	semErrPragmaTarget        = newSemanticError("a pragma target must be a defined nonterminal")
)
