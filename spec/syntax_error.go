package spec

import "fmt"

type SyntaxError struct {
	message string
}

func newSyntaxError(message string) *SyntaxError {
	return &SyntaxError{
		message: message,
	}
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error: %s", e.message)
}

var (
	// lexical errors
	synErrUnclosedLiteral = newSyntaxError("unclosed literal")
	synErrEmptyLiteral    = newSyntaxError("a literal must not be empty")
	synErrReservedName    = newSyntaxError("identifiers starting with '_' are reserved")
	synErrMalformedPragma = newSyntaxError("a pragma must have the form $name(value)")

	// syntax errors
	synErrInvalidToken    = newSyntaxError("invalid token")
	synErrNoRule          = newSyntaxError("a grammar must have at least one rule")
	synErrNoArrow         = newSyntaxError("a rule name must be followed by '->'")
	synErrNoRuleName      = newSyntaxError("a rule must start with a nonterminal name")
	synErrMixedSeparators = newSyntaxError("cannot mix '|' and '>' between alternatives")
	synErrEmptyNotAlone   = newSyntaxError("'0' must be the only element of an alternative")
	synErrQuantifiedEmpty = newSyntaxError("'0' cannot take a quantifier")
	synErrDanglingQuant   = newSyntaxError("a quantifier must follow an element")
	synErrPragmaNoTarget  = newSyntaxError("a pragma must name at least one nonterminal")
)
