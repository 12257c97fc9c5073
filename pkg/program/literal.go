package program

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/aretw0/scorebridge/pkg/domain"
)

// Literal renders node as an rdflib constructor expression:
//
//	URIRef("…")
//	Literal("…", lang="…")
//	Literal("…", datatype=URIRef("…"))
//	Literal("…")
//
// Every string is emitted as an escaped double-quoted literal, so no
// component of the node can terminate the expression early.
func Literal(node domain.FocusNode) (string, error) {
	if err := node.Validate(); err != nil {
		return "", err
	}

	value, err := quote(node.Value())
	if err != nil {
		return "", err
	}

	switch {
	case node.IsNamed():
		return "URIRef(" + value + ")", nil
	case node.Language() != "":
		lang, err := quote(node.Language())
		if err != nil {
			return "", err
		}
		return "Literal(" + value + ", lang=" + lang + ")", nil
	case node.Datatype() != "":
		datatype, err := quote(node.Datatype())
		if err != nil {
			return "", err
		}
		return "Literal(" + value + ", datatype=URIRef(" + datatype + "))", nil
	default:
		return "Literal(" + value + ")", nil
	}
}

// quote produces a double-quoted string literal valid in both Go and Python 3.
// strconv escapes quotes, backslashes and control characters; Python accepts
// the same \x, \u and \U escapes. Invalid UTF-8 has no faithful encoding.
func quote(s string) (string, error) {
	if !utf8.ValidString(s) {
		return "", domain.NewError(domain.KindEvalProgramInjection,
			fmt.Sprintf("focus node component %q is not valid UTF-8", s), nil)
	}
	return strconv.Quote(s), nil
}
