package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// TermTag discriminates the FocusNode variants.
type TermTag string

const (
	TagNamed   TermTag = "named"   // IRI resource
	TagLiteral TermTag = "literal" // RDF literal
)

// DefaultFocusNodeIRI is the placeholder resource used for fresh and reset sessions.
const DefaultFocusNodeIRI = "http://example.org/resource"

var (
	// ErrInvalidFocusNode is returned when a focus node violates the tagged union rules.
	ErrInvalidFocusNode = errors.New("invalid focus node")
)

// FocusNode is the RDF term under evaluation: either a named resource or a literal.
//
// Fields are unexported so that a node cannot be changed after construction;
// build a new value instead.
type FocusNode struct {
	tag      TermTag
	value    string
	datatype string
	language string
}

// NamedTerm creates an IRI focus node.
func NamedTerm(iri string) FocusNode {
	return FocusNode{tag: TagNamed, value: iri}
}

// Literal creates a plain literal focus node.
func Literal(value string) FocusNode {
	return FocusNode{tag: TagLiteral, value: value}
}

// LangLiteral creates a language-tagged literal.
func LangLiteral(value, language string) FocusNode {
	return FocusNode{tag: TagLiteral, value: value, language: language}
}

// TypedLiteral creates a literal with an explicit datatype IRI.
func TypedLiteral(value, datatype string) FocusNode {
	return FocusNode{tag: TagLiteral, value: value, datatype: datatype}
}

// DefaultFocusNode returns the placeholder node used as initial state.
func DefaultFocusNode() FocusNode {
	return NamedTerm(DefaultFocusNodeIRI)
}

func (n FocusNode) Tag() TermTag {
	return n.tag
}

func (n FocusNode) Value() string {
	return n.value
}

func (n FocusNode) Datatype() string {
	return n.datatype
}

func (n FocusNode) Language() string {
	return n.language
}

func (n FocusNode) IsNamed() bool {
	return n.tag == TagNamed
}

func (n FocusNode) IsLiteral() bool {
	return n.tag == TagLiteral
}

func (n FocusNode) IsZero() bool {
	return n == FocusNode{}
}

func (n FocusNode) Equal(o FocusNode) bool {
	return n == o
}

// Validate checks the union invariants.
func (n FocusNode) Validate() error {
	switch n.tag {
	case TagNamed:
		if n.value == "" {
			return fmt.Errorf("%w: named term requires an IRI", ErrInvalidFocusNode)
		}
		if n.datatype != "" || n.language != "" {
			return fmt.Errorf("%w: named term cannot carry datatype or language", ErrInvalidFocusNode)
		}
	case TagLiteral:
		if n.datatype != "" && n.language != "" {
			return fmt.Errorf("%w: literal cannot have both datatype and language", ErrInvalidFocusNode)
		}
	case "":
		return fmt.Errorf("%w: missing tag", ErrInvalidFocusNode)
	default:
		return fmt.Errorf("%w: unknown tag %q", ErrInvalidFocusNode, n.tag)
	}
	return nil
}

// String renders the node in N3 notation: <iri>, "v"@lang, "v"^^<dt> or "v".
func (n FocusNode) String() string {
	if n.tag == TagNamed {
		return "<" + n.value + ">"
	}

	var b strings.Builder
	b.WriteByte('"')
	b.WriteString(n3Escaper.Replace(n.value))
	b.WriteByte('"')

	if n.language != "" {
		b.WriteString("@" + n.language)
	} else if n.datatype != "" {
		b.WriteString("^^<" + n.datatype + ">")
	}
	return b.String()
}

var n3Escaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

// focusNodeWire is the plain-data form that crosses process boundaries.
type focusNodeWire struct {
	Tag      TermTag `json:"tag"`
	Value    string  `json:"value"`
	Datatype string  `json:"datatype,omitempty"`
	Language string  `json:"language,omitempty"`
}

func (n FocusNode) MarshalJSON() ([]byte, error) {
	return json.Marshal(focusNodeWire{
		Tag:      n.tag,
		Value:    n.value,
		Datatype: n.datatype,
		Language: n.language,
	})
}

func (n *FocusNode) UnmarshalJSON(data []byte) error {
	var w focusNodeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFocusNode, err)
	}
	decoded := FocusNode{tag: w.Tag, value: w.Value, datatype: w.Datatype, language: w.Language}
	if err := decoded.Validate(); err != nil {
		return err
	}
	*n = decoded
	return nil
}

// SerializeFocusNode encodes a node into a freshly allocated plain-data buffer.
func SerializeFocusNode(n FocusNode) ([]byte, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(n)
}

// DeserializeFocusNode decodes the output of SerializeFocusNode.
func DeserializeFocusNode(data []byte) (FocusNode, error) {
	var n FocusNode
	if err := json.Unmarshal(data, &n); err != nil {
		return FocusNode{}, err
	}
	return n, nil
}
