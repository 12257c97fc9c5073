package loam

import (
	"fmt"

	"github.com/aretw0/scorebridge/pkg/domain"
)

// Document kinds.
const (
	KindExample = "example"
	KindShared  = "shared"
)

// Shared graph roles.
const (
	RoleWidgetScoringGraph = "widget_scoring_graph"
	RoleDataGraphShapes    = "data_graph_shapes"
	RoleShapesGraphShapes  = "shapes_graph_shapes"
)

// ExampleMetadata is the front matter of an example or shared-graph document.
// The document body is Turtle: the data graph of an example, or the shared graph itself.
type ExampleMetadata struct {
	ID          string `json:"id" mapstructure:"id"`
	Kind        string `json:"kind" mapstructure:"kind"`
	Name        string `json:"name" mapstructure:"name"`
	Description string `json:"description" mapstructure:"description"`

	// Role names the shared graph a "shared" document provides.
	Role string `json:"role" mapstructure:"role"`

	FocusNode       *FocusNodeMetadata `json:"focus_node" mapstructure:"focus_node"`
	ConstraintShape string             `json:"constraint_shape" mapstructure:"constraint_shape"`
	ShapesGraph     string             `json:"shapes_graph" mapstructure:"shapes_graph"`
}

// FocusNodeMetadata is the front-matter form of a focus node.
type FocusNodeMetadata struct {
	Tag      string `json:"tag" mapstructure:"tag"`
	Value    string `json:"value" mapstructure:"value"`
	Datatype string `json:"datatype" mapstructure:"datatype"`
	Language string `json:"language" mapstructure:"language"`
}

// Node converts the metadata into a validated focus node. A missing focus
// node is the default placeholder.
func (m *FocusNodeMetadata) Node() (domain.FocusNode, error) {
	if m == nil {
		return domain.DefaultFocusNode(), nil
	}

	var node domain.FocusNode
	switch domain.TermTag(m.Tag) {
	case domain.TagNamed:
		node = domain.NamedTerm(m.Value)
	case domain.TagLiteral, "":
		switch {
		case m.Language != "" && m.Datatype != "":
			return domain.FocusNode{}, fmt.Errorf("%w: literal cannot have both datatype and language", domain.ErrInvalidFocusNode)
		case m.Language != "":
			node = domain.LangLiteral(m.Value, m.Language)
		case m.Datatype != "":
			node = domain.TypedLiteral(m.Value, m.Datatype)
		default:
			node = domain.Literal(m.Value)
		}
	default:
		return domain.FocusNode{}, fmt.Errorf("%w: unknown tag %q", domain.ErrInvalidFocusNode, m.Tag)
	}
	return node, node.Validate()
}
