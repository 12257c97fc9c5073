package ports

import (
	"context"

	"github.com/aretw0/scorebridge/pkg/domain"
)

// Example is a ready-made scoring scenario.
type Example struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	FocusNode   domain.FocusNode `json:"focusNode"`
	DataGraph   string           `json:"dataGraph"`
	ShapesGraph string           `json:"shapesGraph,omitempty"`
	// ConstraintShape optionally restricts scoring to one shape.
	ConstraintShape string `json:"constraintShape,omitempty"`
}

// SharedGraphs are the graphs every example is scored against.
type SharedGraphs struct {
	WidgetScoringGraph string `json:"widgetScoringGraph"`
	DataGraphShapes    string `json:"dataGraphShapes"`
	ShapesGraphShapes  string `json:"shapesGraphShapes"`
}

// Request combines the example with the shared graphs.
func (e Example) Request(shared SharedGraphs) domain.ScoringRequest {
	return domain.ScoringRequest{
		FocusNode:          e.FocusNode,
		WidgetScoringGraph: shared.WidgetScoringGraph,
		DataGraphShapes:    shared.DataGraphShapes,
		ShapesGraphShapes:  shared.ShapesGraphShapes,
		DataGraph:          e.DataGraph,
		ShapesGraph:        e.ShapesGraph,
		ConstraintShape:    e.ConstraintShape,
	}
}

// ExampleSource lists and loads examples.
type ExampleSource interface {
	List(ctx context.Context) ([]Example, error)
	// Get returns domain.ErrDocumentNotFound for unknown IDs.
	Get(ctx context.Context, id string) (Example, error)
	Shared(ctx context.Context) (SharedGraphs, error)
}
