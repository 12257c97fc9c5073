package domain

// Configuration is the editable input set of the playground.
type Configuration struct {
	WidgetScoringGraph string    `json:"widgetScoringGraph" validate:"required"`
	DataGraphShapes    string    `json:"dataGraphShapes" validate:"required"`
	ShapesGraphShapes  string    `json:"shapesGraphShapes" validate:"required"`
	DataGraph          string    `json:"dataGraph"`
	ShapesGraph        *string   `json:"shapesGraph"`
	FocusNode          FocusNode `json:"focusNode"`
	ConstraintShape    *string   `json:"constraintShape"`
}

// Request converts the configuration into a scoring request.
func (c Configuration) Request() ScoringRequest {
	req := ScoringRequest{
		FocusNode:          c.FocusNode,
		WidgetScoringGraph: c.WidgetScoringGraph,
		DataGraphShapes:    c.DataGraphShapes,
		ShapesGraphShapes:  c.ShapesGraphShapes,
		DataGraph:          c.DataGraph,
	}
	if c.ShapesGraph != nil {
		req.ShapesGraph = *c.ShapesGraph
	}
	if c.ConstraintShape != nil {
		req.ConstraintShape = *c.ConstraintShape
	}
	return req
}

// SavedConfiguration is a named, timestamped Configuration.
type SavedConfiguration struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
	Configuration
}
