package domain

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// ScoringRequest is the input of a single evaluation.
// It is plain data: it is encoded as JSON before it reaches the worker.
type ScoringRequest struct {
	FocusNode          FocusNode `json:"focusNode"`
	WidgetScoringGraph string    `json:"widgetScoringGraph"`
	DataGraphShapes    string    `json:"dataGraphShapes"`
	ShapesGraphShapes  string    `json:"shapesGraphShapes"`
	DataGraph          string    `json:"dataGraph,omitempty"`
	ShapesGraph        string    `json:"shapesGraph,omitempty"`
	ConstraintShape    string    `json:"constraintShape,omitempty"`
}

// ErrInvalidRequest is returned when a ScoringRequest is incomplete.
var ErrInvalidRequest = errors.New("invalid scoring request")

// Validate checks the required graphs and the focus node.
func (r ScoringRequest) Validate() error {
	if err := r.FocusNode.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if r.WidgetScoringGraph == "" {
		return fmt.Errorf("%w: widget scoring graph is required", ErrInvalidRequest)
	}
	if r.DataGraphShapes == "" {
		return fmt.Errorf("%w: data graph shapes graph is required", ErrInvalidRequest)
	}
	if r.ShapesGraphShapes == "" {
		return fmt.Errorf("%w: shapes graph shapes graph is required", ErrInvalidRequest)
	}
	for name, text := range r.texts() {
		if !utf8.ValidString(text) {
			return NewError(KindSerializationFailure, fmt.Sprintf("%s is not valid UTF-8", name), nil)
		}
	}
	return nil
}

func (r ScoringRequest) texts() map[string]string {
	return map[string]string{
		"widgetScoringGraph": r.WidgetScoringGraph,
		"dataGraphShapes":    r.DataGraphShapes,
		"shapesGraphShapes":  r.ShapesGraphShapes,
		"dataGraph":          r.DataGraph,
		"shapesGraph":        r.ShapesGraph,
		"constraintShape":    r.ConstraintShape,
	}
}

// WidgetScore is one scored widget candidate.
type WidgetScore struct {
	Widget           string  `json:"widget"`
	Score            float64 `json:"score"`
	ScoreURI         string  `json:"scoreUri,omitempty"`
	DataGraphShape   string  `json:"dataGraphShape,omitempty"`
	ShapesGraphShape string  `json:"shapesGraphShape,omitempty"`
}

// ValidationResult is the outcome of validating against one shape.
type ValidationResult struct {
	Valid   bool   `json:"valid"`
	Shape   string `json:"shape"`
	Details string `json:"details,omitempty"`
}

// ExecutionStep is one recorded decision point of the scoring trace.
type ExecutionStep struct {
	StepIndex             int                `json:"stepIndex"`
	ScoreURI              string             `json:"scoreUri"`
	Widget                string             `json:"widget"`
	Score                 float64            `json:"score"`
	DataGraphValidation   []ValidationResult `json:"dataGraphValidation"`
	ShapesGraphValidation []ValidationResult `json:"shapesGraphValidation"`
	Explanation           string             `json:"explanation"`
}

// ScoringResult is the output of an evaluation. Treat it as read-only once produced.
type ScoringResult struct {
	WidgetScores    []WidgetScore   `json:"widgetScores"`
	DefaultWidget   *string         `json:"defaultWidget"`
	DefaultScore    *float64        `json:"defaultScore"`
	ExecutionSteps  []ExecutionStep `json:"executionSteps"`
	FocusNode       string          `json:"focusNode"`
	ConstraintShape *string         `json:"constraintShape,omitempty"`
}

// Validate checks that execution steps are indexed 0..N-1 in order.
func (r *ScoringResult) Validate() error {
	for i, step := range r.ExecutionSteps {
		if step.StepIndex != i {
			return fmt.Errorf("execution step %d has index %d", i, step.StepIndex)
		}
	}
	return nil
}

// StepCount returns the number of recorded execution steps.
func (r *ScoringResult) StepCount() int {
	if r == nil {
		return 0
	}
	return len(r.ExecutionSteps)
}
