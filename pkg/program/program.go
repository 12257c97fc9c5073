// Package program builds the Python program a worker runs for one scoring request.
//
// Graph texts never appear in the program source: they travel as a JSON
// envelope on the interpreter's stdin. Only the focus node is embedded, through
// the escaped constructor expression produced by Literal.
package program

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/aretw0/scorebridge/pkg/domain"
)

//go:embed scoring.py.tmpl
var scoringSource string

var scoringTemplate = template.Must(template.New("scoring").Option("missingkey=error").Parse(scoringSource))

// Program is a ready-to-run evaluation: the source and the stdin it reads.
type Program struct {
	Source string
	Stdin  []byte
}

// envelope is the stdin payload of the generated program.
type envelope struct {
	WidgetScoringGraph string `json:"widgetScoringGraph"`
	DataGraphShapes    string `json:"dataGraphShapes"`
	ShapesGraphShapes  string `json:"shapesGraphShapes"`
	DataGraph          string `json:"dataGraph,omitempty"`
	ShapesGraph        string `json:"shapesGraph,omitempty"`
	ConstraintShape    string `json:"constraintShape,omitempty"`
	FocusNodeDisplay   string `json:"focusNodeDisplay"`
}

type templateData struct {
	Namespace string
	FocusNode string
}

// Build renders the scoring program for req.
func Build(req domain.ScoringRequest) (Program, error) {
	if err := req.Validate(); err != nil {
		return Program{}, err
	}

	focus, err := Literal(req.FocusNode)
	if err != nil {
		return Program{}, err
	}

	var src strings.Builder
	data := templateData{
		Namespace: strconv.Quote(domain.SHUINamespace),
		FocusNode: focus,
	}
	if err := scoringTemplate.Execute(&src, data); err != nil {
		return Program{}, fmt.Errorf("failed to render scoring program: %w", err)
	}

	stdin, err := json.Marshal(envelope{
		WidgetScoringGraph: req.WidgetScoringGraph,
		DataGraphShapes:    req.DataGraphShapes,
		ShapesGraphShapes:  req.ShapesGraphShapes,
		DataGraph:          req.DataGraph,
		ShapesGraph:        req.ShapesGraph,
		ConstraintShape:    req.ConstraintShape,
		FocusNodeDisplay:   req.FocusNode.String(),
	})
	if err != nil {
		return Program{}, domain.NewError(domain.KindSerializationFailure,
			fmt.Sprintf("failed to encode program input: %v", err), err)
	}

	return Program{Source: src.String(), Stdin: stdin}, nil
}
