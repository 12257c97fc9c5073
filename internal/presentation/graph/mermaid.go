// Package graph draws a scoring trace as a Mermaid flowchart.
package graph

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/scorebridge/pkg/domain"
)

// TraceOverlay marks the selected step of the trace.
type TraceOverlay struct {
	CurrentStep int
}

// GenerateMermaid produces a Mermaid flowchart of the execution trace:
// the focus node, one node per step in order and an edge from each step to
// the widget it scored. Steps whose validations all passed are drawn as
// rectangles, the others as parallelograms.
func GenerateMermaid(res *domain.ScoringResult, overlay *TraceOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	fmt.Fprintf(&sb, "    focus((\"%s\"))\n", escapeLabel(res.FocusNode))

	widgets := make(map[string]string)
	prev := "focus"
	for _, step := range res.ExecutionSteps {
		id := "step" + strconv.Itoa(step.StepIndex)
		opener, closer := "[", "]"
		if !passed(step) {
			opener, closer = "[/", "/]"
		}
		fmt.Fprintf(&sb, "    %s%s\"%d. %s\"%s\n", id, opener, step.StepIndex+1, escapeLabel(localName(step.ScoreURI)), closer)
		fmt.Fprintf(&sb, "    %s --> %s\n", prev, id)
		prev = id

		if step.Widget == "" {
			continue
		}
		wid, ok := widgets[step.Widget]
		if !ok {
			wid = "widget" + strconv.Itoa(len(widgets))
			widgets[step.Widget] = wid
			fmt.Fprintf(&sb, "    %s[[\"%s\"]]\n", wid, escapeLabel(localName(step.Widget)))
		}
		fmt.Fprintf(&sb, "    %s -. \"%s\" .-> %s\n", id, strconv.FormatFloat(step.Score, 'f', -1, 64), wid)
	}

	if res.DefaultWidget != nil {
		if wid, ok := widgets[*res.DefaultWidget]; ok {
			sb.WriteString("    classDef chosen stroke:#16a34a,stroke-width:3px;\n")
			fmt.Fprintf(&sb, "    class %s chosen;\n", wid)
		}
	}

	if overlay != nil && overlay.CurrentStep >= 0 && overlay.CurrentStep < len(res.ExecutionSteps) {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		for i := 0; i < overlay.CurrentStep; i++ {
			fmt.Fprintf(&sb, "    class step%d visited;\n", i)
		}
		fmt.Fprintf(&sb, "    class step%d current;\n", overlay.CurrentStep)
	}

	return sb.String()
}

func passed(step domain.ExecutionStep) bool {
	for _, v := range step.DataGraphValidation {
		if !v.Valid {
			return false
		}
	}
	for _, v := range step.ShapesGraphValidation {
		if !v.Valid {
			return false
		}
	}
	return true
}

// localName keeps the part of an IRI after the last '#' or '/'.
func localName(iri string) string {
	if i := strings.LastIndexAny(iri, "#/"); i >= 0 && i < len(iri)-1 {
		return iri[i+1:]
	}
	return iri
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}
