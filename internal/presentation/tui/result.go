package tui

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/aretw0/scorebridge/pkg/domain"
)

// ResultMarkdown renders a scoring result as markdown: the ranked widget
// table, the default widget and, when current >= 0, the selected step.
func ResultMarkdown(res *domain.ScoringResult, current int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Widget scores for `%s`\n\n", res.FocusNode)
	if res.ConstraintShape != nil {
		fmt.Fprintf(&b, "Constraint shape: `%s`\n\n", *res.ConstraintShape)
	}

	if len(res.WidgetScores) == 0 {
		b.WriteString("No widget scored for this focus node.\n\n")
	} else {
		scores := append([]domain.WidgetScore(nil), res.WidgetScores...)
		sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })

		b.WriteString("| Widget | Score |\n| --- | ---: |\n")
		for _, s := range scores {
			fmt.Fprintf(&b, "| %s | %s |\n", compact(s.Widget), formatScore(s.Score))
		}
		b.WriteString("\n")
	}

	if res.DefaultWidget != nil {
		score := "n/a"
		if res.DefaultScore != nil {
			score = formatScore(*res.DefaultScore)
		}
		fmt.Fprintf(&b, "**Default widget:** %s (%s)\n\n", compact(*res.DefaultWidget), score)
	}

	fmt.Fprintf(&b, "%d execution step(s) recorded.\n", len(res.ExecutionSteps))
	if current >= 0 && current < len(res.ExecutionSteps) {
		b.WriteString("\n")
		b.WriteString(StepMarkdown(res.ExecutionSteps[current], len(res.ExecutionSteps)))
	}
	return b.String()
}

// StepMarkdown renders one execution step with its validation outcomes.
func StepMarkdown(step domain.ExecutionStep, total int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Step %d of %d\n\n", step.StepIndex+1, total)
	fmt.Fprintf(&b, "- Score: `%s`\n", step.ScoreURI)
	fmt.Fprintf(&b, "- Widget: %s\n", compact(step.Widget))
	fmt.Fprintf(&b, "- Value: %s\n\n", formatScore(step.Score))
	if step.Explanation != "" {
		b.WriteString(step.Explanation + "\n\n")
	}
	writeValidations(&b, "Data graph", step.DataGraphValidation)
	writeValidations(&b, "Shapes graph", step.ShapesGraphValidation)
	return b.String()
}

func writeValidations(b *strings.Builder, title string, results []domain.ValidationResult) {
	if len(results) == 0 {
		return
	}
	fmt.Fprintf(b, "### %s validation\n\n", title)
	for _, r := range results {
		mark := "✗"
		if r.Valid {
			mark = "✓"
		}
		fmt.Fprintf(b, "- %s `%s`", mark, r.Shape)
		if r.Details != "" && !r.Valid {
			fmt.Fprintf(b, ": %s", strings.TrimSpace(r.Details))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

// compact shortens IRIs in the SHACL UI namespace to a prefixed name.
func compact(iri string) string {
	if local, ok := strings.CutPrefix(iri, domain.SHUINamespace); ok {
		return "`shui:" + local + "`"
	}
	return "`" + iri + "`"
}

func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
