package tui

import (
	"strings"
	"testing"

	"github.com/aretw0/scorebridge/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *domain.ScoringResult {
	def := domain.SHUINamespace + "BooleanSelectEditor"
	score := 10.0
	return &domain.ScoringResult{
		FocusNode: `"true"^^<http://www.w3.org/2001/XMLSchema#boolean>`,
		WidgetScores: []domain.WidgetScore{
			{Widget: "http://example.org/TextField", Score: 0.5},
			{Widget: def, Score: 10},
		},
		DefaultWidget: &def,
		DefaultScore:  &score,
		ExecutionSteps: []domain.ExecutionStep{{
			StepIndex:   0,
			ScoreURI:    "http://example.org/s0",
			Widget:      def,
			Score:       10,
			Explanation: "Datatype is boolean.",
			DataGraphValidation: []domain.ValidationResult{
				{Valid: true, Shape: "http://example.org/BooleanShape"},
				{Valid: false, Shape: "http://example.org/IntShape", Details: " not an integer "},
			},
		}},
	}
}

func TestResultMarkdown(t *testing.T) {
	md := ResultMarkdown(sample(), -1)

	assert.Contains(t, md, "| `shui:BooleanSelectEditor` | 10 |")
	assert.Contains(t, md, "| `http://example.org/TextField` | 0.5 |")
	assert.Less(t, strings.Index(md, "BooleanSelectEditor` | 10"), strings.Index(md, "TextField"), "highest score first")
	assert.Contains(t, md, "**Default widget:** `shui:BooleanSelectEditor` (10)")
	assert.Contains(t, md, "1 execution step(s) recorded.")
	assert.NotContains(t, md, "## Step")
}

func TestResultMarkdown_WithStep(t *testing.T) {
	md := ResultMarkdown(sample(), 0)

	assert.Contains(t, md, "## Step 1 of 1")
	assert.Contains(t, md, "Datatype is boolean.")
	assert.Contains(t, md, "- ✓ `http://example.org/BooleanShape`\n")
	assert.Contains(t, md, "- ✗ `http://example.org/IntShape`: not an integer")
}

func TestResultMarkdown_Empty(t *testing.T) {
	md := ResultMarkdown(&domain.ScoringResult{FocusNode: "<http://example.org/a>"}, 3)
	assert.Contains(t, md, "No widget scored")
	assert.NotContains(t, md, "Default widget")
}

func TestPlainRenderer(t *testing.T) {
	render, err := NewPlainRenderer()
	require.NoError(t, err)
	out, err := render(ResultMarkdown(sample(), 0))
	require.NoError(t, err)
	assert.Contains(t, out, "Step 1 of 1")
}
