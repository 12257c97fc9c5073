package program_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/aretw0/scorebridge/pkg/domain"
	"github.com/aretw0/scorebridge/pkg/program"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiteral_Forms(t *testing.T) {
	tests := []struct {
		name string
		node domain.FocusNode
		want string
	}{
		{"named", domain.NamedTerm("http://example.org/a"), `URIRef("http://example.org/a")`},
		{"plain", domain.Literal("hi"), `Literal("hi")`},
		{"lang", domain.LangLiteral("bonjour", "fr"), `Literal("bonjour", lang="fr")`},
		{"typed", domain.TypedLiteral("42", domain.XSDInteger), `Literal("42", datatype=URIRef("http://www.w3.org/2001/XMLSchema#integer"))`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := program.Literal(tt.node)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLiteral_EscapesDelimiters(t *testing.T) {
	hostile := `"""); import os; os.system("rm -rf /") #` + "\n\\"
	got, err := program.Literal(domain.Literal(hostile))
	require.NoError(t, err)

	assert.Equal(t, `Literal("\"\"\"); import os; os.system(\"rm -rf /\") #\n\\")`, got)

	// The only unescaped quotes are the two delimiters of the string.
	body := strings.TrimSuffix(strings.TrimPrefix(got, "Literal("), ")")
	unescaped := 0
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '\\':
			i++
		case '"':
			unescaped++
		}
	}
	assert.Equal(t, 2, unescaped)
}

func TestLiteral_RejectsInvalidUTF8(t *testing.T) {
	_, err := program.Literal(domain.Literal("bad\xff"))
	assert.ErrorIs(t, err, domain.ErrEvalProgramInjection)

	_, err = program.Literal(domain.LangLiteral("ok", "e\xffn"))
	assert.ErrorIs(t, err, domain.ErrEvalProgramInjection)
}

func TestLiteral_RejectsInvalidNode(t *testing.T) {
	_, err := program.Literal(domain.FocusNode{})
	assert.ErrorIs(t, err, domain.ErrInvalidFocusNode)
}

func validRequest() domain.ScoringRequest {
	return domain.ScoringRequest{
		FocusNode:          domain.TypedLiteral("true", domain.XSDBoolean),
		WidgetScoringGraph: `ex:s a shui:Score ; rdfs:comment """triple "quoted" text""" .`,
		DataGraphShapes:    "# data shapes",
		ShapesGraphShapes:  "# shapes shapes",
		ConstraintShape:    "http://example.org/Shape",
	}
}

func TestBuild_GraphsTravelOnStdin(t *testing.T) {
	req := validRequest()
	prog, err := program.Build(req)
	require.NoError(t, err)

	assert.NotContains(t, prog.Source, req.WidgetScoringGraph, "graph text must not be spliced into the source")
	assert.Contains(t, prog.Source, `Literal("true", datatype=URIRef("http://www.w3.org/2001/XMLSchema#boolean"))`)
	assert.Contains(t, prog.Source, `SHUI = Namespace("http://www.w3.org/ns/shacl-ui#")`)
	assert.Contains(t, prog.Source, "score_widgets(**kwargs)")

	var in map[string]string
	require.NoError(t, json.Unmarshal(prog.Stdin, &in))
	assert.Equal(t, req.WidgetScoringGraph, in["widgetScoringGraph"])
	assert.Equal(t, req.ConstraintShape, in["constraintShape"])
	assert.Equal(t, `"true"^^<http://www.w3.org/2001/XMLSchema#boolean>`, in["focusNodeDisplay"])
	assert.NotContains(t, in, "dataGraph", "absent optional graphs are omitted")
}

func TestBuild_ValidatesRequest(t *testing.T) {
	req := validRequest()
	req.WidgetScoringGraph = ""
	_, err := program.Build(req)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	req = validRequest()
	req.DataGraph = "bad\xff"
	_, err = program.Build(req)
	assert.ErrorIs(t, err, domain.ErrSerializationFailure)
}
