package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/scorebridge"
	"github.com/aretw0/scorebridge/internal/presentation/graph"
	"github.com/aretw0/scorebridge/internal/presentation/tui"
	"github.com/aretw0/scorebridge/pkg/domain"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score widgets for a focus node",
	Long: `Runs one evaluation and prints the widget scores and the execution trace.

The request comes from a bundled example (--example), a saved configuration
(--save) or from graph files given as flags. File flags override the graphs of
an example or save.`,
	Example: `  scorebridge score --example example1
  scorebridge score --save 1712345678901 --step 2
  scorebridge score --widget-scoring-graph wsg.ttl --data-graph-shapes dgs.ttl \
      --shapes-graph-shapes sgs.ttl --data-graph data.ttl --focus http://example.org/alice`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		ctx := cmd.Context()
		req, err := buildRequest(cmd, app.Playground)
		if err != nil {
			return err
		}

		sessionID, _ := cmd.Flags().GetString("session")
		snap, evalErr := app.Playground.Evaluate(ctx, sessionID, req)
		if snap == nil {
			return evalErr
		}

		if step, _ := cmd.Flags().GetInt("step"); step >= 0 && evalErr == nil {
			if snap, err = app.Playground.Seek(ctx, sessionID, step); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		asJSON, _ := cmd.Flags().GetBool("json")
		asMermaid, _ := cmd.Flags().GetBool("mermaid")
		switch {
		case asJSON:
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(snap); err != nil {
				return err
			}
		case asMermaid:
			if snap.Steps.Result != nil {
				fmt.Fprintln(out, graph.GenerateMermaid(snap.Steps.Result, &graph.TraceOverlay{CurrentStep: snap.Steps.CurrentStep}))
			}
		default:
			if err := printResult(out, snap); err != nil {
				return err
			}
		}
		return evalErr
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)
	f := scoreCmd.Flags()
	f.String("example", "", "Score a bundled example by ID")
	f.String("save", "", "Score a saved configuration by ID")
	f.String("widget-scoring-graph", "", "Turtle file with the widget scoring graph")
	f.String("data-graph-shapes", "", "Turtle file with the data graph shapes graph")
	f.String("shapes-graph-shapes", "", "Turtle file with the shapes graph shapes graph")
	f.String("data-graph", "", "Turtle file with the data graph")
	f.String("shapes-graph", "", "Turtle file with the shapes graph")
	f.String("constraint-shape", "", "IRI of the constraint shape")
	f.String("focus", "", "Focus node IRI")
	f.String("literal", "", "Focus node literal value (instead of --focus)")
	f.String("datatype", domain.XSDString, "Datatype of the --literal focus node")
	f.String("lang", "", "Language tag of the --literal focus node")
	f.String("session", "cli", "Session that records the result")
	f.Int("step", -1, "Select an execution step after scoring")
	f.Bool("json", false, "Print the session snapshot as JSON")
	f.Bool("mermaid", false, "Print the execution trace as a Mermaid flowchart")
	scoreCmd.MarkFlagsMutuallyExclusive("example", "save")
	scoreCmd.MarkFlagsMutuallyExclusive("focus", "literal")
	scoreCmd.MarkFlagsMutuallyExclusive("json", "mermaid")
}

func buildRequest(cmd *cobra.Command, pg *scorebridge.Playground) (domain.ScoringRequest, error) {
	ctx := cmd.Context()
	f := cmd.Flags()

	var req domain.ScoringRequest
	if id, _ := f.GetString("example"); id != "" {
		r, err := pg.ExampleRequest(ctx, id)
		if err != nil {
			return req, err
		}
		req = r
	}
	if id, _ := f.GetString("save"); id != "" {
		saved, err := pg.Saves().Get(ctx, id)
		if err != nil {
			return req, err
		}
		req = saved.Request()
	}

	files := []struct {
		flag string
		dst  *string
	}{
		{"widget-scoring-graph", &req.WidgetScoringGraph},
		{"data-graph-shapes", &req.DataGraphShapes},
		{"shapes-graph-shapes", &req.ShapesGraphShapes},
		{"data-graph", &req.DataGraph},
		{"shapes-graph", &req.ShapesGraph},
	}
	for _, file := range files {
		path, _ := f.GetString(file.flag)
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return req, fmt.Errorf("--%s: %w", file.flag, err)
		}
		*file.dst = string(data)
	}

	if shape, _ := f.GetString("constraint-shape"); shape != "" {
		req.ConstraintShape = shape
	}

	iri, _ := f.GetString("focus")
	literal, _ := f.GetString("literal")
	switch {
	case iri != "":
		req.FocusNode = domain.NamedTerm(iri)
	case f.Changed("literal"):
		if lang, _ := f.GetString("lang"); lang != "" {
			req.FocusNode = domain.LangLiteral(literal, lang)
		} else {
			datatype, _ := f.GetString("datatype")
			req.FocusNode = domain.TypedLiteral(literal, datatype)
		}
	case req.FocusNode.IsZero():
		req.FocusNode = domain.DefaultFocusNode()
	}

	if err := req.Validate(); err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			return req, fmt.Errorf("%w (use --example, --save or the graph file flags)", err)
		}
		return req, err
	}
	return req, nil
}

func printResult(w io.Writer, snap *scorebridge.Snapshot) error {
	if snap.Steps.IsError {
		_, err := fmt.Fprintf(w, "Scoring failed: %s\n", snap.Steps.ErrorMessage)
		return err
	}

	md := tui.ResultMarkdown(snap.Steps.Result, snap.Steps.CurrentStep)
	if snap.Step != nil {
		md += "\n" + tui.StepMarkdown(*snap.Step, snap.Steps.Result.StepCount())
	}

	render, err := renderer(w)
	if err != nil {
		return err
	}
	out, err := render(md)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// renderer styles markdown for a terminal and falls back to plain text otherwise.
func renderer(w io.Writer) (func(string) (string, error), error) {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return tui.NewPlainRenderer()
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		width = 80
	}
	return tui.NewRenderer(width)
}
