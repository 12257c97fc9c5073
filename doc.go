/*
Package scorebridge is a playground backend for SHACL UI widget scoring.

Scoring runs in an isolated worker that owns a provisioned Python runtime
(rdflib, pyshacl and the shui_widget_score wheel). The supervisor side, the
Bridge, starts that worker on demand, queues evaluations one at a time and
turns every failure into one classified domain.Error.

# Concept

A Playground ties three pieces together:

  - the Bridge (pkg/bridge), which talks to the worker over a JSON-lines protocol;
  - persisted Sessions (pkg/session), each holding the last request and its result;
  - the stepped-result store (pkg/steps), a cursor over the recorded execution trace.

Saved configurations (pkg/saves) and the bundled example library
(pkg/adapters/loam) are exposed through the same handle so every front-end
(HTTP, MCP, the CLI) shares one wiring.

# Usage

	rt := process.NewPythonRuntime(process.DefaultRuntimeConfig())
	b := bridge.New(bridge.NewPipeSpawner(rt), bridge.WithBaseURL("http://localhost:8080"))

	pg := scorebridge.New(b)
	defer pg.Close()

	snap, err := pg.Evaluate(ctx, "session-1", req)
	if err != nil {
		log.Printf("%s: %v", domain.KindOf(err), err)
	}
	snap, _ = pg.Next(ctx, "session-1")
	fmt.Println(snap.Step.Explanation)

A failed evaluation still returns the updated snapshot, so callers can show
the recorded error message exactly as the worker reported it.
*/
package scorebridge
