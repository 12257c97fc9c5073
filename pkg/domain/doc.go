/*
Package domain contains the data model shared by every scorebridge component.

It is kept free of I/O and persistence concerns so that the supervisor, the worker
process and the front-ends can all depend on it.

# Key Entities

  - FocusNode: closed tagged union of an RDF named term or literal.
  - ScoringRequest / ScoringResult: the plain-data input and output of one evaluation.
  - Message: a frame of the JSON-lines protocol between supervisor and worker.
  - Error: a classified bridge failure (init/eval timeouts, worker errors, injection, serialization).
  - Session / StepState: the persisted stepped-result view of a playground workspace.
  - SavedConfiguration: a named snapshot of the playground inputs.
*/
package domain
