package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/aretw0/scorebridge/pkg/domain"
	"github.com/aretw0/scorebridge/pkg/ports"
)

// Examples implements ports.ExampleSource from values held in memory.
type Examples struct {
	shared   ports.SharedGraphs
	examples map[string]ports.Example
}

// NewExamples creates an example source from the given shared graphs and examples.
func NewExamples(shared ports.SharedGraphs, examples ...ports.Example) (*Examples, error) {
	byID := make(map[string]ports.Example, len(examples))
	for _, ex := range examples {
		if ex.ID == "" {
			return nil, fmt.Errorf("example %q missing ID", ex.Name)
		}
		if err := ex.FocusNode.Validate(); err != nil {
			return nil, fmt.Errorf("example %s: %w", ex.ID, err)
		}
		byID[ex.ID] = ex
	}
	return &Examples{shared: shared, examples: byID}, nil
}

// Get retrieves an example by ID.
func (e *Examples) Get(ctx context.Context, id string) (ports.Example, error) {
	ex, ok := e.examples[id]
	if !ok {
		return ports.Example{}, fmt.Errorf("example %s: %w", id, domain.ErrDocumentNotFound)
	}
	return ex, nil
}

// List returns all examples ordered by ID.
func (e *Examples) List(ctx context.Context) ([]ports.Example, error) {
	list := make([]ports.Example, 0, len(e.examples))
	for _, ex := range e.examples {
		list = append(list, ex)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

// Shared returns the graphs every example is scored against.
func (e *Examples) Shared(ctx context.Context) (ports.SharedGraphs, error) {
	return e.shared, nil
}
