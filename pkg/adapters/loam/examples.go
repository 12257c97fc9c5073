// Package loam loads the example library from a folder of Markdown documents
// through the Loam document engine.
package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"
	"github.com/aretw0/scorebridge/pkg/domain"
	"github.com/aretw0/scorebridge/pkg/ports"
)

// Examples implements ports.ExampleSource over a Loam repository.
type Examples struct {
	Repo *loam.TypedRepository[ExampleMetadata]
}

// New creates an example source over repo.
func New(repo *loam.TypedRepository[ExampleMetadata]) *Examples {
	return &Examples{Repo: repo}
}

// Open initializes a strict, read-only Loam repository at dir.
func Open(dir string) (*Examples, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[ExampleMetadata](repo)), nil
}

type library struct {
	examples map[string]ports.Example
	shared   ports.SharedGraphs
}

// load reads every document. IDs default to the file name without extension.
// List only carries cached metadata, so each body is fetched with Get.
func (e *Examples) load(ctx context.Context) (*library, error) {
	listed, err := e.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	lib := &library{examples: make(map[string]ports.Example)}
	seen := make(map[string]string)

	for _, entry := range listed {
		doc, err := e.Repo.Get(ctx, entry.ID)
		if err != nil {
			return nil, fmt.Errorf("loam get failed for %s: %w", entry.ID, err)
		}
		meta := doc.Data
		switch meta.Kind {
		case KindShared:
			if err := lib.setShared(meta.Role, doc.Content); err != nil {
				return nil, fmt.Errorf("%s: %w", doc.ID, err)
			}
		case KindExample, "":
			id := meta.ID
			if id == "" {
				id = trimExtension(doc.ID)
			}
			if existing, ok := seen[id]; ok {
				return nil, fmt.Errorf("collision detected: example '%s' is defined in both '%s' and '%s'", id, existing, doc.ID)
			}
			seen[id] = doc.ID

			node, err := meta.FocusNode.Node()
			if err != nil {
				return nil, fmt.Errorf("example %s: %w", id, err)
			}
			name := meta.Name
			if name == "" {
				name = id
			}
			lib.examples[id] = ports.Example{
				ID:              id,
				Name:            name,
				Description:     meta.Description,
				FocusNode:       node,
				DataGraph:       strings.TrimSpace(doc.Content),
				ShapesGraph:     strings.TrimSpace(meta.ShapesGraph),
				ConstraintShape: meta.ConstraintShape,
			}
		default:
			return nil, fmt.Errorf("%s: unknown document kind %q", doc.ID, meta.Kind)
		}
	}
	return lib, nil
}

func (l *library) setShared(role, content string) error {
	content = strings.TrimSpace(content)
	switch role {
	case RoleWidgetScoringGraph:
		l.shared.WidgetScoringGraph = content
	case RoleDataGraphShapes:
		l.shared.DataGraphShapes = content
	case RoleShapesGraphShapes:
		l.shared.ShapesGraphShapes = content
	default:
		return fmt.Errorf("unknown shared graph role %q", role)
	}
	return nil
}

// List returns all examples ordered by ID.
func (e *Examples) List(ctx context.Context) ([]ports.Example, error) {
	lib, err := e.load(ctx)
	if err != nil {
		return nil, err
	}
	list := make([]ports.Example, 0, len(lib.examples))
	for _, ex := range lib.examples {
		list = append(list, ex)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

// Get retrieves an example by ID.
func (e *Examples) Get(ctx context.Context, id string) (ports.Example, error) {
	lib, err := e.load(ctx)
	if err != nil {
		return ports.Example{}, err
	}
	ex, ok := lib.examples[id]
	if !ok {
		return ports.Example{}, fmt.Errorf("example %s: %w", id, domain.ErrDocumentNotFound)
	}
	return ex, nil
}

// Shared returns the graphs every example is scored against.
func (e *Examples) Shared(ctx context.Context) (ports.SharedGraphs, error) {
	lib, err := e.load(ctx)
	if err != nil {
		return ports.SharedGraphs{}, err
	}
	return lib.shared, nil
}

func trimExtension(id string) string {
	if ext := filepath.Ext(id); ext != "" {
		id = strings.TrimSuffix(id, ext)
	}
	return filepath.ToSlash(id)
}
