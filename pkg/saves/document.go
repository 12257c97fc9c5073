package saves

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aretw0/scorebridge/pkg/domain"
)

const (
	// CurrentVersion is the document version written by this package.
	CurrentVersion = "2.0.0"
	// LegacyVersion stored the focus node as a string plus a datatype.
	LegacyVersion = "1.0.0"
)

// Document is the persisted form of all saved configurations.
type Document struct {
	Version string                      `json:"version"`
	Saves   []domain.SavedConfiguration `json:"saves"`
}

type envelope struct {
	Version string          `json:"version"`
	Saves   json.RawMessage `json:"saves"`
}

// reader decodes the saves array of one document version.
type reader func(raw json.RawMessage) ([]domain.SavedConfiguration, error)

var readers = map[string]reader{
	CurrentVersion: readCurrent,
	LegacyVersion:  readLegacy,
}

// Decode reads a saves document of any supported version. Documents of an
// unknown version yield no saves and no error.
func Decode(data []byte, logger *slog.Logger) ([]domain.SavedConfiguration, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode saves document: %w", err)
	}
	read, ok := readers[env.Version]
	if !ok {
		logger.Warn("dropping saves of unsupported version", "version", env.Version)
		return nil, nil
	}
	if len(env.Saves) == 0 || string(env.Saves) == "null" {
		return nil, nil
	}
	saves, err := read(env.Saves)
	if err != nil {
		return nil, fmt.Errorf("failed to read saves version %s: %w", env.Version, err)
	}
	return saves, nil
}

// Encode writes saves as a CurrentVersion document.
func Encode(saves []domain.SavedConfiguration) ([]byte, error) {
	if saves == nil {
		saves = []domain.SavedConfiguration{}
	}
	return json.Marshal(Document{Version: CurrentVersion, Saves: saves})
}

func readCurrent(raw json.RawMessage) ([]domain.SavedConfiguration, error) {
	var saves []domain.SavedConfiguration
	if err := json.Unmarshal(raw, &saves); err != nil {
		return nil, err
	}
	return saves, nil
}

type legacySave struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Timestamp          int64           `json:"timestamp"`
	WidgetScoringGraph string          `json:"widgetScoringGraph"`
	DataGraphShapes    string          `json:"dataGraphShapes"`
	ShapesGraphShapes  string          `json:"shapesGraphShapes"`
	DataGraph          string          `json:"dataGraph"`
	ShapesGraph        *string         `json:"shapesGraph"`
	FocusNode          json.RawMessage `json:"focusNode"`
	FocusNodeDatatype  string          `json:"focusNodeDatatype"`
	ConstraintShape    *string         `json:"constraintShape"`
}

// legacyObject is the object focus node some 1.0.0 saves already carried.
type legacyObject struct {
	Type     string `json:"type"`
	Tag      string `json:"tag"`
	Value    string `json:"value"`
	Datatype string `json:"datatype"`
	Language string `json:"language"`
}

func readLegacy(raw json.RawMessage) ([]domain.SavedConfiguration, error) {
	var legacy []legacySave
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return nil, err
	}
	saves := make([]domain.SavedConfiguration, 0, len(legacy))
	for _, l := range legacy {
		node, err := migrateFocusNode(l.FocusNode, l.FocusNodeDatatype)
		if err != nil {
			return nil, fmt.Errorf("save %s: %w", l.ID, err)
		}
		saves = append(saves, domain.SavedConfiguration{
			ID:        l.ID,
			Name:      l.Name,
			Timestamp: l.Timestamp,
			Configuration: domain.Configuration{
				WidgetScoringGraph: l.WidgetScoringGraph,
				DataGraphShapes:    l.DataGraphShapes,
				ShapesGraphShapes:  l.ShapesGraphShapes,
				DataGraph:          l.DataGraph,
				ShapesGraph:        l.ShapesGraph,
				FocusNode:          node,
				ConstraintShape:    l.ConstraintShape,
			},
		})
	}
	return saves, nil
}

// migrateFocusNode upgrades a 1.0.0 focus node. The oldest form is a bare
// string whose datatype lives in a sibling field; it becomes a typed literal.
func migrateFocusNode(raw json.RawMessage, datatype string) (domain.FocusNode, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return domain.DefaultFocusNode(), nil
	}

	var value string
	if err := json.Unmarshal(raw, &value); err == nil {
		if datatype == "" {
			return domain.Literal(value), nil
		}
		return domain.TypedLiteral(value, datatype), nil
	}

	var obj legacyObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return domain.FocusNode{}, fmt.Errorf("%w: %v", domain.ErrInvalidFocusNode, err)
	}

	var node domain.FocusNode
	switch {
	case obj.Type == "IRI" || obj.Tag == string(domain.TagNamed):
		node = domain.NamedTerm(obj.Value)
	case obj.Type == "LITERAL" || obj.Tag == string(domain.TagLiteral):
		switch {
		case obj.Language != "":
			node = domain.LangLiteral(obj.Value, obj.Language)
		case obj.Datatype != "":
			node = domain.TypedLiteral(obj.Value, obj.Datatype)
		default:
			node = domain.Literal(obj.Value)
		}
	default:
		return domain.FocusNode{}, fmt.Errorf("%w: unknown focus node kind %q", domain.ErrInvalidFocusNode, obj.Type)
	}
	return node, node.Validate()
}
