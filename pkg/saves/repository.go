// Package saves keeps named snapshots of the playground inputs in a single
// versioned document.
package saves

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/scorebridge/internal/logging"
	"github.com/aretw0/scorebridge/pkg/domain"
	"github.com/aretw0/scorebridge/pkg/ports"
	"github.com/google/uuid"
)

const (
	// DocumentKey is the key of the saves document in the store.
	DocumentKey = "shui-playground-saves"
	// MaxSaves is the number of saves kept; the oldest are dropped first.
	MaxSaves = 50
)

var (
	// ErrSaveNotFound is returned for unknown save IDs.
	ErrSaveNotFound = errors.New("save not found")
	// ErrInvalidSave is returned when a name or configuration is unusable.
	ErrInvalidSave = errors.New("invalid save")
)

// Repository manages saved configurations on top of a DocumentStore.
type Repository struct {
	docs   ports.DocumentStore
	logger *slog.Logger
	now    func() time.Time
	newID  func() string

	mu sync.Mutex
}

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the logger used for migration and decode warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository) {
		r.logger = logger
	}
}

// WithClock overrides the time source for save timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		r.now = now
	}
}

// NewRepository creates a repository over docs.
func NewRepository(docs ports.DocumentStore, opts ...Option) *Repository {
	r := &Repository{
		docs:   docs,
		logger: logging.NewNop(),
		now:    time.Now,
		newID:  func() string { return "save-" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// List returns all saves, most recent first.
func (r *Repository) List(ctx context.Context) ([]domain.SavedConfiguration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx)
}

// Get returns the save with id.
func (r *Repository) Get(ctx context.Context, id string) (domain.SavedConfiguration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	saves, err := r.load(ctx)
	if err != nil {
		return domain.SavedConfiguration{}, err
	}
	if i := indexOf(saves, id); i >= 0 {
		return saves[i], nil
	}
	return domain.SavedConfiguration{}, fmt.Errorf("%w: %s", ErrSaveNotFound, id)
}

// Create stores cfg under name as the most recent save.
func (r *Repository) Create(ctx context.Context, name string, cfg domain.Configuration) (domain.SavedConfiguration, error) {
	if err := validate(name, cfg); err != nil {
		return domain.SavedConfiguration{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	saves, err := r.load(ctx)
	if err != nil {
		return domain.SavedConfiguration{}, err
	}
	save := domain.SavedConfiguration{
		ID:            r.newID(),
		Name:          strings.TrimSpace(name),
		Timestamp:     r.now().UnixMilli(),
		Configuration: cfg,
	}
	saves = append([]domain.SavedConfiguration{save}, saves...)
	if len(saves) > MaxSaves {
		r.logger.Debug("dropping oldest saves", "count", len(saves)-MaxSaves)
		saves = saves[:MaxSaves]
	}
	if err := r.store(ctx, saves); err != nil {
		return domain.SavedConfiguration{}, err
	}
	return save, nil
}

// Update replaces the configuration of an existing save and bumps its timestamp.
// The name is kept.
func (r *Repository) Update(ctx context.Context, id string, cfg domain.Configuration) (domain.SavedConfiguration, error) {
	if err := cfg.FocusNode.Validate(); err != nil {
		return domain.SavedConfiguration{}, fmt.Errorf("%w: %v", ErrInvalidSave, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	saves, err := r.load(ctx)
	if err != nil {
		return domain.SavedConfiguration{}, err
	}
	i := indexOf(saves, id)
	if i < 0 {
		return domain.SavedConfiguration{}, fmt.Errorf("%w: %s", ErrSaveNotFound, id)
	}
	saves[i].Configuration = cfg
	saves[i].Timestamp = r.now().UnixMilli()
	updated := saves[i]

	if err := r.store(ctx, saves); err != nil {
		return domain.SavedConfiguration{}, err
	}
	return updated, nil
}

// Delete removes the save with id. Deleting an unknown save is not an error.
func (r *Repository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	saves, err := r.load(ctx)
	if err != nil {
		return err
	}
	i := indexOf(saves, id)
	if i < 0 {
		return nil
	}
	return r.store(ctx, append(saves[:i], saves[i+1:]...))
}

// NameExists reports whether another save than excludeID already uses name.
func (r *Repository) NameExists(ctx context.Context, name, excludeID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	saves, err := r.load(ctx)
	if err != nil {
		return false, err
	}
	name = strings.TrimSpace(name)
	for _, s := range saves {
		if s.Name == name && s.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

// load reads and sorts the saves. A missing or unreadable document yields none.
func (r *Repository) load(ctx context.Context) ([]domain.SavedConfiguration, error) {
	data, err := r.docs.Get(ctx, DocumentKey)
	if errors.Is(err, domain.ErrDocumentNotFound) {
		return []domain.SavedConfiguration{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read saves: %w", err)
	}

	saves, err := Decode(data, r.logger)
	if err != nil {
		r.logger.Error("discarding unreadable saves document", "err", err)
		return []domain.SavedConfiguration{}, nil
	}
	if saves == nil {
		saves = []domain.SavedConfiguration{}
	}
	sortByRecency(saves)
	return saves, nil
}

func (r *Repository) store(ctx context.Context, saves []domain.SavedConfiguration) error {
	sortByRecency(saves)
	data, err := Encode(saves)
	if err != nil {
		return fmt.Errorf("failed to encode saves: %w", err)
	}
	if err := r.docs.Put(ctx, DocumentKey, data); err != nil {
		return fmt.Errorf("failed to write saves: %w", err)
	}
	return nil
}

func validate(name string, cfg domain.Configuration) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSave)
	}
	if err := cfg.FocusNode.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSave, err)
	}
	return nil
}

func indexOf(saves []domain.SavedConfiguration, id string) int {
	for i, s := range saves {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func sortByRecency(saves []domain.SavedConfiguration) {
	sort.SliceStable(saves, func(i, j int) bool {
		return saves[i].Timestamp > saves[j].Timestamp
	})
}
