package loaders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/lenscore/internal/core/domain"
	"github.com/custodia-labs/lenscore/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.SourceLoader = (*Registry)(nil)

// Registry selects a loader by source type.
type Registry struct {
	mu      sync.RWMutex
	loaders map[domain.SourceType]driven.SourceLoader
}

// NewRegistry creates a registry holding the given loaders.
func NewRegistry(loaders ...driven.SourceLoader) *Registry {
	r := &Registry{loaders: make(map[domain.SourceType]driven.SourceLoader)}
	for _, l := range loaders {
		r.Register(l)
	}
	return r
}

// Register adds a loader for every type it handles, replacing earlier ones.
func (r *Registry) Register(l driven.SourceLoader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range l.SourceTypes() {
		r.loaders[t] = l
	}
}

// SourceTypes returns the registered source types in sorted order.
func (r *Registry) SourceTypes() []domain.SourceType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]domain.SourceType, 0, len(r.loaders))
	for t := range r.loaders {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Load dispatches to the loader for the source type. Every failure is
// returned as *domain.IngestionError.
func (r *Registry) Load(ctx context.Context, source domain.SourceDescriptor) (*domain.Document, error) {
	r.mu.RLock()
	l, ok := r.loaders[source.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.NewIngestionError(source, fmt.Errorf("%w: source type %q", domain.ErrUnsupportedType, source.Type))
	}

	doc, err := l.Load(ctx, source)
	if err != nil {
		var ierr *domain.IngestionError
		if errors.As(err, &ierr) {
			return nil, err
		}
		return nil, domain.NewIngestionError(source, err)
	}
	if doc == nil || strings.TrimSpace(doc.Content) == "" {
		return nil, domain.NewIngestionError(source, domain.ErrEmptyContent)
	}
	return doc, nil
}
