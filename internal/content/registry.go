// Package content normalizes heterogeneous catalog items into the single
// reviewable shape the engine works with. One adapter variant is registered
// per content type; the registry is a plain dispatch table.
package content

import (
	"errors"
	"fmt"

	"github.com/HelyeFab/moshimoshi-sub004/internal/domain/entities"
)

// ErrUnsupportedContentType is returned when no adapter is registered for an
// item's content type. Callers skip the item and log; it is not fatal.
var ErrUnsupportedContentType = errors.New("content: unsupported content type")

// ErrInvalidRawItem is returned when a raw item does not match the adapter's
// expected shape.
var ErrInvalidRawItem = errors.New("content: raw item has wrong type for adapter")

// Adapter normalizes one kind of raw catalog item.
type Adapter interface {
	// Transform projects the raw item into the reviewable shape.
	Transform(raw any) (entities.ReviewableContent, error)
	// GenerateOptions produces up to count distractors for multiple-choice
	// modes. Fewer are returned when the pool cannot supply enough distinct,
	// non-degenerate options.
	GenerateOptions(raw any, count int) ([]string, error)
	// CalculateDifficulty estimates intrinsic difficulty in [0, 1].
	CalculateDifficulty(raw any) float64
}

// Registry dispatches adapter calls by content type. Construct one at
// startup and pass it by reference; there is no package-level instance.
type Registry struct {
	adapters map[entities.ContentType]Adapter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[entities.ContentType]Adapter)}
}

// Register installs the adapter for a content type, replacing any previous one.
func (r *Registry) Register(ctype entities.ContentType, adapter Adapter) {
	r.adapters[ctype] = adapter
}

func (r *Registry) adapter(ctype entities.ContentType) (Adapter, error) {
	a, ok := r.adapters[ctype]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedContentType, ctype)
	}
	return a, nil
}

// Transform normalizes a raw item of the given content type.
func (r *Registry) Transform(ctype entities.ContentType, raw any) (entities.ReviewableContent, error) {
	a, err := r.adapter(ctype)
	if err != nil {
		return entities.ReviewableContent{}, err
	}
	return a.Transform(raw)
}

// GenerateOptions produces distractors for a raw item.
func (r *Registry) GenerateOptions(ctype entities.ContentType, raw any, count int) ([]string, error) {
	a, err := r.adapter(ctype)
	if err != nil {
		return nil, err
	}
	return a.GenerateOptions(raw, count)
}

// CalculateDifficulty estimates intrinsic difficulty, 0.5 for unknown types.
func (r *Registry) CalculateDifficulty(ctype entities.ContentType, raw any) float64 {
	a, err := r.adapter(ctype)
	if err != nil {
		return 0.5
	}
	return a.CalculateDifficulty(raw)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
