package block

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Errors returned by tools and the registry.
var (
	// ErrOffsetOutOfRange indicates a split offset outside the block content.
	ErrOffsetOutOfRange = errors.New("offset out of range")

	// ErrUnknownTool indicates no tool is registered for a block type.
	ErrUnknownTool = errors.New("unknown tool")
)

// Registry maps block types to tools and names the default type used for
// synthesized empty blocks.
// All methods are safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	tools       map[string]Tool
	defaultType string
}

// NewRegistry creates an empty registry whose default type is defaultType.
func NewRegistry(defaultType string) *Registry {
	return &Registry{
		tools:       make(map[string]Tool),
		defaultType: defaultType,
	}
}

// Register adds or replaces the tool for typ.
func (r *Registry) Register(typ string, t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[typ] = t
}

// Tool returns the tool registered for typ.
func (r *Registry) Tool(typ string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[typ]
	return t, ok
}

// Types returns the registered block types in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.tools))
	for typ := range r.tools {
		types = append(types, typ)
	}
	sort.Strings(types)
	return types
}

// DefaultType returns the type used for new empty blocks.
func (r *Registry) DefaultType() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultType
}

// SetDefaultType changes the default block type.
func (r *Registry) SetDefaultType(typ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultType = typ
}

// EmptyData returns the empty payload for typ. Tools without the Emptier
// capability get an empty, non-nil Data.
func (r *Registry) EmptyData(typ string) Data {
	t, ok := r.Tool(typ)
	if !ok {
		return Data{}
	}
	if e, ok := AsEmptier(t); ok {
		if d := e.Empty(); d != nil {
			return d.Clone()
		}
	}
	return Data{}
}

// Save runs the tool's Save and Validate for a block.
// The returned bool is false when the tool rejects the saved data.
func (r *Registry) Save(b Block) (Data, bool, error) {
	t, ok := r.Tool(b.Type)
	if !ok {
		return nil, false, fmt.Errorf("save block %s: %w: %q", b.ID, ErrUnknownTool, b.Type)
	}
	saved, err := t.Save(b.Data.Clone())
	if err != nil {
		return nil, false, fmt.Errorf("save block %s: %w", b.ID, err)
	}
	return saved, t.Validate(saved), nil
}
