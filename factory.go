package gst

import (
	"fmt"
	"sort"
	"sync"
)

// Factory creates elements of a kind.
type Factory struct {
	Name        string
	Description string
	Flags       Flags
	New         Constructor
}

// Registry keeps element factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	counters  map[string]int
}

// DefaultRegistry holds built-in element kinds.
var DefaultRegistry = newDefaultRegistry()

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		counters:  make(map[string]int),
	}
}

// Register adds the factory. Names must be unique.
func (r *Registry) Register(f Factory) error {
	if f.Name == "" || f.New == nil {
		return fmt.Errorf("register factory %q: name and constructor are required", f.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[f.Name]; ok {
		return fmt.Errorf("register factory %q: %w", f.Name, ErrDuplicateName)
	}
	r.factories[f.Name] = f
	return nil
}

// Lookup returns the factory with provided name.
func (r *Registry) Lookup(kind string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[kind]
	return f, ok
}

// Factories returns all factories sorted by name.
func (r *Registry) Factories() []Factory {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]Factory, 0, len(r.factories))
	for _, f := range r.factories {
		res = append(res, f)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res
}

// Make creates an element of provided kind. Empty name is replaced with
// kind and a sequence number. The element is in NULL state.
func (r *Registry) Make(kind, name string) (*Element, error) {
	r.mu.Lock()
	f, ok := r.factories[kind]
	if ok && name == "" {
		name = fmt.Sprintf("%s%d", kind, r.counters[kind])
		r.counters[kind]++
	}
	r.mu.Unlock()
	if !ok {
		return nil, &NotFoundError{Kind: "factory", Name: kind}
	}
	return NewElement(kind, name, f.Flags, f.New)
}

// Make creates an element with the default registry.
func Make(kind, name string) (*Element, error) {
	return DefaultRegistry.Make(kind, name)
}

// Register adds the factory to the default registry.
func Register(f Factory) error {
	return DefaultRegistry.Register(f)
}

func newDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, f := range builtins() {
		if err := r.Register(f); err != nil {
			panic(err)
		}
	}
	return r
}

func builtins() []Factory {
	return []Factory{
		{
			Name:        "bin",
			Description: "Container of elements",
			Flags:       FlagBin,
			New: func(e *Element) (ElementImpl, error) {
				return newBin(e), nil
			},
		},
		{
			Name:        "pipeline",
			Description: "Top-level bin with a bus and a clock",
			Flags:       FlagBin,
			New: func(e *Element) (ElementImpl, error) {
				return newPipeline(e), nil
			},
		},
		{
			Name:        "appsrc",
			Description: "Pushes application data into a pipeline",
			Flags:       FlagSource,
			New:         newAppSrc,
		},
		{
			Name:        "appsink",
			Description: "Hands pipeline data to the application",
			Flags:       FlagSink,
			New:         newAppSink,
		},
		{
			Name:        "identity",
			Description: "Passes data through unmodified",
			New:         newIdentity,
		},
		{
			Name:        "queue",
			Description: "Decouples upstream and downstream with a streaming goroutine",
			New:         newQueue,
		},
		{
			Name:        "tee",
			Description: "Shares every buffer with all source pads",
			New:         newTee,
		},
		{
			Name:        "capsfilter",
			Description: "Restricts formats allowed on the link",
			New:         newCapsFilter,
		},
		{
			Name:        "taginject",
			Description: "Sends tags downstream before the first buffer",
			New:         newTagInject,
		},
		{
			Name:        "fakesrc",
			Description: "Produces empty buffers",
			Flags:       FlagSource,
			New:         newFakeSrc,
		},
		{
			Name:        "fakesink",
			Description: "Discards all data",
			Flags:       FlagSink,
			New:         newFakeSink,
		},
	}
}
