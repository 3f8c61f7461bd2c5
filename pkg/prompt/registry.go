package prompt

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds compiled prompts by name
type Registry struct {
	mu      sync.RWMutex
	prompts map[string]*Prompt
}

// NewRegistry creates a new prompt registry
func NewRegistry() *Registry {
	return &Registry{
		prompts: make(map[string]*Prompt),
	}
}

// Register registers a prompt under its spec name
func (r *Registry) Register(p *Prompt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if _, exists := r.prompts[name]; exists {
		return fmt.Errorf("prompt %s already registered", name)
	}

	r.prompts[name] = p
	return nil
}

// Get retrieves a prompt by name
func (r *Registry) Get(name string) (*Prompt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.prompts[name]
	if !exists {
		return nil, fmt.Errorf("prompt %s not found", name)
	}

	return p, nil
}

// List returns all registered prompt names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.prompts))
	for name := range r.prompts {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Clear removes all registered prompts
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prompts = make(map[string]*Prompt)
}

// LoadInto compiles every spec from specs with the same options and
// registers it. It stops at the first failure.
func (r *Registry) LoadInto(specs []*Spec, opts ...Option) error {
	for _, spec := range specs {
		p, err := NewPrompt(spec, opts...)
		if err != nil {
			return err
		}
		if err := r.Register(p); err != nil {
			return err
		}
	}
	return nil
}
