// Package registry maps stable tool identifiers to their descriptor and handler.
//
// A Registry is populated once at startup and sealed before any transport
// starts; after Seal it is read-only and safe for concurrent use without locks.
package registry

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/mwiater/toolflow/internal/protocol"
	"github.com/mwiater/toolflow/internal/schema"
)

var (
	// ErrDuplicateTool is returned when a toolId is registered twice.
	ErrDuplicateTool = errors.New("duplicate tool id")
	// ErrToolNotFound is returned by Resolve for unknown ids.
	ErrToolNotFound = errors.New("tool not found")
	// ErrSealed is returned by Register after Seal.
	ErrSealed = errors.New("registry is sealed")
)

var semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(?:-[0-9A-Za-z.-]+)?(?:\+[0-9A-Za-z.-]+)?$`)

// Entry is a registered tool with its compiled contracts.
type Entry struct {
	Descriptor protocol.ToolDescriptor
	Handler    protocol.Handler
	Input      *schema.Schema
	Output     *schema.Schema
}

// Registry holds tools in registration order.
type Registry struct {
	entries map[string]*Entry
	order   []string
	sealed  bool
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Register adds a tool. Duplicate ids are rejected rather than overwritten.
func (r *Registry) Register(desc protocol.ToolDescriptor, handler protocol.Handler) error {
	if r.sealed {
		return fmt.Errorf("register %q: %w", desc.ToolID, ErrSealed)
	}
	id := strings.TrimSpace(desc.ToolID)
	if id == "" || id != desc.ToolID {
		return fmt.Errorf("register: invalid tool id %q", desc.ToolID)
	}
	if handler == nil {
		return fmt.Errorf("register %q: handler is nil", id)
	}
	if !semverPattern.MatchString(desc.Version) {
		return fmt.Errorf("register %q: version %q is not a semantic version", id, desc.Version)
	}
	if _, exists := r.entries[id]; exists {
		return fmt.Errorf("register %q: %w", id, ErrDuplicateTool)
	}

	in, err := schema.Compile(desc.InputSchema)
	if err != nil {
		return fmt.Errorf("register %q: input schema: %w", id, err)
	}
	out, err := schema.Compile(desc.OutputSchema)
	if err != nil {
		return fmt.Errorf("register %q: output schema: %w", id, err)
	}

	desc.Tags = uniqueTags(desc.Tags)
	r.entries[id] = &Entry{Descriptor: desc, Handler: handler, Input: in, Output: out}
	r.order = append(r.order, id)
	return nil
}

// Seal freezes the registry.
func (r *Registry) Seal() { r.sealed = true }

// Resolve looks up a tool by id.
func (r *Registry) Resolve(toolID string) (*Entry, error) {
	entry, ok := r.entries[toolID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, toolID)
	}
	return entry, nil
}

// List returns every descriptor in registration order.
func (r *Registry) List() []protocol.ToolDescriptor {
	out := make([]protocol.ToolDescriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id].Descriptor)
	}
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.order) }

// tags are a set; keep first occurrence order for stable output.
func uniqueTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
