// Package observatory holds the table of known observing sites.
//
// The table is built once at startup and never changes afterwards. It is
// passed to whatever needs lookups instead of living in a package global.
package observatory

import (
	"fmt"
	"sort"

	"github.com/star/airmass/internal/sky"
)

// Resolver maps an observatory name to its site.
type Resolver interface {
	Resolve(name string) (sky.Observatory, error)
}

// Registry is an immutable name → observatory table. Safe for concurrent use.
type Registry struct {
	byName map[string]sky.Observatory
	order  []string
}

// NewRegistry validates every observatory and builds the table.
// Names must be unique.
func NewRegistry(observatories ...sky.Observatory) (*Registry, error) {
	r := &Registry{
		byName: make(map[string]sky.Observatory, len(observatories)),
		order:  make([]string, 0, len(observatories)),
	}
	for _, o := range observatories {
		if err := o.Validate(); err != nil {
			return nil, fmt.Errorf("observatory registry: %w", err)
		}
		if _, dup := r.byName[o.Name]; dup {
			return nil, fmt.Errorf("observatory registry: %w",
				sky.InvalidArgument(o.Name, "name", 0, "duplicate observatory name"))
		}
		r.byName[o.Name] = o
		r.order = append(r.order, o.Name)
	}
	return r, nil
}

// Resolve returns the observatory registered under name, or a
// *sky.NotFoundError.
func (r *Registry) Resolve(name string) (sky.Observatory, error) {
	o, ok := r.byName[name]
	if !ok {
		return sky.Observatory{}, &sky.NotFoundError{Kind: "observatory", Name: name}
	}
	return o, nil
}

// Names returns the registered names in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	sort.Strings(names)
	return names
}

// All returns the observatories in registration order.
func (r *Registry) All() []sky.Observatory {
	out := make([]sky.Observatory, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Len returns the number of registered observatories.
func (r *Registry) Len() int {
	return len(r.order)
}
