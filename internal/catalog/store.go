package catalog

import (
	"sync/atomic"
	"time"

	"github.com/star/airmass/internal/sky"
)

// Catalog is a loaded target list and where it came from.
type Catalog struct {
	Source   string
	LoadedAt time.Time
	Targets  []sky.Target
}

// Store provides thread-safe access to the current catalog.
// A stored Catalog is never modified; reloads swap in a new one.
type Store struct {
	current atomic.Pointer[Catalog]
}

// NewStore creates a new empty Store.
func NewStore() *Store {
	return &Store{}
}

// Get returns the current catalog, or nil if none has been loaded.
func (s *Store) Get() *Catalog {
	return s.current.Load()
}

// Set atomically replaces the current catalog.
func (s *Store) Set(c *Catalog) {
	s.current.Store(c)
}
