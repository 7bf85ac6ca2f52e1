package knowledge

import (
	"sync/atomic"
	"time"

	"github.com/campuskb/campuskb/internal/ai"
	"github.com/campuskb/campuskb/internal/model"
)

// Snapshot is one fully built generation of the role-scoped knowledge
// cache. Snapshots are immutable after Build; readers holding an old
// snapshot keep a consistent view across a concurrent publish.
type Snapshot struct {
	version   uint64
	builtAt   time.Time
	documents map[model.RoleTag][]*ai.DocumentHandle
	display   []model.DocumentEntry
}

// Documents is total: an unknown or unmapped role yields an empty
// slice, never an error.
func (s *Snapshot) Documents(role model.RoleTag) []*ai.DocumentHandle {
	return s.documents[role]
}

func (s *Snapshot) Display() []model.DocumentEntry {
	return s.display
}

func (s *Snapshot) Version() uint64 {
	return s.version
}

func (s *Snapshot) BuiltAt() time.Time {
	return s.builtAt
}

// Builder accumulates one sync pass's results. It is owned by a single
// sync worker and never visible to readers until Publish.
type Builder struct {
	documents map[model.RoleTag][]*ai.DocumentHandle
	display   []model.DocumentEntry
}

func NewBuilder() *Builder {
	return &Builder{
		documents: make(map[model.RoleTag][]*ai.DocumentHandle),
	}
}

func (b *Builder) AddDocument(role model.RoleTag, handle *ai.DocumentHandle) {
	b.documents[role] = append(b.documents[role], handle)
}

func (b *Builder) AddEntry(entry model.DocumentEntry) {
	b.display = append(b.display, entry)
}

// Cache holds the currently published snapshot behind a single atomic
// pointer. Readers never block on a refresh and never observe a
// half-built generation.
type Cache struct {
	current atomic.Pointer[Snapshot]
	version atomic.Uint64
}

func NewCache() *Cache {
	c := &Cache{}
	c.current.Store(&Snapshot{
		documents: make(map[model.RoleTag][]*ai.DocumentHandle),
		display:   []model.DocumentEntry{},
		builtAt:   time.Now(),
	})
	return c
}

func (c *Cache) Snapshot() *Snapshot {
	return c.current.Load()
}

// Publish atomically replaces the current snapshot with the builder's
// contents. The builder must not be reused afterwards.
func (c *Cache) Publish(b *Builder) *Snapshot {
	display := b.display
	if display == nil {
		display = []model.DocumentEntry{}
	}
	snapshot := &Snapshot{
		version:   c.version.Add(1),
		builtAt:   time.Now(),
		documents: b.documents,
		display:   display,
	}
	c.current.Store(snapshot)
	return snapshot
}
