package catalog

import (
	"sync"
	"time"
)

type Entry struct {
	Title     string    `json:"title" yaml:"title"`
	Poster    string    `json:"poster" yaml:"poster"`
	IssueDate string    `json:"issue_date" yaml:"issue_date"`
	Released  time.Time `json:"-" yaml:"-"`
}

// Catalog is the ordered list of entries currently on display. A background
// loader appends to it while the render loop reads snapshots.
type Catalog struct {
	mu         sync.RWMutex
	entries    []Entry
	generation uint64
}

func New() *Catalog {
	return &Catalog{}
}

func (c *Catalog) Entries() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Catalog) At(i int) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i < 0 || i >= len(c.entries) {
		return Entry{}, false
	}
	return c.entries[i], true
}

func (c *Catalog) Append(e Entry) {
	c.mu.Lock()
	c.entries = append(c.entries, e)
	c.mu.Unlock()
}

// AppendAt appends e only if the catalog has not been cleared since
// generation gen was observed.
func (c *Catalog) AppendAt(gen uint64, e Entry) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return false
	}
	c.entries = append(c.entries, e)
	return true
}

func (c *Catalog) Clear() {
	c.mu.Lock()
	c.entries = nil
	c.generation++
	c.mu.Unlock()
}

func (c *Catalog) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}
