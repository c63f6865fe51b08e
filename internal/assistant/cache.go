// File path: internal/assistant/cache.go
package assistant

import (
	"container/list"
	"sync"

	"github.com/nicodishanthj/codelens/internal/retrieval"
	"github.com/nicodishanthj/codelens/internal/sqlite"
)

// loadedCodebase is a codebase with its file contents ready for retrieval.
type loadedCodebase struct {
	codebase sqlite.Codebase
	docs     []retrieval.Document
}

func (l *loadedCodebase) doc(path string) (retrieval.Document, bool) {
	for _, d := range l.docs {
		if d.Path == path {
			return d, true
		}
	}
	return retrieval.Document{}, false
}

type cacheEntry struct {
	key   string
	value *loadedCodebase
}

// codebaseCache is a bounded LRU of loaded codebases keyed by id. Each
// Remove bumps the id's generation so a load that started before a delete
// cannot put the deleted codebase back.
type codebaseCache struct {
	mu          sync.Mutex
	capacity    int
	items       map[string]*list.Element
	ll          *list.List
	generations map[string]uint64
}

func newCodebaseCache(size int) *codebaseCache {
	if size <= 0 {
		size = 16
	}
	return &codebaseCache{
		capacity:    size,
		items:       make(map[string]*list.Element, size),
		ll:          list.New(),
		generations: make(map[string]uint64),
	}
}

func (c *codebaseCache) Get(id string) (*loadedCodebase, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.items[id]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(elem)
	return elem.Value.(cacheEntry).value, true
}

// Generation returns the id's current generation, to be passed to
// SetIfCurrent once the codebase has been read.
func (c *codebaseCache) Generation(id string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[id]
}

// SetIfCurrent stores value unless id was removed after gen was taken.
func (c *codebaseCache) SetIfCurrent(id string, gen uint64, value *loadedCodebase) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[id] != gen {
		return false
	}
	c.set(id, value)
	return true
}

func (c *codebaseCache) Set(id string, value *loadedCodebase) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(id, value)
}

func (c *codebaseCache) set(id string, value *loadedCodebase) {
	if elem, ok := c.items[id]; ok {
		elem.Value = cacheEntry{key: id, value: value}
		c.ll.MoveToFront(elem)
		return
	}
	c.items[id] = c.ll.PushFront(cacheEntry{key: id, value: value})
	if c.ll.Len() > c.capacity {
		if tail := c.ll.Back(); tail != nil {
			c.ll.Remove(tail)
			delete(c.items, tail.Value.(cacheEntry).key)
		}
	}
}

func (c *codebaseCache) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[id]++
	if elem, ok := c.items[id]; ok {
		c.ll.Remove(elem)
		delete(c.items, id)
	}
}

func (c *codebaseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
