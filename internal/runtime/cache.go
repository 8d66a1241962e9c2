package runtime

import (
	"sync"
	"sync/atomic"

	"github.com/aretw0/compositor/pkg/domain"
	"github.com/aretw0/compositor/pkg/graph"
)

// DefaultCacheDepth is how many distinct times are kept per node.
const DefaultCacheDepth = 8

type entry struct {
	version uint64
	outputs graph.Values
	fault   *NodeFault
}

// slot holds one node's entries, oldest time first.
type slot struct {
	times   []domain.Time
	entries map[domain.Time]entry
}

// cache stores node outputs keyed by (node, time). An entry is served only while its
// version matches the version recorded in the current plan.
type cache struct {
	mu    sync.Mutex
	depth int
	nodes map[*graph.Node]*slot

	hits   atomic.Uint64
	misses atomic.Uint64
}

func newCache(depth int) *cache {
	if depth <= 0 {
		depth = DefaultCacheDepth
	}
	return &cache{depth: depth, nodes: make(map[*graph.Node]*slot)}
}

func (c *cache) get(n *graph.Node, version uint64, t domain.Time) (entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.nodes[n]
	if ok {
		if e, ok := s.entries[t]; ok && e.version == version {
			c.hits.Add(1)
			return e, true
		}
	}
	c.misses.Add(1)
	return entry{}, false
}

func (c *cache) put(n *graph.Node, t domain.Time, e entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.nodes[n]
	if !ok {
		s = &slot{entries: make(map[domain.Time]entry)}
		c.nodes[n] = s
	}

	if old, exists := s.entries[t]; exists {
		// A pass running on an older snapshot must not clobber a newer result.
		if old.version > e.version {
			return
		}
		s.entries[t] = e
		return
	}

	s.entries[t] = e
	s.times = append(s.times, t)
	for len(s.times) > c.depth {
		delete(s.entries, s.times[0])
		s.times = s.times[1:]
	}
}

// prune drops every entry held for the given nodes.
func (c *cache) prune(nodes []*graph.Node) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range nodes {
		delete(c.nodes, n)
	}
}

func (c *cache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, s := range c.nodes {
		total += len(s.entries)
	}
	return total
}
