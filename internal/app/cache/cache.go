// Package cache memoizes aggregated transitions per dataset fingerprint.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/awmpietro/path-analysis/internal/pathgraph"
)

// InMemory is a bounded cache with one computation in flight per key.
// Once full it stops admitting new keys. Errors and panics are never cached.
type InMemory struct {
	mu       sync.Mutex
	max      int
	items    map[string]*pathgraph.Transitions
	inflight map[string]*call
}

type call struct {
	done chan struct{}
	val  *pathgraph.Transitions
	err  error
}

func NewInMemory(max int) *InMemory {
	if max < 0 {
		max = 0
	}
	return &InMemory{
		max:      max,
		items:    make(map[string]*pathgraph.Transitions, max),
		inflight: map[string]*call{},
	}
}

// GetOrCompute returns the cached value for fingerprint, running fn at most
// once across concurrent callers when it is missing.
func (c *InMemory) GetOrCompute(fingerprint string, fn func() (*pathgraph.Transitions, error)) (*pathgraph.Transitions, error) {
	key := hash(fingerprint)

	c.mu.Lock()
	if v, ok := c.items[key]; ok {
		c.mu.Unlock()
		return v, nil
	}
	if cl, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		<-cl.done
		return cl.val, cl.err
	}
	cl := &call{done: make(chan struct{})}
	c.inflight[key] = cl
	c.mu.Unlock()

	cl.val, cl.err = run(fn)

	c.mu.Lock()
	delete(c.inflight, key)
	if cl.err == nil && len(c.items) < c.max {
		c.items[key] = cl.val
	}
	c.mu.Unlock()
	close(cl.done)

	return cl.val, cl.err
}

// Len reports the number of cached entries.
func (c *InMemory) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func run(fn func() (*pathgraph.Transitions, error)) (v *pathgraph.Transitions, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("cache compute panicked: %v", r)
		}
	}()
	return fn()
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
