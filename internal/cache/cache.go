// Package cache holds lock-protected lookups shared between the simulator and
// its readers so the hot tick path never waits on them.
package cache

import (
	"sort"
	"sync"

	"github.com/gravitysim/gravity/pkg/core"
)

// StateCache keeps the latest sampled state of every body.
type StateCache struct {
	m      sync.RWMutex
	states map[string]core.BodyState
}

func NewStateCache() *StateCache {
	return &StateCache{
		states: make(map[string]core.BodyState),
	}
}

func (c *StateCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.states = make(map[string]core.BodyState)
}

// Set stores the state under its body name.
func (c *StateCache) Set(s core.BodyState) {
	c.m.Lock()
	defer c.m.Unlock()
	c.states[s.BodyName] = s
}

func (c *StateCache) Get(name string) (core.BodyState, bool) {
	c.m.RLock()
	defer c.m.RUnlock()
	s, ok := c.states[name]
	return s, ok
}

// All returns every cached state ordered by body name.
func (c *StateCache) All() []core.BodyState {
	c.m.RLock()
	defer c.m.RUnlock()
	out := make([]core.BodyState, 0, len(c.states))
	for _, s := range c.states {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BodyName < out[j].BodyName })
	return out
}

func (c *StateCache) Len() int {
	c.m.RLock()
	defer c.m.RUnlock()
	return len(c.states)
}
