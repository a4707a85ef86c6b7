// Package session tracks the session currently being recorded.
package session

import (
	"sync"
	"time"

	"github.com/gravitysim/gravity/pkg/core"
)

// Context holds the current session
type Context struct {
	mu      sync.RWMutex
	session *core.Session
	active  bool
	ended   time.Time
}

// NewContext creates a new Context with a placeholder session
func NewContext() *Context {
	return &Context{
		session: &core.Session{Name: "No session started"},
	}
}

// GetSession returns the current session
func (c *Context) GetSession() *core.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// SetSession makes s the current, active session
func (c *Context) SetSession(s *core.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
	c.active = true
	c.ended = time.Time{}
}

// End marks the current session finished at the given time
func (c *Context) End(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = false
	c.ended = at
}

// Active reports whether a session is being recorded
func (c *Context) Active() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// Ended returns when the last session ended, or the zero time
func (c *Context) Ended() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ended
}
