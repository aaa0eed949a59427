// Package health tracks process dependency readiness.
//
// The server wires its long-lived dependencies (store connection, ledger
// adapter) in a defined order at startup; until every dependency has
// reported ready, the readiness state is queryable and mutating routes
// answer 503 through Middleware.
package health

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
)

// State is the process-wide readiness state. Dependencies are registered at
// construction and flipped ready exactly once during startup.
type State struct {
	mu   sync.RWMutex
	deps map[string]bool
}

// NewState creates a State with every named dependency not ready.
func NewState(deps ...string) *State {
	s := &State{deps: make(map[string]bool, len(deps))}
	for _, d := range deps {
		s.deps[d] = false
	}
	return s
}

// SetReady marks one dependency ready.
func (s *State) SetReady(dep string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deps[dep] = true
}

// Ready reports whether every dependency is ready.
func (s *State) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ok := range s.deps {
		if !ok {
			return false
		}
	}
	return true
}

// Report returns a copy of the per-dependency readiness map.
func (s *State) Report() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(s.deps))
	for d, ok := range s.deps {
		out[d] = ok
	}
	return out
}

// Middleware returns a Gin middleware that rejects requests with 503 until
// the state is fully ready.
func (s *State) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.Ready() {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"success":  false,
				"category": "not_ready",
				"message":  "dependencies not connected yet",
			})
			return
		}
		c.Next()
	}
}

// Handler returns the GET /readyz handler reporting per-dependency status.
func (s *State) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		report := s.Report()
		status := http.StatusOK
		if !s.Ready() {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"ready": s.Ready(), "dependencies": report})
	}
}
