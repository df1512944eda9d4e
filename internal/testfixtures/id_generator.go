package testfixtures

import (
	"fmt"
	"sync"
)

// IDGenerator yields deterministic sequential ids with a fixed prefix.
type IDGenerator struct {
	mu      sync.Mutex
	prefix  string
	counter int
}

// NewIDGenerator returns a generator producing "<prefix>-1", "<prefix>-2", ...
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix}
}

// Next returns the next id in the sequence.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("%s-%d", g.prefix, g.counter)
}

// NextFunc returns a function suitable for injecting as a service's
// idGenerator dependency.
func (g *IDGenerator) NextFunc() func() string {
	return g.Next
}
