package server

import (
	"sync"
	"time"
)

// Chaos holds per-node fault injection: partitioned nodes refuse new
// servers, latency delays scheduling onto a node.
type Chaos struct {
	mu          sync.RWMutex
	partitioned map[string]bool
	latency     map[string]time.Duration
}

func NewChaos() *Chaos {
	return &Chaos{
		partitioned: make(map[string]bool),
		latency:     make(map[string]time.Duration),
	}
}

func (c *Chaos) Partition(node string) {
	c.mu.Lock()
	c.partitioned[node] = true
	c.mu.Unlock()
}

// Heal clears both the partition and any latency on node.
func (c *Chaos) Heal(node string) {
	c.mu.Lock()
	delete(c.partitioned, node)
	delete(c.latency, node)
	c.mu.Unlock()
}

func (c *Chaos) SetLatency(node string, d time.Duration) {
	c.mu.Lock()
	c.latency[node] = d
	c.mu.Unlock()
}

func (c *Chaos) Partitioned(node string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.partitioned[node]
}

func (c *Chaos) Latency(node string) time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latency[node]
}
