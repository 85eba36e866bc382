package tools

import (
	"context"
	"sync"
)

// collectorKey is a private type for the output collector context key.
type collectorKey struct{}

// OutputCollector accumulates side outputs (markdown image references)
// emitted during one tool call.
type OutputCollector struct {
	mu    sync.Mutex
	links []string
}

// Append records one markdown reference.
func (c *OutputCollector) Append(link string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.links = append(c.links, link)
}

// Links returns the recorded references in emission order.
func (c *OutputCollector) Links() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.links...)
}

// WithOutputCollector attaches a fresh collector to the context. Callers
// read it back after the tool call returns.
func WithOutputCollector(ctx context.Context) (context.Context, *OutputCollector) {
	c := &OutputCollector{}
	return context.WithValue(ctx, collectorKey{}, c), c
}

// CollectorFromContext retrieves the collector, or nil if none is attached.
func CollectorFromContext(ctx context.Context) *OutputCollector {
	if c, ok := ctx.Value(collectorKey{}).(*OutputCollector); ok {
		return c
	}
	return nil
}
