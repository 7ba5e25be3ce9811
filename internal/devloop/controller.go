// Package devloop keeps the build output fresh while a template author
// edits sources.
//
// A Controller coalesces rebuild requests: at most one rebuild is in flight,
// and any number of triggers arriving during it collapse into a single
// follow-up run. A Session wires the controller to the file watcher and the
// preview server.
package devloop

import (
	"context"
	"sync"

	"github.com/conneroisu/mailwright/internal/logging"
)

// RebuildFunc runs the build sequence.
type RebuildFunc func(ctx context.Context) error

// ReloadFunc notifies preview clients after a successful rebuild.
type ReloadFunc func(ctx context.Context) error

// Controller serialises rebuilds.
type Controller struct {
	rebuild RebuildFunc
	reload  ReloadFunc
	logger  logging.Logger

	mu      sync.Mutex
	idle    *sync.Cond
	running bool
	pending bool
	runs    int
}

// NewController creates a controller. reload may be nil.
func NewController(rebuild RebuildFunc, reload ReloadFunc, logger logging.Logger) *Controller {
	if logger == nil {
		logger = logging.Nop()
	}
	c := &Controller{
		rebuild: rebuild,
		reload:  reload,
		logger:  logger.WithComponent("devloop"),
	}
	c.idle = sync.NewCond(&c.mu)
	return c
}

// Trigger requests a rebuild and returns without waiting for it. If a
// rebuild is already running, the request is remembered and served by one
// follow-up run once the current one finishes.
func (c *Controller) Trigger(ctx context.Context) {
	c.mu.Lock()
	if c.running {
		c.pending = true
		c.mu.Unlock()
		return
	}
	c.running = true
	c.mu.Unlock()

	go c.loop(ctx)
}

// Wait blocks until no rebuild is running or pending.
func (c *Controller) Wait() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.running {
		c.idle.Wait()
	}
}

// Runs returns the number of rebuilds started so far.
func (c *Controller) Runs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runs
}

func (c *Controller) loop(ctx context.Context) {
	for {
		c.mu.Lock()
		c.runs++
		c.mu.Unlock()

		c.runOnce(ctx)

		c.mu.Lock()
		if !c.pending || ctx.Err() != nil {
			c.running = false
			c.pending = false
			c.idle.Broadcast()
			c.mu.Unlock()
			return
		}
		c.pending = false
		c.mu.Unlock()
	}
}

func (c *Controller) runOnce(ctx context.Context) {
	if err := c.rebuild(ctx); err != nil {
		c.logger.Error(ctx, err, "Rebuild failed, keeping previous output")
		return
	}
	if c.reload == nil {
		return
	}
	if err := c.reload(ctx); err != nil {
		c.logger.Warn(ctx, err, "Failed to notify preview clients")
	}
}
