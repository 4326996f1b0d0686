package portfolio

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultCollectorConcurrency = 4
	DefaultCollectorTimeout     = 30 * time.Second
)

// Collector deletes assets that an update dropped. Deletion runs in the
// background on a context detached from the caller; failures are logged
// and counted, never returned.
type Collector struct {
	deleter     Deleter
	metrics     Metrics
	concurrency int
	timeout     time.Duration

	mu      sync.Mutex
	pending int
	// idle is closed while no batch is running
	idle chan struct{}
}

// CollectorOption configures a Collector
type CollectorOption func(*Collector)

// WithConcurrency bounds the deletes running at once for one batch
func WithConcurrency(n int) CollectorOption {
	return func(c *Collector) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithTimeout bounds how long one batch may take
func WithTimeout(d time.Duration) CollectorOption {
	return func(c *Collector) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithCollectorMetrics reports deletion outcomes
func WithCollectorMetrics(m Metrics) CollectorOption {
	return func(c *Collector) {
		if m != nil {
			c.metrics = m
		}
	}
}

// NewCollector creates a collector deleting through d
func NewCollector(d Deleter, opts ...CollectorOption) *Collector {
	c := &Collector{
		deleter:     d,
		metrics:     NoopMetrics{},
		concurrency: DefaultCollectorConcurrency,
		timeout:     DefaultCollectorTimeout,
		idle:        make(chan struct{}),
	}
	close(c.idle)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect schedules deletion of refs and returns immediately. It must only
// be called once the entity no longer referencing them has been persisted.
func (c *Collector) Collect(ctx context.Context, refs []AssetRef) {
	refs = compact(refs)
	if len(refs) == 0 {
		return
	}

	c.mu.Lock()
	if c.pending == 0 {
		c.idle = make(chan struct{})
	}
	c.pending++
	c.mu.Unlock()

	go func() {
		defer c.done()
		c.run(context.WithoutCancel(ctx), refs)
	}()
}

func (c *Collector) done() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending--
	if c.pending == 0 {
		close(c.idle)
	}
}

// Wait blocks until every scheduled batch has finished
func (c *Collector) Wait() {
	_ = c.WaitContext(context.Background())
}

// WaitContext is Wait bounded by ctx. Batches still running when ctx ends
// keep running; only the wait is abandoned.
func (c *Collector) WaitContext(ctx context.Context) error {
	c.mu.Lock()
	idle := c.idle
	c.mu.Unlock()

	select {
	case <-idle:
		return nil
	default:
	}
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Collector) run(ctx context.Context, refs []AssetRef) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for _, ref := range refs {
		g.Go(func() error {
			err := c.deleter.Delete(ctx, ref)
			switch {
			case err == nil:
				c.metrics.OrphanDeleted(ref.Backend, OutcomeDeleted)
			case errors.Is(err, ErrSkipped):
				slog.Warn("Skipped delete of orphaned asset", "backend", ref.Backend, "locator", ref.Locator, "reason", err)
				c.metrics.OrphanDeleted(ref.Backend, OutcomeSkipped)
			default:
				slog.Error("Failed to delete orphaned asset", "backend", ref.Backend, "locator", ref.Locator, "error", err)
				c.metrics.OrphanDeleted(ref.Backend, OutcomeFailed)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func compact(refs []AssetRef) []AssetRef {
	out := make([]AssetRef, 0, len(refs))
	seen := make(map[AssetRef]struct{}, len(refs))
	for _, ref := range refs {
		if ref.IsZero() {
			continue
		}
		if _, dup := seen[ref]; dup {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
	}
	return out
}
