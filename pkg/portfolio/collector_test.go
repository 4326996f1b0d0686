package portfolio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordingDeleter struct {
	mu      sync.Mutex
	deleted []string
	fail    map[string]bool
	skip    map[string]bool
	active  atomic.Int32
	peak    atomic.Int32
	delay   time.Duration
}

func (d *recordingDeleter) Delete(ctx context.Context, ref AssetRef) error {
	n := d.active.Add(1)
	defer d.active.Add(-1)
	for {
		p := d.peak.Load()
		if n <= p || d.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail[ref.Locator] {
		return errors.New("backend unavailable")
	}
	if d.skip[ref.Locator] {
		return fmt.Errorf("not owned: %w", ErrSkipped)
	}
	d.deleted = append(d.deleted, ref.Locator)
	return nil
}

type countingMetrics struct {
	NoopMetrics
	mu       sync.Mutex
	outcomes map[string]int
}

func (m *countingMetrics) OrphanDeleted(_ BackendKind, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcomes == nil {
		m.outcomes = make(map[string]int)
	}
	m.outcomes[outcome]++
}

func TestCollector_DeletesEachRefOnce(t *testing.T) {
	d := &recordingDeleter{}
	c := NewCollector(d)

	c.Collect(context.Background(), refs("a", "b", "a", ""))
	c.Wait()

	assert.ElementsMatch(t, []string{"a", "b"}, d.deleted)
}

func TestCollector_FailuresAreIsolated(t *testing.T) {
	d := &recordingDeleter{fail: map[string]bool{"b": true}}
	m := &countingMetrics{}
	c := NewCollector(d, WithCollectorMetrics(m))

	c.Collect(context.Background(), refs("a", "b", "c"))
	c.Wait()

	assert.ElementsMatch(t, []string{"a", "c"}, d.deleted)
	assert.Equal(t, 2, m.outcomes[OutcomeDeleted])
	assert.Equal(t, 1, m.outcomes[OutcomeFailed])
}

func TestCollector_SurvivesCallerCancellation(t *testing.T) {
	d := &recordingDeleter{delay: 10 * time.Millisecond}
	c := NewCollector(d)

	ctx, cancel := context.WithCancel(context.Background())
	c.Collect(ctx, refs("a"))
	cancel()
	c.Wait()

	assert.Equal(t, []string{"a"}, d.deleted)
}

func TestCollector_BoundsConcurrency(t *testing.T) {
	d := &recordingDeleter{delay: 5 * time.Millisecond}
	c := NewCollector(d, WithConcurrency(2))

	c.Collect(context.Background(), refs("a", "b", "c", "d", "e", "f"))
	c.Wait()

	assert.Len(t, d.deleted, 6)
	assert.LessOrEqual(t, d.peak.Load(), int32(2))
}

func TestCollector_EmptyBatchIsNoop(t *testing.T) {
	d := &recordingDeleter{}
	c := NewCollector(d)

	c.Collect(context.Background(), nil)
	c.Wait()

	assert.Empty(t, d.deleted)
}

func TestCollector_ReportsOutcomes(t *testing.T) {
	d := &recordingDeleter{
		fail: map[string]bool{"b": true},
		skip: map[string]bool{"c": true, "d": true},
	}
	m := &countingMetrics{}
	c := NewCollector(d, WithCollectorMetrics(m))

	c.Collect(context.Background(), refs("a", "b", "c", "d"))
	c.Wait()

	assert.Equal(t, map[string]int{
		OutcomeDeleted: 1,
		OutcomeFailed:  1,
		OutcomeSkipped: 2,
	}, m.outcomes)
}

func TestCollector_WaitContextGivesUpOnExpiry(t *testing.T) {
	d := &recordingDeleter{delay: 50 * time.Millisecond}
	c := NewCollector(d)

	c.Collect(context.Background(), refs("a"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.WaitContext(ctx), context.Canceled)

	// The batch keeps running and a later wait sees it finish
	assert.NoError(t, c.WaitContext(context.Background()))
	assert.Equal(t, []string{"a"}, d.deleted)
}

func TestCollector_WaitContextWhenIdle(t *testing.T) {
	c := NewCollector(&recordingDeleter{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// An expired context does not fail a wait with nothing pending
	assert.NoError(t, c.WaitContext(ctx))

	c.Collect(context.Background(), refs("a"))
	c.Wait()
	assert.NoError(t, c.WaitContext(ctx))
}
