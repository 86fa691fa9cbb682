package divert

import (
	"errors"
	"fmt"
	"time"

	"grimm.is/shunt/internal/clock"
	"grimm.is/shunt/internal/logging"
	"grimm.is/shunt/internal/metrics"
)

// Group coordinates a set of queue bindings so they start in order and stop
// near-simultaneously. It is an ordering discipline over the bindings it
// holds, not a synchronization primitive: the caller serializes StartAll and
// StopAll as it would for a single binding.
type Group struct {
	bindings []*Binding
	clk      clock.Clock
	log      *logging.Logger
}

// NewGroup creates a group over the given bindings.
func NewGroup(bindings ...*Binding) *Group {
	return &Group{
		bindings: bindings,
		clk:      &clock.RealClock{},
		log:      logging.WithComponent("divert"),
	}
}

// Add appends a binding to the group.
func (g *Group) Add(b *Binding) {
	g.bindings = append(g.bindings, b)
}

// Bindings returns the group's bindings in start order.
func (g *Group) Bindings() []*Binding {
	return g.bindings
}

// Len returns the number of bindings in the group.
func (g *Group) Len() int {
	return len(g.bindings)
}

// StartAll starts every binding in order with the given poll timeout. On the
// first failure it unwinds the failed binding's partial setup along with
// every binding already running, then returns the error.
func (g *Group) StartAll(timeout time.Duration) error {
	for i, b := range g.bindings {
		if err := b.Start(timeout); err != nil {
			g.stopRange(i + 1)
			return fmt.Errorf("start binding %s: %w", b, err)
		}
	}
	return nil
}

// StopAll signals every binding's stop flag first, then joins and unwinds
// each in turn. With all flags set up front, every processing loop is already
// racing toward its own poll timeout while the first one is being joined, so
// total shutdown is bounded by roughly one poll timeout plus teardown cost
// rather than one timeout per binding.
func (g *Group) StopAll() error {
	start := g.clk.Now()
	err := g.stopRange(len(g.bindings))
	elapsed := g.clk.Since(start)
	metrics.Get().ShutdownSeconds.Observe(elapsed.Seconds())
	g.log.Info("binding group stopped", "bindings", len(g.bindings), "elapsed", elapsed)
	return err
}

func (g *Group) stopRange(n int) error {
	for _, b := range g.bindings[:n] {
		b.StopNonblocking()
	}

	var errs []error
	for _, b := range g.bindings[:n] {
		if err := b.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
