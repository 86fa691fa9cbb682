package divert

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"grimm.is/shunt/internal/logging"
	"grimm.is/shunt/internal/metrics"
)

// DefaultPollTimeout is how long the processing loop blocks before
// re-checking the stop flag.
const DefaultPollTimeout = 500 * time.Millisecond

// State tracks a binding's progress through setup and teardown. Setup only
// ever advances Init → RuleAdded → Bound → Running; teardown unwinds exactly
// the steps the state shows were reached.
type State int

const (
	StateInit State = iota
	StateRuleAdded
	StateBound
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateRuleAdded:
		return "rule-added"
	case StateBound:
		return "bound"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Binding owns everything needed to divert one chain's traffic into one
// queue number: the redirect rule, the kernel consumer, and the processing
// goroutine that pumps it.
//
// Start and Stop must not be called concurrently with each other or with
// themselves; callers serialize. StopNonblocking is safe from any goroutine
// at any time. Start after a successful Start fails fast; Stop after Stop is
// a no-op.
type Binding struct {
	Qno   uint16
	Chain string
	Table string

	rule     *RuleTemplate
	consumer Consumer
	callback Callback
	timeout  time.Duration

	// stop is written by the owner and read by the processing goroutine at
	// poll-timeout boundaries; it is the only datum shared across that edge.
	stop atomic.Bool
	done chan struct{}

	state State
	log   *logging.Logger
}

// NewBinding creates a binding for one queue number on one chain/table. The
// callback is invoked once per diverted packet.
func NewBinding(runner CommandRunner, consumer Consumer, qno uint16, chain, table string, cb Callback) *Binding {
	return &Binding{
		Qno:      qno,
		Chain:    chain,
		Table:    table,
		rule:     NewQueueRule(runner, chain, table, qno),
		consumer: consumer,
		callback: cb,
		state:    StateInit,
		log:      logging.WithComponent("divert"),
	}
}

func (b *Binding) String() string {
	return fmt.Sprintf("%s/%s@%d", b.Chain, b.Table, b.Qno)
}

// Start drives the binding through its setup steps: install the iptables
// rule, bind the consumer, launch the processing goroutine. Each failure
// leaves the state at the last successful step and returns; nothing is rolled
// back here. Stop inspects the state and unwinds exactly what succeeded, so a
// failed Start is cleaned up by the same call path as a successful one.
func (b *Binding) Start(timeout time.Duration) error {
	if b.state != StateInit {
		return fmt.Errorf("binding %s: start from state %s", b, b.state)
	}
	if b.callback == nil {
		return fmt.Errorf("binding %s: no callback registered", b)
	}
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}
	b.timeout = timeout

	if err := b.rule.Add(); err != nil {
		metrics.Get().StartFailures.WithLabelValues("rule_add").Inc()
		b.log.Error("failed to add queue rule",
			"binding", b.String(), "cmd", b.rule.AddCommand(), "error", err)
		return fmt.Errorf("add rule for %s: %w", b, err)
	}
	b.state = StateRuleAdded

	if err := b.consumer.Bind(b.Qno, b.callback); err != nil {
		metrics.Get().StartFailures.WithLabelValues("bind").Inc()
		b.log.Error("failed to start queue",
			"binding", b.String(), "error", err)
		return fmt.Errorf("bind queue for %s: %w", b, err)
	}
	b.state = StateBound

	b.stop.Store(false)
	b.done = make(chan struct{})
	go b.threadProc()
	b.state = StateRunning

	metrics.Get().BindingsRunning.Inc()
	b.log.Info("queue binding running",
		"binding", b.String(), "poll_timeout", timeout)
	return nil
}

// threadProc pumps the consumer until the stop flag is observed. The flag is
// checked only at poll-timeout boundaries, so stop latency is bounded by one
// poll interval. A terminal consumer error ends the loop early.
func (b *Binding) threadProc() {
	defer close(b.done)
	for !b.stop.Load() {
		if err := b.consumer.Run(b.timeout); err != nil {
			b.log.Error("queue receive loop failed",
				"binding", b.String(), "error", err)
			return
		}
	}
}

// StopNonblocking signals the processing goroutine to exit at its next poll
// boundary and returns immediately. Calling it before Start is harmless: the
// flag is simply inert. Call it on every binding in a group before the
// blocking Stop calls, so all loops race toward their own timeouts
// concurrently instead of serially.
func (b *Binding) StopNonblocking() {
	b.stop.Store(true)
}

// Stop unwinds whichever setup steps succeeded, in reverse order: join the
// processing goroutine, unbind the consumer, remove the rule. The consumer is
// never unbound before the goroutine has exited, to avoid a use-after-close
// on the queue's descriptor. Blocks for up to one poll timeout.
func (b *Binding) Stop() error {
	if b.state == StateStopped {
		return nil
	}
	b.StopNonblocking()

	started := b.state == StateRunning
	bound := started || b.state == StateBound
	added := bound || b.state == StateRuleAdded
	b.state = StateStopping

	var errs []error

	if started {
		<-b.done
		metrics.Get().BindingsRunning.Dec()
	}

	if bound {
		if err := b.consumer.Unbind(); err != nil {
			b.log.Error("failed to unbind queue",
				"binding", b.String(), "error", err)
			errs = append(errs, fmt.Errorf("unbind %s: %w", b, err))
		}
	}

	if added {
		if err := b.rule.Remove(); err != nil {
			b.log.Error("failed to remove queue rule",
				"binding", b.String(), "cmd", b.rule.RemoveCommand(), "error", err)
			errs = append(errs, fmt.Errorf("remove rule for %s: %w", b, err))
		}
	}

	b.state = StateStopped
	return errors.Join(errs...)
}
