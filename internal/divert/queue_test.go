package divert

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConsumer mimics the kernel queue facility: Run blocks for the poll
// timeout unless a packet or a fatal error is injected.
type fakeConsumer struct {
	mu        sync.Mutex
	bindErr   error
	unbindErr error
	binds     int
	unbinds   int
	cb        Callback

	fatal   chan error
	packets chan Packet
}

func newFakeConsumer() *fakeConsumer {
	return &fakeConsumer{
		fatal:   make(chan error, 1),
		packets: make(chan Packet, 16),
	}
}

func (f *fakeConsumer) Bind(qno uint16, cb Callback) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.binds++
	if f.bindErr != nil {
		return f.bindErr
	}
	f.cb = cb
	return nil
}

func (f *fakeConsumer) Run(timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case <-timer.C:
			return nil
		case err := <-f.fatal:
			return err
		case pkt := <-f.packets:
			f.mu.Lock()
			cb := f.cb
			f.mu.Unlock()
			cb(pkt)
		}
	}
}

func (f *fakeConsumer) Unbind() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unbinds++
	return f.unbindErr
}

func (f *fakeConsumer) unbindCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unbinds
}

func expectQueueRule(runner *MockCommandRunner, chain, table, qno string) {
	onRun(runner, nil, "-I", chain, "-t", table, "-j", "NFQUEUE", "--queue-num", qno)
	onRun(runner, nil, "-D", chain, "-t", table, "-j", "NFQUEUE", "--queue-num", qno)
}

func TestBindingRuleAddFailureLeavesInit(t *testing.T) {
	runner := new(MockCommandRunner)
	onRun(runner, errors.New("exit status 3"),
		"-I", "INPUT", "-t", "mangle", "-j", "NFQUEUE", "--queue-num", "1")

	fc := newFakeConsumer()
	b := NewBinding(runner, fc, 1, "INPUT", "mangle", func(Packet) Verdict { return Accept })

	require.Error(t, b.Start(20*time.Millisecond))
	assert.Equal(t, StateInit, b.state)
	assert.Zero(t, fc.binds)

	// Nothing was set up, so Stop has nothing to undo.
	require.NoError(t, b.Stop())
	runner.AssertNumberOfCalls(t, "Run", 1)
}

func TestBindingBindFailureRemovesRule(t *testing.T) {
	runner := new(MockCommandRunner)
	expectQueueRule(runner, "OUTPUT", "mangle", "2")

	fc := newFakeConsumer()
	fc.bindErr = errors.New("socket: operation not permitted")
	b := NewBinding(runner, fc, 2, "OUTPUT", "mangle", func(Packet) Verdict { return Accept })

	require.Error(t, b.Start(20*time.Millisecond))
	assert.Equal(t, StateRuleAdded, b.state)

	require.NoError(t, b.Stop())
	assert.Zero(t, fc.unbindCount())
	runner.AssertExpectations(t)
	runner.AssertNumberOfCalls(t, "Run", 2)
}

func TestBindingLifecycle(t *testing.T) {
	runner := new(MockCommandRunner)
	expectQueueRule(runner, "INPUT", "mangle", "5")

	got := make(chan Packet, 1)
	fc := newFakeConsumer()
	b := NewBinding(runner, fc, 5, "INPUT", "mangle", func(pkt Packet) Verdict {
		got <- pkt
		return Accept
	})

	require.NoError(t, b.Start(20*time.Millisecond))
	assert.Equal(t, StateRunning, b.state)

	fc.packets <- Packet{ID: 77, Payload: []byte{0x45}}
	select {
	case pkt := <-got:
		assert.Equal(t, uint32(77), pkt.ID)
	case <-time.After(time.Second):
		t.Fatal("callback never invoked")
	}

	require.NoError(t, b.Stop())
	assert.Equal(t, StateStopped, b.state)
	assert.Equal(t, 1, fc.unbindCount())
	runner.AssertExpectations(t)
}

func TestBindingRejectsNilCallback(t *testing.T) {
	b := NewBinding(new(MockCommandRunner), newFakeConsumer(), 1, "INPUT", "mangle", nil)
	require.Error(t, b.Start(20*time.Millisecond))
	assert.Equal(t, StateInit, b.state)
}

func TestBindingStartTwiceFails(t *testing.T) {
	runner := new(MockCommandRunner)
	expectQueueRule(runner, "INPUT", "mangle", "3")

	fc := newFakeConsumer()
	b := NewBinding(runner, fc, 3, "INPUT", "mangle", func(Packet) Verdict { return Accept })

	require.NoError(t, b.Start(20*time.Millisecond))
	require.Error(t, b.Start(20*time.Millisecond))
	require.NoError(t, b.Stop())
}

func TestBindingStopTwiceIsNoop(t *testing.T) {
	runner := new(MockCommandRunner)
	expectQueueRule(runner, "INPUT", "mangle", "4")

	fc := newFakeConsumer()
	b := NewBinding(runner, fc, 4, "INPUT", "mangle", func(Packet) Verdict { return Accept })

	require.NoError(t, b.Start(20*time.Millisecond))
	require.NoError(t, b.Stop())
	require.NoError(t, b.Stop())

	assert.Equal(t, 1, fc.unbindCount())
	runner.AssertNumberOfCalls(t, "Run", 2)
}

func TestBindingStopNonblockingBeforeStartIsInert(t *testing.T) {
	runner := new(MockCommandRunner)
	expectQueueRule(runner, "INPUT", "mangle", "6")

	fc := newFakeConsumer()
	b := NewBinding(runner, fc, 6, "INPUT", "mangle", func(Packet) Verdict { return Accept })

	b.StopNonblocking()
	require.NoError(t, b.Start(20*time.Millisecond))
	assert.Equal(t, StateRunning, b.state)
	require.NoError(t, b.Stop())
}

func TestBindingFatalConsumerErrorEndsLoop(t *testing.T) {
	runner := new(MockCommandRunner)
	expectQueueRule(runner, "INPUT", "mangle", "8")

	fc := newFakeConsumer()
	b := NewBinding(runner, fc, 8, "INPUT", "mangle", func(Packet) Verdict { return Accept })

	require.NoError(t, b.Start(time.Second))
	fc.fatal <- errors.New("netlink receive: socket closed")

	select {
	case <-b.done:
	case <-time.After(time.Second):
		t.Fatal("processing loop did not exit on fatal error")
	}

	// Teardown still unwinds both setup steps.
	require.NoError(t, b.Stop())
	assert.Equal(t, 1, fc.unbindCount())
	runner.AssertExpectations(t)
}

func TestBindingDefaultsPollTimeout(t *testing.T) {
	runner := new(MockCommandRunner)
	expectQueueRule(runner, "INPUT", "mangle", "9")

	fc := newFakeConsumer()
	b := NewBinding(runner, fc, 9, "INPUT", "mangle", func(Packet) Verdict { return Accept })

	require.NoError(t, b.Start(0))
	assert.Equal(t, DefaultPollTimeout, b.timeout)

	// End the loop promptly instead of waiting out the default timeout.
	fc.fatal <- errors.New("done")
	require.NoError(t, b.Stop())
}
