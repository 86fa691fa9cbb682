//go:build linux

package divert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/florianl/go-nfqueue/v2"
	"github.com/mdlayher/netlink"
	"golang.org/x/sys/unix"

	"grimm.is/shunt/internal/logging"
	"grimm.is/shunt/internal/metrics"
)

const (
	nfMaxPacketLen = 0xffff
	nfMaxQueueLen  = 1024
)

// nfqueueConsumer is the production Consumer over NFQUEUE. The underlying
// library reads the netlink socket on its own goroutine once registered, so
// Run reduces to a bounded wait for that loop to fail; the owning binding
// uses the bound to re-check its stop flag.
type nfqueueConsumer struct {
	queue  *nfqueue.Nfqueue
	qno    uint16
	cb     Callback
	cancel context.CancelFunc
	fatal  chan error
	log    *logging.Logger
}

func newPlatformConsumer() Consumer {
	return &nfqueueConsumer{log: logging.WithComponent("nfqueue")}
}

// Bind opens the queue and registers the callback. Either the open or the
// registration failing is a bind failure; nothing is left half-attached.
func (c *nfqueueConsumer) Bind(qno uint16, cb Callback) error {
	cfg := &nfqueue.Config{
		NfQueue:      qno,
		MaxPacketLen: nfMaxPacketLen,
		MaxQueueLen:  nfMaxQueueLen,
		Copymode:     nfqueue.NfQnlCopyPacket,
	}

	nf, err := nfqueue.Open(cfg)
	if err != nil {
		return fmt.Errorf("open nfqueue %d: %w", qno, err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	c.queue = nf
	c.qno = qno
	c.cb = cb
	c.cancel = cancel
	c.fatal = make(chan error, 1)

	if err := nf.RegisterWithErrorFunc(ctx, c.packetHook, c.errorHook); err != nil {
		cancel()
		if cerr := nf.Close(); cerr != nil {
			c.log.Warn("failed to close nfqueue after registration failure",
				"queue", qno, "error", cerr)
		}
		c.queue = nil
		return fmt.Errorf("register nfqueue %d callback: %w", qno, err)
	}
	return nil
}

// Run blocks for at most timeout. Timeout expiry is the normal case and
// returns nil; a non-nil return means the receive loop has terminated.
func (c *nfqueueConsumer) Run(timeout time.Duration) error {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case err := <-c.fatal:
		return err
	}
}

// Unbind cancels the receive loop and closes the queue. The owner guarantees
// no Run call is in flight.
func (c *nfqueueConsumer) Unbind() error {
	if c.queue == nil {
		return nil
	}
	c.cancel()
	err := c.queue.Close()
	c.queue = nil
	if err != nil {
		return fmt.Errorf("close nfqueue %d: %w", c.qno, err)
	}
	return nil
}

func (c *nfqueueConsumer) packetHook(attrs nfqueue.Attribute) int {
	if attrs.PacketID == nil {
		return 0
	}
	id := *attrs.PacketID

	pkt := Packet{ID: id}
	if attrs.Payload != nil {
		pkt.Payload = *attrs.Payload
	}
	if attrs.Mark != nil {
		pkt.Mark = *attrs.Mark
	}

	label := metrics.QueueLabel(c.qno)
	metrics.Get().PacketsDiverted.WithLabelValues(label).Inc()

	verdict := nfqueue.NfAccept
	if c.cb(pkt) == Drop {
		verdict = nfqueue.NfDrop
		metrics.Get().PacketsDropped.WithLabelValues(label).Inc()
	}

	if err := c.queue.SetVerdict(id, verdict); err != nil {
		metrics.Get().VerdictErrors.WithLabelValues(label).Inc()
		c.log.Error("failed to set verdict", "queue", c.qno, "packet", id, "error", err)
	}
	return 0
}

// errorHook filters the timeout and temporary read errors the socket
// generates in normal operation; anything else terminates the receive loop
// and surfaces through Run.
func (c *nfqueueConsumer) errorHook(err error) int {
	var opErr *netlink.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() || opErr.Temporary() {
			return 0
		}
	}
	if errors.Is(err, unix.ENOBUFS) {
		// Queue overflow drops packets but leaves the socket usable.
		c.log.Warn("nfqueue buffer overrun", "queue", c.qno)
		return 0
	}

	select {
	case c.fatal <- err:
	default:
	}
	return 1
}
