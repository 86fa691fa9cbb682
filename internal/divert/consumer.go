package divert

import "time"

// Verdict decides the fate of a diverted packet.
type Verdict int

const (
	Accept Verdict = iota
	Drop
)

// Packet is one packet pulled from a kernel queue.
type Packet struct {
	ID      uint32
	Mark    uint32
	Payload []byte
}

// Callback is invoked once per diverted packet, synchronously and in kernel
// delivery order within one queue. The returned verdict releases the packet.
type Callback func(pkt Packet) Verdict

// Consumer is the kernel queue facility for a single queue number.
//
// Bind registers the callback against the queue number. Run performs one
// bounded dispatch pass: it blocks for at most timeout, returning nil on
// timeout expiry (the normal case, so the owner can re-check its stop flag)
// and an error only when the receive loop has failed terminally. Unbind
// releases the queue; it must not be called while Run is in flight.
type Consumer interface {
	Bind(qno uint16, cb Callback) error
	Run(timeout time.Duration) error
	Unbind() error
}

// NewConsumer returns the platform consumer: NFQUEUE on Linux, an
// unsupported-platform stub elsewhere.
func NewConsumer() Consumer {
	return newPlatformConsumer()
}
