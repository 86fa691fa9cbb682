package divert

import (
	"os"
	"strconv"
	"strings"

	"grimm.is/shunt/internal/logging"
)

// NfnetlinkQueuePath is the kernel's accounting of currently bound queue
// numbers: one record per line, queue number in the first whitespace-delimited
// field.
const NfnetlinkQueuePath = "/proc/net/netfilter/nfnetlink_queue"

// MaxQueueNum is the largest valid queue number; queue numbers are u16.
const MaxQueueNum = 0xffff

// Allocator hands out queue numbers not currently bound on the host. It holds
// no reservations: a number reported free can be claimed by another process
// before the caller binds it, which then surfaces as an ordinary bind
// failure. iptables rules naming still-unbound queue numbers are not visible
// here; the netlink accounting is the only supported observation point.
type Allocator struct {
	// ProcPath is the accounting file to read; overridable for tests and
	// nonstandard procfs mounts.
	ProcPath string

	log *logging.Logger
}

// NewAllocator returns an allocator reading the default procfs path.
func NewAllocator() *Allocator {
	return &Allocator{
		ProcPath: NfnetlinkQueuePath,
		log:      logging.WithComponent("divert"),
	}
}

// Claimed returns the queue numbers currently bound by consumer processes on
// this host, read fresh from the kernel accounting file. An unreadable file
// (feature unsupported, permissions) is non-fatal: one warning is logged and
// the empty set returned, letting the caller proceed as if no queues are in
// use. A stale claim only costs a later bind failure, which is handled
// anyway; refusing to allocate would stall the whole subsystem.
func (a *Allocator) Claimed() map[uint16]bool {
	claimed := make(map[uint16]bool)

	data, err := os.ReadFile(a.ProcPath)
	if err != nil {
		a.log.Warn("cannot enumerate bound netfilter queues, proceeding as if none are in use",
			"path", a.ProcPath, "error", err)
		return claimed
	}

	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		n, err := strconv.ParseUint(fields[0], 10, 16)
		if err != nil {
			continue
		}
		a.log.Debug("found bound queue", "queue", n, "path", a.ProcPath)
		claimed[uint16(n)] = true
	}
	return claimed
}

// NextFree returns the first n unclaimed queue numbers in ascending order.
// The result is shorter than n only when the 16-bit range is exhausted;
// callers must check the length.
func (a *Allocator) NextFree(n int) []uint16 {
	claimed := a.Claimed()

	free := make([]uint16, 0, n)
	for qno := 0; qno <= MaxQueueNum && len(free) < n; qno++ {
		if !claimed[uint16(qno)] {
			free = append(free, uint16(qno))
		}
	}
	return free
}
