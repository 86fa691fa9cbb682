//go:build !linux

package divert

import (
	"errors"
	"time"
)

var errUnsupported = errors.New("packet queues are only supported on linux")

// stubConsumer satisfies Consumer on platforms without NFQUEUE.
type stubConsumer struct{}

func newPlatformConsumer() Consumer {
	return stubConsumer{}
}

func (stubConsumer) Bind(qno uint16, cb Callback) error { return errUnsupported }
func (stubConsumer) Run(timeout time.Duration) error    { return errUnsupported }
func (stubConsumer) Unbind() error                      { return nil }
