//go:build !linux

package divert

import "fmt"

// Run is not available off Linux; the diversion rules are iptables-specific.
func (r *RealCommandRunner) Run(name string, args ...string) error {
	return fmt.Errorf("command execution not supported on this platform")
}

// Output is not available off Linux.
func (r *RealCommandRunner) Output(name string, args ...string) ([]byte, error) {
	return nil, fmt.Errorf("command execution not supported on this platform")
}
