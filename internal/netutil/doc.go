// Package netutil holds the host-introspection helpers the diversion layer
// leans on: interface enumeration, resolv.conf swapping, procfs process and
// socket-inode lookups, and a one-line packet describer for logging.
//
// Everything that reads the filesystem takes or exposes an overridable path
// so tests can point it at fixtures instead of a live /proc.
package netutil
