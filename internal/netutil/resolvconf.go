package netutil

import (
	"fmt"
	"os"
	"strings"

	"github.com/miekg/dns"

	"grimm.is/shunt/internal/logging"
)

// DefaultResolvConfPath is where libc resolvers look for nameservers.
const DefaultResolvConfPath = "/etc/resolv.conf"

// ResolvConf swaps the system resolver configuration to point at the local
// host and restores the original on teardown. The original bytes are kept in
// memory, not in a sidecar file, so a crashed process loses the backup; the
// caller is expected to pair PointToLocalhost with a deferred Restore.
type ResolvConf struct {
	Path string

	saved []byte
	log   *logging.Logger
}

// NewResolvConf returns a swapper for the given path, or the system default
// when path is empty.
func NewResolvConf(path string) *ResolvConf {
	if path == "" {
		path = DefaultResolvConfPath
	}
	return &ResolvConf{
		Path: path,
		log:  logging.WithComponent("netutil"),
	}
}

// PointToLocalhost saves the current resolver configuration and rewrites it
// to name 127.0.0.1 as the only nameserver. The displaced nameservers are
// logged so an operator can see what DNS traffic is being pulled in.
func (r *ResolvConf) PointToLocalhost() error {
	data, err := os.ReadFile(r.Path)
	if err != nil {
		r.log.Error("cannot read resolver configuration, leaving it unchanged",
			"path", r.Path, "error", err)
		return fmt.Errorf("read %s: %w", r.Path, err)
	}

	if cfg, err := dns.ClientConfigFromFile(r.Path); err == nil && len(cfg.Servers) > 0 {
		r.log.Info("displacing nameservers with 127.0.0.1",
			"path", r.Path, "nameservers", strings.Join(cfg.Servers, ","))
	}

	stat, err := os.Stat(r.Path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", r.Path, err)
	}
	if err := os.WriteFile(r.Path, []byte("nameserver 127.0.0.1\n"), stat.Mode().Perm()); err != nil {
		return fmt.Errorf("write %s: %w", r.Path, err)
	}

	r.saved = data
	return nil
}

// Restore writes back the configuration saved by PointToLocalhost. A no-op
// when nothing was saved.
func (r *ResolvConf) Restore() error {
	if r.saved == nil {
		return nil
	}
	if err := os.WriteFile(r.Path, r.saved, 0o644); err != nil {
		return fmt.Errorf("restore %s: %w", r.Path, err)
	}
	r.log.Info("restored resolver configuration", "path", r.Path)
	r.saved = nil
	return nil
}
