package netutil

import (
	"fmt"
	"os"
	"strings"
)

// ProcNetDevPath is the kernel's per-interface statistics file, used as the
// interface enumeration fallback when netlink is unavailable.
const ProcNetDevPath = "/proc/net/dev"

// Interfaces returns the names of the host's network interfaces. On Linux it
// asks netlink and falls back to parsing /proc/net/dev; elsewhere it uses the
// portable stdlib enumeration.
func Interfaces() ([]string, error) {
	return platformInterfaces()
}

// ProcInterfaces parses interface names out of a /proc/net/dev style file:
// two header lines, then one "  name: counters..." line per interface.
func ProcInterfaces(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var names []string
	for _, line := range strings.Split(string(data), "\n") {
		name, _, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" || strings.ContainsAny(name, " \t") {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}
