//go:build linux

package netutil

import (
	"github.com/vishvananda/netlink"
)

func platformInterfaces() ([]string, error) {
	links, err := netlink.LinkList()
	if err != nil {
		// Netlink can be unavailable in minimal containers; the procfs
		// view carries the same names.
		return ProcInterfaces(ProcNetDevPath)
	}

	names := make([]string, 0, len(links))
	for _, link := range links {
		names = append(names, link.Attrs().Name)
	}
	return names, nil
}
