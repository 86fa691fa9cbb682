package netutil

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// ProcRoot is the procfs mount to scan; a variable so tests can point it at
// a fixture tree.
var ProcRoot = "/proc"

var socketLinkRE = regexp.MustCompile(`^socket:\[([0-9]+)\]$`)

// SocketInodes is one process's open socket inodes.
type SocketInodes struct {
	PID    int
	Inodes []uint64
}

// FindProcesses returns the PIDs whose comm matches name exactly. Processes
// that disappear mid-scan are skipped without error.
func FindProcesses(name string) ([]int, error) {
	entries, err := os.ReadDir(ProcRoot)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ProcRoot, err)
	}

	var pids []int
	for _, entry := range entries {
		pid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}
		comm, err := os.ReadFile(filepath.Join(ProcRoot, entry.Name(), "comm"))
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(comm)) == name {
			pids = append(pids, pid)
		}
	}
	return pids, nil
}

// ProcessSocketInodes collects the socket inodes held open by every process
// whose comm matches name. When inodeSought is nonzero and found, the scan
// stops early and the second return is true.
func ProcessSocketInodes(name string, inodeSought uint64) ([]SocketInodes, bool, error) {
	pids, err := FindProcesses(name)
	if err != nil {
		return nil, false, err
	}

	var result []SocketInodes
	for _, pid := range pids {
		fdDir := filepath.Join(ProcRoot, strconv.Itoa(pid), "fd")
		fds, err := os.ReadDir(fdDir)
		if err != nil {
			// Reading another process's fd table needs privilege; treat a
			// refusal like a vanished process.
			continue
		}

		inodes := SocketInodes{PID: pid}
		for _, fd := range fds {
			target, err := os.Readlink(filepath.Join(fdDir, fd.Name()))
			if err != nil {
				continue
			}
			m := socketLinkRE.FindStringSubmatch(target)
			if m == nil {
				continue
			}
			inode, err := strconv.ParseUint(m[1], 10, 64)
			if err != nil {
				continue
			}
			inodes.Inodes = append(inodes.Inodes, inode)
			if inodeSought != 0 && inode == inodeSought {
				result = append(result, inodes)
				return result, true, nil
			}
		}
		if len(inodes.Inodes) > 0 {
			result = append(result, inodes)
		}
	}
	return result, false, nil
}
