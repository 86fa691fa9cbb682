package netutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const procNetDevFixture = `Inter-|   Receive                                                |  Transmit
 face |bytes    packets errs drop fifo frame compressed multicast|bytes    packets errs drop fifo colls carrier compressed
    lo: 1724460   18742    0    0    0     0          0         0  1724460   18742    0    0    0     0       0          0
  eth0: 50342112   48213    0    0    0     0          0       312  4821733   31245    0    0    0     0       0          0
wlan0:  823411    6211    0    0    0     0          0        14   412230    4182    0    0    0     0       0          0
`

func TestProcInterfaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dev")
	require.NoError(t, os.WriteFile(path, []byte(procNetDevFixture), 0o644))

	names, err := ProcInterfaces(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"lo", "eth0", "wlan0"}, names)
}

func TestProcInterfacesMissingFile(t *testing.T) {
	_, err := ProcInterfaces(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestInterfacesReturnsSomething(t *testing.T) {
	names, err := Interfaces()
	if err != nil {
		t.Skipf("interface enumeration unavailable: %v", err)
	}
	assert.NotEmpty(t, names)
}
