package netutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resolvConfFixture = `# managed by test
nameserver 10.0.0.53
nameserver 10.0.1.53
search example.test
`

func TestResolvConfSwapAndRestore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolv.conf")
	require.NoError(t, os.WriteFile(path, []byte(resolvConfFixture), 0o644))

	rc := NewResolvConf(path)
	require.NoError(t, rc.PointToLocalhost())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "nameserver 127.0.0.1\n", string(data))

	require.NoError(t, rc.Restore())
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, resolvConfFixture, string(data))
}

func TestResolvConfRestoreWithoutSwapIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolv.conf")
	require.NoError(t, os.WriteFile(path, []byte(resolvConfFixture), 0o644))

	rc := NewResolvConf(path)
	require.NoError(t, rc.Restore())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, resolvConfFixture, string(data))
}

func TestResolvConfMissingFileLeavesNothingToRestore(t *testing.T) {
	rc := NewResolvConf(filepath.Join(t.TempDir(), "absent"))
	require.Error(t, rc.PointToLocalhost())
	require.NoError(t, rc.Restore())
}

func TestResolvConfDefaultPath(t *testing.T) {
	assert.Equal(t, DefaultResolvConfPath, NewResolvConf("").Path)
}
