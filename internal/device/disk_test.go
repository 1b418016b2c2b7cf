package device

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinixos/tinix/internal/klog"
)

const (
	testBlocks    = 16
	testBlockSize = 512
)

func TestOpenCreatesZeroFilledImage(t *testing.T) {
	fsys := afero.NewMemMapFs()
	var logBuf bytes.Buffer

	d, err := Open(fsys, "disk.img", testBlocks, testBlockSize, klog.New(&logBuf))
	require.NoError(t, err)
	defer d.Close()

	info, err := fsys.Stat("disk.img")
	require.NoError(t, err)
	assert.Equal(t, int64(testBlocks*testBlockSize), info.Size())

	buf := make([]byte, testBlockSize)
	require.NoError(t, d.ReadBlock(testBlocks-1, buf))
	assert.Equal(t, make([]byte, testBlockSize), buf)

	logs := logBuf.String()
	assert.Contains(t, logs, "[Disk] Creating new disk image: disk.img")
	assert.Contains(t, logs, "[Disk] Opening disk image: disk.img")
}

func TestOpenReusesExistingImage(t *testing.T) {
	fsys := afero.NewMemMapFs()
	var logBuf bytes.Buffer
	log := klog.New(&logBuf)

	d, err := Open(fsys, "disk.img", testBlocks, testBlockSize, log)
	require.NoError(t, err)

	payload := bytes.Repeat([]byte{0x5A}, testBlockSize)
	require.NoError(t, d.WriteBlock(3, payload))
	require.NoError(t, d.Close())

	logBuf.Reset()
	d2, err := Open(fsys, "disk.img", testBlocks, testBlockSize, log)
	require.NoError(t, err)
	defer d2.Close()

	buf := make([]byte, testBlockSize)
	require.NoError(t, d2.ReadBlock(3, buf))
	assert.Equal(t, payload, buf)
	assert.NotContains(t, logBuf.String(), "Creating new disk image")
}

func TestBlockRoundTrip(t *testing.T) {
	d, err := Open(afero.NewMemMapFs(), "disk.img", testBlocks, testBlockSize, klog.New(&bytes.Buffer{}))
	require.NoError(t, err)
	defer d.Close()

	for _, idx := range []uint32{0, 7, testBlocks - 1} {
		out := bytes.Repeat([]byte{byte(idx + 1)}, testBlockSize)
		require.NoError(t, d.WriteBlock(idx, out))
		in := make([]byte, testBlockSize)
		require.NoError(t, d.ReadBlock(idx, in))
		assert.Equal(t, out, in)
	}
}

func TestOutOfRangeAndBadBuffer(t *testing.T) {
	d, err := Open(afero.NewMemMapFs(), "disk.img", testBlocks, testBlockSize, klog.New(&bytes.Buffer{}))
	require.NoError(t, err)
	defer d.Close()

	buf := make([]byte, testBlockSize)
	assert.Error(t, d.ReadBlock(testBlocks, buf))
	assert.Error(t, d.WriteBlock(testBlocks, buf))
	assert.Error(t, d.ReadBlock(0, make([]byte, 10)))
	assert.Error(t, d.WriteBlock(0, make([]byte, 10)))
}

func TestGeometryAccessors(t *testing.T) {
	d, err := Open(afero.NewMemMapFs(), "disk.img", testBlocks, testBlockSize, klog.New(&bytes.Buffer{}))
	require.NoError(t, err)
	defer d.Close()

	assert.Equal(t, uint32(testBlocks), d.NumBlocks())
	assert.Equal(t, uint32(testBlockSize), d.BlockSize())
}
