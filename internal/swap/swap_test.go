package swap

import (
	"bytes"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinixos/tinix/internal/device"
	"github.com/tinixos/tinix/internal/klog"
	"github.com/tinixos/tinix/internal/types"
)

const (
	testBlocks    = 64
	testBlockSize = 0x1000
	testSwapStart = 48
)

func newTestArea(t *testing.T) (*Area, *bytes.Buffer) {
	t.Helper()
	var logBuf bytes.Buffer
	log := klog.New(&logBuf)
	disk, err := device.Open(afero.NewMemMapFs(), "disk.img", testBlocks, testBlockSize, log)
	require.NoError(t, err)
	t.Cleanup(func() { disk.Close() })
	return New(disk, testSwapStart, log), &logBuf
}

func TestAllocLowestFirst(t *testing.T) {
	a, _ := newTestArea(t)

	s1, err := a.Alloc()
	require.NoError(t, err)
	assert.Equal(t, uint32(testSwapStart), s1)

	s2, err := a.Alloc()
	require.NoError(t, err)
	assert.Equal(t, uint32(testSwapStart+1), s2)

	// Freeing the lower slot makes it the next allocation again.
	a.Free(s1)
	s3, err := a.Alloc()
	require.NoError(t, err)
	assert.Equal(t, s1, s3)
}

func TestAllocExhaustion(t *testing.T) {
	a, _ := newTestArea(t)

	total := testBlocks - testSwapStart
	for i := 0; i < total; i++ {
		_, err := a.Alloc()
		require.NoError(t, err)
	}
	assert.Zero(t, a.FreeSlots())

	_, err := a.Alloc()
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrOutOfMemoryAndSwap))
}

func TestSlotRoundTripAndLogs(t *testing.T) {
	a, logBuf := newTestArea(t)

	slot, err := a.Alloc()
	require.NoError(t, err)

	page := bytes.Repeat([]byte{0xAB}, testBlockSize)
	require.NoError(t, a.WriteSlot(slot, 7, 3, page))

	got := make([]byte, testBlockSize)
	require.NoError(t, a.ReadSlot(slot, 7, 3, got))
	assert.Equal(t, page, got)

	logs := logBuf.String()
	assert.Contains(t, logs, "[Swap] Writing PID=7 VPage=3 to Disk Block 48")
	assert.Contains(t, logs, "[Swap] Reading PID=7 VPage=3 from Disk Block 48")

	// Every swap log names a block at or above the partition boundary.
	re := regexp.MustCompile(`Disk Block (\d+)`)
	for _, line := range strings.Split(logs, "\n") {
		if !strings.Contains(line, "[Swap]") {
			continue
		}
		m := re.FindStringSubmatch(line)
		require.NotNil(t, m, "swap log without a disk block: %s", line)
		n, err := strconv.Atoi(m[1])
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, testSwapStart)
	}
}

func TestRejectsFSRegionBlocks(t *testing.T) {
	a, _ := newTestArea(t)

	page := make([]byte, testBlockSize)
	assert.Error(t, a.WriteSlot(testSwapStart-1, 1, 0, page))
	assert.Error(t, a.ReadSlot(testSwapStart-1, 1, 0, page))
}

func TestFreeIgnoresOutOfRange(t *testing.T) {
	a, _ := newTestArea(t)
	before := a.FreeSlots()
	a.Free(0)
	a.Free(testBlocks + 5)
	assert.Equal(t, before, a.FreeSlots())
}
