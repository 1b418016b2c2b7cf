package devices

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinixos/tinix/internal/klog"
)

func newTestTable() (*Table, *bytes.Buffer) {
	var logBuf bytes.Buffer
	return NewTable(klog.New(&logBuf)), &logBuf
}

func alwaysAlive(int) bool { return true }

func TestGrantFreeDevice(t *testing.T) {
	tab, logBuf := newTestTable()

	granted, err := tab.Request(0, 1)
	require.NoError(t, err)
	assert.True(t, granted)
	assert.Contains(t, logBuf.String(), "[Dev] Granted dev=0 (disk) to pid=1")
	assert.Equal(t, []uint32{0}, tab.Held(1))
}

func TestRequestHeldDeviceQueues(t *testing.T) {
	tab, logBuf := newTestTable()

	_, err := tab.Request(0, 1)
	require.NoError(t, err)
	granted, err := tab.Request(0, 2)
	require.NoError(t, err)
	assert.False(t, granted)
	assert.Contains(t, logBuf.String(), "[Dev] Queued pid=2 for dev=0 (disk), owner=1")

	// Re-requesting an owned device is a harmless no-op.
	granted, err = tab.Request(0, 1)
	require.NoError(t, err)
	assert.True(t, granted)
}

func TestReleaseReassignsFIFO(t *testing.T) {
	tab, logBuf := newTestTable()

	tab.Request(0, 1)
	tab.Request(0, 2)
	tab.Request(0, 3)

	woken, err := tab.Release(0, 1, alwaysAlive)
	require.NoError(t, err)
	assert.Equal(t, 2, woken)

	logs := logBuf.String()
	assert.Contains(t, logs, "[Dev] Released dev=0 (disk) by pid=1, reassigned to pid=2")
	assert.Contains(t, logs, "[Dev] Wakeup pid=2 for dev=0")

	woken, err = tab.Release(0, 2, alwaysAlive)
	require.NoError(t, err)
	assert.Equal(t, 3, woken)

	woken, err = tab.Release(0, 3, alwaysAlive)
	require.NoError(t, err)
	assert.Equal(t, NoOwner, woken)
	assert.Contains(t, logBuf.String(), "[Dev] Released dev=0 (disk) by pid=3")
}

func TestReleaseSkipsDeadWaiters(t *testing.T) {
	tab, _ := newTestTable()

	tab.Request(0, 1)
	tab.Request(0, 2)
	tab.Request(0, 3)

	woken, err := tab.Release(0, 1, func(pid int) bool { return pid != 2 })
	require.NoError(t, err)
	assert.Equal(t, 3, woken)
}

func TestReleaseByNonOwnerFails(t *testing.T) {
	tab, _ := newTestTable()

	tab.Request(0, 1)
	_, err := tab.Release(0, 2, alwaysAlive)
	assert.Error(t, err)

	_, err = tab.Release(9, 1, alwaysAlive)
	assert.Error(t, err)
}

func TestReleaseAllCascades(t *testing.T) {
	tab, _ := newTestTable()

	tab.Request(0, 1)
	tab.Request(1, 1)
	tab.Request(0, 2)

	var woken []int
	tab.ReleaseAll(1, alwaysAlive, func(pid int) { woken = append(woken, pid) })

	assert.Equal(t, []int{2}, woken)
	assert.Empty(t, tab.Held(1))
	assert.Equal(t, []uint32{0}, tab.Held(2))
}

func TestDumpFormat(t *testing.T) {
	tab, logBuf := newTestTable()

	tab.Request(0, 4)
	tab.Request(0, 5)
	tab.Request(0, 6)
	logBuf.Reset()

	tab.Dump()
	logs := logBuf.String()
	assert.Contains(t, logs, "dev=0 name=disk owner=4 wait=[5,6]")
	assert.Contains(t, logs, "dev=1 name=printer owner=free wait=[]")
	assert.Contains(t, logs, "dev=2 name=tty owner=free wait=[]")
}
