// File: internal/devices/devices.go

// Package devices implements the non-preemptible device arbiter: a small
// fixed set of named devices, each with one owner and a FIFO wait queue.
package devices

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tinixos/tinix/internal/klog"
	"github.com/tinixos/tinix/internal/types"
)

// NoOwner marks a free device.
const NoOwner = -1

// Device is one arbitrated resource.
type Device struct {
	ID    uint32
	Name  string
	Owner int
	Queue []int
}

// Table arbitrates the fixed device set: 0 disk, 1 printer, 2 tty.
type Table struct {
	devs []*Device
	log  *klog.Log
}

// NewTable builds the standard device set.
func NewTable(log *klog.Log) *Table {
	names := []string{"disk", "printer", "tty"}
	t := &Table{log: log}
	for i, name := range names {
		t.devs = append(t.devs, &Device{ID: uint32(i), Name: name, Owner: NoOwner})
	}
	return t
}

func (t *Table) get(id uint32) (*Device, error) {
	if id >= uint32(len(t.devs)) {
		return nil, fmt.Errorf("%w: dev=%d", types.ErrNoSuchDevice, id)
	}
	return t.devs[id], nil
}

// Request asks for device id on behalf of pid. Returns granted=true when
// pid now owns the device; otherwise pid was appended to the FIFO queue
// and must block until a release reassigns the device to it.
func (t *Table) Request(id uint32, pid int) (granted bool, err error) {
	d, err := t.get(id)
	if err != nil {
		return false, err
	}

	if d.Owner == pid {
		return true, nil
	}
	if d.Owner == NoOwner {
		d.Owner = pid
		t.log.DevGranted(d.ID, d.Name, pid)
		return true, nil
	}

	t.log.DevQueued(pid, d.ID, d.Name, d.Owner)
	d.Queue = append(d.Queue, pid)
	return false, nil
}

// Release frees device id held by pid. When waiters are queued the head
// is granted ownership immediately and returned so the scheduler can
// mark it ready; otherwise woken is NoOwner. alive filters out waiters
// that terminated while queued.
func (t *Table) Release(id uint32, pid int, alive func(int) bool) (woken int, err error) {
	d, err := t.get(id)
	if err != nil {
		return NoOwner, err
	}
	if d.Owner != pid {
		return NoOwner, fmt.Errorf("dev=%d (%s) not held by pid=%d", d.ID, d.Name, pid)
	}

	d.Owner = NoOwner
	for len(d.Queue) > 0 {
		next := d.Queue[0]
		d.Queue = d.Queue[1:]
		if alive != nil && !alive(next) {
			continue
		}
		d.Owner = next
		t.log.DevReassigned(d.ID, d.Name, pid, next)
		t.log.DevWakeup(next, d.ID)
		return next, nil
	}

	t.log.DevReleased(d.ID, d.Name, pid)
	return NoOwner, nil
}

// ReleaseAll releases every device pid holds, cascading wake-ups through
// the wait queues. Each woken PID is reported through wake.
func (t *Table) ReleaseAll(pid int, alive func(int) bool, wake func(int)) {
	for _, d := range t.devs {
		if d.Owner != pid {
			continue
		}
		woken, err := t.Release(d.ID, pid, alive)
		if err != nil {
			continue
		}
		if woken != NoOwner && wake != nil {
			wake(woken)
		}
	}
}

// Held lists the devices currently owned by pid.
func (t *Table) Held(pid int) []uint32 {
	var out []uint32
	for _, d := range t.devs {
		if d.Owner == pid {
			out = append(out, d.ID)
		}
	}
	return out
}

// Dump prints one status line per device to the kernel log stream.
func (t *Table) Dump() {
	for _, d := range t.devs {
		owner := "free"
		if d.Owner != NoOwner {
			owner = strconv.Itoa(d.Owner)
		}
		waiters := make([]string, len(d.Queue))
		for i, w := range d.Queue {
			waiters[i] = strconv.Itoa(w)
		}
		t.log.DevStatus(d.ID, d.Name, owner, strings.Join(waiters, ","))
	}
}
