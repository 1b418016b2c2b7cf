// File: internal/swap/swap.go

// Package swap manages the swap region: the reserved blocks at the top
// of the disk, each holding exactly one evicted page. The file system
// never allocates up here and the swap area never reaches below its
// first block.
package swap

import (
	"fmt"

	"github.com/tinixos/tinix/internal/interfaces"
	"github.com/tinixos/tinix/internal/klog"
	"github.com/tinixos/tinix/internal/types"
)

// Area is the slot pool over disk blocks [start, start+count).
type Area struct {
	dev   interfaces.BlockDevice
	log   *klog.Log
	start uint32
	used  []bool
}

// New builds the swap area covering blocks [start, dev.NumBlocks()).
func New(dev interfaces.BlockDevice, start uint32, log *klog.Log) *Area {
	return &Area{
		dev:   dev,
		log:   log,
		start: start,
		used:  make([]bool, dev.NumBlocks()-start),
	}
}

// Start returns the first disk block of the swap region.
func (a *Area) Start() uint32 { return a.start }

// FreeSlots returns the number of unallocated slots.
func (a *Area) FreeSlots() uint32 {
	n := uint32(0)
	for _, u := range a.used {
		if !u {
			n++
		}
	}
	return n
}

// Alloc reserves the lowest free slot and returns its disk block index.
func (a *Area) Alloc() (uint32, error) {
	for i, u := range a.used {
		if !u {
			a.used[i] = true
			return a.start + uint32(i), nil
		}
	}
	return types.InvalidBlock, types.ErrOutOfMemoryAndSwap
}

// Free releases a slot by disk block index.
func (a *Area) Free(block uint32) {
	if block < a.start || block >= a.start+uint32(len(a.used)) {
		return
	}
	a.used[block-a.start] = false
}

// WriteSlot stores one page into a slot and logs the transfer.
func (a *Area) WriteSlot(block uint32, pid int, vpage uint32, page []byte) error {
	if block < a.start {
		return fmt.Errorf("swap write below partition: block %d", block)
	}
	a.log.SwapWrite(pid, vpage, block)
	if err := a.dev.WriteBlock(block, page); err != nil {
		return fmt.Errorf("swap write: %w", err)
	}
	return nil
}

// ReadSlot loads one page from a slot and logs the transfer.
func (a *Area) ReadSlot(block uint32, pid int, vpage uint32, page []byte) error {
	if block < a.start {
		return fmt.Errorf("swap read below partition: block %d", block)
	}
	a.log.SwapRead(pid, vpage, block)
	if err := a.dev.ReadBlock(block, page); err != nil {
		return fmt.Errorf("swap read: %w", err)
	}
	return nil
}
