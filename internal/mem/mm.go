// File: internal/mem/mm.go

// Package mem implements the paged virtual memory manager: a global
// frame table, per-process page tables, demand paging with a clock
// replacement policy, and swap-backed eviction of dirty pages.
package mem

import (
	"fmt"

	"github.com/tinixos/tinix/internal/interfaces"
	"github.com/tinixos/tinix/internal/klog"
	"github.com/tinixos/tinix/internal/swap"
	"github.com/tinixos/tinix/internal/types"
)

// Stats counts accesses and faults, globally or per process.
type Stats struct {
	MemoryAccesses uint64
	PageFaults     uint64
}

// Manager owns physical frames and drives every page fault. Page tables
// are registered per PID; eviction victims are selected globally, so a
// fault in one process may push out another process's page.
type Manager struct {
	frames   *FrameTable
	tables   map[int]*PageTable
	swap     *swap.Area
	policy   interfaces.ReplacementPolicy
	log      *klog.Log
	pageSize uint32
	memory   []byte // frame-indexed backing bytes

	stats     Stats
	procStats map[int]*Stats
}

// NewManager builds a memory manager with numFrames frames of pageSize
// bytes, swapping to sw.
func NewManager(numFrames, pageSize uint32, sw *swap.Area, log *klog.Log) *Manager {
	m := &Manager{
		frames:    NewFrameTable(numFrames),
		tables:    make(map[int]*PageTable),
		swap:      sw,
		log:       log,
		pageSize:  pageSize,
		memory:    make([]byte, uint64(numFrames)*uint64(pageSize)),
		procStats: make(map[int]*Stats),
	}
	m.policy = newClockPolicy(numFrames, m.frameReferenced, m.frameClearRef)
	return m
}

func (m *Manager) frameEntry(f uint32) *PageTableEntry {
	info := m.frames.Get(f)
	pt, ok := m.tables[info.PID]
	if !ok {
		return nil
	}
	return pt.Entry(info.VPage)
}

func (m *Manager) frameReferenced(f uint32) bool {
	if e := m.frameEntry(f); e != nil {
		return e.Referenced
	}
	return false
}

func (m *Manager) frameClearRef(f uint32) {
	if e := m.frameEntry(f); e != nil {
		e.Referenced = false
	}
}

// CreateProcess registers a fresh page table for pid.
func (m *Manager) CreateProcess(pid int, numPages uint32) {
	m.tables[pid] = NewPageTable(numPages)
	m.procStats[pid] = &Stats{}
	m.log.MemPageTableCreated(pid, numPages)
}

// FreeProcess tears down pid's memory: every resident frame and every
// owned swap slot is released.
func (m *Manager) FreeProcess(pid int) error {
	pt, ok := m.tables[pid]
	if !ok {
		return fmt.Errorf("%w: no page table for PID %d", types.ErrNoSuchProcess, pid)
	}

	for i := uint32(0); i < pt.Len(); i++ {
		e := pt.Entry(i)
		switch e.State {
		case PageResident:
			m.frames.Free(e.Frame)
		case PageSwapped:
			m.swap.Free(e.Slot)
		}
	}

	delete(m.tables, pid)
	delete(m.procStats, pid)
	m.log.MemFreed(pid)
	return nil
}

// Access performs one read or write at vaddr on behalf of pid,
// resolving a page fault within the call if needed.
func (m *Manager) Access(pid int, vaddr uint64, kind types.AccessType) error {
	pt, ok := m.tables[pid]
	if !ok {
		return fmt.Errorf("%w: no page table for PID %d", types.ErrNoSuchProcess, pid)
	}

	vpage := uint32(vaddr / uint64(m.pageSize))
	offset := uint32(vaddr % uint64(m.pageSize))

	if vpage >= pt.Len() {
		m.log.MemInvalidAddress(vpage)
		return fmt.Errorf("address 0x%x out of range for PID %d", vaddr, pid)
	}

	m.stats.MemoryAccesses++
	if s := m.procStats[pid]; s != nil {
		s.MemoryAccesses++
	}

	entry := pt.Entry(vpage)
	if entry.State != PageResident {
		m.stats.PageFaults++
		if s := m.procStats[pid]; s != nil {
			s.PageFaults++
		}
		m.log.PageFault(pid, vpage, vaddr)
		if err := m.handleFault(pid, vpage, kind); err != nil {
			return err
		}
	}

	entry.Referenced = true
	if kind == types.AccessWrite {
		entry.Dirty = true
	}
	m.policy.OnAccess(entry.Frame)

	paddr := uint64(entry.Frame)*uint64(m.pageSize) + uint64(offset)
	m.log.MemAccess(pid, vaddr, paddr, entry.Frame)
	return nil
}

// handleFault brings (pid, vpage) into a frame: a free frame when one
// exists, otherwise the policy's global victim. Eviction of a dirty
// victim writes it to a freshly allocated swap slot; a clean victim
// with no backing slot simply unmaps. The eviction log precedes the
// allocation log, always.
func (m *Manager) handleFault(pid int, vpage uint32, kind types.AccessType) error {
	pt := m.tables[pid]
	entry := pt.Entry(vpage)

	frame, ok := m.frames.AllocFree(pid, vpage)
	if !ok {
		victim := m.policy.SelectVictim()
		if err := m.evict(victim, pid); err != nil {
			return err
		}
		m.frames.Assign(victim, pid, vpage)
		frame = victim
	}

	if entry.State == PageSwapped {
		page := m.framePage(frame)
		if err := m.swap.ReadSlot(entry.Slot, pid, vpage, page); err != nil {
			return err
		}
		m.swap.Free(entry.Slot)
	}

	entry.State = PageResident
	entry.Frame = frame
	entry.Slot = types.InvalidBlock
	entry.Referenced = true
	entry.Dirty = kind == types.AccessWrite

	m.log.PageFaultAllocated(frame, pid, vpage)
	return nil
}

// evict pushes the occupant of frame out of memory. faultingPID is the
// process whose fault forced the eviction; it alone dies if the swap
// region is exhausted.
func (m *Manager) evict(frame uint32, faultingPID int) error {
	info := m.frames.Get(frame)
	if !info.Allocated {
		return fmt.Errorf("eviction selected free frame %d", frame)
	}
	victim := m.frameEntry(frame)
	if victim == nil {
		return fmt.Errorf("frame %d owner PID %d has no page table", frame, info.PID)
	}

	m.log.Evict(frame, info.PID, info.VPage)

	switch {
	case victim.Dirty:
		slot, err := m.swap.Alloc()
		if err != nil {
			m.log.SwapExhausted(faultingPID)
			return fmt.Errorf("evicting frame %d: %w", frame, err)
		}
		if err := m.swap.WriteSlot(slot, info.PID, info.VPage, m.framePage(frame)); err != nil {
			return err
		}
		victim.State = PageSwapped
		victim.Slot = slot
	case victim.Slot != types.InvalidBlock:
		// Clean copy still lives in its slot; no write needed.
		victim.State = PageSwapped
	default:
		victim.State = PageUnmapped
	}
	victim.Frame = 0
	victim.Dirty = false
	victim.Referenced = false
	return nil
}

func (m *Manager) framePage(frame uint32) []byte {
	off := uint64(frame) * uint64(m.pageSize)
	return m.memory[off : off+uint64(m.pageSize)]
}

// PageTableOf returns pid's page table, or nil.
func (m *Manager) PageTableOf(pid int) *PageTable {
	return m.tables[pid]
}

// Frames exposes the frame table for inspection and dumps.
func (m *Manager) Frames() *FrameTable {
	return m.frames
}

// Stats returns the global counters.
func (m *Manager) Stats() Stats {
	return m.stats
}

// ProcessStats returns pid's counters (zero value if unknown).
func (m *Manager) ProcessStats(pid int) Stats {
	if s, ok := m.procStats[pid]; ok {
		return *s
	}
	return Stats{}
}

// DumpPageTable prints pid's page table to the kernel log stream.
func (m *Manager) DumpPageTable(pid int) {
	pt, ok := m.tables[pid]
	if !ok {
		m.log.Printf("PID %d has no page table", pid)
		return
	}
	m.log.Printf("=== Page Table for PID %d ===", pid)
	m.log.Printf("VPage | State    | Frame | Slot | Dirty | Ref")
	for i := uint32(0); i < pt.Len(); i++ {
		e := pt.Entry(i)
		switch e.State {
		case PageResident:
			m.log.Printf("%5d | resident | %5d |    - | %5v | %v", i, e.Frame, e.Dirty, e.Referenced)
		case PageSwapped:
			m.log.Printf("%5d | swapped  |     - | %4d | %5v | %v", i, e.Slot, e.Dirty, e.Referenced)
		}
	}
	s := m.ProcessStats(pid)
	m.log.Printf("Stats: %d page faults, %d accesses", s.PageFaults, s.MemoryAccesses)
}

// DumpPhysical prints the frame table to the kernel log stream.
func (m *Manager) DumpPhysical() {
	m.log.Printf("=== Physical Memory ===")
	m.log.Printf("Total: %d frames", m.frames.Len())
	m.log.Printf("Free: %d", m.frames.CountFree())
	m.log.Printf("Frame | Status | PID | VPage")
	for f := uint32(0); f < m.frames.Len(); f++ {
		info := m.frames.Get(f)
		if info.Allocated {
			m.log.Printf("%5d |  Used  | %3d | %5d", f, info.PID, info.VPage)
		} else {
			m.log.Printf("%5d |  Free  |  -  |     -", f)
		}
	}
}

// CheckConsistency verifies the frame table and page tables agree: every
// resident page's frame points back at it and no frame is double
// claimed. Tests call it after workloads.
func (m *Manager) CheckConsistency() error {
	for pid, pt := range m.tables {
		for i := uint32(0); i < pt.Len(); i++ {
			e := pt.Entry(i)
			if e.State != PageResident {
				continue
			}
			info := m.frames.Get(e.Frame)
			if !info.Allocated || info.PID != pid || info.VPage != i {
				return fmt.Errorf("frame %d claims (%d,%d) but page table says (%d,%d)",
					e.Frame, info.PID, info.VPage, pid, i)
			}
		}
	}
	for f := uint32(0); f < m.frames.Len(); f++ {
		info := m.frames.Get(f)
		if !info.Allocated {
			continue
		}
		pt, ok := m.tables[info.PID]
		if !ok {
			return fmt.Errorf("frame %d owned by unknown PID %d", f, info.PID)
		}
		e := pt.Entry(info.VPage)
		if e.State != PageResident || e.Frame != f {
			return fmt.Errorf("frame %d not mirrored by page table of PID %d", f, info.PID)
		}
	}
	return nil
}
