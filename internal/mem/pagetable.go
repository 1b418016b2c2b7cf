// File: internal/mem/pagetable.go
package mem

import "github.com/tinixos/tinix/internal/types"

// PageState tracks where a virtual page currently lives.
type PageState int

const (
	PageUnmapped PageState = iota
	PageResident
	PageSwapped
)

// PageTableEntry records the mapping for one virtual page. Frame is
// meaningful only when resident, Slot only when swapped.
type PageTableEntry struct {
	State      PageState
	Frame      uint32
	Slot       uint32
	Dirty      bool
	Referenced bool
}

// PageTable maps the virtual pages of one process.
type PageTable struct {
	entries []PageTableEntry
}

// NewPageTable builds an all-unmapped table of numPages entries.
func NewPageTable(numPages uint32) *PageTable {
	pt := &PageTable{entries: make([]PageTableEntry, numPages)}
	pt.Clear()
	return pt
}

// Entry returns the entry for page n. The caller guarantees range.
func (pt *PageTable) Entry(n uint32) *PageTableEntry {
	return &pt.entries[n]
}

// Len returns the number of virtual pages.
func (pt *PageTable) Len() uint32 {
	return uint32(len(pt.entries))
}

// Clear unmaps every page.
func (pt *PageTable) Clear() {
	for i := range pt.entries {
		pt.entries[i] = PageTableEntry{Slot: types.InvalidBlock}
	}
}
