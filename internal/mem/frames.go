// File: internal/mem/frames.go
package mem

// FrameInfo is one physical frame's occupancy record. The frame table
// is the authority for "what lives in frame F"; page tables are the
// authority for "where does (pid, vpage) live". The two reconcile at
// every transition.
type FrameInfo struct {
	Allocated bool
	PID       int
	VPage     uint32
}

// FrameTable tracks every physical frame.
type FrameTable struct {
	frames []FrameInfo
}

// NewFrameTable builds an empty table of n frames.
func NewFrameTable(n uint32) *FrameTable {
	return &FrameTable{frames: make([]FrameInfo, n)}
}

// Len returns the number of physical frames.
func (t *FrameTable) Len() uint32 {
	return uint32(len(t.frames))
}

// Get returns the occupancy of frame f.
func (t *FrameTable) Get(f uint32) FrameInfo {
	return t.frames[f]
}

// AllocFree claims the lowest free frame for (pid, vpage).
func (t *FrameTable) AllocFree(pid int, vpage uint32) (uint32, bool) {
	for i := range t.frames {
		if !t.frames[i].Allocated {
			t.frames[i] = FrameInfo{Allocated: true, PID: pid, VPage: vpage}
			return uint32(i), true
		}
	}
	return 0, false
}

// Assign reassigns frame f to (pid, vpage).
func (t *FrameTable) Assign(f uint32, pid int, vpage uint32) {
	t.frames[f] = FrameInfo{Allocated: true, PID: pid, VPage: vpage}
}

// Free releases frame f.
func (t *FrameTable) Free(f uint32) {
	t.frames[f] = FrameInfo{}
}

// CountFree returns the number of unallocated frames.
func (t *FrameTable) CountFree() uint32 {
	n := uint32(0)
	for i := range t.frames {
		if !t.frames[i].Allocated {
			n++
		}
	}
	return n
}
