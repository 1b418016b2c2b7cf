// File: internal/proc/pcb.go
package proc

import "github.com/tinixos/tinix/internal/types"

// Script fds start at 3; 0-2 are reserved and never assigned.
const autoFdBase = 3

// OpenFile is one slot of a process's open-file table: the FS inode it
// references and the process-private offset cursor.
type OpenFile struct {
	Inode  uint32
	Offset uint32
}

// PCB is a process control block. One exists per live process; the
// scheduler owns the set.
type PCB struct {
	PID    int
	State  types.ProcState
	Source string

	Program *Program
	PC      int

	SleepTicks    uint64
	WaitingDevice uint32

	Files map[int]*OpenFile
}

func newPCB(pid int, prog *Program) *PCB {
	return &PCB{
		PID:     pid,
		State:   types.ProcReady,
		Source:  prog.Source,
		Program: prog,
		Files:   make(map[int]*OpenFile),
	}
}

// allocFd returns the lowest free descriptor at or above autoFdBase.
func (p *PCB) allocFd() int {
	fd := autoFdBase
	for {
		if _, used := p.Files[fd]; !used {
			return fd
		}
		fd++
	}
}

// Done reports whether the program counter ran off the program end.
func (p *PCB) Done() bool {
	return p.PC >= len(p.Program.Instructions)
}
