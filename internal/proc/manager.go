// File: internal/proc/manager.go

// Package proc implements the process model and the discrete tick
// scheduler: PCBs, pc program execution, and the coordination of memory
// faults, device arbitration, and file I/O per instruction.
package proc

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/afero"

	"github.com/tinixos/tinix/internal/devices"
	"github.com/tinixos/tinix/internal/fs"
	"github.com/tinixos/tinix/internal/klog"
	"github.com/tinixos/tinix/internal/mem"
	"github.com/tinixos/tinix/internal/types"
)

// Manager owns the process table and the tick loop. One instruction of
// one process executes per tick; page faults resolve within the tick.
type Manager struct {
	procs     map[int]*PCB
	nextPID   int
	curPID    int
	preferred int // manually scheduled via `run`; 0 when unset

	mm     *mem.Manager
	devs   *devices.Table
	fsys   *fs.FileSystem
	hostFs afero.Fs
	log    *klog.Log

	virtualPages uint32
}

// NewManager wires the scheduler to its collaborators. hostFs is where
// pc scripts are read from (the real working directory in the binary).
func NewManager(mm *mem.Manager, devs *devices.Table, fsys *fs.FileSystem, hostFs afero.Fs, virtualPages uint32, log *klog.Log) *Manager {
	return &Manager{
		procs:        make(map[int]*PCB),
		nextPID:      1,
		curPID:       -1,
		mm:           mm,
		devs:         devs,
		fsys:         fsys,
		hostFs:       hostFs,
		log:          log,
		virtualPages: virtualPages,
	}
}

// CreateFromFile decodes the pc script at path and admits it as a new
// ready process.
func (m *Manager) CreateFromFile(path string) (int, error) {
	prog, err := LoadProgram(m.hostFs, path, m.log)
	if err != nil {
		return -1, err
	}
	return m.admit(prog), nil
}

// CreateCompute admits a compute-only process of the given length.
func (m *Manager) CreateCompute(length int) int {
	return m.admit(ComputeOnly(length))
}

func (m *Manager) admit(prog *Program) int {
	pid := m.nextPID
	m.nextPID++

	m.procs[pid] = newPCB(pid, prog)
	m.mm.CreateProcess(pid, m.virtualPages)
	m.log.Printf("[Proc] Process %d created with %d instructions", pid, len(prog.Instructions))
	return pid
}

// Alive reports whether pid is still in the process table.
func (m *Manager) Alive(pid int) bool {
	p, ok := m.procs[pid]
	return ok && p.State != types.ProcTerminated
}

// Get returns the PCB for pid, or nil.
func (m *Manager) Get(pid int) *PCB {
	return m.procs[pid]
}

// pids returns live process ids in ascending order; iteration order is
// part of the determinism contract.
func (m *Manager) pids() []int {
	out := make([]int, 0, len(m.procs))
	for pid := range m.procs {
		out = append(out, pid)
	}
	sort.Ints(out)
	return out
}

// Tick runs one scheduler step: sleepers count down, the lowest-PID
// ready process executes one instruction, and a finished process is
// reaped with all of its resources.
func (m *Manager) Tick() {
	m.wakeSleepers()

	pid := m.pickNext()
	if pid < 0 {
		return
	}

	p := m.procs[pid]
	if pid != m.curPID {
		m.log.Scheduled(pid)
		m.curPID = pid
	}
	p.State = types.ProcRunning

	if p.Done() {
		// The last instruction slept or blocked; the process finishes on
		// its first tick back without executing anything further.
		m.reap(p)
		m.log.TickCompleted(p.PID)
		return
	}

	inst := p.Program.Instructions[p.PC]
	p.PC++
	m.execute(p, inst)

	if p.State == types.ProcTerminated {
		// Killed mid-instruction (out of memory and swap).
		return
	}
	if p.State == types.ProcRunning && p.Done() {
		m.reap(p)
		m.log.TickCompleted(p.PID)
		return
	}
	if p.State != types.ProcRunning {
		m.curPID = -1
	}
}

// TickN runs n scheduler steps.
func (m *Manager) TickN(n int) {
	for i := 0; i < n; i++ {
		m.Tick()
	}
}

func (m *Manager) wakeSleepers() {
	for _, pid := range m.pids() {
		p := m.procs[pid]
		if p.State != types.ProcSleeping {
			continue
		}
		if p.SleepTicks > 0 {
			p.SleepTicks--
		}
		if p.SleepTicks == 0 {
			p.State = types.ProcReady
			m.log.TickAutoWoken(pid)
		}
	}
}

func (m *Manager) pickNext() int {
	if m.preferred != 0 {
		if p, ok := m.procs[m.preferred]; ok && (p.State == types.ProcReady || p.State == types.ProcRunning) {
			return m.preferred
		}
		m.preferred = 0
	}
	for _, pid := range m.pids() {
		p := m.procs[pid]
		if p.State == types.ProcReady || p.State == types.ProcRunning {
			return pid
		}
	}
	return -1
}

// Run marks pid as the manually scheduled process: it runs ahead of
// lower PIDs until it blocks or completes (shell `run` command).
func (m *Manager) Run(pid int) error {
	p, ok := m.procs[pid]
	if !ok {
		return fmt.Errorf("%w: %d", types.ErrNoSuchProcess, pid)
	}
	if p.State != types.ProcReady && p.State != types.ProcRunning {
		return fmt.Errorf("process %d is not ready", pid)
	}
	m.preferred = pid
	return nil
}

// reap tears down a process: page table and swap slots, open files,
// held devices (cascading wake-ups), then the PCB itself.
func (m *Manager) reap(p *PCB) {
	if err := m.mm.FreeProcess(p.PID); err != nil {
		m.log.Printf("[Kernel] %v", err)
	}

	if n := len(p.Files); n > 0 {
		for fd := range p.Files {
			delete(p.Files, fd)
		}
		m.log.ExecClosedFiles(n, p.PID)
	}

	m.devs.ReleaseAll(p.PID, m.Alive, func(woken int) {
		if w := m.procs[woken]; w != nil && w.State == types.ProcBlockedDevice {
			w.State = types.ProcReady
		}
	})

	p.State = types.ProcTerminated
	delete(m.procs, p.PID)
	if m.curPID == p.PID {
		m.curPID = -1
	}
}

// Kill force-terminates pid from the shell.
func (m *Manager) Kill(pid int) error {
	p, ok := m.procs[pid]
	if !ok {
		return fmt.Errorf("%w: %d", types.ErrNoSuchProcess, pid)
	}
	m.reap(p)
	m.log.Printf("[Proc] Process %d terminated", pid)
	return nil
}

// Block puts pid to sleep for the given ticks (shell `block` command).
func (m *Manager) Block(pid int, ticks uint64) error {
	p, ok := m.procs[pid]
	if !ok {
		return fmt.Errorf("%w: %d", types.ErrNoSuchProcess, pid)
	}
	if p.State != types.ProcReady && p.State != types.ProcRunning {
		return fmt.Errorf("process %d cannot be blocked in state %s", pid, p.State)
	}
	p.State = types.ProcSleeping
	p.SleepTicks = ticks
	if m.curPID == pid {
		m.curPID = -1
	}
	return nil
}

// Wakeup readies a sleeping or device-blocked pid (shell `wakeup`).
func (m *Manager) Wakeup(pid int) error {
	p, ok := m.procs[pid]
	if !ok {
		return fmt.Errorf("%w: %d", types.ErrNoSuchProcess, pid)
	}
	if p.State != types.ProcSleeping && p.State != types.ProcBlockedDevice {
		return fmt.Errorf("process %d is not blocked", pid)
	}
	p.State = types.ProcReady
	p.SleepTicks = 0
	return nil
}

// Dump prints the process table to the kernel log stream.
func (m *Manager) Dump() {
	m.log.Printf("PID\tState\t\tPC/Total\tSource")
	for _, pid := range m.pids() {
		p := m.procs[pid]
		m.log.Printf("%d\t%s\t\t%d/%d\t\t%s", pid, p.State, p.PC, len(p.Program.Instructions), p.Source)
	}
	if m.curPID != -1 {
		m.log.Printf("Currently running: %d", m.curPID)
	} else {
		m.log.Printf("CPU idle")
	}
}

// execute dispatches one decoded instruction against the kernel
// subsystems.
func (m *Manager) execute(p *PCB, inst Instruction) {
	switch inst.Op {
	case OpCompute:
		m.log.Exec(p.PID, "Compute")

	case OpMemRead:
		m.log.Exec(p.PID, fmt.Sprintf("MemRead addr=%d", inst.Arg1))
		m.access(p, inst.Arg1, types.AccessRead)

	case OpMemWrite:
		m.log.Exec(p.PID, fmt.Sprintf("MemWrite addr=%d", inst.Arg1))
		m.access(p, inst.Arg1, types.AccessWrite)

	case OpSleep:
		m.log.Exec(p.PID, fmt.Sprintf("Sleep %d", inst.Arg1))
		if inst.Arg1 > 0 {
			p.State = types.ProcSleeping
			p.SleepTicks = inst.Arg1
		}

	case OpDevRequest:
		m.log.Exec(p.PID, fmt.Sprintf("DevRequest dev=%d", inst.Arg1))
		granted, err := m.devs.Request(uint32(inst.Arg1), p.PID)
		if err != nil {
			m.log.Printf("[Dev] %v", err)
			return
		}
		if !granted {
			p.State = types.ProcBlockedDevice
			p.WaitingDevice = uint32(inst.Arg1)
		}

	case OpDevRelease:
		m.log.Exec(p.PID, fmt.Sprintf("DevRelease dev=%d", inst.Arg1))
		woken, err := m.devs.Release(uint32(inst.Arg1), p.PID, m.Alive)
		if err != nil {
			m.log.Printf("[Dev] %v", err)
			return
		}
		if woken != devices.NoOwner {
			if w := m.procs[woken]; w != nil && w.State == types.ProcBlockedDevice {
				w.State = types.ProcReady
			}
		}

	case OpFileOpen:
		m.fileOpen(p, inst)
	case OpFileRead:
		m.fileRead(p, inst)
	case OpFileWrite:
		m.fileWrite(p, inst)
	case OpFileClose:
		m.fileClose(p, inst)
	}
}

// access runs a memory access; exhausting memory and swap is fatal to
// the faulting process only.
func (m *Manager) access(p *PCB, vaddr uint64, kind types.AccessType) {
	err := m.mm.Access(p.PID, vaddr, kind)
	if err == nil {
		return
	}
	if errors.Is(err, types.ErrOutOfMemoryAndSwap) {
		m.log.Printf("[Kernel] Killing process %d: out of memory and swap", p.PID)
		m.reap(p)
		return
	}
	m.log.Printf("[Memory] %v", err)
}

func (m *Manager) fileOpen(p *PCB, inst Instruction) {
	ino, err := m.fsys.LookupFile(inst.Path)
	if err != nil {
		m.log.FSError(err)
		return
	}

	fd := int(inst.Arg1)
	if !inst.HasFd {
		fd = p.allocFd()
	}
	p.Files[fd] = &OpenFile{Inode: ino}
	m.log.ExecFileOpen(inst.Path, fd)
}

func (m *Manager) fileRead(p *PCB, inst Instruction) {
	of, ok := p.Files[int(inst.Arg1)]
	if !ok {
		m.log.ExecUnknownFd("FileRead", inst.Arg1)
		return
	}

	st, err := m.fsys.Stat(of.Inode)
	if err != nil {
		m.log.FSError(err)
		return
	}
	avail := uint64(0)
	if st.Size > of.Offset {
		avail = uint64(st.Size - of.Offset)
	}
	toRead := inst.Arg2
	if toRead > avail {
		toRead = avail
	}

	buf := make([]byte, toRead)
	n, err := m.fsys.ReadAt(of.Inode, of.Offset, buf)
	if err != nil {
		m.log.FSError(err)
	}
	of.Offset += n
	m.log.ExecFileRead(int(inst.Arg1), inst.Arg2, n)
}

func (m *Manager) fileWrite(p *PCB, inst Instruction) {
	of, ok := p.Files[int(inst.Arg1)]
	if !ok {
		m.log.ExecUnknownFd("FileWrite", inst.Arg1)
		return
	}

	toWrite := inst.Arg2
	if limit := uint64(m.fsys.MaxFileSize()); toWrite > limit {
		toWrite = limit
	}
	data := make([]byte, toWrite)
	for i := range data {
		data[i] = 'x'
	}

	n, err := m.fsys.WriteAt(of.Inode, of.Offset, data)
	if err != nil {
		m.log.FSError(err)
	}
	of.Offset += n
	m.log.ExecFileWrite(int(inst.Arg1), inst.Arg2, n)
}

func (m *Manager) fileClose(p *PCB, inst Instruction) {
	fd := int(inst.Arg1)
	if _, ok := p.Files[fd]; !ok {
		m.log.ExecUnknownFd("FileClose", inst.Arg1)
		return
	}
	delete(p.Files, fd)
	m.log.ExecFileClose(fd)
}
