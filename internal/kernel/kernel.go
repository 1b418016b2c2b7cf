// File: internal/kernel/kernel.go

// Package kernel wires the simulated subsystems together and exposes
// the operations the shell invokes. The Kernel value owns every
// subsystem for the process lifetime; there is no package-global state.
package kernel

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/tinixos/tinix/internal/config"
	"github.com/tinixos/tinix/internal/devices"
	"github.com/tinixos/tinix/internal/fs"
	"github.com/tinixos/tinix/internal/klog"
	"github.com/tinixos/tinix/internal/mem"
	"github.com/tinixos/tinix/internal/proc"
	"github.com/tinixos/tinix/internal/swap"
	"github.com/tinixos/tinix/internal/types"

	"github.com/tinixos/tinix/internal/device"
)

// Kernel is the facade over the simulated OS.
type Kernel struct {
	cfg  *config.Config
	log  *klog.Log
	disk *device.Disk

	fs   *fs.FileSystem
	swap *swap.Area
	mm   *mem.Manager
	devs *devices.Table
	pm   *proc.Manager
}

// Boot opens (or creates) the disk image on hostFs, builds every
// subsystem, and mounts the file system, formatting a fresh or
// mismatched disk.
func Boot(cfg *config.Config, hostFs afero.Fs, log *klog.Log) (*Kernel, error) {
	log.KernelBoot(uuid.NewString())

	disk, err := device.Open(hostFs, cfg.DiskImageName, cfg.DiskNumBlocks, cfg.DiskBlockSize, log)
	if err != nil {
		return nil, fmt.Errorf("boot: %w", err)
	}

	k := &Kernel{cfg: cfg, log: log, disk: disk}
	k.fs = fs.New(disk, cfg.SwapStart(), log)
	k.swap = swap.New(disk, cfg.SwapStart(), log)
	k.mm = mem.NewManager(cfg.NumFrames, cfg.PageSize, k.swap, log)
	k.devs = devices.NewTable(log)
	k.pm = proc.NewManager(k.mm, k.devs, k.fs, hostFs, cfg.VirtualPages, log)

	if err := k.Mount(); err != nil {
		return nil, fmt.Errorf("boot: %w", err)
	}
	return k, nil
}

// Shutdown releases the backing disk.
func (k *Kernel) Shutdown() error {
	return k.disk.Close()
}

// Log returns the kernel log sink.
func (k *Kernel) Log() *klog.Log { return k.log }

// --- file system operations ---

// Format reinitializes the FS region.
func (k *Kernel) Format() error {
	return k.fs.Format()
}

// Mount loads the file system. A disk without a valid Tinix layout
// (wrong magic, or a partition boundary that disagrees with the
// configured geometry) is reformatted once and the mount retried.
func (k *Kernel) Mount() error {
	err := k.fs.Mount()
	if err == nil {
		return nil
	}
	if !errors.Is(err, types.ErrBadMagic) && !errors.Is(err, types.ErrLayoutMismatch) {
		return err
	}

	k.log.KernelFormatting()
	if err := k.fs.Format(); err != nil {
		return err
	}
	return k.fs.Mount()
}

// FSInfo dumps the superblock to the log stream.
func (k *Kernel) FSInfo() error {
	if !k.fs.Mounted() {
		return types.ErrNotMounted
	}
	k.log.SuperBlockDump(k.fs.SuperBlock())
	return nil
}

// List returns the entries of the directory at path.
func (k *Kernel) List(path string) ([]fs.ListEntry, error) {
	return k.fs.List(path)
}

// Mkdir creates a directory.
func (k *Kernel) Mkdir(path string) error {
	ino, err := k.fs.Mkdir(path)
	if err != nil {
		return err
	}
	k.log.Printf("[FS] Created directory: %s (inode=%d)", path, ino)
	return nil
}

// Touch creates an empty regular file.
func (k *Kernel) Touch(path string) error {
	ino, err := k.fs.CreateFile(path)
	if err != nil {
		return err
	}
	k.log.Printf("[FS] Created file: %s (inode=%d)", path, ino)
	return nil
}

// Remove deletes a regular file.
func (k *Kernel) Remove(path string) error {
	if err := k.fs.Remove(path); err != nil {
		return err
	}
	k.log.Printf("[FS] Removed file: %s", path)
	return nil
}

// ChangeDir moves the working directory.
func (k *Kernel) ChangeDir(path string) error {
	return k.fs.ChangeDir(path)
}

// Cwd returns the working directory.
func (k *Kernel) Cwd() string {
	return k.fs.Cwd()
}

// Cat returns the full contents of the file at path.
func (k *Kernel) Cat(path string) ([]byte, error) {
	ino, err := k.fs.LookupFile(path)
	if err != nil {
		return nil, err
	}
	st, err := k.fs.Stat(ino)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, st.Size)
	n, err := k.fs.ReadAt(ino, 0, buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// Echo truncates the file at path (creating it if absent) and writes
// text followed by a newline.
func (k *Kernel) Echo(path, text string) error {
	ino, err := k.fs.LookupFile(path)
	if errors.Is(err, types.ErrNotFound) {
		ino, err = k.fs.CreateFile(path)
	}
	if err != nil {
		return err
	}
	if err := k.fs.Truncate(ino); err != nil {
		return err
	}
	_, err = k.fs.WriteAt(ino, 0, append([]byte(text), '\n'))
	return err
}

// --- process and scheduler operations ---

// CreateProcessFromFile admits a pc script as a new process.
func (k *Kernel) CreateProcessFromFile(path string) (int, error) {
	return k.pm.CreateFromFile(path)
}

// CreateComputeProcess admits a compute-only process.
func (k *Kernel) CreateComputeProcess(length int) int {
	return k.pm.CreateCompute(length)
}

// Tick advances the scheduler n steps.
func (k *Kernel) Tick(n int) {
	k.pm.TickN(n)
}

// Kill force-terminates a process.
func (k *Kernel) Kill(pid int) error { return k.pm.Kill(pid) }

// Block puts a process to sleep for the given ticks.
func (k *Kernel) Block(pid int, ticks uint64) error { return k.pm.Block(pid, ticks) }

// Wakeup readies a blocked process.
func (k *Kernel) Wakeup(pid int) error { return k.pm.Wakeup(pid) }

// Run schedules a process ahead of lower PIDs.
func (k *Kernel) Run(pid int) error { return k.pm.Run(pid) }

// ProcDump prints the process table.
func (k *Kernel) ProcDump() { k.pm.Dump() }

// DevDump prints one status line per device.
func (k *Kernel) DevDump() { k.devs.Dump() }

// PageTableDump prints a process's page table.
func (k *Kernel) PageTableDump(pid int) { k.mm.DumpPageTable(pid) }

// MemDump prints the physical frame table.
func (k *Kernel) MemDump() { k.mm.DumpPhysical() }

// MemStats returns the global counters.
func (k *Kernel) MemStats() mem.Stats { return k.mm.Stats() }

// ProcessMemStats returns one process's counters.
func (k *Kernel) ProcessMemStats(pid int) mem.Stats { return k.mm.ProcessStats(pid) }

// Mem exposes the memory manager for consistency checks in tests.
func (k *Kernel) Mem() *mem.Manager { return k.mm }

// FS exposes the file system for tests.
func (k *Kernel) FS() *fs.FileSystem { return k.fs }

// Swap exposes the swap area for tests.
func (k *Kernel) Swap() *swap.Area { return k.swap }
