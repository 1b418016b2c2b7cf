// File: internal/fs/fs.go

// Package fs implements the Tinix file system: an inode-and-block layout
// with bitmaps and a hierarchical directory tree, persisted to the FS
// region of the block device. Block 0 holds the superblock, blocks 1-2
// the bitmaps, blocks 3-6 the inode table, and data blocks follow.
package fs

import (
	"fmt"

	"github.com/tinixos/tinix/internal/interfaces"
	"github.com/tinixos/tinix/internal/klog"
	"github.com/tinixos/tinix/internal/types"
)

// FileSystem owns all inodes, bitmaps, and FS-region blocks. The swap
// region above TotalBlocks is out of its jurisdiction.
type FileSystem struct {
	dev interfaces.BlockDevice
	log *klog.Log

	blockSize     uint32
	totalBlocks   uint32 // first swap block; FS blocks live below this
	maxDataBlocks uint32

	sb          types.SuperBlock
	inodeBitmap *bitmap
	dataBitmap  *bitmap

	mounted bool
	cwd     string
}

// New builds an unmounted file system over dev. totalBlocks is the
// partition boundary: the first block index owned by the swap region.
func New(dev interfaces.BlockDevice, totalBlocks uint32, log *klog.Log) *FileSystem {
	return &FileSystem{
		dev:           dev,
		log:           log,
		blockSize:     dev.BlockSize(),
		totalBlocks:   totalBlocks,
		maxDataBlocks: totalBlocks - types.DataBlocksStart,
		cwd:           "/",
	}
}

// Mounted reports whether FS operations are currently possible.
func (f *FileSystem) Mounted() bool { return f.mounted }

// SuperBlock returns a copy of the in-core superblock for inspection.
func (f *FileSystem) SuperBlock() types.SuperBlock { return f.sb }

// Cwd returns the current working directory.
func (f *FileSystem) Cwd() string { return f.cwd }

// MaxFileSize returns the byte capacity of one file (direct blocks
// only; there are no indirect pointers).
func (f *FileSystem) MaxFileSize() uint32 {
	return types.DirectBlocks * f.blockSize
}

// Format reinitializes the FS region: fresh superblock, bitmaps with
// only the root inode marked, a zeroed inode table, and a root directory
// holding `.` and `..`. Idempotent, and leaves the file system mounted.
func (f *FileSystem) Format() error {
	f.log.FSFormatting()

	f.sb = types.SuperBlock{
		Magic:            types.Magic,
		TotalBlocks:      f.totalBlocks,
		TotalInodes:      types.MaxInodes,
		FreeBlocks:       f.maxDataBlocks,
		FreeInodes:       types.MaxInodes - 1, // root inode
		InodeBitmapBlock: types.InodeBitmapBlock,
		DataBitmapBlock:  types.DataBitmapBlock,
		InodeTableStart:  types.InodeTableStart,
		InodeTableBlocks: types.InodeTableBlocks,
		DataBlocksStart:  types.DataBlocksStart,
	}

	f.inodeBitmap = newBitmap(types.MaxInodes, f.blockSize)
	f.dataBitmap = newBitmap(f.maxDataBlocks, f.blockSize)
	f.inodeBitmap.set(types.RootInode)

	zero := make([]byte, f.blockSize)
	for i := uint32(0); i < types.InodeTableBlocks; i++ {
		if err := f.dev.WriteBlock(types.InodeTableStart+i, zero); err != nil {
			return fmt.Errorf("format: clearing inode table: %w", err)
		}
	}

	if err := f.initRootDirectory(); err != nil {
		return fmt.Errorf("format: %w", err)
	}

	if err := f.flushMeta(); err != nil {
		return fmt.Errorf("format: %w", err)
	}

	f.mounted = true
	f.cwd = "/"

	f.log.FSFormatComplete(f.sb.TotalBlocks, f.sb.TotalInodes)
	return nil
}

func (f *FileSystem) initRootDirectory() error {
	block, err := f.allocBlock()
	if err != nil {
		return err
	}

	root := types.Inode{
		Type:       types.FileTypeDirectory,
		Size:       2 * types.DirentSize,
		BlocksUsed: 1,
	}
	for i := range root.Direct {
		root.Direct[i] = types.InvalidBlock
	}
	root.Direct[0] = block

	if err := f.writeInode(types.RootInode, root); err != nil {
		return err
	}

	buf := make([]byte, f.blockSize)
	f.clearDirBlock(buf)
	encodeDirent(types.DirectoryEntry{Name: ".", InodeNum: types.RootInode}, buf[0:types.DirentSize])
	encodeDirent(types.DirectoryEntry{Name: "..", InodeNum: types.RootInode}, buf[types.DirentSize:2*types.DirentSize])

	if err := f.dev.WriteBlock(block, buf); err != nil {
		return err
	}

	f.log.FSRootCreated(types.RootInode, block)
	return nil
}

// clearDirBlock initializes every entry slot in buf to a tombstone.
func (f *FileSystem) clearDirBlock(buf []byte) {
	empty := types.DirectoryEntry{Name: "", InodeNum: types.InvalidInode}
	for off := uint32(0); off+types.DirentSize <= f.blockSize; off += types.DirentSize {
		encodeDirent(empty, buf[off:off+types.DirentSize])
	}
}

// Mount loads the superblock and bitmaps. A wrong magic or a layout that
// disagrees with the partition boundary given to New fails the mount; the
// kernel facade reacts by reformatting.
func (f *FileSystem) Mount() error {
	f.log.FSMounting()

	buf := make([]byte, f.blockSize)
	if err := f.dev.ReadBlock(types.SuperblockBlock, buf); err != nil {
		return fmt.Errorf("mount: reading superblock: %w", err)
	}
	sb, err := decodeSuperBlock(buf)
	if err != nil {
		return fmt.Errorf("mount: %w", err)
	}

	if sb.Magic != types.Magic {
		f.log.FSMountBadMagic(types.Magic, sb.Magic)
		return fmt.Errorf("mount: %w", types.ErrBadMagic)
	}
	if sb.TotalBlocks != f.totalBlocks || sb.TotalInodes != types.MaxInodes {
		f.log.FSMountLayoutMismatch()
		return fmt.Errorf("mount: %w", types.ErrLayoutMismatch)
	}

	f.sb = sb

	f.inodeBitmap = newBitmap(types.MaxInodes, f.blockSize)
	if err := f.dev.ReadBlock(sb.InodeBitmapBlock, f.inodeBitmap.bits); err != nil {
		return fmt.Errorf("mount: reading inode bitmap: %w", err)
	}
	f.dataBitmap = newBitmap(f.maxDataBlocks, f.blockSize)
	if err := f.dev.ReadBlock(sb.DataBitmapBlock, f.dataBitmap.bits); err != nil {
		return fmt.Errorf("mount: reading data bitmap: %w", err)
	}

	f.mounted = true
	f.cwd = "/"

	f.log.FSMountOK(f.sb.FreeBlocks, f.sb.FreeInodes)
	return nil
}

// flushMeta persists the superblock and both bitmaps. Every public
// mutation ends with a flush so an abrupt exit between shell commands
// leaves the accounting invariant intact on disk.
func (f *FileSystem) flushMeta() error {
	buf := make([]byte, f.blockSize)
	encodeSuperBlock(f.sb, buf)
	if err := f.dev.WriteBlock(types.SuperblockBlock, buf); err != nil {
		return fmt.Errorf("flushing superblock: %w", err)
	}
	if err := f.dev.WriteBlock(types.InodeBitmapBlock, f.inodeBitmap.bits); err != nil {
		return fmt.Errorf("flushing inode bitmap: %w", err)
	}
	if err := f.dev.WriteBlock(types.DataBitmapBlock, f.dataBitmap.bits); err != nil {
		return fmt.Errorf("flushing data bitmap: %w", err)
	}
	return nil
}

// --- allocators ---
//
// Every allocation flips one bitmap bit and moves the matching
// superblock counter; frees do the inverse. Lowest index wins.

func (f *FileSystem) allocBlock() (uint32, error) {
	bit, ok := f.dataBitmap.allocLowest()
	if !ok {
		return types.InvalidBlock, types.ErrNoSpace
	}
	f.sb.FreeBlocks--
	return types.DataBlocksStart + bit, nil
}

func (f *FileSystem) freeBlock(block uint32) {
	if block == types.InvalidBlock || block < types.DataBlocksStart || block >= f.totalBlocks {
		return
	}
	bit := block - types.DataBlocksStart
	if f.dataBitmap.test(bit) {
		f.dataBitmap.clear(bit)
		f.sb.FreeBlocks++
	}
}

func (f *FileSystem) allocInode() (uint32, error) {
	n, ok := f.inodeBitmap.allocLowest()
	if !ok {
		return types.InvalidInode, types.ErrNoInodes
	}
	f.sb.FreeInodes--
	return n, nil
}

func (f *FileSystem) freeInode(n uint32) {
	if n == types.InvalidInode || n >= types.MaxInodes {
		return
	}
	if f.inodeBitmap.test(n) {
		f.inodeBitmap.clear(n)
		f.sb.FreeInodes++
	}
}

// --- inode table I/O ---

func (f *FileSystem) readInode(n uint32) (types.Inode, error) {
	if n >= types.MaxInodes {
		return types.Inode{}, fmt.Errorf("inode %d out of range", n)
	}
	perBlock := f.blockSize / types.InodeSize
	buf := make([]byte, f.blockSize)
	if err := f.dev.ReadBlock(types.InodeTableStart+n/perBlock, buf); err != nil {
		return types.Inode{}, fmt.Errorf("reading inode %d: %w", n, err)
	}
	off := (n % perBlock) * types.InodeSize
	return decodeInode(buf[off : off+types.InodeSize]), nil
}

func (f *FileSystem) writeInode(n uint32, ino types.Inode) error {
	if n >= types.MaxInodes {
		return fmt.Errorf("inode %d out of range", n)
	}
	perBlock := f.blockSize / types.InodeSize
	block := types.InodeTableStart + n/perBlock
	buf := make([]byte, f.blockSize)
	if err := f.dev.ReadBlock(block, buf); err != nil {
		return fmt.Errorf("reading inode table block %d: %w", block, err)
	}
	off := (n % perBlock) * types.InodeSize
	encodeInode(ino, buf[off:off+types.InodeSize])
	if err := f.dev.WriteBlock(block, buf); err != nil {
		return fmt.Errorf("writing inode %d: %w", n, err)
	}
	return nil
}
