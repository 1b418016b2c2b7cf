// File: internal/device/disk.go

// Package device implements the simulated block device: a flat array of
// fixed-size blocks persisted to one image file in the working
// directory.
package device

import (
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/tinixos/tinix/internal/klog"
)

// Disk is a file-backed block device. Reads and writes are synchronous
// and byte-exact; every write is flushed before returning so a later
// invocation of the simulator observes it.
type Disk struct {
	file      afero.File
	numBlocks uint32
	blockSize uint32
}

// Open opens the disk image at path, creating and zero-filling it if it
// does not exist yet. The image size is numBlocks*blockSize bytes.
func Open(fsys afero.Fs, path string, numBlocks, blockSize uint32, log *klog.Log) (*Disk, error) {
	exists, err := afero.Exists(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat disk image: %w", err)
	}

	if !exists {
		size := uint64(numBlocks) * uint64(blockSize)
		log.DiskCreating(path, size/1024)
		if err := create(fsys, path, size); err != nil {
			return nil, err
		}
	}

	log.DiskOpening(path)
	f, err := fsys.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open disk image %s: %w", path, err)
	}

	return &Disk{file: f, numBlocks: numBlocks, blockSize: blockSize}, nil
}

func create(fsys afero.Fs, path string, size uint64) error {
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create disk image %s: %w", path, err)
	}
	defer f.Close()

	// Write zeroed 64 KiB chunks rather than Truncate: some backing
	// filesystems do not support sparse files.
	zero := make([]byte, 64*1024)
	var written uint64
	for written < size {
		chunk := uint64(len(zero))
		if size-written < chunk {
			chunk = size - written
		}
		if _, err := f.Write(zero[:chunk]); err != nil {
			return fmt.Errorf("failed to zero-fill disk image: %w", err)
		}
		written += chunk
	}
	return nil
}

// ReadBlock fills buf with the contents of block idx.
func (d *Disk) ReadBlock(idx uint32, buf []byte) error {
	if err := d.check(idx, buf); err != nil {
		return err
	}
	if _, err := d.file.ReadAt(buf, int64(idx)*int64(d.blockSize)); err != nil {
		return fmt.Errorf("read block %d: %w", idx, err)
	}
	return nil
}

// WriteBlock writes buf to block idx and flushes.
func (d *Disk) WriteBlock(idx uint32, buf []byte) error {
	if err := d.check(idx, buf); err != nil {
		return err
	}
	if _, err := d.file.WriteAt(buf, int64(idx)*int64(d.blockSize)); err != nil {
		return fmt.Errorf("write block %d: %w", idx, err)
	}
	if err := d.file.Sync(); err != nil {
		return fmt.Errorf("sync block %d: %w", idx, err)
	}
	return nil
}

func (d *Disk) check(idx uint32, buf []byte) error {
	if idx >= d.numBlocks {
		return fmt.Errorf("block %d out of range (disk has %d blocks)", idx, d.numBlocks)
	}
	if uint32(len(buf)) != d.blockSize {
		return fmt.Errorf("buffer size %d does not match block size %d", len(buf), d.blockSize)
	}
	return nil
}

// NumBlocks returns the total number of blocks on the device.
func (d *Disk) NumBlocks() uint32 { return d.numBlocks }

// BlockSize returns the size of a single block in bytes.
func (d *Disk) BlockSize() uint32 { return d.blockSize }

// Close releases the backing file.
func (d *Disk) Close() error { return d.file.Close() }
